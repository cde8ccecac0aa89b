package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sportbook/internal/calendar"
)

func weekOf(monday time.Time) [7]time.Time {
	var days [7]time.Time
	for i := range days {
		days[i] = monday.AddDate(0, 0, i)
	}
	return days
}

func TestGenerateWeekKeyboard(t *testing.T) {
	days := weekOf(time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC))
	rows := []calendar.TimeSlot{
		{Start: "10:00", End: "11:00"},
		{Start: "11:00", End: "12:00"},
	}
	grid := make([][7]calendar.CellState, 2)
	for i := range grid {
		for d := 0; d < 7; d++ {
			grid[i][d] = calendar.CellFree
		}
	}
	grid[0][0] = calendar.CellBooked
	grid[0][5] = calendar.CellPendingMine
	grid[1][3] = calendar.CellFreeWithDiscount

	kb := GenerateWeekKeyboard(days, rows, grid, true, false)

	// header + 2 slot rows + nav
	require.Len(t, kb.InlineKeyboard, 4)
	require.Len(t, kb.InlineKeyboard[1], 8)

	// booked cells are inert, free cells carry their coordinates, and the
	// user's own pending request is tappable to cancel it
	assert.Equal(t, "noop", *kb.InlineKeyboard[1][1].CallbackData)
	assert.Equal(t, "cell:1:0", *kb.InlineKeyboard[1][2].CallbackData)
	assert.Equal(t, "mine:5:0", *kb.InlineKeyboard[1][6].CallbackData)
	assert.Equal(t, "cell:3:1", *kb.InlineKeyboard[2][4].CallbackData)

	nav := kb.InlineKeyboard[3]
	require.Len(t, nav, 3)
	assert.Equal(t, "week:prev", *nav[0].CallbackData)
	assert.Equal(t, "week:next", *nav[2].CallbackData)
}

func TestGenerateWeekKeyboardNoBackAtCurrentWeek(t *testing.T) {
	days := weekOf(time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC))
	rows := []calendar.TimeSlot{{Start: "10:00", End: "11:00"}}
	grid := make([][7]calendar.CellState, 1)

	kb := GenerateWeekKeyboard(days, rows, grid, false, false)
	nav := kb.InlineKeyboard[len(kb.InlineKeyboard)-1]
	require.Len(t, nav, 2)
	assert.Equal(t, "week:next", *nav[1].CallbackData)
}

func TestGenerateWeekKeyboardBlockingMode(t *testing.T) {
	days := weekOf(time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC))
	rows := []calendar.TimeSlot{{Start: "10:00", End: "11:00"}}
	grid := make([][7]calendar.CellState, 1)
	for d := 0; d < 7; d++ {
		grid[0][d] = calendar.CellFree
	}
	grid[0][2] = calendar.CellOutsideHours
	grid[0][5] = calendar.CellBooked

	kb := GenerateWeekKeyboard(days, rows, grid, false, true)
	row := kb.InlineKeyboard[1]

	// free and outside-hours cells are valid corners, booked is not
	assert.Equal(t, "corner:0:0", *row[1].CallbackData)
	assert.Equal(t, "corner:2:0", *row[3].CallbackData)
	assert.Equal(t, "noop", *row[6].CallbackData)
}

func TestParseCellData(t *testing.T) {
	d, s, ok := parseCellData("cell:3:12", "cell:")
	require.True(t, ok)
	assert.Equal(t, 3, d)
	assert.Equal(t, 12, s)

	_, _, ok = parseCellData("cell:9:0", "cell:")
	assert.False(t, ok, "day index out of range")

	_, _, ok = parseCellData("cell:abc", "cell:")
	assert.False(t, ok)
}
