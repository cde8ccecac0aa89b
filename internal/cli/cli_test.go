package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sportbook/internal/calendar"
	"sportbook/internal/selection"
)

func testWeekView() *weekView {
	// Week of Monday 2030-05-20.
	days := calendar.WeekDays(time.Date(2030, 5, 20, 0, 0, 0, 0, time.UTC), calendar.AnchorMonday)
	rows := []calendar.TimeSlot{
		{Start: "10:00", End: "11:00"},
		{Start: "11:00", End: "12:00"},
		{Start: "12:00", End: "13:00"},
	}
	grid := make([][7]calendar.CellState, len(rows))
	for i := range grid {
		for d := 0; d < 7; d++ {
			grid[i][d] = calendar.CellFree
		}
	}
	return &weekView{days: days, rows: rows, grid: grid}
}

func TestRectMapsDatesAndTimesToGridCoordinates(t *testing.T) {
	view := testWeekView()

	from := time.Date(2030, 5, 21, 0, 0, 0, 0, time.UTC)
	to := time.Date(2030, 5, 23, 0, 0, 0, 0, time.UTC)
	rect, err := view.rect(from, to, "11:00", "13:00")
	require.NoError(t, err)

	assert.Equal(t, selection.Rect{MinDay: 1, MaxDay: 3, MinSlot: 1, MaxSlot: 2}, rect)

	candidates := selection.Resolve(rect, view.days, view.rows, time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC))
	require.Len(t, candidates, 3)
	assert.Equal(t, "2030-05-21", candidates[0].Date.Format("2006-01-02"))
	assert.Equal(t, "11:00", candidates[0].StartTime)
	assert.Equal(t, "13:00", candidates[0].EndTime)
}

func TestRectRejectsDatesOutsideTheWeek(t *testing.T) {
	view := testWeekView()

	outside := time.Date(2030, 5, 28, 0, 0, 0, 0, time.UTC)
	_, err := view.rect(outside, outside, "10:00", "11:00")
	assert.Error(t, err)
}

func TestRectRejectsMisalignedTimes(t *testing.T) {
	view := testWeekView()
	day := time.Date(2030, 5, 20, 0, 0, 0, 0, time.UTC)

	_, err := view.rect(day, day, "10:30", "11:00")
	assert.Error(t, err)

	_, err = view.rect(day, day, "12:00", "11:00")
	assert.Error(t, err)
}

func TestCellMarksCoverEveryState(t *testing.T) {
	states := []calendar.CellState{
		calendar.CellFree, calendar.CellFreeWithDiscount, calendar.CellBooked,
		calendar.CellPendingMine, calendar.CellBlocked, calendar.CellOutsideHours,
		calendar.CellPast, calendar.CellClosed,
	}
	for _, state := range states {
		assert.NotEmpty(t, cellMarks[state], string(state))
	}
}

func TestWeekOutputFlattensGridByRow(t *testing.T) {
	view := testWeekView()
	view.grid[0][1] = calendar.CellBooked

	out := view.output("court-1")
	assert.Equal(t, "2030-05-20", out.WeekStart)
	require.Len(t, out.Cells, 21)
	assert.Equal(t, "2030-05-21", out.Cells[1].Date)
	assert.Equal(t, "10:00-11:00", out.Cells[1].Slot)
	assert.Equal(t, "booked", out.Cells[1].State)
}
