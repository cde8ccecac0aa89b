package selection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sportbook/internal/calendar"
)

var rows = []calendar.TimeSlot{
	{Start: "08:00", End: "09:00"},
	{Start: "09:00", End: "10:00"},
	{Start: "10:00", End: "11:00"},
	{Start: "11:00", End: "12:00"},
	{Start: "12:00", End: "13:00"},
	{Start: "13:00", End: "14:00"},
}

func week(start time.Time) [7]time.Time {
	var days [7]time.Time
	for i := range days {
		days[i] = start.AddDate(0, 0, i)
	}
	return days
}

func TestCanStartDrag(t *testing.T) {
	eligible := []calendar.CellState{
		calendar.CellFree, calendar.CellFreeWithDiscount, calendar.CellOutsideHours,
	}
	for _, s := range eligible {
		assert.True(t, CanStartDrag(s), "state %s", s)
	}

	occupied := []calendar.CellState{
		calendar.CellPast, calendar.CellClosed, calendar.CellBooked,
		calendar.CellPendingMine, calendar.CellBlocked,
	}
	for _, s := range occupied {
		assert.False(t, CanStartDrag(s), "state %s", s)
	}
}

func TestDragLifecycle(t *testing.T) {
	d := NewDrag(len(rows))
	assert.Equal(t, PhaseIdle, d.Phase())

	// Begin on an occupied cell does not start a drag.
	assert.False(t, d.Begin(Cell{Day: 1, Slot: 2}, calendar.CellBooked))
	assert.Equal(t, PhaseIdle, d.Phase())

	require.True(t, d.Begin(Cell{Day: 1, Slot: 2}, calendar.CellFree))
	assert.Equal(t, PhaseDragging, d.Phase())

	// A second Begin while dragging is rejected.
	assert.False(t, d.Begin(Cell{Day: 2, Slot: 2}, calendar.CellFree))

	d.Extend(Cell{Day: 3, Slot: 4})
	rect, ok := d.End()
	require.True(t, ok)
	assert.Equal(t, Rect{MinDay: 1, MaxDay: 3, MinSlot: 2, MaxSlot: 4}, rect)
	assert.Equal(t, PhaseIdle, d.Phase())

	// End without a drag in progress reports ok=false.
	_, ok = d.End()
	assert.False(t, ok)
}

func TestDragRectangleDirectionIndependent(t *testing.T) {
	forward := NewDrag(len(rows))
	require.True(t, forward.Begin(Cell{Day: 1, Slot: 2}, calendar.CellFree))
	forward.Extend(Cell{Day: 3, Slot: 5})
	fr, ok := forward.End()
	require.True(t, ok)

	backward := NewDrag(len(rows))
	require.True(t, backward.Begin(Cell{Day: 3, Slot: 5}, calendar.CellFree))
	backward.Extend(Cell{Day: 1, Slot: 2})
	br, ok := backward.End()
	require.True(t, ok)

	assert.Equal(t, fr, br, "dragging up/left selects the same rectangle as down/right")

	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.Local)
	days := week(time.Date(2024, 6, 9, 0, 0, 0, 0, time.Local))
	assert.Equal(t,
		Resolve(fr, days, rows, now),
		Resolve(br, days, rows, now),
	)
}

func TestDragAbort(t *testing.T) {
	d := NewDrag(len(rows))
	require.True(t, d.Begin(Cell{Day: 0, Slot: 0}, calendar.CellFree))

	// Mouse-up outside the grid terminates the drag with no candidates.
	d.Abort()
	assert.Equal(t, PhaseIdle, d.Phase())
	_, ok := d.End()
	assert.False(t, ok)
}

func TestDragClampsToWeek(t *testing.T) {
	d := NewDrag(len(rows))
	require.True(t, d.Begin(Cell{Day: 5, Slot: 3}, calendar.CellFree))
	d.Extend(Cell{Day: 12, Slot: 99})

	rect, ok := d.End()
	require.True(t, ok)
	assert.Equal(t, 6, rect.MaxDay)
	assert.Equal(t, len(rows)-1, rect.MaxSlot)
}

func TestResolveContiguousRange(t *testing.T) {
	days := week(time.Date(2024, 6, 9, 0, 0, 0, 0, time.Local)) // Sun 9th..Sat 15th
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.Local)

	rect := Rect{MinDay: 1, MaxDay: 3, MinSlot: 2, MaxSlot: 4}
	cands := Resolve(rect, days, rows, now)
	require.Len(t, cands, 3)

	for i, c := range cands {
		assert.Equal(t, days[1+i], c.Date)
		assert.Equal(t, "10:00", c.StartTime)
		assert.Equal(t, "13:00", c.EndTime)
	}
}

func TestResolveExcludesPastDays(t *testing.T) {
	days := week(time.Date(2024, 6, 9, 0, 0, 0, 0, time.Local))
	// "Now" is Tuesday the 11th: Sunday and Monday are past.
	now := time.Date(2024, 6, 11, 9, 30, 0, 0, time.Local)

	rect := Rect{MinDay: 0, MaxDay: 3, MinSlot: 0, MaxSlot: 0}
	cands := Resolve(rect, days, rows, now)
	require.Len(t, cands, 2)
	assert.Equal(t, 11, cands[0].Date.Day())
	assert.Equal(t, 12, cands[1].Date.Day())
}

func TestResolveEmptyRows(t *testing.T) {
	days := week(time.Date(2024, 6, 9, 0, 0, 0, 0, time.Local))
	assert.Nil(t, Resolve(Rect{}, days, nil, time.Now()))
}

func TestStoreExpiry(t *testing.T) {
	s := NewStore(10 * time.Millisecond)

	d1 := s.GetOrCreate(7, len(rows))
	assert.Same(t, d1, s.GetOrCreate(7, len(rows)))

	time.Sleep(20 * time.Millisecond)
	d2 := s.GetOrCreate(7, len(rows))
	assert.NotSame(t, d1, d2, "expired controller is replaced")

	s.Reset(7)
	assert.NotSame(t, d2, s.GetOrCreate(7, len(rows)))

	s.GetOrCreate(8, len(rows))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 2, s.Cleanup())
}
