// Package selection implements the rectangular slot-selection gesture used
// by admin calendars: a two-phase drag over the weekly grid that resolves
// into per-date block candidates.
package selection

import (
	"sync"
	"time"

	"sportbook/internal/calendar"
)

// Phase is the drag controller state.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseDragging Phase = "dragging"
)

// Cell addresses one grid cell by day column and slot row.
type Cell struct {
	Day  int
	Slot int
}

// Rect is a normalized selection rectangle (inclusive bounds).
type Rect struct {
	MinDay, MaxDay   int
	MinSlot, MaxSlot int
}

// BlockCandidate is one date's worth of a resolved selection, ready to be
// sent as a blocked-slot create request.
type BlockCandidate struct {
	Date      time.Time
	StartTime string
	EndTime   string
}

// CanStartDrag reports whether a drag may begin on a cell in the given
// state: not past, not closed, and not occupied by a booking or blocked
// slot. Tapping an occupied cell opens the detail dialog instead.
func CanStartDrag(state calendar.CellState) bool {
	switch state {
	case calendar.CellPast, calendar.CellClosed,
		calendar.CellBooked, calendar.CellPendingMine, calendar.CellBlocked:
		return false
	}
	return true
}

// Drag tracks one selection gesture. All methods are safe for concurrent
// use; each admin session owns its own Drag.
type Drag struct {
	mu        sync.Mutex
	phase     Phase
	start     Cell
	end       Cell
	rowCount  int
	updatedAt time.Time
}

// NewDrag returns an idle controller for a grid with rowCount slot rows.
func NewDrag(rowCount int) *Drag {
	return &Drag{phase: PhaseIdle, rowCount: rowCount}
}

// Phase returns the current phase.
func (d *Drag) Phase() Phase {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.phase
}

// Begin starts a drag on an eligible cell. It reports whether the drag
// started; on an ineligible cell the controller stays idle.
func (d *Drag) Begin(c Cell, state calendar.CellState) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.phase != PhaseIdle || !CanStartDrag(state) {
		return false
	}
	d.phase = PhaseDragging
	d.start = d.clamp(c)
	d.end = d.start
	d.updatedAt = time.Now()
	return true
}

// Extend moves the selection's end corner. Coordinates are clamped to the
// week's grid; no-op when idle.
func (d *Drag) Extend(c Cell) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.phase != PhaseDragging {
		return
	}
	d.end = d.clamp(c)
	d.updatedAt = time.Now()
}

// End terminates the drag and returns the normalized rectangle. ok is false
// when no drag was in progress.
func (d *Drag) End() (Rect, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.phase != PhaseDragging {
		return Rect{}, false
	}
	d.phase = PhaseIdle
	return normalize(d.start, d.end), true
}

// Abort cancels any in-progress drag. Mouse-up outside the grid and flow
// cancellation both land here so a selection can never get stuck.
func (d *Drag) Abort() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.phase = PhaseIdle
}

func (d *Drag) clamp(c Cell) Cell {
	if c.Day < 0 {
		c.Day = 0
	}
	if c.Day > 6 {
		c.Day = 6
	}
	if c.Slot < 0 {
		c.Slot = 0
	}
	if d.rowCount > 0 && c.Slot >= d.rowCount {
		c.Slot = d.rowCount - 1
	}
	return c
}

// normalize computes the rectangle from the min/max of both corners, so
// dragging up/left selects the same cells as down/right.
func normalize(a, b Cell) Rect {
	r := Rect{MinDay: a.Day, MaxDay: b.Day, MinSlot: a.Slot, MaxSlot: b.Slot}
	if r.MinDay > r.MaxDay {
		r.MinDay, r.MaxDay = r.MaxDay, r.MinDay
	}
	if r.MinSlot > r.MaxSlot {
		r.MinSlot, r.MaxSlot = r.MaxSlot, r.MinSlot
	}
	return r
}

// Resolve converts a rectangle into contiguous per-date candidates. Days
// already past at "now" are excluded even when the drag passed over them.
// The time range spans the first selected row's start to the last selected
// row's end.
func Resolve(rect Rect, days [7]time.Time, rows []calendar.TimeSlot, now time.Time) []BlockCandidate {
	if len(rows) == 0 || rect.MinSlot >= len(rows) {
		return nil
	}
	if rect.MaxSlot >= len(rows) {
		rect.MaxSlot = len(rows) - 1
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	startTime := rows[rect.MinSlot].Start
	endTime := rows[rect.MaxSlot].End

	var out []BlockCandidate
	for day := rect.MinDay; day <= rect.MaxDay && day < 7; day++ {
		if days[day].Before(today) {
			continue
		}
		out = append(out, BlockCandidate{
			Date:      days[day],
			StartTime: startTime,
			EndTime:   endTime,
		})
	}
	return out
}

// Store keeps one drag controller per admin, expiring abandoned gestures
// the way dialog sessions expire.
type Store struct {
	mu      sync.Mutex
	drags   map[int64]*Drag
	touched map[int64]time.Time
	timeout time.Duration
}

// NewStore creates a store; timeout <= 0 defaults to 10 minutes.
func NewStore(timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Store{
		drags:   make(map[int64]*Drag),
		touched: make(map[int64]time.Time),
		timeout: timeout,
	}
}

// GetOrCreate returns the admin's controller, replacing an expired one.
func (s *Store) GetOrCreate(adminID int64, rowCount int) *Drag {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.drags[adminID]
	if ok && time.Since(s.touched[adminID]) <= s.timeout {
		s.touched[adminID] = time.Now()
		return d
	}
	d = NewDrag(rowCount)
	s.drags[adminID] = d
	s.touched[adminID] = time.Now()
	return d
}

// Reset discards the admin's controller.
func (s *Store) Reset(adminID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drags, adminID)
	delete(s.touched, adminID)
}

// Cleanup removes expired controllers and returns how many were dropped.
func (s *Store) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, at := range s.touched {
		if time.Since(at) > s.timeout {
			delete(s.drags, id)
			delete(s.touched, id)
			removed++
		}
	}
	return removed
}
