package calendar

import (
	"time"

	"sportbook/internal/model"
)

// CellState is the mutually exclusive display state of one (day, slot)
// cell.
type CellState string

const (
	CellClosed           CellState = "closed"
	CellPast             CellState = "past"
	CellBooked           CellState = "booked"
	CellPendingMine      CellState = "pending_mine"
	CellBlocked          CellState = "blocked"
	CellOutsideHours     CellState = "outside_hours"
	CellFreeWithDiscount CellState = "free_discount"
	CellFree             CellState = "free"
)

// MissingHoursPolicy decides what a day with no BranchHours record means.
// The public booking surface treats it as open with default hours; admin
// calendars treat it as closed.
type MissingHoursPolicy int

const (
	MissingHoursOpen MissingHoursPolicy = iota
	MissingHoursClosed
)

// HoursDefaults are the hours assumed for a missing record under
// MissingHoursOpen.
type HoursDefaults struct {
	Open  string
	Close string
}

// DefaultHours matches the backend's hours-seeding defaults.
var DefaultHours = HoursDefaults{Open: "08:00", Close: "22:00"}

// Snapshot bundles the four collections a week view is classified against,
// already narrowed to the displayed [weekStart, weekEnd) range by the
// backend query.
type Snapshot struct {
	Bookings     []model.Booking
	BlockedSlots []model.BlockedSlot
	Hours        map[int]model.BranchHours // keyed by day-of-week, 0 = Sunday
	Discounts    []model.Discount
}

// ClassifyOptions parameterizes the classifier per surface.
type ClassifyOptions struct {
	Policy MissingHoursPolicy
	// Defaults are used for missing records under MissingHoursOpen.
	Defaults HoursDefaults
	// ResourceID is the active resource filter; empty means none, so
	// bookings and blocked slots for any resource count.
	ResourceID string
	// UserID identifies the current user for pendingMine.
	UserID string
	// Now is the classification instant.
	Now time.Time
}

// Classify derives the display state of one cell. First matching rule wins,
// in this order: closed, past, booked, pendingMine, blocked, outsideHours,
// freeWithDiscount, free.
func Classify(day time.Time, slot TimeSlot, snap Snapshot, opts ClassifyOptions) CellState {
	if opts.Defaults.Open == "" || opts.Defaults.Close == "" {
		opts.Defaults = DefaultHours
	}

	dow := int(day.Weekday())
	rec, hasRec := snap.Hours[dow]

	// 1. closed
	if hasRec && rec.IsClosed {
		return CellClosed
	}
	if !hasRec && opts.Policy == MissingHoursClosed {
		return CellClosed
	}

	cellStart := SlotStart(day, slot)
	cellEnd := SlotEnd(day, slot)

	// 2. past
	if cellStart.Before(opts.Now) {
		return CellPast
	}

	// 3. booked / 4. pendingMine
	for _, b := range snap.Bookings {
		if opts.ResourceID != "" && b.ResourceID != opts.ResourceID {
			continue
		}
		if !b.Overlaps(cellStart, cellEnd) {
			continue
		}
		if b.Status == model.StatusConfirmed {
			return CellBooked
		}
	}
	for _, b := range snap.Bookings {
		if opts.ResourceID != "" && b.ResourceID != opts.ResourceID {
			continue
		}
		if b.Status == model.StatusPending && b.UserID != "" && b.UserID == opts.UserID && b.Overlaps(cellStart, cellEnd) {
			return CellPendingMine
		}
	}

	// 5. blocked
	dateKey := DateKey(day)
	for _, s := range snap.BlockedSlots {
		if s.ResourceID != "" && opts.ResourceID != "" && s.ResourceID != opts.ResourceID {
			continue
		}
		if s.Covers(dateKey, slot.Start) {
			return CellBlocked
		}
	}

	// 6. outsideHours
	open, close := opts.Defaults.Open, opts.Defaults.Close
	if hasRec {
		open, close = rec.OpenTime, rec.CloseTime
	}
	if slot.Start < open || slot.Start >= close {
		return CellOutsideHours
	}

	// 7. freeWithDiscount
	for _, d := range snap.Discounts {
		if d.ResourceID != "" && opts.ResourceID != "" && d.ResourceID != opts.ResourceID {
			continue
		}
		if d.AppliesAt(dow, slot.Start) {
			return CellFreeWithDiscount
		}
	}

	return CellFree
}

// ClassifyWeek classifies every cell of a week grid. The result is indexed
// [row][day].
func ClassifyWeek(days [7]time.Time, rows []TimeSlot, snap Snapshot, opts ClassifyOptions) [][7]CellState {
	states := make([][7]CellState, len(rows))
	for r, slot := range rows {
		for d, day := range days {
			states[r][d] = Classify(day, slot, snap, opts)
		}
	}
	return states
}
