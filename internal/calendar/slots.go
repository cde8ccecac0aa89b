package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"sportbook/internal/model"
)

// TimeSlot is one grid row: a half-open [Start, End) interval within a day,
// both as "HH:MM" strings.
type TimeSlot struct {
	Start string
	End   string
}

// Label renders the slot the way cells and callback payloads show it.
func (s TimeSlot) Label() string {
	return s.Start + "-" + s.End
}

// ParseClock parses "HH:MM" (or a bare hour like "7") into minutes from
// midnight.
func ParseClock(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty clock value")
	}
	parts := strings.SplitN(s, ":", 2)
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q: %w", s, err)
	}
	minute := 0
	if len(parts) == 2 {
		minute, err = strconv.Atoi(parts[1])
		if err != nil {
			return 0, fmt.Errorf("invalid minute in %q: %w", s, err)
		}
	}
	if hour < 0 || hour > 24 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("clock value out of range: %q", s)
	}
	// 24:00 marks end-of-day, anything past it does not exist
	if hour == 24 && minute > 0 {
		return 0, fmt.Errorf("clock value out of range: %q", s)
	}
	return hour*60 + minute, nil
}

// FormatClock is the inverse of ParseClock.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// GenerateTimeSlots produces ordered interval-minute slots covering
// [open, close). Boundaries need not be hour-aligned; a tail shorter than
// the interval is dropped, so no slot starts at or after close.
func GenerateTimeSlots(open, close string, intervalMinutes int) ([]TimeSlot, error) {
	if intervalMinutes <= 0 {
		intervalMinutes = 60
	}
	openMin, err := ParseClock(open)
	if err != nil {
		return nil, fmt.Errorf("parse open time: %w", err)
	}
	closeMin, err := ParseClock(close)
	if err != nil {
		return nil, fmt.Errorf("parse close time: %w", err)
	}
	if closeMin <= openMin {
		return nil, fmt.Errorf("close %s must be after open %s", close, open)
	}

	var slots []TimeSlot
	for cursor := openMin; cursor+intervalMinutes <= closeMin; cursor += intervalMinutes {
		slots = append(slots, TimeSlot{
			Start: FormatClock(cursor),
			End:   FormatClock(cursor + intervalMinutes),
		})
	}
	return slots, nil
}

// GridRows computes the row set for a displayed week: the union of every
// open day's hours, earliest open to latest close, so each day's legitimate
// hours stay visible. Days whose hours record is missing contribute the
// default hours under MissingHoursOpen and nothing under MissingHoursClosed.
func GridRows(hours map[int]model.BranchHours, policy MissingHoursPolicy, defaults HoursDefaults, intervalMinutes int) ([]TimeSlot, error) {
	earliest, latest := -1, -1
	consider := func(open, close string) error {
		o, err := ParseClock(open)
		if err != nil {
			return err
		}
		c, err := ParseClock(close)
		if err != nil {
			return err
		}
		if earliest < 0 || o < earliest {
			earliest = o
		}
		if latest < 0 || c > latest {
			latest = c
		}
		return nil
	}

	for dow := 0; dow < 7; dow++ {
		rec, ok := hours[dow]
		switch {
		case ok && rec.IsClosed:
			continue
		case ok:
			if err := consider(rec.OpenTime, rec.CloseTime); err != nil {
				return nil, err
			}
		case policy == MissingHoursOpen:
			if err := consider(defaults.Open, defaults.Close); err != nil {
				return nil, err
			}
		}
	}
	if earliest < 0 {
		return nil, nil // every day closed
	}
	return GenerateTimeSlots(FormatClock(earliest), FormatClock(latest), intervalMinutes)
}

// SlotStart materializes a slot's start instant on a given local day.
func SlotStart(day time.Time, slot TimeSlot) time.Time {
	minutes, err := ParseClock(slot.Start)
	if err != nil {
		return time.Time{}
	}
	return time.Date(day.Year(), day.Month(), day.Day(), minutes/60, minutes%60, 0, 0, day.Location())
}

// SlotEnd materializes a slot's end instant on a given local day.
func SlotEnd(day time.Time, slot TimeSlot) time.Time {
	minutes, err := ParseClock(slot.End)
	if err != nil {
		return time.Time{}
	}
	return time.Date(day.Year(), day.Month(), day.Day(), minutes/60, minutes%60, 0, 0, day.Location())
}
