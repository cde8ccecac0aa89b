package calendar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sportbook/internal/model"
)

func TestGenerateTimeSlots(t *testing.T) {
	tests := []struct {
		name     string
		open     string
		close    string
		interval int
		count    int
		first    TimeSlot
		last     TimeSlot
	}{
		{
			name: "hour aligned", open: "08:00", close: "22:00", interval: 60,
			count: 14,
			first: TimeSlot{"08:00", "09:00"},
			last:  TimeSlot{"21:00", "22:00"},
		},
		{
			name: "half hour slots", open: "10:00", close: "12:00", interval: 30,
			count: 4,
			first: TimeSlot{"10:00", "10:30"},
			last:  TimeSlot{"11:30", "12:00"},
		},
		{
			name: "non aligned boundaries drop the tail", open: "07:30", close: "22:15", interval: 60,
			count: 14,
			first: TimeSlot{"07:30", "08:30"},
			last:  TimeSlot{"20:30", "21:30"},
		},
		{
			name: "bare hour integers", open: "8", close: "10", interval: 60,
			count: 2,
			first: TimeSlot{"08:00", "09:00"},
			last:  TimeSlot{"09:00", "10:00"},
		},
		{
			name: "window shorter than interval", open: "09:00", close: "09:45", interval: 60,
			count: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slots, err := GenerateTimeSlots(tt.open, tt.close, tt.interval)
			require.NoError(t, err)
			require.Len(t, slots, tt.count)
			if tt.count == 0 {
				return
			}
			assert.Equal(t, tt.first, slots[0])
			assert.Equal(t, tt.last, slots[len(slots)-1])

			closeMin, _ := ParseClock(tt.close)
			for _, s := range slots {
				start, err := ParseClock(s.Start)
				require.NoError(t, err)
				end, err := ParseClock(s.End)
				require.NoError(t, err)
				assert.Equal(t, tt.interval, end-start, "every slot is exactly one interval")
				assert.Less(t, start, closeMin, "no slot starts at or after close")
				assert.LessOrEqual(t, end, closeMin)
			}
		})
	}
}

func TestGenerateTimeSlotsInvalidRange(t *testing.T) {
	_, err := GenerateTimeSlots("18:00", "09:00", 60)
	assert.Error(t, err)

	_, err = GenerateTimeSlots("xx", "10:00", 60)
	assert.Error(t, err)
}

func TestGridRowsUnionAcrossWeek(t *testing.T) {
	hours := map[int]model.BranchHours{
		1: {DayOfWeek: 1, OpenTime: "08:00", CloseTime: "20:00"},
		2: {DayOfWeek: 2, OpenTime: "10:00", CloseTime: "22:00"},
		3: {DayOfWeek: 3, IsClosed: true},
	}

	rows, err := GridRows(hours, MissingHoursClosed, DefaultHours, 60)
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	// Earliest open across open days to latest close: 08:00-22:00.
	assert.Equal(t, "08:00", rows[0].Start)
	assert.Equal(t, "22:00", rows[len(rows)-1].End)
	assert.Len(t, rows, 14)
}

func TestGridRowsMissingDaysUseDefaultsWhenOpenPolicy(t *testing.T) {
	hours := map[int]model.BranchHours{
		1: {DayOfWeek: 1, OpenTime: "09:00", CloseTime: "18:00"},
	}

	rows, err := GridRows(hours, MissingHoursOpen, HoursDefaults{Open: "07:00", Close: "23:00"}, 60)
	require.NoError(t, err)
	assert.Equal(t, "07:00", rows[0].Start)
	assert.Equal(t, "23:00", rows[len(rows)-1].End)
}

func TestGridRowsAllClosed(t *testing.T) {
	hours := map[int]model.BranchHours{}
	for dow := 0; dow < 7; dow++ {
		hours[dow] = model.BranchHours{DayOfWeek: dow, IsClosed: true}
	}
	rows, err := GridRows(hours, MissingHoursClosed, DefaultHours, 60)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		input    string
		expected int
		ok       bool
	}{
		{"00:00", 0, true},
		{"07:30", 450, true},
		{"22:15", 1335, true},
		{"9", 540, true},
		{"24:00", 1440, true},
		{"24:30", 0, false},
		{"25:00", 0, false},
		{"10:75", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseClock(tt.input)
		if !tt.ok {
			assert.Error(t, err, "input %q", tt.input)
			continue
		}
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.expected, got, "input %q", tt.input)
		if tt.input != "9" && tt.input != "24:00" {
			assert.Equal(t, tt.input, FormatClock(got))
		}
	}
}
