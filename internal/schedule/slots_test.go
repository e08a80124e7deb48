package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-appointment-booking/internal/apperr"
)

func TestGenerateSlotsMorningShift(t *testing.T) {
	slots, err := GenerateSlots("09:00", "12:00", 30)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "09:30", "10:00", "10:30", "11:00", "11:30"}, slots)
	for _, s := range slots {
		assert.Less(t, s, "12:00")
	}
}

func TestGenerateSlotsTruncatesPartialInterval(t *testing.T) {
	slots, err := GenerateSlots("09:00", "10:10", 30)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "09:30", "10:00"}, slots)
}

func TestGenerateSlotsIsDeterministic(t *testing.T) {
	first, err := GenerateSlots("08:15", "17:45", 20)
	require.NoError(t, err)
	second, err := GenerateSlots("08:15", "17:45", 20)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, "08:15", first[0])
	assert.Equal(t, "17:35", first[len(first)-1])
}

func TestGenerateSlotsRejectsBadInput(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
		interval   int
	}{
		{"zero interval", "09:00", "12:00", 0},
		{"negative interval", "09:00", "12:00", -15},
		{"end before start", "12:00", "09:00", 30},
		{"equal bounds", "09:00", "09:00", 30},
		{"malformed start", "9h", "12:00", 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GenerateSlots(tt.start, tt.end, tt.interval)
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.KindValidation))
		})
	}
}

func TestScheduleHours(t *testing.T) {
	s := Schedule{StartTime: "09:00", EndTime: "13:30", Interval: 30}
	assert.InDelta(t, 4.5, s.Hours(), 1e-9)

	slots, err := s.Slots()
	require.NoError(t, err)
	assert.Len(t, slots, 9)
}

func TestExpandDatesWeekdays(t *testing.T) {
	// 2026-10-19 is a Monday.
	from := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 13)

	dates, err := ExpandDates(DateRange{From: from, To: to, Weekdays: []int{1, 3}})
	require.NoError(t, err)
	require.Len(t, dates, 4)
	assert.Equal(t, time.Monday, dates[0].Weekday())
	assert.Equal(t, time.Wednesday, dates[1].Weekday())
	assert.Equal(t, from.AddDate(0, 0, 9), dates[3])
}

func TestExpandDatesAllDays(t *testing.T) {
	from := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	dates, err := ExpandDates(DateRange{From: from, To: from.AddDate(0, 0, 2)})
	require.NoError(t, err)
	assert.Len(t, dates, 3)
}

func TestExpandDatesRejectsBadDayOfWeek(t *testing.T) {
	from := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	_, err := ExpandDates(DateRange{From: from, To: from, Weekdays: []int{7}})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = ExpandDates(DateRange{From: from, To: from.AddDate(0, 0, -1)})
	assert.ErrorIs(t, err, ErrInvalidDateRangeOrder)
}
