package schedule

import (
	"time"

	"github.com/hackgods/clinic-appointment-booking/internal/apperr"
	"github.com/hackgods/clinic-appointment-booking/internal/clock"
)

const maxRangeDays = 366

// GenerateSlots returns the slot starts from start (inclusive) to end
// (exclusive) stepping by interval minutes.
func GenerateSlots(start, end string, interval int) ([]string, error) {
	if interval <= 0 {
		return nil, ErrInvalidInterval
	}
	from, err := clock.ToMinutes(start)
	if err != nil {
		return nil, err
	}
	to, err := clock.ToMinutes(end)
	if err != nil {
		return nil, err
	}
	if from >= to {
		return nil, ErrInvalidTimeRange
	}

	slots := make([]string, 0, (to-from+interval-1)/interval)
	for m := from; m < to; m += interval {
		s, err := clock.FromMinutes(m)
		if err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, nil
}

func ContainsSlot(slots []string, slot string) bool {
	for _, s := range slots {
		if s == slot {
			return true
		}
	}
	return false
}

// ExpandDates lists the dates of r in ascending order.
func ExpandDates(r DateRange) ([]time.Time, error) {
	from, to := clock.DateOf(r.From), clock.DateOf(r.To)
	if to.Before(from) {
		return nil, ErrInvalidDateRangeOrder
	}
	if to.Sub(from) > maxRangeDays*24*time.Hour {
		return nil, apperr.Validation("date range longer than %d days", maxRangeDays)
	}

	allow := make(map[time.Weekday]bool, len(r.Weekdays))
	for _, wd := range r.Weekdays {
		if wd < 0 || wd > 6 {
			return nil, apperr.Validation("bad day-of-week %d: expected 0 (Sunday) to 6 (Saturday)", wd)
		}
		allow[time.Weekday(wd)] = true
	}

	var dates []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if len(allow) == 0 || allow[d.Weekday()] {
			dates = append(dates, d)
		}
	}
	return dates, nil
}
