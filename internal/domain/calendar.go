package domain

import (
	"slices"
	"time"
)

// ExclusionSet holds the calendar dates that do not count toward inactivity
// streaks: weekends (when enabled) and explicitly configured holidays.
//
// Excluded days are invisible to the streak counter for inactive records.
// Active records are never excluded: activity on an excluded day still
// resets the streak.
type ExclusionSet struct {
	excludeWeekends bool
	holidays        map[string]struct{}
}

func NewExclusionSet(excludeWeekends bool, holidays []time.Time) ExclusionSet {
	holidaySet := make(map[string]struct{}, len(holidays))
	for _, holiday := range holidays {
		holidaySet[dayKey(holiday)] = struct{}{}
	}
	return ExclusionSet{
		excludeWeekends: excludeWeekends,
		holidays:        holidaySet,
	}
}

func dayKey(t time.Time) string {
	return DayOf(t).Format(time.DateOnly)
}

func (e ExclusionSet) Excluded(date time.Time) bool {
	if e.excludeWeekends {
		weekday := DayOf(date).Weekday()
		if weekday == time.Saturday || weekday == time.Sunday {
			return true
		}
	}

	_, isHoliday := e.holidays[dayKey(date)]
	return isHoliday
}

func (e ExclusionSet) ExcludesWeekends() bool {
	return e.excludeWeekends
}

func (e ExclusionSet) Holidays() []time.Time {
	holidays := make([]time.Time, 0, len(e.holidays))
	for key := range e.holidays {
		day, err := time.ParseInLocation(time.DateOnly, key, time.UTC)
		if err != nil {
			panic("logic error: invalid day key in holiday set")
		}
		holidays = append(holidays, day)
	}
	slices.SortFunc(holidays, time.Time.Compare)
	return holidays
}

// CountBack returns the day that lies countedDays counted (non-excluded)
// days before end. Used to compute the analysis window so that the window
// always contains a full threshold's worth of counted days.
func (e ExclusionSet) CountBack(end time.Time, countedDays int) time.Time {
	current := DayOf(end)
	counted := 0
	for counted < countedDays {
		if !e.Excluded(current) {
			counted++
		}
		current = current.AddDate(0, 0, -1)
	}
	return current
}
