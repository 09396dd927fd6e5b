package app

import (
	"slices"
	"time"

	"github.com/leikvolle/seatwatch/internal/domain"
)

// NOTE: All records must be for the same user
func ComputeUserReport(email string, records []domain.ActivityRecord, exclusions domain.ExclusionSet) domain.UserReport {
	report := domain.UserReport{Email: email}

	if len(records) == 0 {
		// A user with no records is a zero-activity user, not an error
		return report
	}

	slices.SortStableFunc(records, func(a, b domain.ActivityRecord) int {
		return a.Date.Compare(b.Date)
	})

	var lastActive, inactiveSince *time.Time

	for i := range records {
		record := &records[i]
		date := domain.DayOf(record.Date)

		if record.Active {
			// Activity always resets the streak, even on excluded days
			report.ActiveDays++
			report.CurrentStreak = 0
			inactiveSince = nil
			lastActive = &date
			continue
		}

		if exclusions.Excluded(date) {
			// Excluded inactive days are invisible: they neither advance
			// nor reset the streak, and they don't count as inactive days
			continue
		}

		if report.CurrentStreak == 0 {
			inactiveSince = &date
		}
		report.CurrentStreak++
		report.InactiveDays++
		report.MaxStreak = max(report.MaxStreak, report.CurrentStreak)
	}

	report.LastActive = lastActive
	report.InactiveSince = inactiveSince

	return report
}
