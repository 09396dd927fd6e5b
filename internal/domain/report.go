package domain

import (
	"time"
)

// UserReport is the per-user result of a single pass over that user's
// activity records in date order.
//
// Excluded days are absent from all tallies, with one exception: ActiveDays
// counts every active record, including those on excluded days.
type UserReport struct {
	Email string

	ActiveDays   int
	InactiveDays int

	CurrentStreak int
	MaxStreak     int

	LastActive    *time.Time
	InactiveSince *time.Time
}

func (r UserReport) CountedDays() int {
	return r.ActiveDays + r.InactiveDays
}

// ActivityRate is active days over counted days, in [0, 1].
// A user with no counted days has rate 0.
func (r UserReport) ActivityRate() float64 {
	counted := r.CountedDays()
	if counted == 0 {
		return 0
	}
	return float64(r.ActiveDays) / float64(counted)
}

func (r UserReport) FlaggedAt(threshold int) bool {
	return r.CurrentStreak >= threshold
}

type Summary struct {
	TotalUsers          int
	UsersWithActivity   int
	AverageActivityRate float64
	FlaggedUsers        int
}

type AnalysisReport struct {
	RunID       string
	GeneratedAt time.Time

	Threshold       int
	ExcludeWeekends bool
	Holidays        []time.Time

	// Rows dropped during ingestion due to malformed fields
	SkippedRecords int

	// Sorted by current streak descending
	Users []UserReport

	Summary Summary
}

func (r *AnalysisReport) Flagged() []UserReport {
	flagged := []UserReport{}
	for _, user := range r.Users {
		if user.FlaggedAt(r.Threshold) {
			flagged = append(flagged, user)
		}
	}
	return flagged
}

type ActionType string

const (
	// The Admin API has no removal endpoint, so flagged users always end up
	// requiring manual removal from the dashboard.
	ActionFlagForRemoval        ActionType = "FLAG_FOR_REMOVAL"
	ActionManualRemovalRequired ActionType = "MANUAL_REMOVAL_REQUIRED"
)

type Action struct {
	Type       ActionType
	Email      string
	Reason     string
	DryRun     bool
	RecordedAt time.Time
}
