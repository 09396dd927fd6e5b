package domain

import (
	"time"
)

// ActivityRecord is a single day of recorded activity for one seat.
// The (Email, Date) pair is the natural key, but duplicate records are kept
// as-is and processed in order.
type ActivityRecord struct {
	Date   time.Time
	Email  string
	Active bool
}

// DayOf truncates a timestamp to its calendar day in UTC.
func DayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

type TeamMember struct {
	Email string
	Name  string
	Role  string
}

// Owner seats are billing/admin seats and are never analyzed or flagged
func (m TeamMember) IsOwner() bool {
	return m.Role == "owner" || m.Role == "free-owner"
}

func NonOwners(members []TeamMember) []TeamMember {
	nonOwners := make([]TeamMember, 0, len(members))
	for _, member := range members {
		if member.IsOwner() {
			continue
		}
		nonOwners = append(nonOwners, member)
	}
	return nonOwners
}
