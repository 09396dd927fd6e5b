package domaintest

import (
	"time"

	"github.com/leikvolle/seatwatch/internal/domain"
)

type recordsBuilder struct {
	email   string
	records []domain.ActivityRecord
}

func NewRecordsBuilder(email string) *recordsBuilder {
	return &recordsBuilder{email: email}
}

func (rb *recordsBuilder) Active(date time.Time) *recordsBuilder {
	rb.records = append(rb.records, domain.ActivityRecord{
		Date:   domain.DayOf(date),
		Email:  rb.email,
		Active: true,
	})
	return rb
}

func (rb *recordsBuilder) Inactive(date time.Time) *recordsBuilder {
	rb.records = append(rb.records, domain.ActivityRecord{
		Date:   domain.DayOf(date),
		Email:  rb.email,
		Active: false,
	})
	return rb
}

// InactiveRange adds an inactive record for every calendar day in
// [start, end], weekends included.
func (rb *recordsBuilder) InactiveRange(start, end time.Time) *recordsBuilder {
	for day := domain.DayOf(start); !day.After(domain.DayOf(end)); day = day.AddDate(0, 0, 1) {
		rb.Inactive(day)
	}
	return rb
}

func (rb *recordsBuilder) Build() []domain.ActivityRecord {
	// Copy so further builder mutations don't affect the returned slice
	records := make([]domain.ActivityRecord, len(rb.records))
	copy(records, rb.records)
	return records
}
