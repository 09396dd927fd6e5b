package activityprovider

import (
	"context"
	"net/http"
	"time"

	"github.com/leikvolle/seatwatch/internal/domain"
)

type HttpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Result is the outcome of one ingestion: the parsed records plus the number
// of malformed rows that were skipped.
type Result struct {
	Records []domain.ActivityRecord
	Skipped int
}

type ActivityProvider interface {
	// Raises domain.ErrTemporarilyUnavailable if the provider implementation receives an error believed to be intermittent. The call may be retried later.
	//
	// Raises domain.ErrRatelimitExceeded if the upstream rejected the call due to rate limiting.
	DailyActivity(ctx context.Context, start, end time.Time) (Result, error)
}
