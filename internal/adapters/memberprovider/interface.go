package memberprovider

import (
	"context"
	"net/http"

	"github.com/leikvolle/seatwatch/internal/domain"
)

type HttpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type MemberProvider interface {
	// Raises domain.ErrTemporarilyUnavailable if the provider implementation receives an error believed to be intermittent. The call may be retried later.
	//
	// Raises domain.ErrRatelimitExceeded if the upstream rejected the call due to rate limiting.
	TeamMembers(ctx context.Context) ([]domain.TeamMember, error)
}
