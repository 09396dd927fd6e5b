package ports

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/leikvolle/seatwatch/internal/app"
	"github.com/leikvolle/seatwatch/internal/logging"
	"github.com/leikvolle/seatwatch/internal/ratelimiting"
	"github.com/leikvolle/seatwatch/internal/reporting"
)

type actionsResponse struct {
	Success bool             `json:"success"`
	Actions []actionResponse `json:"actions"`
}

func MakeGetActionsHandler(
	getRecentActions app.GetRecentActions,
	allowedOrigins *DomainSuffixes,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	ipLimiter, _ := ratelimiting.NewTokenBucketRateLimiter(
		ratelimiting.RefillPerSecond(8),
		ratelimiting.BurstSize(480),
	)
	ipRateLimiter := ratelimiting.NewRequestBasedRateLimiter(
		ipLimiter,
		ratelimiting.IPKeyFunc,
	)

	onLimitExceeded := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"success":false,"cause":"rate limit exceeded"}`))
	}

	middleware := ComposeMiddlewares(
		buildMetricsMiddleware("get_actions"),
		logging.NewRequestLoggerMiddleware(rootLogger),
		sentryMiddleware,
		reporting.NewAddMetaMiddleware("get_actions"),
		BuildCORSMiddleware(allowedOrigins),
		NewRateLimitMiddleware(ipRateLimiter, onLimitExceeded),
	)

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		writeError := func(cause string, statusCode int) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(statusCode)
			w.Write([]byte(`{"success":false,"cause":"` + cause + `"}`))
		}

		actions, err := getRecentActions(ctx)
		if err != nil {
			// NOTE: GetRecentActions implementations handle their own error reporting
			writeError("internal server error", http.StatusInternalServerError)
			return
		}

		response, err := json.Marshal(actionsResponse{
			Success: true,
			Actions: actionsToResponse(actions),
		})
		if err != nil {
			reporting.Report(ctx, err)
			writeError("internal server error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(response)
	}

	return middleware(handler)
}
