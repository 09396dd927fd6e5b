package ports

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/leikvolle/seatwatch/internal/app"
	"github.com/leikvolle/seatwatch/internal/domain"
	"github.com/leikvolle/seatwatch/internal/logging"
	"github.com/leikvolle/seatwatch/internal/ratelimiting"
	"github.com/leikvolle/seatwatch/internal/reporting"
)

type analyzeRequest struct {
	DryRun *bool `json:"dryRun"`
}

type analyzeResponse struct {
	reportResponse
	Actions []actionResponse `json:"actions"`
}

func MakeAnalyzeHandler(
	analyzeTeam app.AnalyzeTeam,
	flagInactiveUsers app.FlagInactiveUsers,
	allowedOrigins *DomainSuffixes,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	// Analysis runs hit the Cursor API, keep the limit tight
	ipLimiter, _ := ratelimiting.NewTokenBucketRateLimiter(
		ratelimiting.RefillPerSecond(1),
		ratelimiting.BurstSize(10),
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
		buildMetricsMiddleware("analyze"),
		logging.NewRequestLoggerMiddleware(rootLogger),
		sentryMiddleware,
		reporting.NewAddMetaMiddleware("analyze"),
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

		// Flagging is a write, so it defaults to a dry run unless explicitly
		// disabled in the request body.
		dryRun := true
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeError("failed to read request body", http.StatusBadRequest)
			return
		}
		if len(body) > 0 {
			var request analyzeRequest
			if err := json.Unmarshal(body, &request); err != nil {
				writeError("invalid request body", http.StatusBadRequest)
				return
			}
			if request.DryRun != nil {
				dryRun = *request.DryRun
			}
		}

		ctx = logging.AddMetaToContext(ctx, slog.Bool("dryRun", dryRun))

		report, err := analyzeTeam(ctx)
		if errors.Is(err, domain.ErrRatelimitExceeded) {
			writeError("upstream rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		if errors.Is(err, domain.ErrTemporarilyUnavailable) {
			writeError("temporarily unavailable", http.StatusServiceUnavailable)
			return
		}
		if err != nil {
			// NOTE: AnalyzeTeam implementations handle their own error reporting
			writeError("internal server error", http.StatusInternalServerError)
			return
		}

		actions, err := flagInactiveUsers(ctx, report, dryRun)
		if err != nil {
			// NOTE: FlagInactiveUsers implementations handle their own error reporting
			writeError("internal server error", http.StatusInternalServerError)
			return
		}

		response, err := json.Marshal(analyzeResponse{
			reportResponse: reportToResponse(report),
			Actions:        actionsToResponse(actions),
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
