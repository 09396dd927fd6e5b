package ports_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/leikvolle/seatwatch/internal/domain"
	"github.com/leikvolle/seatwatch/internal/ports"
	"github.com/stretchr/testify/require"
)

func noopMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return next
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

func testOrigins(t *testing.T) *ports.DomainSuffixes {
	t.Helper()
	origins, err := ports.NewDomainSuffixes("example.com")
	require.NoError(t, err)
	return origins
}

func testReport() *domain.AnalysisReport {
	lastActive := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)
	inactiveSince := time.Date(2025, time.July, 2, 0, 0, 0, 0, time.UTC)
	return &domain.AnalysisReport{
		RunID:           "0198c0de-0000-7000-8000-000000000003",
		GeneratedAt:     time.Date(2025, time.July, 15, 8, 0, 0, 0, time.UTC),
		Threshold:       14,
		ExcludeWeekends: true,
		Holidays:        []time.Time{time.Date(2025, time.July, 4, 0, 0, 0, 0, time.UTC)},
		SkippedRecords:  1,
		Users: []domain.UserReport{
			{
				Email:         "gone@example.com",
				ActiveDays:    1,
				InactiveDays:  15,
				CurrentStreak: 15,
				MaxStreak:     15,
				LastActive:    &lastActive,
				InactiveSince: &inactiveSince,
			},
			{Email: "busy@example.com", ActiveDays: 10},
		},
		Summary: domain.Summary{
			TotalUsers:          2,
			UsersWithActivity:   2,
			AverageActivityRate: 0.53125,
			FlaggedUsers:        1,
		},
	}
}

func TestMakeGetReportHandler(t *testing.T) {
	t.Parallel()

	t.Run("returns the latest report", func(t *testing.T) {
		t.Parallel()

		handler := ports.MakeGetReportHandler(
			func(ctx context.Context) (*domain.AnalysisReport, error) {
				return testReport(), nil
			},
			testOrigins(t),
			testLogger(),
			noopMiddleware,
		)

		recorder := httptest.NewRecorder()
		handler(recorder, httptest.NewRequest(http.MethodGet, "/v1/report", nil))

		require.Equal(t, http.StatusOK, recorder.Code)
		require.Equal(t, "application/json", recorder.Header().Get("Content-Type"))

		var response map[string]any
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
		require.Equal(t, true, response["success"])
		require.Equal(t, "0198c0de-0000-7000-8000-000000000003", response["runId"])
		require.Equal(t, float64(14), response["threshold"])
		require.Equal(t, []any{"2025-07-04"}, response["holidays"])

		users, ok := response["users"].([]any)
		require.True(t, ok)
		require.Len(t, users, 2)

		first, ok := users[0].(map[string]any)
		require.True(t, ok)
		require.Equal(t, "gone@example.com", first["email"])
		require.Equal(t, true, first["flagged"])
		require.Equal(t, "2025-07-01", first["lastActive"])
		require.Equal(t, "2025-07-02", first["inactiveSince"])

		second, ok := users[1].(map[string]any)
		require.True(t, ok)
		require.Equal(t, false, second["flagged"])
		require.NotContains(t, second, "inactiveSince")
	})

	t.Run("no report yet", func(t *testing.T) {
		t.Parallel()

		handler := ports.MakeGetReportHandler(
			func(ctx context.Context) (*domain.AnalysisReport, error) {
				return nil, domain.ErrNoReport
			},
			testOrigins(t),
			testLogger(),
			noopMiddleware,
		)

		recorder := httptest.NewRecorder()
		handler(recorder, httptest.NewRequest(http.MethodGet, "/v1/report", nil))

		require.Equal(t, http.StatusNotFound, recorder.Code)
	})

	t.Run("internal error", func(t *testing.T) {
		t.Parallel()

		handler := ports.MakeGetReportHandler(
			func(ctx context.Context) (*domain.AnalysisReport, error) {
				return nil, domain.ErrTemporarilyUnavailable
			},
			testOrigins(t),
			testLogger(),
			noopMiddleware,
		)

		recorder := httptest.NewRecorder()
		handler(recorder, httptest.NewRequest(http.MethodGet, "/v1/report", nil))

		require.Equal(t, http.StatusInternalServerError, recorder.Code)
	})

	t.Run("allowed origin gets CORS headers", func(t *testing.T) {
		t.Parallel()

		handler := ports.MakeGetReportHandler(
			func(ctx context.Context) (*domain.AnalysisReport, error) {
				return testReport(), nil
			},
			testOrigins(t),
			testLogger(),
			noopMiddleware,
		)

		request := httptest.NewRequest(http.MethodGet, "/v1/report", nil)
		request.Header.Set("Origin", "https://dashboard.example.com")

		recorder := httptest.NewRecorder()
		handler(recorder, request)

		require.Equal(t, "https://dashboard.example.com", recorder.Header().Get("Access-Control-Allow-Origin"))
	})
}
