package ports_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/leikvolle/seatwatch/internal/domain"
	"github.com/leikvolle/seatwatch/internal/ports"
	"github.com/stretchr/testify/require"
)

func TestMakeGetActionsHandler(t *testing.T) {
	t.Parallel()

	t.Run("returns recorded actions newest first", func(t *testing.T) {
		t.Parallel()

		handler := ports.MakeGetActionsHandler(
			func(ctx context.Context) ([]domain.Action, error) {
				return []domain.Action{
					{
						Type:       domain.ActionManualRemovalRequired,
						Email:      "gone@example.com",
						Reason:     "seat removal is not available via the API",
						DryRun:     true,
						RecordedAt: time.Date(2025, time.July, 15, 8, 0, 1, 0, time.UTC),
					},
					{
						Type:       domain.ActionFlagForRemoval,
						Email:      "gone@example.com",
						Reason:     "inactive for 15 counted days (threshold 14)",
						DryRun:     true,
						RecordedAt: time.Date(2025, time.July, 15, 8, 0, 0, 0, time.UTC),
					},
				}, nil
			},
			testOrigins(t),
			testLogger(),
			noopMiddleware,
		)

		recorder := httptest.NewRecorder()
		handler(recorder, httptest.NewRequest(http.MethodGet, "/v1/actions", nil))

		require.Equal(t, http.StatusOK, recorder.Code)
		require.Equal(t, "application/json", recorder.Header().Get("Content-Type"))

		var response struct {
			Success bool `json:"success"`
			Actions []struct {
				Type       string `json:"type"`
				Email      string `json:"email"`
				Reason     string `json:"reason"`
				DryRun     bool   `json:"dryRun"`
				RecordedAt string `json:"recordedAt"`
			} `json:"actions"`
		}
		err := json.Unmarshal(recorder.Body.Bytes(), &response)
		require.NoError(t, err)

		require.True(t, response.Success)
		require.Len(t, response.Actions, 2)
		require.Equal(t, "MANUAL_REMOVAL_REQUIRED", response.Actions[0].Type)
		require.Equal(t, "gone@example.com", response.Actions[0].Email)
		require.True(t, response.Actions[0].DryRun)
		require.Equal(t, "2025-07-15T08:00:01Z", response.Actions[0].RecordedAt)
		require.Equal(t, "FLAG_FOR_REMOVAL", response.Actions[1].Type)
	})

	t.Run("no actions yet", func(t *testing.T) {
		t.Parallel()

		handler := ports.MakeGetActionsHandler(
			func(ctx context.Context) ([]domain.Action, error) {
				return nil, nil
			},
			testOrigins(t),
			testLogger(),
			noopMiddleware,
		)

		recorder := httptest.NewRecorder()
		handler(recorder, httptest.NewRequest(http.MethodGet, "/v1/actions", nil))

		require.Equal(t, http.StatusOK, recorder.Code)
		require.JSONEq(t, `{"success":true,"actions":[]}`, recorder.Body.String())
	})

	t.Run("repository errors return 500", func(t *testing.T) {
		t.Parallel()

		handler := ports.MakeGetActionsHandler(
			func(ctx context.Context) ([]domain.Action, error) {
				return nil, fmt.Errorf("could not list audit actions")
			},
			testOrigins(t),
			testLogger(),
			noopMiddleware,
		)

		recorder := httptest.NewRecorder()
		handler(recorder, httptest.NewRequest(http.MethodGet, "/v1/actions", nil))

		require.Equal(t, http.StatusInternalServerError, recorder.Code)
		require.JSONEq(t, `{"success":false,"cause":"internal server error"}`, recorder.Body.String())
	})
}
