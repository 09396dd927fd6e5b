package app

import (
	"context"
	"fmt"
	"time"

	"github.com/leikvolle/seatwatch/internal/adapters/reportrepository"
	"github.com/leikvolle/seatwatch/internal/domain"
	"github.com/leikvolle/seatwatch/internal/logging"
)

// FlagInactiveUsers records audit actions for every user in the report whose
// current streak meets the threshold. With dryRun set the actions are
// recorded as dry-run and no removal is expected to follow.
type FlagInactiveUsers func(ctx context.Context, report *domain.AnalysisReport, dryRun bool) ([]domain.Action, error)

func BuildFlagInactiveUsers(
	repo reportrepository.ReportRepository,
	nowFunc func() time.Time,
) FlagInactiveUsers {
	return func(ctx context.Context, report *domain.AnalysisReport, dryRun bool) ([]domain.Action, error) {
		if report == nil {
			return nil, fmt.Errorf("report is nil")
		}

		flagged := report.Flagged()
		if len(flagged) == 0 {
			return nil, nil
		}

		now := nowFunc()
		actions := make([]domain.Action, 0, 2*len(flagged))
		for _, user := range flagged {
			reason := fmt.Sprintf("inactive for %d counted days (threshold %d)", user.CurrentStreak, report.Threshold)
			actions = append(actions,
				domain.Action{
					Type:       domain.ActionFlagForRemoval,
					Email:      user.Email,
					Reason:     reason,
					DryRun:     dryRun,
					RecordedAt: now,
				},
				// The Admin API cannot remove seats, so every flag needs a
				// manual follow-up in the dashboard.
				domain.Action{
					Type:       domain.ActionManualRemovalRequired,
					Email:      user.Email,
					Reason:     "seat removal is not available via the API",
					DryRun:     dryRun,
					RecordedAt: now,
				},
			)
		}

		err := repo.RecordActions(ctx, report.RunID, actions)
		if err != nil {
			// NOTE: ReportRepository implementations handle their own error reporting
			return nil, fmt.Errorf("failed to record actions: %w", err)
		}

		logging.FromContext(ctx).Info("Flagged inactive users", "flagged", len(flagged), "dryRun", dryRun)

		return actions, nil
	}
}
