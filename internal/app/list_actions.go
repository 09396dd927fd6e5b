package app

import (
	"context"
	"fmt"

	"github.com/leikvolle/seatwatch/internal/adapters/reportrepository"
	"github.com/leikvolle/seatwatch/internal/domain"
)

// GetRecentActions returns the most recently recorded audit actions, newest
// first.
type GetRecentActions func(ctx context.Context) ([]domain.Action, error)

const recentActionsLimit = 100

func BuildGetRecentActions(repo reportrepository.ReportRepository) GetRecentActions {
	return func(ctx context.Context) ([]domain.Action, error) {
		actions, err := repo.ListActions(ctx, recentActionsLimit)
		if err != nil {
			// NOTE: ReportRepository implementations handle their own error reporting
			return nil, fmt.Errorf("could not list audit actions: %w", err)
		}
		return actions, nil
	}
}
