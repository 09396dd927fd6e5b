package app

import (
	"context"
	"fmt"

	"github.com/leikvolle/seatwatch/internal/adapters/reportrepository"
	"github.com/leikvolle/seatwatch/internal/domain"
)

// GetLatestReport returns the most recently persisted analysis report.
//
// Raises domain.ErrNoReport if no analysis has been run yet.
type GetLatestReport func(ctx context.Context) (*domain.AnalysisReport, error)

func BuildGetLatestReport(repo reportrepository.ReportRepository) GetLatestReport {
	return func(ctx context.Context) (*domain.AnalysisReport, error) {
		report, err := repo.LatestReport(ctx)
		if err != nil {
			// NOTE: ReportRepository implementations handle their own error reporting
			return nil, fmt.Errorf("could not get latest report: %w", err)
		}
		return report, nil
	}
}
