package reportrepository

import (
	"context"

	"github.com/leikvolle/seatwatch/internal/domain"
)

type ReportRepository interface {
	// StoreReport persists the run and its per-user reports. The report's
	// RunID is assigned on successful store if empty.
	StoreReport(ctx context.Context, report *domain.AnalysisReport) error
	// LatestReport returns the most recently generated report.
	//
	// Raises domain.ErrNoReport if no report has been stored yet.
	LatestReport(ctx context.Context) (*domain.AnalysisReport, error)
	// RecordActions appends audit entries for the given run. runID may be
	// empty for actions recorded outside an analysis run.
	RecordActions(ctx context.Context, runID string, actions []domain.Action) error
	// ListActions returns the most recently recorded audit entries, newest
	// first, limited to limit entries.
	ListActions(ctx context.Context, limit int) ([]domain.Action, error)
}
