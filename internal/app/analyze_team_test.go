package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/leikvolle/seatwatch/internal/adapters/activityprovider"
	"github.com/leikvolle/seatwatch/internal/adapters/cache"
	"github.com/leikvolle/seatwatch/internal/app"
	"github.com/leikvolle/seatwatch/internal/domain"
	"github.com/leikvolle/seatwatch/internal/domaintest"
	"github.com/stretchr/testify/require"
)

type fakeMemberProvider struct {
	members []domain.TeamMember
	err     error
	calls   int
}

func (f *fakeMemberProvider) TeamMembers(ctx context.Context) ([]domain.TeamMember, error) {
	f.calls++
	return f.members, f.err
}

type fakeActivityProvider struct {
	result activityprovider.Result
	err    error

	start, end time.Time
}

func (f *fakeActivityProvider) DailyActivity(ctx context.Context, start, end time.Time) (activityprovider.Result, error) {
	f.start, f.end = start, end
	return f.result, f.err
}

type fakeReportRepository struct {
	stored         *domain.AnalysisReport
	latest         *domain.AnalysisReport
	actions        []domain.Action
	recordedRunIDs []string
	listed         []domain.Action
	listErr        error
	storeErr       error
}

func (f *fakeReportRepository) StoreReport(ctx context.Context, report *domain.AnalysisReport) error {
	if f.storeErr != nil {
		return f.storeErr
	}
	report.RunID = "0198c0de-0000-7000-8000-000000000000"
	f.stored = report
	return nil
}

func (f *fakeReportRepository) LatestReport(ctx context.Context) (*domain.AnalysisReport, error) {
	if f.latest == nil {
		return nil, domain.ErrNoReport
	}
	return f.latest, nil
}

func (f *fakeReportRepository) RecordActions(ctx context.Context, runID string, actions []domain.Action) error {
	f.recordedRunIDs = append(f.recordedRunIDs, runID)
	f.actions = append(f.actions, actions...)
	return nil
}

func (f *fakeReportRepository) ListActions(ctx context.Context, limit int) ([]domain.Action, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if len(f.listed) > limit {
		return f.listed[:limit], nil
	}
	return f.listed, nil
}

func TestAnalyzeTeam(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.July, 15, 8, 0, 0, 0, time.UTC)
	nowFunc := func() time.Time { return now }

	members := []domain.TeamMember{
		{Email: "dev@example.com", Name: "Dev", Role: "member"},
		{Email: "admin@example.com", Name: "Admin", Role: "owner"},
	}

	t.Run("analyzes member activity and stores the report", func(t *testing.T) {
		t.Parallel()

		records := domaintest.NewRecordsBuilder("dev@example.com").
			Active(time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)).
			InactiveRange(
				time.Date(2025, time.July, 2, 0, 0, 0, 0, time.UTC),
				time.Date(2025, time.July, 15, 0, 0, 0, 0, time.UTC),
			).
			Build()
		// Records for seats not on the team are dropped
		records = append(records, domain.ActivityRecord{
			Date:   time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC),
			Email:  "gone@example.com",
			Active: true,
		})
		// Owner seats are never analyzed
		records = append(records, domain.ActivityRecord{
			Date:   time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC),
			Email:  "admin@example.com",
			Active: true,
		})

		memberProvider := &fakeMemberProvider{members: members}
		activity := &fakeActivityProvider{result: activityprovider.Result{Records: records, Skipped: 3}}
		repo := &fakeReportRepository{}

		analyzeTeam := app.BuildAnalyzeTeam(
			cache.NewBasicCache[[]domain.TeamMember](),
			cache.NewBasicCache[activityprovider.Result](),
			memberProvider,
			activity,
			repo,
			20,
			app.AnalysisOptions{
				Threshold:  7,
				Exclusions: domain.NewExclusionSet(true, nil),
			},
			nowFunc,
		)

		report, err := analyzeTeam(context.Background())
		require.NoError(t, err)

		require.Len(t, report.Users, 1)
		require.Equal(t, "dev@example.com", report.Users[0].Email)
		// Jul 2-15 is inactive with weekends excluded -> 10 counted days
		require.Equal(t, 10, report.Users[0].CurrentStreak)
		require.Equal(t, 3, report.SkippedRecords)
		require.Equal(t, 1, report.Summary.FlaggedUsers)

		require.NotNil(t, repo.stored)
		require.NotEmpty(t, report.RunID)

		// Window end is today; start lies 20 counted days back
		require.Equal(t, time.Date(2025, time.July, 15, 0, 0, 0, 0, time.UTC), activity.end)
		require.Equal(t, time.Date(2025, time.June, 17, 0, 0, 0, 0, time.UTC), activity.start)
	})

	t.Run("member list is cached between runs", func(t *testing.T) {
		t.Parallel()

		memberProvider := &fakeMemberProvider{members: members}
		analyzeTeam := app.BuildAnalyzeTeam(
			cache.NewBasicCache[[]domain.TeamMember](),
			cache.NewBasicCache[activityprovider.Result](),
			memberProvider,
			&fakeActivityProvider{},
			&fakeReportRepository{},
			20,
			app.AnalysisOptions{Threshold: 14, Exclusions: domain.NewExclusionSet(true, nil)},
			nowFunc,
		)

		_, err := analyzeTeam(context.Background())
		require.NoError(t, err)
		_, err = analyzeTeam(context.Background())
		require.NoError(t, err)

		require.Equal(t, 1, memberProvider.calls)
	})

	t.Run("provider errors propagate", func(t *testing.T) {
		t.Parallel()

		analyzeTeam := app.BuildAnalyzeTeam(
			cache.NewBasicCache[[]domain.TeamMember](),
			cache.NewBasicCache[activityprovider.Result](),
			&fakeMemberProvider{members: members},
			&fakeActivityProvider{err: domain.ErrTemporarilyUnavailable},
			&fakeReportRepository{},
			20,
			app.AnalysisOptions{Threshold: 14, Exclusions: domain.NewExclusionSet(true, nil)},
			nowFunc,
		)

		_, err := analyzeTeam(context.Background())
		require.ErrorIs(t, err, domain.ErrTemporarilyUnavailable)
	})

	t.Run("store failures do not fail the run", func(t *testing.T) {
		t.Parallel()

		repo := &fakeReportRepository{storeErr: domain.ErrTemporarilyUnavailable}
		analyzeTeam := app.BuildAnalyzeTeam(
			cache.NewBasicCache[[]domain.TeamMember](),
			cache.NewBasicCache[activityprovider.Result](),
			&fakeMemberProvider{members: members},
			&fakeActivityProvider{},
			repo,
			20,
			app.AnalysisOptions{Threshold: 14, Exclusions: domain.NewExclusionSet(true, nil)},
			nowFunc,
		)

		report, err := analyzeTeam(context.Background())
		require.NoError(t, err)
		require.NotNil(t, report)
		// The failed store must not advertise a run id that was never persisted
		require.Empty(t, report.RunID)
	})
}
