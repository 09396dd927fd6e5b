package reportrepository

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/leikvolle/seatwatch/internal/adapters/database"
	"github.com/leikvolle/seatwatch/internal/domain"
)

func newPostgresReportRepository(t *testing.T, db *sqlx.DB, schema string) *PostgresReportRepository {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	db.MustExec(fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", pq.QuoteIdentifier(schema)))

	migrator := database.NewDatabaseMigrator(db, logger)

	err := migrator.Migrate(context.Background(), schema)
	require.NoError(t, err)

	return NewPostgresReportRepository(db, schema)
}

func TestPostgresReportRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping db tests in short mode.")
	}
	t.Parallel()

	ctx := context.Background()
	db, err := database.NewPostgresDatabase(database.LOCAL_CONNECTION_STRING)
	require.NoError(t, err)

	day := func(d int) time.Time {
		return time.Date(2025, time.July, d, 0, 0, 0, 0, time.UTC)
	}

	newReport := func(generatedAt time.Time) *domain.AnalysisReport {
		lastActive := day(7)
		inactiveSince := day(8)
		return &domain.AnalysisReport{
			GeneratedAt:     generatedAt,
			Threshold:       14,
			ExcludeWeekends: true,
			Holidays:        []time.Time{day(4)},
			SkippedRecords:  2,
			Users: []domain.UserReport{
				{
					Email:         "gone@example.com",
					ActiveDays:    5,
					InactiveDays:  15,
					CurrentStreak: 15,
					MaxStreak:     15,
					LastActive:    &lastActive,
					InactiveSince: &inactiveSince,
				},
				{
					Email:      "busy@example.com",
					ActiveDays: 20,
					LastActive: &lastActive,
				},
			},
			Summary: domain.Summary{
				TotalUsers:          2,
				UsersWithActivity:   2,
				AverageActivityRate: 0.625,
				FlaggedUsers:        1,
			},
		}
	}

	t.Run("store and read back latest report", func(t *testing.T) {
		t.Parallel()

		p := newPostgresReportRepository(t, db, "store_report")

		generatedAt := time.Date(2025, time.July, 15, 8, 0, 0, 0, time.UTC)
		report := newReport(generatedAt)

		err := p.StoreReport(ctx, report)
		require.NoError(t, err)

		parsed, err := uuid.Parse(report.RunID)
		require.NoError(t, err)
		require.Equal(t, uuid.Version(7), parsed.Version())

		stored, err := p.LatestReport(ctx)
		require.NoError(t, err)

		require.Equal(t, report.RunID, stored.RunID)
		require.True(t, generatedAt.Equal(stored.GeneratedAt))
		require.Equal(t, report.Threshold, stored.Threshold)
		require.Equal(t, report.ExcludeWeekends, stored.ExcludeWeekends)
		require.Equal(t, report.Holidays, stored.Holidays)
		require.Equal(t, report.SkippedRecords, stored.SkippedRecords)
		require.Equal(t, report.Summary, stored.Summary)

		require.Len(t, stored.Users, 2)
		// Sorted by current streak descending
		require.Equal(t, "gone@example.com", stored.Users[0].Email)
		require.Equal(t, 15, stored.Users[0].CurrentStreak)
		require.NotNil(t, stored.Users[0].InactiveSince)
		require.True(t, day(8).Equal(*stored.Users[0].InactiveSince))
		require.Equal(t, "busy@example.com", stored.Users[1].Email)
		require.Nil(t, stored.Users[1].InactiveSince)
	})

	t.Run("failed store leaves the run id unset", func(t *testing.T) {
		t.Parallel()

		p := newPostgresReportRepository(t, db, "store_report_failure")

		report := newReport(time.Date(2025, time.July, 15, 8, 0, 0, 0, time.UTC))

		cancelledCtx, cancel := context.WithCancel(ctx)
		cancel()

		err := p.StoreReport(cancelledCtx, report)
		require.Error(t, err)
		require.Empty(t, report.RunID)
	})

	t.Run("latest report picks the newest run", func(t *testing.T) {
		t.Parallel()

		p := newPostgresReportRepository(t, db, "latest_report")

		older := newReport(time.Date(2025, time.July, 14, 8, 0, 0, 0, time.UTC))
		newer := newReport(time.Date(2025, time.July, 15, 8, 0, 0, 0, time.UTC))

		require.NoError(t, p.StoreReport(ctx, older))
		require.NoError(t, p.StoreReport(ctx, newer))

		stored, err := p.LatestReport(ctx)
		require.NoError(t, err)
		require.Equal(t, newer.RunID, stored.RunID)
	})

	t.Run("no report stored", func(t *testing.T) {
		t.Parallel()

		p := newPostgresReportRepository(t, db, "no_report")

		_, err := p.LatestReport(ctx)
		require.ErrorIs(t, err, domain.ErrNoReport)
	})

	t.Run("record actions", func(t *testing.T) {
		t.Parallel()

		p := newPostgresReportRepository(t, db, "record_actions")

		report := newReport(time.Date(2025, time.July, 15, 8, 0, 0, 0, time.UTC))
		require.NoError(t, p.StoreReport(ctx, report))

		recordedAt := time.Date(2025, time.July, 15, 8, 1, 0, 0, time.UTC)
		actions := []domain.Action{
			{Type: domain.ActionFlagForRemoval, Email: "gone@example.com", Reason: "inactive for 15 working days", DryRun: false, RecordedAt: recordedAt},
			{Type: domain.ActionManualRemovalRequired, Email: "gone@example.com", Reason: "no removal endpoint in the Admin API", DryRun: false, RecordedAt: recordedAt},
		}
		require.NoError(t, p.RecordActions(ctx, report.RunID, actions))

		// Actions without a run are also allowed
		require.NoError(t, p.RecordActions(ctx, "", []domain.Action{
			{Type: domain.ActionFlagForRemoval, Email: "manual@example.com", Reason: "manual flag", DryRun: true, RecordedAt: recordedAt},
		}))

		txx, err := db.Beginx()
		require.NoError(t, err)
		defer txx.Rollback()

		_, err = txx.ExecContext(ctx, fmt.Sprintf("SET search_path TO %s", pq.QuoteIdentifier("record_actions")))
		require.NoError(t, err)

		var count int
		require.NoError(t, txx.QueryRowx("SELECT COUNT(*) FROM audit_action WHERE run_id = $1", report.RunID).Scan(&count))
		require.Equal(t, 2, count)

		require.NoError(t, txx.QueryRowx("SELECT COUNT(*) FROM audit_action WHERE run_id IS NULL").Scan(&count))
		require.Equal(t, 1, count)
	})

	t.Run("list actions newest first", func(t *testing.T) {
		t.Parallel()

		p := newPostgresReportRepository(t, db, "list_actions")

		report := newReport(time.Date(2025, time.July, 15, 8, 0, 0, 0, time.UTC))
		require.NoError(t, p.StoreReport(ctx, report))

		day := func(d int) time.Time {
			return time.Date(2025, time.July, d, 8, 0, 0, 0, time.UTC)
		}
		require.NoError(t, p.RecordActions(ctx, report.RunID, []domain.Action{
			{Type: domain.ActionFlagForRemoval, Email: "gone@example.com", Reason: "inactive for 15 working days", DryRun: false, RecordedAt: day(15)},
		}))
		require.NoError(t, p.RecordActions(ctx, "", []domain.Action{
			{Type: domain.ActionFlagForRemoval, Email: "manual@example.com", Reason: "manual flag", DryRun: true, RecordedAt: day(14)},
			{Type: domain.ActionManualRemovalRequired, Email: "manual@example.com", Reason: "no removal endpoint in the Admin API", DryRun: true, RecordedAt: day(16)},
		}))

		actions, err := p.ListActions(ctx, 10)
		require.NoError(t, err)

		require.Len(t, actions, 3)
		require.Equal(t, "manual@example.com", actions[0].Email)
		require.True(t, day(16).Equal(actions[0].RecordedAt))
		require.Equal(t, "gone@example.com", actions[1].Email)
		require.Equal(t, "manual@example.com", actions[2].Email)
		require.True(t, day(14).Equal(actions[2].RecordedAt))

		// The limit caps the result at the newest entries
		limited, err := p.ListActions(ctx, 1)
		require.NoError(t, err)
		require.Len(t, limited, 1)
		require.True(t, day(16).Equal(limited[0].RecordedAt))
	})
}
