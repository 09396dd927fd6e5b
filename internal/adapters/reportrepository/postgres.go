package reportrepository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/leikvolle/seatwatch/internal/adapters/database"
	"github.com/leikvolle/seatwatch/internal/config"
	"github.com/leikvolle/seatwatch/internal/domain"
	"github.com/leikvolle/seatwatch/internal/logging"
	"github.com/leikvolle/seatwatch/internal/reporting"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type PostgresReportRepository struct {
	db     *sqlx.DB
	schema string

	tracer trace.Tracer
}

func NewPostgresReportRepository(db *sqlx.DB, schema string) *PostgresReportRepository {
	tracer := otel.Tracer("seatwatch/reportrepository/postgres")

	return &PostgresReportRepository{
		db:     db,
		schema: schema,

		tracer: tracer,
	}
}

type dbAnalysisRun struct {
	ID                  string    `db:"id"`
	GeneratedAt         time.Time `db:"generated_at"`
	Threshold           int       `db:"threshold"`
	ExcludeWeekends     bool      `db:"exclude_weekends"`
	Holidays            string    `db:"holidays"`
	SkippedRecords      int       `db:"skipped_records"`
	TotalUsers          int       `db:"total_users"`
	UsersWithActivity   int       `db:"users_with_activity"`
	AverageActivityRate float64   `db:"average_activity_rate"`
	FlaggedUsers        int       `db:"flagged_users"`
}

type dbUserReport struct {
	ID            string     `db:"id"`
	RunID         string     `db:"run_id"`
	Email         string     `db:"email"`
	ActiveDays    int        `db:"active_days"`
	InactiveDays  int        `db:"inactive_days"`
	CurrentStreak int        `db:"current_streak"`
	MaxStreak     int        `db:"max_streak"`
	LastActive    *time.Time `db:"last_active"`
	InactiveSince *time.Time `db:"inactive_since"`
}

func holidaysToStorage(holidays []time.Time) string {
	days := make([]string, 0, len(holidays))
	for _, holiday := range holidays {
		days = append(days, holiday.Format(time.DateOnly))
	}
	return strings.Join(days, ",")
}

func holidaysFromStorage(raw string) ([]time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	var holidays []time.Time
	for _, day := range strings.Split(raw, ",") {
		parsed, err := time.ParseInLocation(time.DateOnly, day, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("failed to parse stored holiday %q: %w", day, err)
		}
		holidays = append(holidays, parsed)
	}
	return holidays, nil
}

func (p *PostgresReportRepository) StoreReport(ctx context.Context, report *domain.AnalysisReport) error {
	ctx, span := p.tracer.Start(ctx, "Postgres.StoreReport")
	defer span.End()

	if report == nil {
		err := fmt.Errorf("report is nil")
		reporting.Report(ctx, err)
		return err
	}

	// The run id is only published on the report once the transaction commits,
	// so a failed store never advertises a run that does not exist.
	runID := report.RunID
	if runID == "" {
		generated, err := uuid.NewV7()
		if err != nil {
			err := fmt.Errorf("failed to generate run id: %w", err)
			reporting.Report(ctx, err)
			return err
		}
		runID = generated.String()
	}

	txx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		err := fmt.Errorf("failed to start transaction: %w", err)
		reporting.Report(ctx, err, map[string]string{"runID": runID})
		return err
	}
	defer txx.Rollback()

	_, err = txx.ExecContext(ctx, fmt.Sprintf("SET search_path TO %s", pq.QuoteIdentifier(p.schema)))
	if err != nil {
		err := fmt.Errorf("failed to set search path: %w", err)
		reporting.Report(ctx, err, map[string]string{"runID": runID, "schema": p.schema})
		return err
	}

	_, err = txx.ExecContext(
		ctx,
		`INSERT INTO analysis_run
		(id, generated_at, threshold, exclude_weekends, holidays, skipped_records, total_users, users_with_activity, average_activity_rate, flagged_users)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		runID,
		report.GeneratedAt,
		report.Threshold,
		report.ExcludeWeekends,
		holidaysToStorage(report.Holidays),
		report.SkippedRecords,
		report.Summary.TotalUsers,
		report.Summary.UsersWithActivity,
		report.Summary.AverageActivityRate,
		report.Summary.FlaggedUsers,
	)
	if err != nil {
		err := fmt.Errorf("failed to insert analysis run: %w", err)
		reporting.Report(ctx, err, map[string]string{"runID": runID})
		return err
	}

	for _, user := range report.Users {
		reportID, err := uuid.NewV7()
		if err != nil {
			err := fmt.Errorf("failed to generate report id: %w", err)
			reporting.Report(ctx, err, map[string]string{"runID": runID})
			return err
		}

		_, err = txx.ExecContext(
			ctx,
			`INSERT INTO user_report
			(id, run_id, email, active_days, inactive_days, current_streak, max_streak, last_active, inactive_since)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			reportID.String(),
			runID,
			user.Email,
			user.ActiveDays,
			user.InactiveDays,
			user.CurrentStreak,
			user.MaxStreak,
			user.LastActive,
			user.InactiveSince,
		)
		if err != nil {
			err := fmt.Errorf("failed to insert user report: %w", err)
			reporting.Report(ctx, err, map[string]string{"runID": runID, "email": user.Email})
			return err
		}
	}

	err = txx.Commit()
	if err != nil {
		err := fmt.Errorf("failed to commit transaction: %w", err)
		reporting.Report(ctx, err, map[string]string{"runID": runID})
		return err
	}

	report.RunID = runID

	logging.FromContext(ctx).Info("Stored analysis report", "runID", report.RunID, "users", len(report.Users))

	return nil
}

func (p *PostgresReportRepository) LatestReport(ctx context.Context) (*domain.AnalysisReport, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.LatestReport")
	defer span.End()

	txx, err := p.db.BeginTxx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		err := fmt.Errorf("failed to start transaction: %w", err)
		reporting.Report(ctx, err)
		return nil, err
	}
	defer txx.Rollback()

	_, err = txx.ExecContext(ctx, fmt.Sprintf("SET search_path TO %s", pq.QuoteIdentifier(p.schema)))
	if err != nil {
		err := fmt.Errorf("failed to set search path: %w", err)
		reporting.Report(ctx, err, map[string]string{"schema": p.schema})
		return nil, err
	}

	var run dbAnalysisRun
	err = txx.GetContext(
		ctx,
		&run,
		`SELECT
			id, generated_at, threshold, exclude_weekends, holidays, skipped_records, total_users, users_with_activity, average_activity_rate, flagged_users
		FROM analysis_run
		ORDER BY generated_at DESC
		LIMIT 1`,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNoReport
	}
	if err != nil {
		err := fmt.Errorf("failed to select latest analysis run: %w", err)
		reporting.Report(ctx, err)
		return nil, err
	}

	var userRows []dbUserReport
	err = txx.SelectContext(
		ctx,
		&userRows,
		`SELECT
			id, run_id, email, active_days, inactive_days, current_streak, max_streak, last_active, inactive_since
		FROM user_report
		WHERE run_id = $1
		ORDER BY current_streak DESC, email ASC`,
		run.ID,
	)
	if err != nil {
		err := fmt.Errorf("failed to select user reports: %w", err)
		reporting.Report(ctx, err, map[string]string{"runID": run.ID})
		return nil, err
	}

	holidays, err := holidaysFromStorage(run.Holidays)
	if err != nil {
		reporting.Report(ctx, err, map[string]string{"runID": run.ID})
		return nil, err
	}

	users := make([]domain.UserReport, 0, len(userRows))
	for _, row := range userRows {
		users = append(users, domain.UserReport{
			Email:         row.Email,
			ActiveDays:    row.ActiveDays,
			InactiveDays:  row.InactiveDays,
			CurrentStreak: row.CurrentStreak,
			MaxStreak:     row.MaxStreak,
			LastActive:    row.LastActive,
			InactiveSince: row.InactiveSince,
		})
	}

	return &domain.AnalysisReport{
		RunID:           run.ID,
		GeneratedAt:     run.GeneratedAt,
		Threshold:       run.Threshold,
		ExcludeWeekends: run.ExcludeWeekends,
		Holidays:        holidays,
		SkippedRecords:  run.SkippedRecords,
		Users:           users,
		Summary: domain.Summary{
			TotalUsers:          run.TotalUsers,
			UsersWithActivity:   run.UsersWithActivity,
			AverageActivityRate: run.AverageActivityRate,
			FlaggedUsers:        run.FlaggedUsers,
		},
	}, nil
}

func (p *PostgresReportRepository) RecordActions(ctx context.Context, runID string, actions []domain.Action) error {
	ctx, span := p.tracer.Start(ctx, "Postgres.RecordActions")
	defer span.End()

	if len(actions) == 0 {
		return nil
	}

	txx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		err := fmt.Errorf("failed to start transaction: %w", err)
		reporting.Report(ctx, err, map[string]string{"runID": runID})
		return err
	}
	defer txx.Rollback()

	_, err = txx.ExecContext(ctx, fmt.Sprintf("SET search_path TO %s", pq.QuoteIdentifier(p.schema)))
	if err != nil {
		err := fmt.Errorf("failed to set search path: %w", err)
		reporting.Report(ctx, err, map[string]string{"runID": runID, "schema": p.schema})
		return err
	}

	var runIDValue *string
	if runID != "" {
		runIDValue = &runID
	}

	for _, action := range actions {
		actionID, err := uuid.NewV7()
		if err != nil {
			err := fmt.Errorf("failed to generate action id: %w", err)
			reporting.Report(ctx, err, map[string]string{"runID": runID})
			return err
		}

		_, err = txx.ExecContext(
			ctx,
			`INSERT INTO audit_action
			(id, run_id, action_type, email, reason, dry_run, recorded_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			actionID.String(),
			runIDValue,
			string(action.Type),
			action.Email,
			action.Reason,
			action.DryRun,
			action.RecordedAt,
		)
		if err != nil {
			err := fmt.Errorf("failed to insert audit action: %w", err)
			reporting.Report(ctx, err, map[string]string{"runID": runID, "email": action.Email})
			return err
		}
	}

	err = txx.Commit()
	if err != nil {
		err := fmt.Errorf("failed to commit transaction: %w", err)
		reporting.Report(ctx, err, map[string]string{"runID": runID})
		return err
	}

	return nil
}

type dbAuditAction struct {
	ID         string    `db:"id"`
	RunID      *string   `db:"run_id"`
	ActionType string    `db:"action_type"`
	Email      string    `db:"email"`
	Reason     string    `db:"reason"`
	DryRun     bool      `db:"dry_run"`
	RecordedAt time.Time `db:"recorded_at"`
}

func (p *PostgresReportRepository) ListActions(ctx context.Context, limit int) ([]domain.Action, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.ListActions")
	defer span.End()

	txx, err := p.db.BeginTxx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		err := fmt.Errorf("failed to start transaction: %w", err)
		reporting.Report(ctx, err)
		return nil, err
	}
	defer txx.Rollback()

	_, err = txx.ExecContext(ctx, fmt.Sprintf("SET search_path TO %s", pq.QuoteIdentifier(p.schema)))
	if err != nil {
		err := fmt.Errorf("failed to set search path: %w", err)
		reporting.Report(ctx, err, map[string]string{"schema": p.schema})
		return nil, err
	}

	var rows []dbAuditAction
	err = txx.SelectContext(
		ctx,
		&rows,
		`SELECT
			id, run_id, action_type, email, reason, dry_run, recorded_at
		FROM audit_action
		ORDER BY recorded_at DESC, id DESC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		err := fmt.Errorf("failed to select audit actions: %w", err)
		reporting.Report(ctx, err)
		return nil, err
	}

	actions := make([]domain.Action, 0, len(rows))
	for _, row := range rows {
		actions = append(actions, domain.Action{
			Type:       domain.ActionType(row.ActionType),
			Email:      row.Email,
			Reason:     row.Reason,
			DryRun:     row.DryRun,
			RecordedAt: row.RecordedAt,
		})
	}

	return actions, nil
}

type StubReportRepository struct{}

func (p *StubReportRepository) StoreReport(ctx context.Context, report *domain.AnalysisReport) error {
	return nil
}

func (p *StubReportRepository) LatestReport(ctx context.Context) (*domain.AnalysisReport, error) {
	return nil, domain.ErrNoReport
}

func (p *StubReportRepository) RecordActions(ctx context.Context, runID string, actions []domain.Action) error {
	return nil
}

func (p *StubReportRepository) ListActions(ctx context.Context, limit int) ([]domain.Action, error) {
	return nil, nil
}

func NewStubReportRepository() *StubReportRepository {
	return &StubReportRepository{}
}

func NewPostgresReportRepositoryOrMock(conf config.Config, logger *slog.Logger) (ReportRepository, error) {
	repositorySchemaName := database.GetSchemaName(!conf.IsProduction())

	logger.Info("Initializing database connection")
	db, err := database.NewCloudsqlPostgresDatabase(conf)
	if err == nil {
		err := database.NewDatabaseMigrator(db, logger.With("component", "migrator")).Migrate(context.Background(), repositorySchemaName)
		if err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return NewPostgresReportRepository(db, repositorySchemaName), nil
	}

	if conf.IsDevelopment() {
		logger.Warn("Failed to connect to database. Falling back to stub repository.", "error", err.Error())
		return NewStubReportRepository(), nil
	}

	return nil, fmt.Errorf("failed to connect to database: %w", err)
}
