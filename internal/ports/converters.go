package ports

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/leikvolle/seatwatch/internal/domain"
	"github.com/leikvolle/seatwatch/internal/reporting"
)

type userReportResponse struct {
	Email         string  `json:"email"`
	ActiveDays    int     `json:"activeDays"`
	InactiveDays  int     `json:"inactiveDays"`
	CurrentStreak int     `json:"currentStreak"`
	MaxStreak     int     `json:"maxStreak"`
	ActivityRate  float64 `json:"activityRate"`
	Flagged       bool    `json:"flagged"`
	LastActive    *string `json:"lastActive,omitempty"`
	InactiveSince *string `json:"inactiveSince,omitempty"`
}

type summaryResponse struct {
	TotalUsers          int     `json:"totalUsers"`
	UsersWithActivity   int     `json:"usersWithActivity"`
	AverageActivityRate float64 `json:"averageActivityRate"`
	FlaggedUsers        int     `json:"flaggedUsers"`
}

type reportResponse struct {
	Success         bool                 `json:"success"`
	RunID           string               `json:"runId"`
	GeneratedAt     string               `json:"generatedAt"`
	Threshold       int                  `json:"threshold"`
	ExcludeWeekends bool                 `json:"excludeWeekends"`
	Holidays        []string             `json:"holidays"`
	SkippedRecords  int                  `json:"skippedRecords"`
	Users           []userReportResponse `json:"users"`
	Summary         summaryResponse      `json:"summary"`
}

type actionResponse struct {
	Type       string `json:"type"`
	Email      string `json:"email"`
	Reason     string `json:"reason"`
	DryRun     bool   `json:"dryRun"`
	RecordedAt string `json:"recordedAt"`
}

func formatDay(t *time.Time) *string {
	if t == nil {
		return nil
	}
	formatted := t.Format(time.DateOnly)
	return &formatted
}

func reportToResponse(report *domain.AnalysisReport) reportResponse {
	holidays := make([]string, 0, len(report.Holidays))
	for _, holiday := range report.Holidays {
		holidays = append(holidays, holiday.Format(time.DateOnly))
	}

	users := make([]userReportResponse, 0, len(report.Users))
	for _, user := range report.Users {
		users = append(users, userReportResponse{
			Email:         user.Email,
			ActiveDays:    user.ActiveDays,
			InactiveDays:  user.InactiveDays,
			CurrentStreak: user.CurrentStreak,
			MaxStreak:     user.MaxStreak,
			ActivityRate:  user.ActivityRate(),
			Flagged:       user.FlaggedAt(report.Threshold),
			LastActive:    formatDay(user.LastActive),
			InactiveSince: formatDay(user.InactiveSince),
		})
	}

	return reportResponse{
		Success:         true,
		RunID:           report.RunID,
		GeneratedAt:     report.GeneratedAt.Format(time.RFC3339),
		Threshold:       report.Threshold,
		ExcludeWeekends: report.ExcludeWeekends,
		Holidays:        holidays,
		SkippedRecords:  report.SkippedRecords,
		Users:           users,
		Summary: summaryResponse{
			TotalUsers:          report.Summary.TotalUsers,
			UsersWithActivity:   report.Summary.UsersWithActivity,
			AverageActivityRate: report.Summary.AverageActivityRate,
			FlaggedUsers:        report.Summary.FlaggedUsers,
		},
	}
}

func actionsToResponse(actions []domain.Action) []actionResponse {
	response := make([]actionResponse, 0, len(actions))
	for _, action := range actions {
		response = append(response, actionResponse{
			Type:       string(action.Type),
			Email:      action.Email,
			Reason:     action.Reason,
			DryRun:     action.DryRun,
			RecordedAt: action.RecordedAt.Format(time.RFC3339),
		})
	}
	return response
}

func makeReportResponse(ctx context.Context, report *domain.AnalysisReport) ([]byte, error) {
	response, err := json.Marshal(reportToResponse(report))
	if err != nil {
		reporting.Report(ctx, fmt.Errorf("failed to marshal report response: %w", err))
		return nil, err
	}
	return response, nil
}
