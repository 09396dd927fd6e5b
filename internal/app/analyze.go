package app

import (
	"slices"
	"strings"
	"time"

	"github.com/leikvolle/seatwatch/internal/domain"
	"github.com/leikvolle/seatwatch/internal/strutils"
)

type AnalysisOptions struct {
	Threshold  int
	Exclusions domain.ExclusionSet
}

const DefaultThreshold = 14

// AnalyzeRecords computes a per-user report for every user present in the
// records and aggregates the summary statistics. Records may arrive in any
// order; each user's sequence is processed in ascending date order.
func AnalyzeRecords(records []domain.ActivityRecord, generatedAt time.Time, options AnalysisOptions) domain.AnalysisReport {
	recordsByEmail := make(map[string][]domain.ActivityRecord)
	for _, record := range records {
		email := strutils.NormalizeEmail(record.Email)
		recordsByEmail[email] = append(recordsByEmail[email], record)
	}

	users := make([]domain.UserReport, 0, len(recordsByEmail))
	for email, userRecords := range recordsByEmail {
		users = append(users, ComputeUserReport(email, userRecords, options.Exclusions))
	}

	// Sort by current streak descending; tie-break on email for stable output
	slices.SortFunc(users, func(a, b domain.UserReport) int {
		if a.CurrentStreak != b.CurrentStreak {
			return b.CurrentStreak - a.CurrentStreak
		}
		return strings.Compare(a.Email, b.Email)
	})

	report := domain.AnalysisReport{
		GeneratedAt:     generatedAt,
		Threshold:       options.Threshold,
		ExcludeWeekends: options.Exclusions.ExcludesWeekends(),
		Holidays:        options.Exclusions.Holidays(),
		Users:           users,
	}
	report.Summary = summarize(report)

	return report
}

func summarize(report domain.AnalysisReport) domain.Summary {
	summary := domain.Summary{
		TotalUsers: len(report.Users),
	}

	rateSum := 0.0
	for _, user := range report.Users {
		if user.ActiveDays > 0 {
			summary.UsersWithActivity++
		}
		if user.FlaggedAt(report.Threshold) {
			summary.FlaggedUsers++
		}
		rateSum += user.ActivityRate()
	}

	if summary.TotalUsers > 0 {
		summary.AverageActivityRate = rateSum / float64(summary.TotalUsers)
	}

	return summary
}
