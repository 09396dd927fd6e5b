package app

import (
	"context"
	"fmt"
	"time"

	"github.com/leikvolle/seatwatch/internal/adapters/activityprovider"
	"github.com/leikvolle/seatwatch/internal/adapters/cache"
	"github.com/leikvolle/seatwatch/internal/adapters/memberprovider"
	"github.com/leikvolle/seatwatch/internal/adapters/reportrepository"
	"github.com/leikvolle/seatwatch/internal/domain"
	"github.com/leikvolle/seatwatch/internal/logging"
)

// AnalyzeTeam runs a full analysis over the team's recent activity and
// persists the resulting report.
type AnalyzeTeam func(ctx context.Context) (*domain.AnalysisReport, error)

const memberCacheKey = "team-members"

func BuildAnalyzeTeam(
	memberCache cache.Cache[[]domain.TeamMember],
	activityCache cache.Cache[activityprovider.Result],
	members memberprovider.MemberProvider,
	activity activityprovider.ActivityProvider,
	repo reportrepository.ReportRepository,
	windowDays int,
	options AnalysisOptions,
	nowFunc func() time.Time,
) AnalyzeTeam {
	return func(ctx context.Context) (*domain.AnalysisReport, error) {
		logger := logging.FromContext(ctx)

		teamMembers, _, err := cache.GetOrCreate(ctx, memberCache, memberCacheKey, func() ([]domain.TeamMember, error) {
			return members.TeamMembers(ctx)
		})
		if err != nil {
			// NOTE: MemberProvider implementations handle their own error reporting
			return nil, fmt.Errorf("could not get team members: %w", err)
		}

		analyzed := domain.NonOwners(teamMembers)
		memberEmails := make(map[string]struct{}, len(analyzed))
		for _, member := range analyzed {
			memberEmails[member.Email] = struct{}{}
		}

		// The window is sized so it always holds a full threshold's worth of
		// counted days, regardless of how many weekends and holidays fall in it.
		end := domain.DayOf(nowFunc())
		start := options.Exclusions.CountBack(end, windowDays)

		windowKey := fmt.Sprintf("%s/%s", start.Format(time.DateOnly), end.Format(time.DateOnly))
		result, _, err := cache.GetOrCreate(ctx, activityCache, windowKey, func() (activityprovider.Result, error) {
			return activity.DailyActivity(ctx, start, end)
		})
		if err != nil {
			// NOTE: ActivityProvider implementations handle their own error reporting
			return nil, fmt.Errorf("could not get daily activity: %w", err)
		}

		// Drop records for seats that are no longer on the team, or owner seats
		records := make([]domain.ActivityRecord, 0, len(result.Records))
		for _, record := range result.Records {
			if _, ok := memberEmails[record.Email]; !ok {
				continue
			}
			records = append(records, record)
		}

		report := AnalyzeRecords(records, nowFunc(), options)
		report.SkippedRecords = result.Skipped

		// Ignore cancellations from the request context and try to store the report anyway
		// Take a maximum of 1 second to not block the request for too long
		storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 1*time.Second)
		defer cancel()
		err = repo.StoreReport(storeCtx, &report)
		if err != nil {
			// NOTE: ReportRepository implementations handle their own error reporting
			logger.Error("failed to store report", "error", err.Error())

			// NOTE: We still return the report to fulfill the request even though storing failed
		}

		return &report, nil
	}
}
