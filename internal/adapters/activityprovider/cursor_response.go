package activityprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/leikvolle/seatwatch/internal/domain"
	"github.com/leikvolle/seatwatch/internal/logging"
	"github.com/leikvolle/seatwatch/internal/reporting"
	"github.com/leikvolle/seatwatch/internal/strutils"
)

type dailyUsageEntry struct {
	Date     int64  `json:"date"`
	Email    string `json:"email"`
	IsActive bool   `json:"isActive"`
}

type dailyUsageResponse struct {
	Data []dailyUsageEntry `json:"data"`
}

func checkForCursorAPIError(ctx context.Context, statusCode int, data []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	if statusCode == 429 {
		return fmt.Errorf("%w: rate limited by Cursor API", domain.ErrRatelimitExceeded)
	}

	if statusCode >= 500 {
		err := fmt.Errorf("%w: Cursor API returned status %d", domain.ErrTemporarilyUnavailable, statusCode)
		reporting.Report(ctx, err, map[string]string{
			"statusCode": fmt.Sprint(statusCode),
			"data":       string(data),
		})
		return err
	}

	err := fmt.Errorf("Cursor API returned unexpected status %d", statusCode)
	reporting.Report(ctx, err, map[string]string{
		"statusCode": fmt.Sprint(statusCode),
		"data":       string(data),
	})
	return err
}

// ParseDailyUsageResponse converts a Cursor daily usage payload into activity
// records within [start, end]. Entries the API reports with a zero or
// epoch-start date are members with no recorded activity at all; they are
// pinned to the window start as inactive so the analysis still sees them.
func ParseDailyUsageResponse(ctx context.Context, data []byte, statusCode int, start, end time.Time) (Result, error) {
	logger := logging.FromContext(ctx)

	if err := checkForCursorAPIError(ctx, statusCode, data); err != nil {
		return Result{}, err
	}

	response := dailyUsageResponse{}
	if err := json.Unmarshal(data, &response); err != nil {
		err := fmt.Errorf("%w: failed to parse Cursor API response: %w", domain.ErrTemporarilyUnavailable, err)
		reporting.Report(ctx, err, map[string]string{"data": string(data)})
		return Result{}, err
	}

	result := Result{Records: make([]domain.ActivityRecord, 0, len(response.Data))}
	for _, entry := range response.Data {
		email := strutils.NormalizeEmail(entry.Email)
		if email == "" {
			logger.Warn("skipping daily usage entry without email")
			result.Skipped++
			continue
		}

		date := time.UnixMilli(entry.Date).UTC()
		if entry.Date <= 0 || date.Year() <= 1970 {
			// Placeholder date for members with no activity history
			result.Records = append(result.Records, domain.ActivityRecord{
				Date:   domain.DayOf(start),
				Email:  email,
				Active: false,
			})
			continue
		}

		day := domain.DayOf(date)
		if day.Before(domain.DayOf(start)) || day.After(domain.DayOf(end)) {
			logger.Warn("skipping daily usage entry outside requested window", "date", day.Format(time.DateOnly))
			result.Skipped++
			continue
		}

		result.Records = append(result.Records, domain.ActivityRecord{
			Date:   day,
			Email:  email,
			Active: entry.IsActive,
		})
	}

	return result, nil
}
