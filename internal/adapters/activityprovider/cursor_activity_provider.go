package activityprovider

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type cursorActivityProvider struct {
	cursorAPI CursorAPI

	metrics cursorActivityProviderMetricsCollection
}

func NewCursorActivityProvider(cursorAPI CursorAPI) (ActivityProvider, error) {
	meter := otel.Meter("activityprovider/cursor_provider")
	metrics, err := setupCursorActivityProviderMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to set up metrics: %w", err)
	}

	return &cursorActivityProvider{
		cursorAPI: cursorAPI,

		metrics: metrics,
	}, nil
}

func (c *cursorActivityProvider) DailyActivity(ctx context.Context, start, end time.Time) (Result, error) {
	data, statusCode, err := c.cursorAPI.GetDailyUsageData(ctx, start, end)
	if err != nil {
		// NOTE: CursorAPI implementations handle their own error reporting
		return Result{}, fmt.Errorf("failed to get daily usage data: %w", err)
	}

	result, err := ParseDailyUsageResponse(ctx, data, statusCode, start, end)
	if err != nil {
		// NOTE: ParseDailyUsageResponse handles its own error reporting
		return Result{}, fmt.Errorf("failed to convert cursor api response to activity records: %w", err)
	}

	c.metrics.requestCount.Add(ctx, 1, metric.WithAttributes(attribute.Bool("got_records", len(result.Records) > 0)))
	c.metrics.recordCount.Add(ctx, int64(len(result.Records)))

	return result, nil
}

type cursorActivityProviderMetricsCollection struct {
	requestCount metric.Int64Counter
	recordCount  metric.Int64Counter
}

func setupCursorActivityProviderMetrics(meter metric.Meter) (cursorActivityProviderMetricsCollection, error) {
	requestCount, err := meter.Int64Counter("activityprovider/cursor_provider/requests")
	if err != nil {
		return cursorActivityProviderMetricsCollection{}, fmt.Errorf("failed to create metric: %w", err)
	}

	recordCount, err := meter.Int64Counter("activityprovider/cursor_provider/returned_records")
	if err != nil {
		return cursorActivityProviderMetricsCollection{}, fmt.Errorf("failed to create metric: %w", err)
	}

	return cursorActivityProviderMetricsCollection{
		requestCount: requestCount,
		recordCount:  recordCount,
	}, nil
}
