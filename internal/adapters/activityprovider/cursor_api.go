package activityprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/leikvolle/seatwatch/internal/config"
	"github.com/leikvolle/seatwatch/internal/logging"
	"github.com/leikvolle/seatwatch/internal/reporting"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const userAgent = "seatwatch (+https://github.com/leikvolle/seatwatch)"

const dailyUsageMinOperationTime = 500 * time.Millisecond

type RequestLimiter interface {
	Limit(ctx context.Context, maxOperationTime time.Duration, operation func()) bool
}

type CursorAPI interface {
	GetDailyUsageData(ctx context.Context, start, end time.Time) ([]byte, int, error)
}

type mockedCursorAPI struct{}

func (cursorAPI *mockedCursorAPI) GetDailyUsageData(ctx context.Context, start, end time.Time) ([]byte, int, error) {
	return []byte(`{"data":[]}`), 200, nil
}

type cursorAPIImpl struct {
	httpClient HttpClient
	limiter    RequestLimiter
	apiKey     string
	baseURL    string

	tracer trace.Tracer
}

func (cursorAPI cursorAPIImpl) GetDailyUsageData(ctx context.Context, start, end time.Time) ([]byte, int, error) {
	ctx, span := cursorAPI.tracer.Start(ctx, "CursorAPI.GetDailyUsageData")
	defer span.End()

	logger := logging.FromContext(ctx)
	url := fmt.Sprintf("%s/teams/daily-usage-data", cursorAPI.baseURL)

	// The API takes epoch milliseconds
	payload, err := json.Marshal(map[string]int64{
		"startDate": start.UnixMilli(),
		"endDate":   end.UnixMilli(),
	})
	if err != nil {
		err := fmt.Errorf("failed to marshal request payload: %w", err)
		logger.Error(err.Error())
		reporting.Report(ctx, err)
		return []byte{}, -1, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		err := fmt.Errorf("failed to create request: %w", err)
		logger.Error(err.Error())
		reporting.Report(ctx, err)
		return []byte{}, -1, err
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", cursorAPI.apiKey))

	var data []byte
	var statusCode int
	var requestError error

	requestStart := time.Now()
	ran := cursorAPI.limiter.Limit(ctx, dailyUsageMinOperationTime, func() {
		_, span := cursorAPI.tracer.Start(ctx, "CursorAPI.httppost")
		defer span.End()

		resp, err := cursorAPI.httpClient.Do(req)
		if err != nil {
			requestError = fmt.Errorf("failed to send request: %w", err)
			return
		}
		defer resp.Body.Close()

		statusCode = resp.StatusCode
		data, err = io.ReadAll(resp.Body)
		if err != nil {
			requestError = fmt.Errorf("failed to read response body: %w", err)
			return
		}
	})
	if !ran {
		err := fmt.Errorf("request limiter rejected daily usage request: %w", ctx.Err())
		logger.Error(err.Error())
		reporting.Report(ctx, err)
		return []byte{}, -1, err
	}
	if requestError != nil {
		logger.Error(requestError.Error())
		reporting.Report(ctx, requestError)
		return []byte{}, -1, requestError
	}

	logger.Info("cursor daily usage request completed", "url", url, "status", statusCode, "duration", time.Since(requestStart).String())

	return data, statusCode, nil
}

func NewCursorAPI(httpClient HttpClient, limiter RequestLimiter, apiKey, baseURL string) CursorAPI {
	tracer := otel.Tracer("seatwatch/activityprovider/cursor")

	return cursorAPIImpl{
		httpClient: httpClient,
		limiter:    limiter,
		apiKey:     apiKey,
		baseURL:    baseURL,

		tracer: tracer,
	}
}

func NewCursorAPIOrMock(conf config.Config, httpClient HttpClient, limiter RequestLimiter) (CursorAPI, error) {
	if conf.CursorAPIKey() != "" {
		return NewCursorAPI(httpClient, limiter, conf.CursorAPIKey(), conf.CursorAPIBaseURL()), nil
	}
	if conf.IsDevelopment() {
		return &mockedCursorAPI{}, nil
	}
	return nil, fmt.Errorf("missing Cursor API key in non-development environment")
}
