package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/leikvolle/seatwatch/internal/adapters/activityprovider"
	"github.com/leikvolle/seatwatch/internal/adapters/cache"
	"github.com/leikvolle/seatwatch/internal/adapters/memberprovider"
	"github.com/leikvolle/seatwatch/internal/adapters/reportrepository"
	"github.com/leikvolle/seatwatch/internal/app"
	"github.com/leikvolle/seatwatch/internal/config"
	"github.com/leikvolle/seatwatch/internal/domain"
	"github.com/leikvolle/seatwatch/internal/ports"
	"github.com/leikvolle/seatwatch/internal/ratelimiting"
	"github.com/leikvolle/seatwatch/internal/reporting"
	"github.com/leikvolle/seatwatch/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	// Make sure we have a fallback root certificate pool when running in a
	// scratch container
	_ "golang.org/x/crypto/x509roots/fallback"
)

// TODO: Put in config
const PROD_DOMAIN_SUFFIX = "seatwatch.leikvolle.dev"

func main() {
	instanceID := uuid.New().String()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("instanceID", instanceID)

	fail := func(msg string, args ...any) {
		logger.Error(msg, args...)
		os.Exit(1)
	}

	config, err := config.ConfigFromEnv()
	if err != nil {
		fail("Failed to load config", "error", err.Error())
	}
	logger.Info("Loaded config", "config", config.NonSensitiveString())

	shutdownTelemetry, err := telemetry.SetupOTelSDK(context.Background(), "seatwatch")
	if err != nil {
		fail("Failed to initialize telemetry", "error", err.Error())
	}
	defer shutdownTelemetry(context.Background())

	memberCache := cache.NewTTLCache[[]domain.TeamMember](1 * time.Hour)
	// The Admin API aggregates usage daily, re-fetching the same window more
	// often than this buys nothing
	activityCache := cache.NewTTLCache[activityprovider.Result](15 * time.Minute)

	httpClient := &http.Client{
		Timeout:   30 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	// The Admin API allows a limited number of requests per key, stay well below
	cursorAPILimiter := ratelimiting.NewWindowLimitRequestLimiter(100, 5*time.Minute, time.Now, time.After)

	cursorAPI, err := activityprovider.NewCursorAPIOrMock(config, httpClient, cursorAPILimiter)
	if err != nil {
		fail("Failed to initialize Cursor API", "error", err.Error())
	}
	logger.Info("Initialized Cursor API")

	activityProvider, err := activityprovider.NewCursorActivityProvider(cursorAPI)
	if err != nil {
		fail("Failed to initialize activity provider", "error", err.Error())
	}

	memberProvider, err := memberprovider.NewCursorMemberProviderOrMock(config, httpClient)
	if err != nil {
		fail("Failed to initialize member provider", "error", err.Error())
	}

	sentryMiddleware, flush, err := reporting.NewSentryMiddlewareOrMock(config)
	if err != nil {
		fail("Failed to initialize Sentry", "error", err.Error())
	}
	defer flush()
	logger.Info("Initialized Sentry middleware")

	reportRepo, err := reportrepository.NewPostgresReportRepositoryOrMock(config, logger)
	if err != nil {
		fail("Failed to initialize ReportRepository", "error", err.Error())
	}
	logger.Info("Initialized ReportRepository")

	allowedOrigins, err := ports.NewDomainSuffixes(PROD_DOMAIN_SUFFIX)
	if err != nil {
		fail("Failed to initialize allowed origins", "error", err.Error())
	}

	analysisOptions := app.AnalysisOptions{
		Threshold:  config.InactiveThreshold(),
		Exclusions: domain.NewExclusionSet(config.ExcludeWeekends(), config.Holidays()),
	}

	analyzeTeam := app.BuildAnalyzeTeam(
		memberCache,
		activityCache,
		memberProvider,
		activityProvider,
		reportRepo,
		config.WindowDays(),
		analysisOptions,
		time.Now,
	)
	flagInactiveUsers := app.BuildFlagInactiveUsers(reportRepo, time.Now)
	getLatestReport := app.BuildGetLatestReport(reportRepo)
	getRecentActions := app.BuildGetRecentActions(reportRepo)

	http.HandleFunc(
		"OPTIONS /v1/report",
		ports.BuildCORSHandler(allowedOrigins),
	)
	http.HandleFunc(
		"GET /v1/report",
		ports.MakeGetReportHandler(
			getLatestReport,
			allowedOrigins,
			logger.With("port", "report"),
			sentryMiddleware,
		),
	)

	http.HandleFunc(
		"OPTIONS /v1/analyze",
		ports.BuildCORSHandler(allowedOrigins),
	)
	http.HandleFunc(
		"POST /v1/analyze",
		ports.MakeAnalyzeHandler(
			analyzeTeam,
			flagInactiveUsers,
			allowedOrigins,
			logger.With("port", "analyze"),
			sentryMiddleware,
		),
	)

	http.HandleFunc(
		"OPTIONS /v1/actions",
		ports.BuildCORSHandler(allowedOrigins),
	)
	http.HandleFunc(
		"GET /v1/actions",
		ports.MakeGetActionsHandler(
			getRecentActions,
			allowedOrigins,
			logger.With("port", "actions"),
			sentryMiddleware,
		),
	)

	logger.Info("Init complete")
	err = http.ListenAndServe(fmt.Sprintf(":%s", config.Port()), nil)
	if errors.Is(err, http.ErrServerClosed) {
		logger.Info("Server shutdown")
	} else {
		fail("Server error", "error", err.Error())
	}
}
