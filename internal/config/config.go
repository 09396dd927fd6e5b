package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

var ErrMissingRequiredValue = errors.New("missing required value")
var ErrInvalidValue = errors.New("invalid value")

type environment string

const (
	production  environment = "production"
	staging     environment = "staging"
	development environment = "development"
)

const (
	defaultPort            = "8080"
	defaultThreshold       = 14
	defaultWindowDays      = 35
	defaultExcludeWeekends = true
)

type Config struct {
	cloudSQLUnixSocketPath string
	dBPassword             string
	dBUsername             string
	sentryDSN              string
	cursorAPIKey           string
	cursorAPIBaseURL       string
	port                   string

	inactiveThreshold int
	windowDays        int
	excludeWeekends   bool
	holidays          []time.Time

	env environment
}

func (c *Config) CloudSQLUnixSocketPath() string {
	return c.cloudSQLUnixSocketPath
}

func (c *Config) DBPassword() string {
	return c.dBPassword
}

func (c *Config) DBUsername() string {
	return c.dBUsername
}

func (c *Config) SentryDSN() string {
	return c.sentryDSN
}

func (c *Config) CursorAPIKey() string {
	return c.cursorAPIKey
}

func (c *Config) CursorAPIBaseURL() string {
	return c.cursorAPIBaseURL
}

func (c *Config) Port() string {
	return c.port
}

func (c *Config) InactiveThreshold() int {
	return c.inactiveThreshold
}

func (c *Config) WindowDays() int {
	return c.windowDays
}

func (c *Config) ExcludeWeekends() bool {
	return c.excludeWeekends
}

func (c *Config) Holidays() []time.Time {
	return c.holidays
}

func (c *Config) IsProduction() bool {
	return c.env == production
}

func (c *Config) IsStaging() bool {
	return c.env == staging
}

func (c *Config) IsDevelopment() bool {
	return c.env == development
}

// Return a string representation suitable for logging etc
func (c *Config) NonSensitiveString() string {
	return fmt.Sprintf(
		"Config{env: %s, threshold: %d, windowDays: %d, excludeWeekends: %t, holidays: %d, ...}",
		string(c.env), c.inactiveThreshold, c.windowDays, c.excludeWeekends, len(c.holidays),
	)
}

// ParseHolidays parses a comma-separated list of YYYY-MM-DD dates.
func ParseHolidays(raw string) ([]time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var holidays []time.Time
	for _, part := range strings.Split(raw, ",") {
		day, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(part), time.UTC)
		if err != nil {
			return nil, fmt.Errorf("%w: holiday %q", ErrInvalidValue, part)
		}
		holidays = append(holidays, day)
	}
	return holidays, nil
}

func ConfigFromEnv() (Config, error) {
	missingKey := func(key string) (Config, error) {
		return Config{}, fmt.Errorf("%w: %s", ErrMissingRequiredValue, key)
	}

	var env environment
	rawEnv, ok := os.LookupEnv("SEATWATCH_ENVIRONMENT")
	if !ok {
		return missingKey("SEATWATCH_ENVIRONMENT")
	}
	switch rawEnv {
	case "production":
		env = production
	case "staging":
		env = staging
	case "development":
		env = development
	default:
		return Config{}, fmt.Errorf("%w: SEATWATCH_ENVIRONMENT (%s)", ErrInvalidValue, rawEnv)
	}

	cloudSQLUnixSocketPath := os.Getenv("CLOUDSQL_UNIX_SOCKET")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbUsername := os.Getenv("DB_USERNAME")
	sentryDSN := os.Getenv("SENTRY_DSN")
	cursorAPIKey := os.Getenv("CURSOR_API_KEY")

	cursorAPIBaseURL := os.Getenv("CURSOR_API_BASE_URL")
	if cursorAPIBaseURL == "" {
		cursorAPIBaseURL = "https://api.cursor.com"
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	threshold := defaultThreshold
	if rawThreshold := os.Getenv("SEATWATCH_INACTIVE_THRESHOLD"); rawThreshold != "" {
		parsed, err := strconv.Atoi(rawThreshold)
		if err != nil || parsed <= 0 {
			return Config{}, fmt.Errorf("%w: SEATWATCH_INACTIVE_THRESHOLD (%s)", ErrInvalidValue, rawThreshold)
		}
		threshold = parsed
	}

	windowDays := defaultWindowDays
	if rawWindow := os.Getenv("SEATWATCH_WINDOW_DAYS"); rawWindow != "" {
		parsed, err := strconv.Atoi(rawWindow)
		if err != nil || parsed <= 0 {
			return Config{}, fmt.Errorf("%w: SEATWATCH_WINDOW_DAYS (%s)", ErrInvalidValue, rawWindow)
		}
		windowDays = parsed
	}
	if windowDays < threshold {
		// The window must contain at least a threshold's worth of counted days
		return Config{}, fmt.Errorf("%w: SEATWATCH_WINDOW_DAYS (%d) < threshold (%d)", ErrInvalidValue, windowDays, threshold)
	}

	excludeWeekends := defaultExcludeWeekends
	if rawExclude := os.Getenv("SEATWATCH_EXCLUDE_WEEKENDS"); rawExclude != "" {
		parsed, err := strconv.ParseBool(rawExclude)
		if err != nil {
			return Config{}, fmt.Errorf("%w: SEATWATCH_EXCLUDE_WEEKENDS (%s)", ErrInvalidValue, rawExclude)
		}
		excludeWeekends = parsed
	}

	holidays, err := ParseHolidays(os.Getenv("SEATWATCH_HOLIDAYS"))
	if err != nil {
		return Config{}, fmt.Errorf("SEATWATCH_HOLIDAYS: %w", err)
	}

	if env == production || env == staging {
		if cloudSQLUnixSocketPath == "" {
			return missingKey("CLOUDSQL_UNIX_SOCKET")
		}
		if dbUsername == "" {
			return missingKey("DB_USERNAME")
		}
		if dbPassword == "" {
			return missingKey("DB_PASSWORD")
		}
		if sentryDSN == "" {
			return missingKey("SENTRY_DSN")
		}
		if cursorAPIKey == "" {
			return missingKey("CURSOR_API_KEY")
		}
	}

	return Config{
		cloudSQLUnixSocketPath: cloudSQLUnixSocketPath,
		dBPassword:             dbPassword,
		dBUsername:             dbUsername,
		sentryDSN:              sentryDSN,
		cursorAPIKey:           cursorAPIKey,
		cursorAPIBaseURL:       cursorAPIBaseURL,
		port:                   port,
		inactiveThreshold:      threshold,
		windowDays:             windowDays,
		excludeWeekends:        excludeWeekends,
		holidays:               holidays,
		env:                    env,
	}, nil
}
