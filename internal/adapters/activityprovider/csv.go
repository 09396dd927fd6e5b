package activityprovider

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/leikvolle/seatwatch/internal/domain"
	"github.com/leikvolle/seatwatch/internal/logging"
	"github.com/leikvolle/seatwatch/internal/strutils"
)

const (
	dateColumn   = "date"
	emailColumn  = "email"
	activeColumn = "is active"
)

type csvActivityProvider struct {
	open func() (io.ReadCloser, error)
}

// NewCSVActivityProvider reads activity records from a CSV export with the
// columns Date, Email and "Is Active". Header matching is case-insensitive.
// Malformed rows are skipped with a warning; a missing column fails the whole
// read with domain.ErrMissingColumn.
func NewCSVActivityProvider(open func() (io.ReadCloser, error)) ActivityProvider {
	return &csvActivityProvider{open: open}
}

func (c *csvActivityProvider) DailyActivity(ctx context.Context, start, end time.Time) (Result, error) {
	reader, err := c.open()
	if err != nil {
		return Result{}, fmt.Errorf("failed to open activity csv: %w", err)
	}
	defer reader.Close()

	return ParseActivityCSV(ctx, reader, start, end)
}

func findColumns(header []string) (dateIdx, emailIdx, activeIdx int, err error) {
	dateIdx, emailIdx, activeIdx = -1, -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case dateColumn:
			dateIdx = i
		case emailColumn:
			emailIdx = i
		case activeColumn:
			activeIdx = i
		}
	}

	for _, missing := range []struct {
		name string
		idx  int
	}{
		{"Date", dateIdx},
		{"Email", emailIdx},
		{"Is Active", activeIdx},
	} {
		if missing.idx == -1 {
			return -1, -1, -1, fmt.Errorf("%w: %s", domain.ErrMissingColumn, missing.name)
		}
	}

	return dateIdx, emailIdx, activeIdx, nil
}

func parseRecordDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{time.DateOnly, time.RFC3339, "2006-01-02 15:04:05"} {
		if date, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return date, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognized date %q", domain.ErrMalformedRecord, raw)
}

// ParseActivityCSV reads all rows from reader and keeps the ones within
// [start, end]. A zero start or end disables that bound.
func ParseActivityCSV(ctx context.Context, reader io.Reader, start, end time.Time) (Result, error) {
	logger := logging.FromContext(ctx)

	csvReader := csv.NewReader(reader)
	csvReader.FieldsPerRecord = -1
	csvReader.TrimLeadingSpace = true

	header, err := csvReader.Read()
	if err != nil {
		return Result{}, fmt.Errorf("failed to read csv header: %w", err)
	}

	dateIdx, emailIdx, activeIdx, err := findColumns(header)
	if err != nil {
		return Result{}, err
	}

	result := Result{}
	line := 1
	for {
		line++
		row, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Warn("skipping malformed csv row", "line", line, "error", err.Error())
			result.Skipped++
			continue
		}

		record, err := parseRow(row, dateIdx, emailIdx, activeIdx)
		if err != nil {
			logger.Warn("skipping malformed csv row", "line", line, "error", err.Error())
			result.Skipped++
			continue
		}

		day := domain.DayOf(record.Date)
		if !start.IsZero() && day.Before(domain.DayOf(start)) {
			continue
		}
		if !end.IsZero() && day.After(domain.DayOf(end)) {
			continue
		}

		result.Records = append(result.Records, record)
	}

	return result, nil
}

func parseRow(row []string, dateIdx, emailIdx, activeIdx int) (domain.ActivityRecord, error) {
	maxIdx := max(dateIdx, emailIdx, activeIdx)
	if len(row) <= maxIdx {
		return domain.ActivityRecord{}, fmt.Errorf("%w: expected at least %d fields, got %d", domain.ErrMalformedRecord, maxIdx+1, len(row))
	}

	date, err := parseRecordDate(row[dateIdx])
	if err != nil {
		return domain.ActivityRecord{}, err
	}

	email := strutils.NormalizeEmail(row[emailIdx])
	if !strutils.EmailLooksValid(email) {
		return domain.ActivityRecord{}, fmt.Errorf("%w: invalid email %q", domain.ErrMalformedRecord, row[emailIdx])
	}

	active, err := strutils.ParseActiveFlag(row[activeIdx])
	if err != nil {
		return domain.ActivityRecord{}, fmt.Errorf("%w: %w", domain.ErrMalformedRecord, err)
	}

	return domain.ActivityRecord{
		Date:   domain.DayOf(date),
		Email:  email,
		Active: active,
	}, nil
}
