package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/leikvolle/seatwatch/internal/adapters/activityprovider"
	"github.com/leikvolle/seatwatch/internal/app"
	"github.com/leikvolle/seatwatch/internal/config"
	"github.com/leikvolle/seatwatch/internal/domain"
	"github.com/leikvolle/seatwatch/internal/logging"
)

func main() {
	input := flag.String("input", "", "path to the activity CSV export (columns: Date, Email, Is Active)")
	threshold := flag.Int("threshold", app.DefaultThreshold, "flag users inactive for at least this many counted days")
	holidaysFlag := flag.String("holidays", "", "comma-separated list of company holidays (YYYY-MM-DD)")
	includeWeekends := flag.Bool("include-weekends", false, "count weekends toward inactivity streaks")
	detailed := flag.Bool("detailed", false, "print the per-user breakdown for all users")
	flag.Parse()

	path := *input
	if path == "" && flag.NArg() > 0 {
		path = flag.Arg(0)
	}
	if path == "" {
		log.Fatal("No input file provided. Use -input or pass the path as an argument.")
	}

	if *threshold <= 0 {
		log.Fatal("Threshold must be positive.")
	}

	holidays, err := config.ParseHolidays(*holidaysFlag)
	if err != nil {
		log.Fatalf("Failed to parse holidays: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		log.Fatalf("Failed to open input file: %v", err)
	}
	defer file.Close()

	// Warnings about malformed rows go to stderr, the report goes to stdout
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	ctx := logging.AddToContext(context.Background(), logger)

	result, err := activityprovider.ParseActivityCSV(ctx, file, time.Time{}, time.Time{})
	if err != nil {
		log.Fatalf("Failed to parse activity CSV: %v", err)
	}

	options := app.AnalysisOptions{
		Threshold:  *threshold,
		Exclusions: domain.NewExclusionSet(!*includeWeekends, holidays),
	}
	report := app.AnalyzeRecords(result.Records, time.Now(), options)
	report.SkippedRecords = result.Skipped

	printReport(&report, *detailed)

	if report.Summary.FlaggedUsers > 0 {
		os.Exit(1)
	}
}

func formatDay(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Format(time.DateOnly)
}

func printReport(report *domain.AnalysisReport, detailed bool) {
	countedDayKind := "business days"
	if !report.ExcludeWeekends {
		countedDayKind = "days"
	}

	fmt.Println("User Inactivity Report")
	fmt.Println("======================")
	fmt.Printf("Generated:            %s\n", report.GeneratedAt.Format(time.RFC3339))
	fmt.Printf("Inactivity threshold: %d %s\n", report.Threshold, countedDayKind)
	if len(report.Holidays) > 0 {
		fmt.Printf("Holidays excluded:    %d\n", len(report.Holidays))
	}
	if report.SkippedRecords > 0 {
		fmt.Printf("Skipped records:      %d\n", report.SkippedRecords)
	}
	fmt.Println()
	fmt.Printf("Total users:          %d\n", report.Summary.TotalUsers)
	fmt.Printf("Users with activity:  %d\n", report.Summary.UsersWithActivity)
	fmt.Printf("Avg activity rate:    %.1f%%\n", 100*report.Summary.AverageActivityRate)
	fmt.Printf("Flagged users:        %d\n", report.Summary.FlaggedUsers)

	flagged := report.Flagged()
	if len(flagged) > 0 {
		fmt.Println()
		fmt.Printf("Users inactive for %d+ %s:\n", report.Threshold, countedDayKind)
		for _, user := range flagged {
			fmt.Printf("  %-40s streak %3d (max %3d)  inactive since %s  last active %s\n",
				user.Email, user.CurrentStreak, user.MaxStreak, formatDay(user.InactiveSince), formatDay(user.LastActive))
		}
	}

	if detailed {
		fmt.Println()
		fmt.Printf("%-40s %6s %8s %7s %5s %7s  %s\n", "Email", "Active", "Inactive", "Streak", "Max", "Rate", "Last active")
		for _, user := range report.Users {
			fmt.Printf("%-40s %6d %8d %7d %5d %6.1f%%  %s\n",
				user.Email,
				user.ActiveDays,
				user.InactiveDays,
				user.CurrentStreak,
				user.MaxStreak,
				100*user.ActivityRate(),
				formatDay(user.LastActive),
			)
		}
	}
}
