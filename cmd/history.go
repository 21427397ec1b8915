package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/spindle/internal/formatter"
	"github.com/desertthunder/spindle/internal/history"
	"github.com/desertthunder/spindle/internal/shared"
	"github.com/urfave/cli/v3"
)

// historyCommand handles download history inspection and retention.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Inspect and clean up download history",
		Commands: []*cli.Command{
			{
				Name:  "cleanup",
				Usage: "Delete download_history rows older than the retention window and report what was removed",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "days",
						Usage: "Retention window in days (defaults to history.retention_days from config.toml)",
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: "Report format: csv, markdown, text, or json",
						Value: "json",
					},
					&cli.StringFlag{
						Name:  "output",
						Usage: "Report file path (defaults to a retention_<timestamp> name)",
					},
				},
				Action: r.HistoryCleanup,
			},
		},
	}
}

// HistoryCleanup collects the rows a cleanup pass is about to remove,
// writes a report of them, then deletes them and their child tables.
func (r *Runner) HistoryCleanup(ctx context.Context, cmd *cli.Command) error {
	if r.historyStore == nil {
		return fmt.Errorf("%w: history store not initialized", shared.ErrServiceUnavailable)
	}

	days := int(cmd.Int("days"))
	if days <= 0 {
		days = r.config.History.RetentionDays
	}
	if days <= 0 {
		return fmt.Errorf("%w: retention days must be positive", shared.ErrInvalidArgument)
	}

	all, err := r.historyStore.List(history.ListOpts{})
	if err != nil {
		return fmt.Errorf("failed to list download history: %w", err)
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	expired := formatter.ExpiredBefore(all, cutoff)
	report := formatter.BuildRetentionReport(expired, days)
	report.Timestamp = time.Now().UTC().Format(time.RFC3339)

	outputPath := cmd.String("output")
	var reportPath string
	switch cmd.String("format") {
	case "csv":
		reportPath, err = formatter.WriteCSVReport(report, outputPath)
	case "markdown", "md":
		reportPath, err = formatter.WriteMarkdownReport(report, outputPath)
	case "text", "txt":
		reportPath, err = formatter.WriteTextReport(report, outputPath)
	case "json", "":
		reportPath, err = formatter.WriteJSONReport(report, outputPath)
	default:
		return fmt.Errorf("%w: unknown report format %q", shared.ErrInvalidArgument, cmd.String("format"))
	}
	if err != nil {
		return fmt.Errorf("failed to write retention report: %w", err)
	}

	removed, err := r.historyStore.Cleanup(days)
	if err != nil {
		return fmt.Errorf("failed to clean up history: %w", err)
	}

	r.logger.Info("history cleanup complete", "removed", removed, "report", reportPath)
	return r.writePlainln("removed %d rows older than %d days, report written to %s", removed, days, reportPath)
}
