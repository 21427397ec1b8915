// package formatter writes retention cleanup reports (CSV, Markdown, JSON)
// summarizing the download_history rows a history.Store.Cleanup call removed.
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/desertthunder/spindle/internal/models"
	"github.com/desertthunder/spindle/internal/shared"
)

// RetentionReport summarizes a single cleanup run: the rows removed, the
// retention window applied, and when it ran.
type RetentionReport struct {
	Timestamp     string            `json:"timestamp"`
	RetentionDays int               `json:"retention_days"`
	RemovedCount  int               `json:"removed_count"`
	Entries       []RetentionEntry  `json:"entries"`
}

// RetentionEntry is one removed download_history row.
type RetentionEntry struct {
	TaskID        string `json:"task_id"`
	DownloadType  string `json:"download_type"`
	Title         string `json:"title"`
	Artists       string `json:"artists"`
	Status        string `json:"status"`
	Service       string `json:"service"`
	Timestamp     string `json:"timestamp"`
	ChildrenTable string `json:"children_table,omitempty"`
}

// BuildRetentionReport turns the rows a cleanup pass is about to remove
// into a report, meant to be written before the delete so the operator
// keeps a record of what left the store.
func BuildRetentionReport(rows []*models.DownloadHistory, retentionDays int) RetentionReport {
	report := RetentionReport{
		RetentionDays: retentionDays,
		RemovedCount:  len(rows),
		Entries:       make([]RetentionEntry, 0, len(rows)),
	}
	for _, h := range rows {
		report.Entries = append(report.Entries, RetentionEntry{
			TaskID:        h.TaskID(),
			DownloadType:  string(h.DownloadType()),
			Title:         h.Title(),
			Artists:       h.Artists(),
			Status:        h.Status(),
			Service:       h.Service(),
			Timestamp:     h.Timestamp().UTC().Format(time.RFC3339),
			ChildrenTable: h.ChildrenTable(),
		})
	}
	return report
}

// ExpiredBefore filters rows whose timestamp falls before cutoff, the
// client-side half of the same selection history.Store.Cleanup applies
// in SQL, used so a report can be built from rows already in memory
// (e.g. a prior List call) without a second database round trip.
func ExpiredBefore(rows []*models.DownloadHistory, cutoff time.Time) []*models.DownloadHistory {
	var out []*models.DownloadHistory
	for _, h := range rows {
		if h.Timestamp().Before(cutoff) {
			out = append(out, h)
		}
	}
	return out
}

// ExportToCSV renders a RetentionReport's entries as CSV with columns:
// TaskID, Type, Title, Artists, Status, Service, Timestamp, ChildrenTable.
func ExportToCSV(report RetentionReport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"TaskID", "Type", "Title", "Artists", "Status", "Service", "Timestamp", "ChildrenTable"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, e := range report.Entries {
		record := []string{
			e.TaskID, e.DownloadType, e.Title, e.Artists, e.Status, e.Service, e.Timestamp, e.ChildrenTable,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders a RetentionReport as a Markdown summary.
func ExportToMarkdown(report RetentionReport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Retention cleanup report\n\n")
	buf.WriteString(fmt.Sprintf("**Ran at**: %s\n\n", report.Timestamp))
	buf.WriteString(fmt.Sprintf("**Retention window**: %d days\n\n", report.RetentionDays))
	buf.WriteString(fmt.Sprintf("**Rows removed**: %d\n\n", report.RemovedCount))

	if len(report.Entries) == 0 {
		buf.WriteString("No rows exceeded the retention window.\n")
		return buf.Bytes(), nil
	}

	buf.WriteString("## Removed downloads\n\n")
	for i, e := range report.Entries {
		line := fmt.Sprintf("%d. [%s] %s - %s (%s)", i+1, e.DownloadType, e.Artists, e.Title, e.Status)
		if e.ChildrenTable != "" {
			line += fmt.Sprintf(" — dropped table `%s`", e.ChildrenTable)
		}
		buf.WriteString(line + "\n")
	}

	return buf.Bytes(), nil
}

// ExportToText renders a RetentionReport as plain text, one line per
// removed row.
func ExportToText(report RetentionReport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Retention cleanup: %s\n", report.Timestamp))
	buf.WriteString(fmt.Sprintf("Retention window: %d days\n", report.RetentionDays))
	buf.WriteString(fmt.Sprintf("Rows removed: %d\n\n", report.RemovedCount))

	for i, e := range report.Entries {
		buf.WriteString(fmt.Sprintf("%d. %s - %s [%s]\n", i+1, e.Artists, e.Title, e.Status))
	}

	return buf.Bytes(), nil
}

// ExportToJSON marshals a RetentionReport as indented JSON.
func ExportToJSON(report RetentionReport) ([]byte, error) {
	return shared.MarshalJSON(report, true)
}

// WriteCSVReport writes a RetentionReport as CSV to path, defaulting to
// a name derived from the report's timestamp when path is empty.
func WriteCSVReport(report RetentionReport, path string) (string, error) {
	if path == "" {
		path = "retention_" + safeFilenamePart(report.Timestamp) + ".csv"
	}

	data, err := ExportToCSV(report)
	if err != nil {
		return "", fmt.Errorf("failed to generate CSV report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write CSV report: %w", err)
	}
	return path, nil
}

// WriteMarkdownReport writes a RetentionReport as Markdown to path.
func WriteMarkdownReport(report RetentionReport, path string) (string, error) {
	if path == "" {
		path = "retention_" + safeFilenamePart(report.Timestamp) + ".md"
	}

	data, err := ExportToMarkdown(report)
	if err != nil {
		return "", fmt.Errorf("failed to generate Markdown report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write Markdown report: %w", err)
	}
	return path, nil
}

// WriteTextReport writes a RetentionReport as plain text to path.
func WriteTextReport(report RetentionReport, path string) (string, error) {
	if path == "" {
		path = "retention_" + safeFilenamePart(report.Timestamp) + ".txt"
	}

	data, err := ExportToText(report)
	if err != nil {
		return "", fmt.Errorf("failed to generate text report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write text report: %w", err)
	}
	return path, nil
}

// WriteJSONReport writes a RetentionReport as JSON to path.
func WriteJSONReport(report RetentionReport, path string) (string, error) {
	if path == "" {
		path = "retention_" + safeFilenamePart(report.Timestamp) + ".json"
	}

	data, err := ExportToJSON(report)
	if err != nil {
		return "", fmt.Errorf("failed to generate JSON report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write JSON report: %w", err)
	}
	return path, nil
}

func safeFilenamePart(ts string) string {
	out := make([]byte, 0, len(ts))
	for i := 0; i < len(ts); i++ {
		c := ts[i]
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return strconv.FormatInt(time.Now().Unix(), 10)
	}
	return string(out)
}
