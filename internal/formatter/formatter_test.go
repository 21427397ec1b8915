package formatter

import (
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/spindle/internal/models"
	th "github.com/desertthunder/spindle/internal/testing"
)

func sampleRows() []*models.DownloadHistory {
	h1 := models.NewDownloadHistory("task1", models.KindTrack, "Song One", "Artist One", "spotify")
	h1.SetStatus("done")
	h1.SetTimestamp(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	h2 := models.NewDownloadHistory("task2", models.KindAlbum, "Album Two", "Artist Two", "deezer")
	h2.SetStatus("done")
	h2.SetChildrenTable("album_task2")
	h2.SetTimestamp(time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC))

	return []*models.DownloadHistory{h1, h2}
}

func TestBuildRetentionReport(t *testing.T) {
	rows := sampleRows()
	report := BuildRetentionReport(rows, 30)

	if report.RetentionDays != 30 {
		t.Errorf("expected retention days 30, got %d", report.RetentionDays)
	}
	if report.RemovedCount != 2 {
		t.Errorf("expected removed count 2, got %d", report.RemovedCount)
	}
	if len(report.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(report.Entries))
	}
	if report.Entries[0].TaskID != "task1" || report.Entries[0].Title != "Song One" {
		t.Errorf("unexpected first entry: %+v", report.Entries[0])
	}
	if report.Entries[1].ChildrenTable != "album_task2" {
		t.Errorf("expected children table for second entry, got %q", report.Entries[1].ChildrenTable)
	}
}

func TestExpiredBefore(t *testing.T) {
	rows := sampleRows()
	cutoff := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

	expired := ExpiredBefore(rows, cutoff)
	if len(expired) != 1 {
		t.Fatalf("expected 1 expired row, got %d", len(expired))
	}
	if expired[0].TaskID() != "task1" {
		t.Errorf("expected task1 to be expired, got %s", expired[0].TaskID())
	}
}

func TestExporters(t *testing.T) {
	report := BuildRetentionReport(sampleRows(), 14)
	report.Timestamp = "2025-02-01T00:00:00Z"

	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(report)
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "TaskID,Type,Title,Artists,Status,Service,Timestamp,ChildrenTable") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "task1") || !strings.Contains(output, "Song One") {
			t.Errorf("CSV missing first row data")
		}
		if !strings.Contains(output, "album_task2") {
			t.Errorf("CSV missing children table")
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(report)
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "# Retention cleanup report") {
			t.Errorf("Markdown missing title")
		}
		if !strings.Contains(output, "**Rows removed**: 2") {
			t.Errorf("Markdown missing removed count")
		}
		if !strings.Contains(output, "dropped table `album_task2`") {
			t.Errorf("Markdown missing dropped table note, got: %s", output)
		}
	})

	t.Run("ExportToMarkdown empty", func(t *testing.T) {
		empty := BuildRetentionReport(nil, 14)
		data, err := ExportToMarkdown(empty)
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}
		if !strings.Contains(string(data), "No rows exceeded the retention window.") {
			t.Errorf("expected empty-report note, got: %s", data)
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(report)
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}
		output := string(data)
		if !strings.Contains(output, "Rows removed: 2") {
			t.Errorf("Text missing removed count")
		}
		if !strings.Contains(output, "Artist One - Song One") {
			t.Errorf("Text missing first row")
		}
	})

	t.Run("ExportToJSON", func(t *testing.T) {
		data, err := ExportToJSON(report)
		if err != nil {
			t.Fatalf("ExportToJSON failed: %v", err)
		}
		output := string(data)
		if !strings.Contains(output, `"task1"`) {
			t.Errorf("JSON missing task1")
		}
		if !strings.Contains(output, `"removed_count": 2`) {
			t.Errorf("JSON missing removed_count, got: %s", output)
		}
	})
}

func TestWriters(t *testing.T) {
	report := BuildRetentionReport(sampleRows(), 14)
	report.Timestamp = "2025-02-01T00:00:00Z"

	t.Run("WriteCSVReport", func(t *testing.T) {
		tempDir := t.TempDir()
		originalDir := th.MustGetwd(t)
		th.MustChdir(t, tempDir)
		defer th.MustChdir(t, originalDir)

		path, err := WriteCSVReport(report, "")
		if err != nil {
			t.Fatalf("WriteCSVReport failed: %v", err)
		}
		th.AssertFileExists(t, path)

		content := th.MustReadFile(t, path)
		if !strings.Contains(content, "task1") {
			t.Errorf("CSV report missing expected row")
		}
	})

	t.Run("WriteMarkdownReport", func(t *testing.T) {
		tempDir := t.TempDir()
		originalDir := th.MustGetwd(t)
		th.MustChdir(t, tempDir)
		defer th.MustChdir(t, originalDir)

		path, err := WriteMarkdownReport(report, "custom_report.md")
		if err != nil {
			t.Fatalf("WriteMarkdownReport failed: %v", err)
		}
		if path != "custom_report.md" {
			t.Errorf("expected custom_report.md, got %s", path)
		}
		th.AssertFileExists(t, path)
	})

	t.Run("WriteJSONReport", func(t *testing.T) {
		tempDir := t.TempDir()
		originalDir := th.MustGetwd(t)
		th.MustChdir(t, tempDir)
		defer th.MustChdir(t, originalDir)

		path, err := WriteJSONReport(report, "")
		if err != nil {
			t.Fatalf("WriteJSONReport failed: %v", err)
		}
		th.AssertFileExists(t, path)

		content := th.MustReadFile(t, path)
		if !strings.Contains(content, "task2") {
			t.Errorf("JSON report missing expected row")
		}
	})
}
