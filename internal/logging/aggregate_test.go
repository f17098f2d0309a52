package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeLogLine(t *testing.T, dir, repoHash, line string) {
	t.Helper()
	path := filepath.Join(dir, repoHash+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("failed to open log file: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line + "\n"); err != nil {
		t.Fatalf("failed to write log line: %v", err)
	}
}

func TestAggregateLogs(t *testing.T) {
	dir := t.TempDir()
	writeLogLine(t, dir, "repo01", `{"time":"2026-01-01T00:00:00Z","level":"INFO","msg":"first","repo_hash":"repo01","pr_id":1,"phase":"setup"}`)
	writeLogLine(t, dir, "repo01", `{"time":"2025-12-31T00:00:00Z","level":"WARN","msg":"second","repo_hash":"repo01","pr_id":2,"phase":"cherry_picking","extra":"value"}`)

	entries, err := AggregateLogs(dir, "repo01")
	if err != nil {
		t.Fatalf("AggregateLogs failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	// Sorted ascending by timestamp: the 2025-12-31 entry comes first.
	if entries[0].Message != "second" {
		t.Errorf("entries[0].Message = %q, want %q", entries[0].Message, "second")
	}
	if entries[1].PRID != 1 {
		t.Errorf("entries[1].PRID = %d, want 1", entries[1].PRID)
	}
	if entries[0].Attrs["extra"] != "value" {
		t.Errorf("expected extra attr to be preserved, got %v", entries[0].Attrs)
	}
}

func TestAggregateLogsMissingFile(t *testing.T) {
	dir := t.TempDir()
	if _, err := AggregateLogs(dir, "nonexistent"); err == nil {
		t.Error("expected error for missing log file")
	}
}

func TestAggregateLogsSkipsCorruptedLines(t *testing.T) {
	dir := t.TempDir()
	writeLogLine(t, dir, "repo02", `not valid json`)
	writeLogLine(t, dir, "repo02", `{"time":"2026-01-01T00:00:00Z","level":"INFO","msg":"ok","repo_hash":"repo02"}`)

	entries, err := AggregateLogs(dir, "repo02")
	if err != nil {
		t.Fatalf("AggregateLogs failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 valid entry, got %d", len(entries))
	}
}

func TestFilterLogs(t *testing.T) {
	entries := []LogEntry{
		{Level: "INFO", Message: "a", PRID: 1, Phase: "setup", Timestamp: time.Unix(100, 0)},
		{Level: "WARN", Message: "b conflict detected", PRID: 2, Phase: "cherry_picking", Timestamp: time.Unix(200, 0)},
		{Level: "ERROR", Message: "c", PRID: 2, Phase: "cherry_picking", Timestamp: time.Unix(300, 0)},
	}

	byLevel := FilterLogs(entries, LogFilter{Level: "WARN"})
	if len(byLevel) != 2 {
		t.Errorf("expected 2 entries at WARN+, got %d", len(byLevel))
	}

	byPR := FilterLogs(entries, LogFilter{PRID: 2})
	if len(byPR) != 2 {
		t.Errorf("expected 2 entries for PR 2, got %d", len(byPR))
	}

	byPhase := FilterLogs(entries, LogFilter{Phase: "setup"})
	if len(byPhase) != 1 {
		t.Errorf("expected 1 entry for phase setup, got %d", len(byPhase))
	}

	byMessage := FilterLogs(entries, LogFilter{MessageContains: "conflict"})
	if len(byMessage) != 1 {
		t.Errorf("expected 1 entry containing 'conflict', got %d", len(byMessage))
	}

	byTime := FilterLogs(entries, LogFilter{StartTime: time.Unix(150, 0)})
	if len(byTime) != 2 {
		t.Errorf("expected 2 entries after StartTime, got %d", len(byTime))
	}

	empty := FilterLogs(entries, LogFilter{})
	if len(empty) != len(entries) {
		t.Errorf("expected empty filter to return all entries")
	}
}

func TestExportLogEntriesFormats(t *testing.T) {
	entries := []LogEntry{
		{Level: "INFO", Message: "hello", PRID: 1, Phase: "setup", Timestamp: time.Unix(100, 0)},
	}

	dir := t.TempDir()
	for _, format := range []string{"json", "text", "csv"} {
		path := filepath.Join(dir, "out."+format)
		if err := ExportLogEntries(entries, path, format); err != nil {
			t.Fatalf("ExportLogEntries(%s) failed: %v", format, err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read exported file: %v", err)
		}
		if len(data) == 0 {
			t.Errorf("exported %s file is empty", format)
		}
	}

	if err := ExportLogEntries(entries, filepath.Join(dir, "out.bad"), "bad"); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestExportLogs(t *testing.T) {
	dir := t.TempDir()
	writeLogLine(t, dir, "repo03", `{"time":"2026-01-01T00:00:00Z","level":"INFO","msg":"hello","repo_hash":"repo03"}`)

	outPath := filepath.Join(dir, "export.json")
	if err := ExportLogs(dir, "repo03", outPath, "json"); err != nil {
		t.Fatalf("ExportLogs failed: %v", err)
	}
	if _, err := os.Stat(outPath); err != nil {
		t.Errorf("expected export file to exist: %v", err)
	}
}
