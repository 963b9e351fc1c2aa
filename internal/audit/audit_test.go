package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestLog_CreatesFileAndDirectory(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), ".sealctl", "audit.jsonl")

	if err := Log(logPath, NewEntry(OpSeal, "local")); err != nil {
		t.Fatalf("Log() error = %v", err)
	}

	if _, err := os.Stat(logPath); err != nil {
		t.Fatalf("Audit log file was not created: %v", err)
	}
}

func TestLog_AppendsEntries(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.jsonl")

	for _, op := range []string{OpSeal, OpPlainSync, OpPlainReset} {
		if err := Log(logPath, Entry{User: "alice", Operation: op}); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := ReadEntries(logPath)
	if err != nil {
		t.Fatalf("ReadEntries() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}
	if entries[0].Operation != OpSeal || entries[2].Operation != OpPlainReset {
		t.Errorf("Entries out of order: %+v", entries)
	}
}

func TestLog_FillsTimestampAndRunID(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.jsonl")

	if err := Log(logPath, Entry{Operation: OpSeal}); err != nil {
		t.Fatal(err)
	}
	entries, _ := ReadEntries(logPath)
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}

	entry := entries[0]
	if _, err := time.Parse(TimestampLayout, entry.Timestamp); err != nil {
		t.Errorf("Timestamp %q does not match layout: %v", entry.Timestamp, err)
	}
	if entry.Time().IsZero() {
		t.Errorf("Time() must parse the timestamp")
	}
	if _, err := uuid.Parse(entry.RunID); err != nil {
		t.Errorf("RunID %q is not a UUID: %v", entry.RunID, err)
	}
}

func TestLog_OmitsEmptyFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.jsonl")
	if err := Log(logPath, Entry{User: "alice", Operation: OpInit}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Entry is not valid JSON: %v", err)
	}
	for _, key := range []string{"environment", "files", "secrets", "skipped", "dry_run"} {
		if _, ok := raw[key]; ok {
			t.Errorf("Empty field %q should be omitted", key)
		}
	}
}

func TestLog_EmptyPathIsNoop(t *testing.T) {
	if err := Log("", NewEntry(OpSeal, "local")); err != nil {
		t.Errorf("Log() with empty path error = %v", err)
	}
}

func TestLog_UnwritablePathReturnsError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := Log(filepath.Join(blocker, "audit.jsonl"), NewEntry(OpSeal, "local")); err == nil {
		t.Errorf("Expected error for a path below a regular file")
	}
}

func TestNewEntry(t *testing.T) {
	first := NewEntry(OpSeal, "staging")
	second := NewEntry(OpPlainSync, "staging")

	if first.RunID == "" || first.RunID != second.RunID {
		t.Errorf("Entries of one process must share a run ID: %q %q", first.RunID, second.RunID)
	}
	if first.User == "" {
		t.Errorf("User must be populated")
	}
	if first.Environment != "staging" || first.Operation != OpSeal {
		t.Errorf("Unexpected entry: %+v", first)
	}
}

func TestParseEntries(t *testing.T) {
	tests := []struct {
		name string
		data string
		want int
	}{
		{"empty", "", 0},
		{"valid", `{"op":"seal"}` + "\n" + `{"op":"init"}` + "\n", 2},
		{"skips malformed", `{"op":"seal"}` + "\n{broken\n" + `{"op":"init"}`, 2},
		{"blank lines", "\n\n" + `{"op":"seal"}` + "\n\n", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseEntries([]byte(tt.data)); len(got) != tt.want {
				t.Errorf("ParseEntries() returned %d entries, want %d", len(got), tt.want)
			}
		})
	}
}

func TestReadEntries_MissingFile(t *testing.T) {
	entries, err := ReadEntries(filepath.Join(t.TempDir(), "missing.jsonl"))
	if err != nil {
		t.Fatalf("ReadEntries() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no entries, got %d", len(entries))
	}
}

func TestEntryRoundTripKeepsDetails(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.jsonl")
	entry := NewEntry(OpSeal, "production")
	entry.Secrets = []string{"applications/api"}
	entry.Skipped = []string{"applications/api:TOKEN"}
	entry.Files = []string{"applications/sealed-secrets/sealed-secret-api-applications.yaml"}

	if err := Log(logPath, entry); err != nil {
		t.Fatal(err)
	}
	entries, _ := ReadEntries(logPath)
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	got := entries[0]
	if strings.Join(got.Skipped, ",") != "applications/api:TOKEN" || len(got.Files) != 1 || got.Secrets[0] != "applications/api" {
		t.Errorf("Details lost: %+v", got)
	}
}
