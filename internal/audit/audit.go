package audit

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// TimestampLayout is RFC3339 in UTC with microseconds.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// Operation names.
const (
	OpSeal        = "seal"
	OpPlainSync   = "plain-sync"
	OpPlainReset  = "plain-reset"
	OpPlainExport = "plain-export"
	OpInit        = "init"
)

// Entry represents a single audit log entry.
type Entry struct {
	Timestamp   string `json:"ts"`
	RunID       string `json:"run"`
	User        string `json:"user"`
	Operation   string `json:"op"`
	Environment string `json:"environment,omitempty"`

	// Optional fields depending on operation.
	Files   []string `json:"files,omitempty"`   // Written or deleted manifests.
	Secrets []string `json:"secrets,omitempty"` // "namespace/name" of sealed secrets.
	Skipped []string `json:"skipped,omitempty"` // "namespace/name:field" that failed.
	DryRun  bool     `json:"dry_run,omitempty"`
}

// runID is shared by every entry written by this process.
var runID = uuid.NewString()

// NewEntry returns an entry for op with the user and run fields populated.
func NewEntry(op, environment string) Entry {
	return Entry{
		RunID:       runID,
		User:        CurrentUser(),
		Operation:   op,
		Environment: environment,
	}
}

// CurrentUser is the login name of the invoking user, or "unknown".
func CurrentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "unknown"
}

// Log appends an entry to the audit log at path.
// Failures are returned for the caller to report but must not fail the operation.
func Log(path string, entry Entry) error {
	if path == "" {
		return nil
	}
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format(TimestampLayout)
	}
	if entry.RunID == "" {
		entry.RunID = runID
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	// #nosec G302 -- audit log should be readable by team members.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(append(data, '\n'))
	return err
}

// ReadEntries reads all entries from the audit log at path.
// Returns an empty slice if the log doesn't exist.
func ReadEntries(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ParseEntries(data), nil
}

// ParseEntries parses JSON Lines data into audit entries.
// Malformed lines are silently skipped.
func ParseEntries(data []byte) []Entry {
	var entries []Entry
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

// Time parses the entry timestamp. The zero time is returned for unparsable values.
func (e Entry) Time() time.Time {
	t, err := time.Parse(TimestampLayout, e.Timestamp)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, e.Timestamp)
	}
	return t
}
