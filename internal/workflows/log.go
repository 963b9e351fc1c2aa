package workflows

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/PolarWolf314/sealctl/internal/audit"
	"github.com/PolarWolf314/sealctl/internal/configs"
)

// LogOptions configures the log workflow.
type LogOptions struct {
	// Limit is the maximum number of entries to return. 0 means no limit.
	Limit int

	// Reverse orders entries from most recent to oldest when true.
	Reverse bool

	// Environment filters entries by environment.
	Environment string

	// User filters entries by user name.
	User string

	// Operations filters entries by operation types.
	Operations []string

	// Since filters entries after this date (YYYY-MM-DD format).
	Since string
}

// LogResult contains the outcome of a log operation.
type LogResult struct {
	// Entries are the filtered audit log entries, oldest first unless reversed.
	Entries []audit.Entry

	// Total is the count of entries before filtering.
	Total int
}

// Log reads and filters the audit log of the project.
// A missing log yields an empty result.
func Log(settings *configs.ProjectSettings, opts LogOptions) (*LogResult, error) {
	entries, err := audit.ReadEntries(settings.AuditLogPath())
	if err != nil {
		return nil, fmt.Errorf("reading audit log: %w", err)
	}

	result := &LogResult{Total: len(entries)}

	var since time.Time
	if opts.Since != "" {
		since, err = time.Parse(time.DateOnly, opts.Since)
		if err != nil {
			return nil, fmt.Errorf("--since date format invalid, use YYYY-MM-DD: %w", err)
		}
	}

	ops := make([]string, 0, len(opts.Operations))
	for _, op := range opts.Operations {
		if op = strings.ToLower(strings.TrimSpace(op)); op != "" {
			ops = append(ops, op)
		}
	}

	filtered := make([]audit.Entry, 0, len(entries))
	for _, e := range entries {
		if opts.Environment != "" && e.Environment != opts.Environment {
			continue
		}
		if opts.User != "" && !strings.EqualFold(e.User, opts.User) {
			continue
		}
		if len(ops) > 0 && !slices.Contains(ops, strings.ToLower(e.Operation)) {
			continue
		}
		if !since.IsZero() && e.Time().Before(since) {
			continue
		}
		filtered = append(filtered, e)
	}

	// Limit keeps the most recent entries.
	if opts.Limit > 0 && len(filtered) > opts.Limit {
		filtered = filtered[len(filtered)-opts.Limit:]
	}
	if opts.Reverse {
		slices.Reverse(filtered)
	}

	result.Entries = filtered
	return result, nil
}
