package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PolarWolf314/sealctl/internal/audit"
	"github.com/PolarWolf314/sealctl/internal/ui"
	"github.com/PolarWolf314/sealctl/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	logLimit     int
	logReverse   bool
	logUser      string
	logOperation string
	logSince     string
	logOneline   bool
	logJSON      bool
)

func init() {
	logCmd.Flags().IntVarP(&logLimit, "number", "n", 0, "limit number of entries shown")
	logCmd.Flags().BoolVar(&logReverse, "reverse", false, "show most recent entries first")
	logCmd.Flags().StringVar(&logUser, "user", "", "filter by user name")
	logCmd.Flags().StringVar(&logOperation, "operation", "", "filter by operation type (comma-separated)")
	logCmd.Flags().StringVar(&logSince, "since", "", "show entries after date (YYYY-MM-DD)")
	logCmd.Flags().BoolVar(&logOneline, "oneline", false, "compact one-line format")
	logCmd.Flags().BoolVar(&logJSON, "json", false, "output as JSON array")
}

// resetLogCommandState resets the log command's global state for testing.
func resetLogCommandState() {
	logLimit = 0
	logReverse = false
	logUser = ""
	logOperation = ""
	logSince = ""
	logOneline = false
	logJSON = false
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "View the audit log",
	Long: `Displays the audit log of sealctl operations.

Shows who sealed, synced or reset what and when. The log covers every
environment unless --env is given explicitly.

Examples:
  sealctl secrets log                            # View full log
  sealctl secrets log -n 10                      # Last 10 entries
  sealctl secrets log --reverse                  # Most recent first
  sealctl secrets log -e production              # One environment
  sealctl secrets log --operation seal           # Filter by operation
  sealctl secrets log --since 2024-01-01         # Filter by date
  sealctl secrets log --json                     # JSON output`,
	RunE: runLog,
}

func runLog(cmd *cobra.Command, args []string) error {
	Logger.Infof("Starting log command")

	rc, err := newRunContext()
	if err != nil {
		return reportProjectError(err)
	}

	opts := workflows.LogOptions{
		Limit:   logLimit,
		Reverse: logReverse,
		User:    logUser,
		Since:   logSince,
	}
	if logOperation != "" {
		opts.Operations = strings.Split(logOperation, ",")
	}
	if cmd.Flags().Changed("env") {
		opts.Environment = environment
	}

	result, err := workflows.Log(rc.Settings, opts)
	if err != nil {
		fmt.Println(ui.Error.Sprint("✗") + " " + err.Error())
		return nil
	}

	Logger.Debugf("Parsed %d entries from audit log", result.Total)
	Logger.Debugf("After filtering: %d entries", len(result.Entries))

	if len(result.Entries) == 0 {
		if result.Total == 0 {
			fmt.Println("No audit log entries found.")
		} else {
			fmt.Println("No audit log entries found matching the filters.")
		}
		return nil
	}

	switch {
	case logJSON:
		return outputLogJSON(result.Entries)
	case logOneline:
		outputLogOneline(result.Entries)
	default:
		outputLogDefault(result.Entries)
	}
	return nil
}

func outputLogJSON(entries []audit.Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal entries to JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func outputLogOneline(entries []audit.Entry) {
	for _, e := range entries {
		fmt.Printf("%s %s %s %s %s\n", formatDate(e), e.User, e.Operation, orDash(e.Environment), formatDetails(e))
	}
}

func outputLogDefault(entries []audit.Entry) {
	for _, e := range entries {
		fmt.Printf("%-19s  %-15s  %-12s  %-10s  %s\n", formatDateTime(e), e.User, e.Operation, orDash(e.Environment), formatDetails(e))
	}
}

func formatDate(e audit.Entry) string {
	if t := e.Time(); !t.IsZero() {
		return t.Format("2006-01-02")
	}
	return e.Timestamp
}

func formatDateTime(e audit.Entry) string {
	if t := e.Time(); !t.IsZero() {
		return t.Format("2006-01-02 15:04:05")
	}
	return e.Timestamp
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// formatDetails summarizes the operation-specific fields of an entry.
func formatDetails(e audit.Entry) string {
	var parts []string
	if len(e.Secrets) > 0 {
		parts = append(parts, strings.Join(e.Secrets, ", "))
	}
	if len(e.Skipped) > 0 {
		parts = append(parts, fmt.Sprintf("skipped %s", strings.Join(e.Skipped, ", ")))
	}
	if len(parts) == 0 && len(e.Files) > 0 {
		parts = append(parts, strings.Join(e.Files, ", "))
	}
	return strings.Join(parts, "; ")
}
