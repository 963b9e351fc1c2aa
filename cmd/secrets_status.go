package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/PolarWolf314/sealctl/internal/ui"
	"github.com/PolarWolf314/sealctl/internal/utils"
	"github.com/PolarWolf314/sealctl/internal/workflows"
	"github.com/spf13/cobra"
)

var statusJSONOutput bool

func init() {
	statusCmd.Flags().BoolVar(&statusJSONOutput, "json", false, "output in JSON format")
}

func resetStatusCommandState() {
	statusJSONOutput = false
}

// statusJSON is the machine-readable form of one secret.
type statusJSON struct {
	Namespace string   `json:"namespace"`
	Name      string   `json:"name"`
	State     string   `json:"state"`
	Source    string   `json:"source"`
	Target    string   `json:"target"`
	Fields    []string `json:"fields"`
	Sealed    []string `json:"sealed"`
	Missing   []string `json:"missing"`
	Stale     []string `json:"stale"`
}

type statusOutput struct {
	Environment string                  `json:"environment"`
	Secrets     []statusJSON            `json:"secrets"`
	Orphans     []string                `json:"orphans"`
	Summary     workflows.StatusSummary `json:"summary"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which secret fields are sealed",
	Long: `Shows, for every Secret of an environment, which fields already have
ciphertext in its SealedSecret.

Each secret has one of three states:
  - current:  every field is sealed
  - partial:  some fields are missing, or the SealedSecret has stale keys
  - unsealed: no field is sealed yet

SealedSecrets whose Secret no longer exists are listed as orphans.

Use --json for machine-readable output.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting status command")

		rc, err := newRunContext()
		if err != nil {
			return reportProjectError(err)
		}

		result, err := workflows.Status(cmd.Context(), rc)
		if err != nil {
			return reportProjectError(err)
		}
		Logger.Debugf("Found %d secrets and %d orphans", len(result.Secrets), len(result.Orphans))

		if statusJSONOutput {
			return outputStatusJSON(rc, result)
		}

		printStatusTable(rc, result)
		return nil
	},
}

func outputStatusJSON(rc *workflows.RunContext, result *workflows.StatusResult) error {
	out := statusOutput{
		Environment: result.Environment,
		Secrets:     []statusJSON{},
		Orphans:     []string{},
		Summary:     result.Summary,
	}
	for _, s := range result.Secrets {
		out.Secrets = append(out.Secrets, statusJSON{
			Namespace: s.Ref.Namespace,
			Name:      s.Ref.Name,
			State:     string(s.State()),
			Source:    rc.Settings.Relative(s.SourcePath),
			Target:    rc.Settings.Relative(s.SealedPath),
			Fields:    nonNil(s.Fields),
			Sealed:    nonNil(s.Sealed),
			Missing:   nonNil(s.Missing),
			Stale:     nonNil(s.Stale),
		})
	}
	for _, ref := range result.Orphans {
		out.Orphans = append(out.Orphans, ref.String())
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// printStatusTable prints a formatted table of secret states.
func printStatusTable(rc *workflows.RunContext, result *workflows.StatusResult) {
	fmt.Printf("Environment: %s\n", ui.Group.Sprint(result.Environment))
	fmt.Println()

	if len(result.Secrets) == 0 && len(result.Orphans) == 0 {
		fmt.Println(ui.Success.Sprint("✓") + " No secrets found.")
		return
	}

	refWidth := 20
	for _, s := range result.Secrets {
		refWidth = max(refWidth, len(s.Ref.String()))
	}
	refWidth = min(refWidth, max(20, utils.TerminalWidth(100)/2))

	fmt.Printf("  %-*s  %s\n", refWidth, "SECRET", "STATUS")
	for _, s := range result.Secrets {
		var statusStr string
		switch s.State() {
		case workflows.StateCurrent:
			statusStr = ui.Success.Sprint("✓") + " sealed (" + utils.Pluralize(len(s.Sealed), "field", "fields") + ")"
		case workflows.StatePartial:
			statusStr = ui.Warning.Sprint("⚠") + " partial"
		default:
			statusStr = ui.Error.Sprint("✗") + " not sealed"
		}
		fmt.Printf("  %-*s  %s\n", refWidth, s.Ref.String(), statusStr)

		if len(s.Missing) > 0 {
			fmt.Printf("  %-*s    missing: %s\n", refWidth, "", formatFields(s.Missing))
		}
		if len(s.Stale) > 0 {
			fmt.Printf("  %-*s    stale:   %s\n", refWidth, "", formatFields(s.Stale))
		}
		Logger.Infof("%s -> %s", rc.Settings.Relative(s.SourcePath), rc.Settings.Relative(s.SealedPath))
	}

	for _, ref := range result.Orphans {
		fmt.Printf("  %-*s  %s\n", refWidth, ref.String(), ui.Muted.Sprint("orphan, no Secret"))
	}

	fmt.Println()
	fmt.Println("Summary:")
	if result.Summary.Current > 0 {
		fmt.Printf("  %s fully sealed\n", utils.Pluralize(result.Summary.Current, "secret", "secrets"))
	}
	if result.Summary.Partial > 0 {
		fmt.Printf("  %s partially sealed (run '%s' to update)\n",
			utils.Pluralize(result.Summary.Partial, "secret", "secrets"), ui.Code.Sprint("sealctl secrets seal -e "+result.Environment))
	}
	if result.Summary.Unsealed > 0 {
		fmt.Printf("  %s not sealed (run '%s' to secure)\n",
			utils.Pluralize(result.Summary.Unsealed, "secret", "secrets"), ui.Code.Sprint("sealctl secrets seal -e "+result.Environment))
	}
	if result.Summary.Orphaned > 0 {
		fmt.Printf("  %s without a Secret\n", utils.Pluralize(result.Summary.Orphaned, "SealedSecret", "SealedSecrets"))
	}
	if n := len(result.LoadErrors); n > 0 {
		fmt.Printf("  %s skipped while loading\n", utils.Pluralize(n, "manifest", "manifests"))
	}
}

func formatFields(fields []string) string {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = ui.Field.Sprint(f)
	}
	return strings.Join(quoted, ", ")
}
