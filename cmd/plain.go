package cmd

import (
	"fmt"
	"sort"

	"github.com/PolarWolf314/sealctl/internal/ui"
	"github.com/PolarWolf314/sealctl/internal/utils"
	"github.com/PolarWolf314/sealctl/internal/workflows"
	"github.com/spf13/cobra"
)

var plainSyncAll bool

var PlainCmd = &cobra.Command{
	Use:   "plain",
	Short: "Maintain the plaintext secret files of each environment",
	Long: `Keeps <secrets_dir>/<environment>.json in line with the [[resources]]
declared in the project config. The directory is git-ignored.`,
	PersistentPreRun: setupLogger,
}

func init() {
	addLoggingFlags(PlainCmd)
	addEnvironmentFlag(PlainCmd)

	plainSyncCmd.Flags().BoolVar(&plainSyncAll, "all", false, "sync every configured environment")

	PlainCmd.AddCommand(plainSyncCmd)
	PlainCmd.AddCommand(plainResetCmd)
	PlainCmd.AddCommand(plainExportCmd)
}

func resetPlainCommandState() {
	plainSyncAll = false
}

var plainSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Add missing keys and drop stale ones, keeping existing values",
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting plain sync command")

		rc, err := newRunContext()
		if err != nil {
			return reportProjectError(err)
		}

		envs := []string{rc.Environment}
		if plainSyncAll {
			envs = rc.Settings.Config.Environments
		}

		spinner, cleanup := startSpinner("Syncing plain secrets...")
		defer cleanup()

		result, err := workflows.PlainSync(cmd.Context(), rc, envs)
		if result == nil {
			msg, ok := formatProjectError(err)
			spinner.FinalMSG = msg
			if ok {
				return nil
			}
			return err
		}

		spinner.FinalMSG = formatPlainSync(rc, envs, result)
		if err != nil {
			spinner.FinalMSG += "\n" + ui.Error.Sprint("✗") + " " + err.Error()
			return err
		}
		return nil
	},
}

func formatPlainSync(rc *workflows.RunContext, envs []string, result *workflows.PlainSyncResult) string {
	changed := result.ChangedEnvironments()
	if len(changed) == 0 {
		return ui.Success.Sprint("✓") + " Plain secrets already match the schema"
	}

	paths := make([]string, 0, len(changed))
	for _, env := range changed {
		paths = append(paths, rc.Settings.Relative(result.Paths[env]))
	}
	sort.Strings(paths)

	return ui.Success.Sprint("✓") + " Updated plain secrets of " +
		utils.Pluralize(len(changed), "environment", "environments") + " out of " + fmt.Sprint(len(envs)) + ":" +
		utils.FormatPaths(paths)
}

var plainResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Overwrite the plain secrets of an environment with empty values",
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting plain reset command")

		rc, err := newRunContext()
		if err != nil {
			return reportProjectError(err)
		}

		path, err := workflows.PlainReset(cmd.Context(), rc)
		if err != nil {
			return reportProjectError(err)
		}
		fmt.Println(ui.Success.Sprint("✓") + " Reset " + ui.Path.Sprint(rc.Settings.Relative(path)))
		return nil
	},
}

var plainExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the plain secrets of an environment as a .env file",
	Long: `Writes <secrets_dir>/.env.<environment> with one variable per value,
named <CATEGORY>_<RESOURCE>_<VARIABLE>.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting plain export command")

		rc, err := newRunContext()
		if err != nil {
			return reportProjectError(err)
		}

		path, err := workflows.PlainExport(cmd.Context(), rc)
		if err != nil {
			return reportProjectError(err)
		}
		fmt.Println(ui.Success.Sprint("✓") + " Exported to " + ui.Path.Sprint(rc.Settings.Relative(path)))
		return nil
	},
}
