package cmd

import (
	"errors"
	"fmt"

	kerrors "github.com/PolarWolf314/sealctl/internal/errors"
	"github.com/PolarWolf314/sealctl/internal/ui"
	"github.com/PolarWolf314/sealctl/internal/workflows"
	"github.com/spf13/cobra"
)

var initForce bool

var InitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default .sealctl.toml in the current directory",
	Long: `Writes a .sealctl.toml with the default manifests directory, secrets
directory, environments and kubeseal settings, and creates the git-ignored
secrets directory.`,
	PersistentPreRun: setupLogger,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting init command")

		result, err := workflows.Init(workflows.InitOptions{Force: initForce})
		if errors.Is(err, kerrors.ErrConfigExists) {
			fmt.Println(ui.Error.Sprint("✗") + " This directory already has a " + ui.Path.Sprint(".sealctl.toml"))
			fmt.Println(ui.Info.Sprint("→") + " Pass " + ui.Code.Sprint("--force") + " to overwrite it")
			return nil
		}
		if err != nil {
			return Logger.ErrorfAndReturn("failed to initialize project: %v", err)
		}

		verb := "Created"
		if result.Overwritten {
			verb = "Overwrote"
		}
		fmt.Println(ui.Success.Sprint("✓") + " " + verb + " " + ui.Path.Sprint(result.ConfigPath))
		fmt.Println(ui.Info.Sprint("→") + " Declare your plain secrets under " + ui.Code.Sprint("[[resources]]") +
			" and run " + ui.Code.Sprint("sealctl plain sync --all"))
		return nil
	},
}

func init() {
	addLoggingFlags(InitCmd)
	InitCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing .sealctl.toml")
}

func resetInitCommandState() {
	initForce = false
}
