package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/PolarWolf314/sealctl/cmd"
	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sealctl",
	Short: "sealctl - seal the secrets of a multi-environment Kubernetes repository.",
	Long: `sealctl walks the manifests generated for an environment, lets you choose
which Secret fields to (re)seal, seals them with kubeseal and merges the
ciphertext into the committed SealedSecrets.

It also keeps a git-ignored plaintext file per environment in line with the
secrets declared in .sealctl.toml.

Usage:
  sealctl <command> [flags]

Available Commands:
  init       Create a default .sealctl.toml
  secrets    Seal secrets, show their status and the audit log
  plain      Maintain the plaintext secret files

Run 'sealctl help <command>' for more details on a specific command.
`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		figure.NewColorFigure("sealctl", "", "cyan", true).Print()
		fmt.Println()
		fmt.Println("Run 'sealctl --help' to see available commands.")
	},
}

func init() {
	rootCmd.AddCommand(cmd.InitCmd)
	rootCmd.AddCommand(cmd.SecretsCmd)
	rootCmd.AddCommand(cmd.PlainCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
