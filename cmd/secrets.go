package cmd

import (
	"os"

	"github.com/PolarWolf314/sealctl/internal/configs"
	logger "github.com/PolarWolf314/sealctl/internal/logging"
	"github.com/PolarWolf314/sealctl/internal/sealing"
	"github.com/PolarWolf314/sealctl/internal/selector"
	"github.com/PolarWolf314/sealctl/internal/utils"
	"github.com/PolarWolf314/sealctl/internal/workflows"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// DefaultEnvironment is used when --env is not given.
const DefaultEnvironment = "local"

var (
	verbose     bool
	debug       bool
	environment string
	only        []string
	Logger      logger.Logger

	SecretsCmd = &cobra.Command{
		Use:   "secrets",
		Short: "Seal Kubernetes secrets of an environment",
		Long: `Finds the Secret manifests generated for an environment, seals the chosen
fields with kubeseal and merges them into the committed SealedSecrets.`,
		PersistentPreRun: setupLogger,
	}
)

// Test seams. Production values talk to the real terminal and kubeseal.
var (
	stdinIsTerminal = utils.IsTerminal
	newPrompter     = func() selector.Prompter {
		return selector.NewTerminalPrompter(os.Stdin, os.Stdout)
	}
	newEncryptor = func(settings *configs.ProjectSettings) (sealing.Encryptor, error) {
		return workflows.NewKubeseal(settings, Logger)
	}
)

func init() {
	addLoggingFlags(SecretsCmd)
	addEnvironmentFlag(SecretsCmd)
	SecretsCmd.PersistentFlags().StringSliceVar(&only, "only", nil, "only read manifests matching these glob patterns (relative to the environment)")

	SecretsCmd.AddCommand(sealCmd)
	SecretsCmd.AddCommand(statusCmd)
	SecretsCmd.AddCommand(logCmd)
}

func addLoggingFlags(c *cobra.Command) {
	c.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	c.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")
}

func addEnvironmentFlag(c *cobra.Command) {
	c.PersistentFlags().StringVarP(&environment, "env", "e", DefaultEnvironment, "target environment")
}

func setupLogger(cmd *cobra.Command, args []string) {
	Logger = logger.Logger{
		Verbose: verbose,
		Debug:   debug,
	}
	Logger.Debugf("Initializing %s command with verbose=%t, debug=%t, env=%s", cmd.Name(), verbose, debug, environment)
}

// newRunContext loads the project settings from the working directory.
func newRunContext() (*workflows.RunContext, error) {
	settings, err := configs.InitProjectSettings("")
	if err != nil {
		return nil, err
	}
	for _, key := range settings.UnknownKeys {
		Logger.Warnf("Unknown key %q in %s", key, configs.ConfigFileName)
	}
	Logger.Debugf("Project path: %s", settings.ProjectPath)

	return &workflows.RunContext{
		Environment: environment,
		Settings:    settings,
		Logger:      Logger,
		Only:        only,
	}, nil
}

// Helper functions for testing

// GetSecretsCmd returns the SecretsCmd for testing.
func GetSecretsCmd() *cobra.Command {
	return SecretsCmd
}

// ResetGlobalState resets all global variables to their default values for testing.
func ResetGlobalState() {
	verbose = false
	debug = false
	environment = DefaultEnvironment
	only = nil
	resetSealCommandState()
	resetStatusCommandState()
	resetLogCommandState()
	resetPlainCommandState()
	resetInitCommandState()
	for _, c := range []*cobra.Command{SecretsCmd, PlainCmd, InitCmd} {
		resetFlags(c)
	}
}

// resetFlags clears the Changed marker of every flag below c.
func resetFlags(c *cobra.Command) {
	unset := func(f *pflag.Flag) { f.Changed = false }
	c.Flags().VisitAll(unset)
	c.PersistentFlags().VisitAll(unset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// SetLogger sets the logger for testing.
func SetLogger(l logger.Logger) {
	Logger = l
}
