package workflows

import (
	"fmt"

	"github.com/PolarWolf314/sealctl/internal/configs"
	logger "github.com/PolarWolf314/sealctl/internal/logging"
	"github.com/PolarWolf314/sealctl/internal/plain"
	"github.com/PolarWolf314/sealctl/internal/sealing"
	"github.com/PolarWolf314/sealctl/internal/selector"
)

// RunContext carries everything one command invocation needs.
// It is built once by the cmd layer.
type RunContext struct {
	// Environment is the target environment, e.g. "staging".
	Environment string

	Settings *configs.ProjectSettings
	Logger   logger.Logger

	// Encryptor seals single values. Only Seal uses it.
	Encryptor sealing.Encryptor

	// Prompter drives interactive selection. Only Seal uses it.
	Prompter selector.Prompter

	// Only restricts the manifest files taking part in a run.
	Only []string
}

// NewKubeseal builds the kubeseal encryptor described by the project config.
func NewKubeseal(settings *configs.ProjectSettings, log logger.Logger) (*sealing.Kubeseal, error) {
	timeout, err := settings.Config.KubesealTimeout()
	if err != nil {
		return nil, err
	}
	k := settings.Config.Kubeseal
	return &sealing.Kubeseal{
		Binary:              k.Binary,
		ControllerName:      k.ControllerName,
		ControllerNamespace: k.ControllerNamespace,
		Cert:                settings.Resolve(k.Cert),
		Timeout:             timeout,
		Logger:              log,
	}, nil
}

// validate checks the environment and settings before any work is done.
func (rc *RunContext) validate() error {
	if rc.Settings == nil || rc.Settings.Config == nil {
		return fmt.Errorf("run context has no project settings")
	}
	return rc.Settings.Config.ValidateEnvironment(rc.Environment)
}

// manifestsRoot is the generated manifests directory of the environment.
func (rc *RunContext) manifestsRoot() string {
	return rc.Settings.ManifestsRoot(rc.Environment)
}

// plainManager builds the plain secret manager from the configured schema.
func (rc *RunContext) plainManager() (*plain.Manager, error) {
	schema, err := plain.SchemaFromConfig(rc.Settings.Config.Resources)
	if err != nil {
		return nil, err
	}
	return &plain.Manager{
		Dir:    rc.Settings.SecretsPath(),
		Schema: schema,
		Logger: rc.Logger,
	}, nil
}

// relative renders path relative to the project root when possible.
func (rc *RunContext) relative(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = rc.Settings.Relative(p)
	}
	return out
}
