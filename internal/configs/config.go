package configs

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	kerrors "github.com/PolarWolf314/sealctl/internal/errors"
)

// ConfigFileName is the name of the project config at the repository root.
const ConfigFileName = ".sealctl.toml"

// StateDirName holds sealctl's own files (audit log) under the project root.
const StateDirName = ".sealctl"

const defaultKubesealTimeout = 30 * time.Second

type ProjectConfig struct {
	ManifestsDir string           `toml:"manifests_dir"`
	SecretsDir   string           `toml:"secrets_dir"`
	Environments []string         `toml:"environments"`
	Kubeseal     KubesealConfig   `toml:"kubeseal"`
	Resources    []ResourceConfig `toml:"resources,omitempty"`
}

type KubesealConfig struct {
	Binary              string `toml:"binary"`
	ControllerName      string `toml:"controller_name,omitempty"`
	ControllerNamespace string `toml:"controller_namespace,omitempty"`
	Cert                string `toml:"cert,omitempty"`
	// Timeout bounds a single kubeseal invocation, as a Go duration string.
	Timeout string `toml:"timeout,omitempty"`
}

// ResourceConfig declares the plaintext variables one resource needs.
type ResourceConfig struct {
	Category  string   `toml:"category"`
	Name      string   `toml:"name"`
	Variables []string `toml:"variables"`
}

// DefaultProjectConfig returns the config written by `sealctl init`.
func DefaultProjectConfig() *ProjectConfig {
	return &ProjectConfig{
		ManifestsDir: "generatedManifests",
		SecretsDir:   ".secrets",
		Environments: []string{"local", "staging", "production"},
		Kubeseal: KubesealConfig{
			Binary:              "kubeseal",
			ControllerName:      "sealed-secrets",
			ControllerNamespace: "kube-system",
			Timeout:             defaultKubesealTimeout.String(),
		},
	}
}

func (c *ProjectConfig) applyDefaults() {
	d := DefaultProjectConfig()
	if c.ManifestsDir == "" {
		c.ManifestsDir = d.ManifestsDir
	}
	if c.SecretsDir == "" {
		c.SecretsDir = d.SecretsDir
	}
	if len(c.Environments) == 0 {
		c.Environments = d.Environments
	}
	if c.Kubeseal.Binary == "" {
		c.Kubeseal.Binary = d.Kubeseal.Binary
	}
	if c.Kubeseal.Timeout == "" {
		c.Kubeseal.Timeout = d.Kubeseal.Timeout
	}
}

// HasEnvironment reports whether env is one of the declared environments.
func (c *ProjectConfig) HasEnvironment(env string) bool {
	return slices.Contains(c.Environments, env)
}

// ValidateEnvironment returns ErrUnknownEnvironment for undeclared environments.
func (c *ProjectConfig) ValidateEnvironment(env string) error {
	if !c.HasEnvironment(env) {
		return fmt.Errorf("%w: %q (declared: %v)", kerrors.ErrUnknownEnvironment, env, c.Environments)
	}
	return nil
}

// KubesealTimeout parses the configured per-call timeout.
func (c *ProjectConfig) KubesealTimeout() (time.Duration, error) {
	if c.Kubeseal.Timeout == "" {
		return defaultKubesealTimeout, nil
	}
	d, err := time.ParseDuration(c.Kubeseal.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid kubeseal timeout %q: %w", c.Kubeseal.Timeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid kubeseal timeout %q: must be positive", c.Kubeseal.Timeout)
	}
	return d, nil
}

// LoadProjectConfig reads the config from projectPath and fills in defaults.
func LoadProjectConfig(projectPath string) (*ProjectConfig, []string, error) {
	configPath := filepath.Join(projectPath, ConfigFileName)

	config := &ProjectConfig{}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, nil, kerrors.ErrProjectNotInitialized
	}

	unknown, err := LoadTOML(configPath, config)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load project config: %w", err)
	}
	config.applyDefaults()

	return config, unknown, nil
}

// SaveProjectConfig writes the config to projectPath.
func SaveProjectConfig(projectPath string, config *ProjectConfig) error {
	configPath := filepath.Join(projectPath, ConfigFileName)

	if err := SaveTOML(configPath, config); err != nil {
		return fmt.Errorf("failed to save project config: %w", err)
	}

	return nil
}
