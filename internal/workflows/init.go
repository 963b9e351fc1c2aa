package workflows

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/PolarWolf314/sealctl/internal/audit"
	"github.com/PolarWolf314/sealctl/internal/configs"
	kerrors "github.com/PolarWolf314/sealctl/internal/errors"
	"github.com/PolarWolf314/sealctl/internal/plain"
)

// InitOptions configures the init workflow.
type InitOptions struct {
	// Dir is the project root. Empty means the working directory.
	Dir string

	// Force overwrites an existing .sealctl.toml.
	Force bool
}

// InitResult contains the outcome of an init operation.
type InitResult struct {
	ProjectPath string
	ConfigPath  string
	Config      *configs.ProjectConfig
	// Overwritten is true when an existing config was replaced.
	Overwritten bool
}

// Init writes a default .sealctl.toml and a git-ignored secrets directory.
//
// Returns ErrConfigExists if the config is present and Force is not set.
func Init(opts InitOptions) (*InitResult, error) {
	dir := opts.Dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = wd
	}

	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	result := &InitResult{
		ProjectPath: dir,
		ConfigPath:  filepath.Join(dir, configs.ConfigFileName),
		Config:      configs.DefaultProjectConfig(),
	}

	_, err = os.Stat(result.ConfigPath)
	switch {
	case err == nil && !opts.Force:
		return nil, fmt.Errorf("%w: %s", kerrors.ErrConfigExists, result.ConfigPath)
	case err == nil:
		result.Overwritten = true
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("checking %s: %w", result.ConfigPath, err)
	}

	if err := configs.SaveProjectConfig(dir, result.Config); err != nil {
		return nil, fmt.Errorf("writing project config: %w", err)
	}

	settings := &configs.ProjectSettings{ProjectPath: dir, Config: result.Config}
	if err := os.MkdirAll(settings.SecretsPath(), 0700); err != nil {
		return nil, err
	}
	if err := plain.EnsureGitignored(settings.SecretsPath()); err != nil {
		return nil, err
	}

	entry := audit.NewEntry(audit.OpInit, "")
	entry.Files = []string{configs.ConfigFileName}
	// Audit failures never fail init.
	_ = audit.Log(settings.AuditLogPath(), entry)

	return result, nil
}
