package configs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kerrors "github.com/PolarWolf314/sealctl/internal/errors"
)

type ProjectSettings struct {
	ProjectPath string
	Config      *ProjectConfig
	// UnknownKeys lists config keys that were present but not recognised.
	UnknownKeys []string
}

// ManifestsRoot is the generated manifests directory of one environment.
func (s *ProjectSettings) ManifestsRoot(env string) string {
	return filepath.Join(s.Resolve(s.Config.ManifestsDir), env)
}

// SecretsPath is the directory holding plaintext secret files.
func (s *ProjectSettings) SecretsPath() string {
	return s.Resolve(s.Config.SecretsDir)
}

// AuditLogPath is the JSON Lines audit log of the project.
func (s *ProjectSettings) AuditLogPath() string {
	return filepath.Join(s.ProjectPath, StateDirName, "audit.jsonl")
}

// Resolve makes a configured path absolute against the project root.
// Empty values, absolute paths and URLs are returned unchanged.
func (s *ProjectSettings) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || strings.Contains(p, "://") {
		return p
	}
	return filepath.Join(s.ProjectPath, p)
}

// Relative renders p relative to the project root, or unchanged if it lies outside.
func (s *ProjectSettings) Relative(p string) string {
	rel, err := filepath.Rel(s.ProjectPath, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		return p
	}
	return filepath.ToSlash(rel)
}

// InitProjectSettings finds the project root starting at startDir and loads its config.
// An empty startDir means the working directory.
func InitProjectSettings(startDir string) (*ProjectSettings, error) {
	if startDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		startDir = wd
	}

	projectPath, err := FindProjectRoot(startDir)
	if err != nil {
		return nil, fmt.Errorf("error getting project root: %w", err)
	}

	config, unknown, err := LoadProjectConfig(projectPath)
	if err != nil {
		return nil, err
	}

	return &ProjectSettings{
		ProjectPath: projectPath,
		Config:      config,
		UnknownKeys: unknown,
	}, nil
}

// FindProjectRoot traverses up from startDir to the directory holding .sealctl.toml.
// Returns ErrProjectNotInitialized when the filesystem root is reached.
func FindProjectRoot(startDir string) (string, error) {
	currentDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		configPath := filepath.Join(currentDir, ConfigFileName)
		fileInfo, err := os.Stat(configPath)
		if err == nil {
			if !fileInfo.IsDir() {
				return currentDir, nil
			}
		} else if !os.IsNotExist(err) {
			// Permission problems and the like are not "not found".
			return "", fmt.Errorf("error checking for %s at %s: %w", ConfigFileName, currentDir, err)
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return "", fmt.Errorf("%w: no %s found in any parent directory", kerrors.ErrProjectNotInitialized, ConfigFileName)
		}
		currentDir = parentDir
	}
}
