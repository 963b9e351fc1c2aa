package plain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/joho/godotenv"

	logger "github.com/PolarWolf314/sealctl/internal/logging"
)

// Manager reads and writes the plaintext secret files of every environment.
type Manager struct {
	Dir    string
	Schema Schema
	Logger logger.Logger
}

// Path returns the JSON file of env.
func (m *Manager) Path(env string) string {
	return filepath.Join(m.Dir, env+".json")
}

// DotenvPath returns the dotenv export of env.
func (m *Manager) DotenvPath(env string) string {
	return filepath.Join(m.Dir, ".env."+env)
}

// Load reads the values of env. A missing or unparsable file yields empty values.
func (m *Manager) Load(env string) (Values, error) {
	path := m.Path(env)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		m.Logger.Debugf("No plain secrets file at %s yet", path)
		return Values{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	values, mismatched, err := decodeValues(data)
	if err != nil {
		m.Logger.Warnf("Ignoring unparsable plain secrets file %s: %v", path, err)
		return Values{}, nil
	}
	for _, key := range mismatched {
		m.Logger.Warnf("Ignoring %s in %s, expected category -> resource -> variable", key, path)
	}
	return values, nil
}

// decodeValues keeps the category -> resource -> variable leaves of a JSON
// object and returns the dotted keys of branches with any other shape.
// Numbers and booleans are kept as their literal text.
func decodeValues(data []byte) (Values, []string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, nil, err
	}

	values := Values{}
	var mismatched []string
	for category, resources := range raw {
		resourceMap, ok := resources.(map[string]any)
		if !ok {
			mismatched = append(mismatched, category)
			continue
		}
		values[Category(category)] = map[string]map[string]string{}
		for name, vars := range resourceMap {
			varMap, ok := vars.(map[string]any)
			if !ok {
				mismatched = append(mismatched, category+"."+name)
				continue
			}
			out := map[string]string{}
			for k, v := range varMap {
				switch v := v.(type) {
				case nil:
					out[k] = ""
				case string:
					out[k] = v
				case json.Number, bool:
					out[k] = fmt.Sprint(v)
				default:
					mismatched = append(mismatched, category+"."+name+"."+k)
				}
			}
			values[Category(category)][name] = out
		}
	}
	slices.Sort(mismatched)
	return values, mismatched, nil
}

func encodeValues(values Values) ([]byte, error) {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// write replaces the file of env and reports whether its content changed.
func (m *Manager) write(env string, values Values) (bool, error) {
	data, err := encodeValues(values)
	if err != nil {
		return false, err
	}

	path := m.Path(env)
	if current, err := os.ReadFile(path); err == nil && bytes.Equal(current, data) {
		return false, nil
	}

	if err := os.MkdirAll(m.Dir, 0700); err != nil {
		return false, err
	}
	if err := EnsureGitignored(m.Dir); err != nil {
		return false, err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return false, fmt.Errorf("writing %s: %w", path, err)
	}
	return true, nil
}

// Sync merges the existing values of env into the schema shape and rewrites the file.
func (m *Manager) Sync(env string) (bool, error) {
	existing, err := m.Load(env)
	if err != nil {
		return false, err
	}

	changed, err := m.write(env, Merge(existing, Sample(m.Schema)))
	if err != nil {
		return false, err
	}
	if changed {
		m.Logger.Infof("Updated %s", m.Path(env))
	} else {
		m.Logger.Debugf("%s already matches the schema", m.Path(env))
	}
	return changed, nil
}

// SyncAll syncs every environment. Failures are joined, not short-circuited.
func (m *Manager) SyncAll(envs []string) (map[string]bool, error) {
	changed := map[string]bool{}
	var errs []error
	for _, env := range envs {
		c, err := m.Sync(env)
		if err != nil {
			m.Logger.Errorf("Failed to sync plain secrets for %s: %v", env, err)
			errs = append(errs, fmt.Errorf("%s: %w", env, err))
			continue
		}
		changed[env] = c
	}
	return changed, errors.Join(errs...)
}

// Reset overwrites the file of env with the empty schema shape.
func (m *Manager) Reset(env string) error {
	if _, err := m.write(env, Sample(m.Schema)); err != nil {
		return err
	}
	m.Logger.Infof("Reset %s", m.Path(env))
	return nil
}

// DotenvKey is the variable name a value is exported under.
func DotenvKey(category Category, resource, variable string) string {
	key := string(category) + "_" + resource + "_" + variable
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(key))
}

// ExportDotenv writes the synced values of env as a dotenv file.
func (m *Manager) ExportDotenv(env string) (string, error) {
	existing, err := m.Load(env)
	if err != nil {
		return "", err
	}

	exported := map[string]string{}
	for category, resources := range Merge(existing, Sample(m.Schema)) {
		for name, vars := range resources {
			for v, value := range vars {
				exported[DotenvKey(category, name, v)] = value
			}
		}
	}

	if err := os.MkdirAll(m.Dir, 0700); err != nil {
		return "", err
	}
	if err := EnsureGitignored(m.Dir); err != nil {
		return "", err
	}

	path := m.DotenvPath(env)
	if err := godotenv.Write(exported, path); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Chmod(path, 0600); err != nil {
		return "", err
	}
	return path, nil
}

// EnsureGitignored makes dir ignore everything but its own .gitignore.
func EnsureGitignored(dir string) error {
	path := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	// #nosec G306 -- the ignore file itself is meant to be committed.
	return os.WriteFile(path, []byte("*\n!.gitignore\n"), 0644)
}
