package workflows

import (
	"context"
	"sort"

	"github.com/PolarWolf314/sealctl/internal/audit"
)

// PlainSyncResult lists, per environment, whether its file changed.
type PlainSyncResult struct {
	Changed map[string]bool
	// Paths maps every environment to its plain secret file.
	Paths map[string]string
}

// ChangedEnvironments returns the environments whose file was rewritten, sorted.
func (r *PlainSyncResult) ChangedEnvironments() []string {
	var out []string
	for env, changed := range r.Changed {
		if changed {
			out = append(out, env)
		}
	}
	sort.Strings(out)
	return out
}

// PlainSync brings the plain secret file of each environment in envs in line
// with the configured schema. An empty envs means every configured environment.
//
// Returns ErrInvalidSchema if the configured resources are malformed.
// Returns ErrUnknownEnvironment for an environment missing from the config.
func PlainSync(ctx context.Context, rc *RunContext, envs []string) (*PlainSyncResult, error) {
	if len(envs) == 0 {
		envs = rc.Settings.Config.Environments
	}
	for _, env := range envs {
		if err := rc.Settings.Config.ValidateEnvironment(env); err != nil {
			return nil, err
		}
	}

	m, err := rc.plainManager()
	if err != nil {
		return nil, err
	}

	result := &PlainSyncResult{Paths: map[string]string{}}
	for _, env := range envs {
		result.Paths[env] = m.Path(env)
	}

	changed, err := m.SyncAll(envs)
	result.Changed = changed

	for _, env := range result.ChangedEnvironments() {
		entry := audit.NewEntry(audit.OpPlainSync, env)
		entry.Files = rc.relative([]string{m.Path(env)})
		rc.logEntry(entry)
	}
	return result, err
}

// PlainReset overwrites the plain secret file of the environment with empty values.
// It returns the path of the file.
func PlainReset(ctx context.Context, rc *RunContext) (string, error) {
	if err := rc.validate(); err != nil {
		return "", err
	}
	m, err := rc.plainManager()
	if err != nil {
		return "", err
	}
	if err := m.Reset(rc.Environment); err != nil {
		return "", err
	}

	entry := audit.NewEntry(audit.OpPlainReset, rc.Environment)
	entry.Files = rc.relative([]string{m.Path(rc.Environment)})
	rc.logEntry(entry)
	return m.Path(rc.Environment), nil
}

// PlainExport writes the plain secrets of the environment as a dotenv file.
// It returns the path of the file.
func PlainExport(ctx context.Context, rc *RunContext) (string, error) {
	if err := rc.validate(); err != nil {
		return "", err
	}
	m, err := rc.plainManager()
	if err != nil {
		return "", err
	}
	path, err := m.ExportDotenv(rc.Environment)
	if err != nil {
		return "", err
	}

	entry := audit.NewEntry(audit.OpPlainExport, rc.Environment)
	entry.Files = rc.relative([]string{path})
	rc.logEntry(entry)
	return path, nil
}

func (rc *RunContext) logEntry(entry audit.Entry) {
	if err := audit.Log(rc.Settings.AuditLogPath(), entry); err != nil {
		rc.Logger.Warnf("Could not write audit log: %v", err)
	}
}
