package plain

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/joho/godotenv"

	"github.com/PolarWolf314/sealctl/internal/configs"
	kerrors "github.com/PolarWolf314/sealctl/internal/errors"
	logger "github.com/PolarWolf314/sealctl/internal/logging"
)

func testSchema(t *testing.T) Schema {
	t.Helper()
	schema, err := SchemaFromConfig([]configs.ResourceConfig{
		{Category: "services", Name: "postgres", Variables: []string{"POSTGRES_PASSWORD", "POSTGRES_USER"}},
		{Category: "infrastructure", Name: "grafana", Variables: []string{"ADMIN_PASSWORD"}},
	})
	if err != nil {
		t.Fatalf("SchemaFromConfig() error = %v", err)
	}
	return schema
}

func newManager(t *testing.T) *Manager {
	t.Helper()
	return &Manager{
		Dir:    filepath.Join(t.TempDir(), ".secrets"),
		Schema: testSchema(t),
		Logger: logger.Logger{Out: io.Discard, Err: io.Discard},
	}
}

func TestSchemaFromConfigRejectsInvalidEntries(t *testing.T) {
	tests := []struct {
		name    string
		entries []configs.ResourceConfig
	}{
		{"unknown category", []configs.ResourceConfig{{Category: "databases", Name: "pg"}}},
		{"missing name", []configs.ResourceConfig{{Category: "services"}}},
		{"duplicate resource", []configs.ResourceConfig{{Category: "services", Name: "pg"}, {Category: "services", Name: "pg"}}},
		{"duplicate variable", []configs.ResourceConfig{{Category: "services", Name: "pg", Variables: []string{"A", "A"}}}},
		{"empty variable", []configs.ResourceConfig{{Category: "services", Name: "pg", Variables: []string{""}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := SchemaFromConfig(tt.entries); !errors.Is(err, kerrors.ErrInvalidSchema) {
				t.Errorf("error = %v, want ErrInvalidSchema", err)
			}
		})
	}
}

func TestSampleIsFullCrossProduct(t *testing.T) {
	got := Sample(testSchema(t))
	want := Values{
		CategoryServices:       {"postgres": {"POSTGRES_PASSWORD": "", "POSTGRES_USER": ""}},
		CategoryInfrastructure: {"grafana": {"ADMIN_PASSWORD": ""}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Sample() = %v, want %v", got, want)
	}
}

func TestMergeIsLeftBiasedAndDropsStaleKeys(t *testing.T) {
	existing := Values{
		CategoryServices: {
			"postgres": {"POSTGRES_PASSWORD": "s3cret", "OLD_VAR": "gone"},
			"redis":    {"PASSWORD": "gone too"},
		},
	}

	got := Merge(existing, Sample(testSchema(t)))
	want := Values{
		CategoryServices:       {"postgres": {"POSTGRES_PASSWORD": "s3cret", "POSTGRES_USER": ""}},
		CategoryInfrastructure: {"grafana": {"ADMIN_PASSWORD": ""}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Merge() = %v, want %v", got, want)
	}
}

func TestSyncCreatesFileAndIsIdempotent(t *testing.T) {
	m := newManager(t)

	changed, err := m.Sync("local")
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if !changed {
		t.Errorf("first sync must create the file")
	}

	info, err := os.Stat(m.Path("local"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("mode = %o, want 600", info.Mode().Perm())
	}
	if _, err := os.Stat(filepath.Join(m.Dir, ".gitignore")); err != nil {
		t.Errorf("secrets dir must be git-ignored: %v", err)
	}

	first, _ := os.ReadFile(m.Path("local"))
	changed, err = m.Sync("local")
	if err != nil {
		t.Fatal(err)
	}
	second, _ := os.ReadFile(m.Path("local"))
	if changed || string(first) != string(second) {
		t.Errorf("second sync must be a no-op (changed=%v)", changed)
	}
}

func TestSyncPreservesValues(t *testing.T) {
	m := newManager(t)
	if err := os.MkdirAll(m.Dir, 0700); err != nil {
		t.Fatal(err)
	}
	content := `{"services": {"postgres": {"POSTGRES_PASSWORD": "s3cret", "POSTGRES_USER": 5432, "STALE": "x"}}}`
	if err := os.WriteFile(m.Path("staging"), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := m.Sync("staging"); err != nil {
		t.Fatal(err)
	}

	values, err := m.Load("staging")
	if err != nil {
		t.Fatal(err)
	}
	if got := values[CategoryServices]["postgres"]["POSTGRES_PASSWORD"]; got != "s3cret" {
		t.Errorf("POSTGRES_PASSWORD = %q, want preserved value", got)
	}
	if _, ok := values[CategoryServices]["postgres"]["STALE"]; ok {
		t.Errorf("stale key must be dropped")
	}

	data, err := os.ReadFile(m.Path("staging"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"POSTGRES_USER": "5432"`) {
		t.Errorf("numbers must be written back as their literal text, got:\n%s", data)
	}
	if _, ok := values[CategoryInfrastructure]["grafana"]["ADMIN_PASSWORD"]; !ok {
		t.Errorf("missing key must be filled")
	}
}

func TestSyncKeepsValuesNextToMisshapedBranches(t *testing.T) {
	m := newManager(t)
	if err := os.MkdirAll(m.Dir, 0700); err != nil {
		t.Fatal(err)
	}
	content := `{"services": {"postgres": {"POSTGRES_PASSWORD": "keepme", "POSTGRES_USER": {"nested": true}}, "redis": "oops"}, "infrastructure": "oops"}`
	if err := os.WriteFile(m.Path("local"), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := m.Sync("local"); err != nil {
		t.Fatal(err)
	}

	values, err := m.Load("local")
	if err != nil {
		t.Fatal(err)
	}
	if got := values[CategoryServices]["postgres"]["POSTGRES_PASSWORD"]; got != "keepme" {
		t.Errorf("POSTGRES_PASSWORD = %q, want value kept", got)
	}
	if got, ok := values[CategoryServices]["postgres"]["POSTGRES_USER"]; !ok || got != "" {
		t.Errorf("POSTGRES_USER = %q, %v, want empty placeholder", got, ok)
	}
	if _, ok := values[CategoryInfrastructure]["grafana"]["ADMIN_PASSWORD"]; !ok {
		t.Errorf("misshaped category must be replaced by the schema shape")
	}
}

func TestDecodeValuesReportsMismatchedBranches(t *testing.T) {
	data := []byte(`{"services": {"db": "oops", "api": {"TOKEN": "x", "PORT": 8080, "LIST": [1]}}, "applications": 3}`)

	values, mismatched, err := decodeValues(data)
	if err != nil {
		t.Fatalf("decodeValues() error = %v", err)
	}
	want := []string{"applications", "services.api.LIST", "services.db"}
	if !reflect.DeepEqual(mismatched, want) {
		t.Errorf("mismatched = %v, want %v", mismatched, want)
	}
	if got := values[CategoryServices]["api"]["TOKEN"]; got != "x" {
		t.Errorf("TOKEN = %q, want x", got)
	}
	if got := values[CategoryServices]["api"]["PORT"]; got != "8080" {
		t.Errorf("PORT = %q, want number kept as its literal text", got)
	}
}

func TestLoadToleratesUnparsableFile(t *testing.T) {
	m := newManager(t)
	if err := os.MkdirAll(m.Dir, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(m.Path("local"), []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	values, err := m.Load("local")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(values) != 0 {
		t.Errorf("values = %v, want empty", values)
	}

	if _, err := m.Sync("local"); err != nil {
		t.Fatalf("Sync() must recover from an unparsable file: %v", err)
	}
}

func TestSyncAll(t *testing.T) {
	m := newManager(t)

	changed, err := m.SyncAll([]string{"local", "staging", "production"})
	if err != nil {
		t.Fatalf("SyncAll() error = %v", err)
	}
	for _, env := range []string{"local", "staging", "production"} {
		if !changed[env] {
			t.Errorf("%s not written", env)
		}
		if _, err := os.Stat(m.Path(env)); err != nil {
			t.Errorf("missing file for %s: %v", env, err)
		}
	}
}

func TestReset(t *testing.T) {
	m := newManager(t)
	if err := os.MkdirAll(m.Dir, 0700); err != nil {
		t.Fatal(err)
	}
	content := `{"services": {"postgres": {"POSTGRES_PASSWORD": "s3cret"}}}`
	if err := os.WriteFile(m.Path("local"), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	if err := m.Reset("local"); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	values, err := m.Load("local")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(values, Sample(m.Schema)) {
		t.Errorf("values = %v, want empty sample", values)
	}
}

func TestExportDotenv(t *testing.T) {
	m := newManager(t)
	if err := os.MkdirAll(m.Dir, 0700); err != nil {
		t.Fatal(err)
	}
	content := `{"services": {"postgres": {"POSTGRES_PASSWORD": "s3 cret"}}}`
	if err := os.WriteFile(m.Path("local"), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	path, err := m.ExportDotenv("local")
	if err != nil {
		t.Fatalf("ExportDotenv() error = %v", err)
	}
	if !strings.HasSuffix(path, ".env.local") {
		t.Errorf("path = %q", path)
	}

	env, err := godotenv.Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := env["SERVICES_POSTGRES_POSTGRES_PASSWORD"]; got != "s3 cret" {
		t.Errorf("exported value = %q", got)
	}
	if _, ok := env["INFRASTRUCTURE_GRAFANA_ADMIN_PASSWORD"]; !ok {
		t.Errorf("every schema variable must be exported: %v", env)
	}
}

func TestDotenvKey(t *testing.T) {
	if got := DotenvKey(CategoryServices, "cert-manager", "api.token"); got != "SERVICES_CERT_MANAGER_API_TOKEN" {
		t.Errorf("DotenvKey() = %q", got)
	}
}
