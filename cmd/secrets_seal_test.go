package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/PolarWolf314/sealctl/internal/configs"
	"github.com/PolarWolf314/sealctl/internal/sealing"
)

const testSecret = `apiVersion: v1
kind: Secret
metadata:
  name: api
  namespace: applications
stringData:
  PASSWORD: hunter2
  TOKEN: abc
`

var testSealedPath = filepath.Join("generatedManifests", "local", "applications", "api", "sealed-secrets", "sealed-secret-api-applications.yaml")

func setupSealProject(t *testing.T) string {
	t.Helper()
	dir := setupTestProject(t)
	writeTestFile(t, filepath.Join(dir, "generatedManifests", "local", "applications", "api", "secret.yaml"), testSecret)
	stubKubeseal(t)
	return dir
}

// TestSecretsSeal contains integration tests for the `sealctl secrets seal` command.
func TestSecretsSeal(t *testing.T) {
	t.Run("SealUnsealedWithYes", testSealUnsealedWithYes)
	t.Run("SealInteractive", testSealInteractive)
	t.Run("SealRepromptsOnEmptySelection", testSealRepromptsOnEmptySelection)
	t.Run("SealGivesUpAfterEmptySelections", testSealGivesUpAfterEmptySelections)
	t.Run("SealWithoutTerminal", testSealWithoutTerminal)
	t.Run("SealUnknownEnvironment", testSealUnknownEnvironment)
	t.Run("SealMissingManifests", testSealMissingManifests)
	t.Run("SealDryRun", testSealDryRun)
	t.Run("SealNotInitialized", testSealNotInitialized)
	t.Run("SealReportsSkippedFields", testSealReportsSkippedFields)
	t.Run("SealKeepsPlainSecretsAfterSkippedFields", testSealKeepsPlainSecretsAfterSkippedFields)
	t.Run("SealInvalidTimeout", testSealInvalidTimeout)
}

func testSealUnsealedWithYes(t *testing.T) {
	dir := setupSealProject(t)

	output, err := runCLI(t, "secrets", "seal", "--yes")
	if err != nil {
		t.Fatalf("Command failed: %v\nOutput: %s", err, output)
	}
	if !strings.Contains(output, "Sealed 2 fields of 1 secret for local") {
		t.Errorf("Expected success message, got: %s", output)
	}

	data, err := os.ReadFile(filepath.Join(dir, testSealedPath))
	if err != nil {
		t.Fatalf("SealedSecret was not written: %v", err)
	}
	if !strings.Contains(string(data), "ENC(applications/api:hunter2)") {
		t.Errorf("Unexpected SealedSecret:\n%s", data)
	}

	output, err = runCLI(t, "secrets", "seal", "--yes")
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if !strings.Contains(output, "already sealed") {
		t.Errorf("Expected nothing-to-do message, got: %s", output)
	}
}

func testSealInteractive(t *testing.T) {
	dir := setupSealProject(t)
	prompter := &scriptedPrompter{answers: [][]int{{0}, {1}}}
	stubTerminal(prompter)

	output, err := runCLI(t, "secrets", "seal")
	if err != nil {
		t.Fatalf("Command failed: %v\nOutput: %s", err, output)
	}
	if !strings.Contains(output, "Sealed 1 field of 1 secret") {
		t.Errorf("Expected one sealed field, got: %s", output)
	}

	data, _ := os.ReadFile(filepath.Join(dir, testSealedPath))
	if strings.Contains(string(data), "PASSWORD") {
		t.Errorf("PASSWORD was not chosen but got sealed:\n%s", data)
	}
}

func testSealRepromptsOnEmptySelection(t *testing.T) {
	setupSealProject(t)
	prompter := &scriptedPrompter{answers: [][]int{{}, {0}, {0, 1}}}
	stubTerminal(prompter)

	output, err := runCLI(t, "secrets", "seal")
	if err != nil {
		t.Fatalf("Command failed: %v\nOutput: %s", err, output)
	}
	if !strings.Contains(output, "You must choose at least one secret") {
		t.Errorf("Expected empty-selection warning, got: %s", output)
	}
	if prompter.asked != 3 {
		t.Errorf("Expected 3 prompts, got %d", prompter.asked)
	}
	if !strings.Contains(output, "Sealed 2 fields") {
		t.Errorf("Expected the second attempt to seal, got: %s", output)
	}
}

func testSealGivesUpAfterEmptySelections(t *testing.T) {
	dir := setupSealProject(t)
	prompter := &scriptedPrompter{}
	stubTerminal(prompter)

	output, err := runCLI(t, "secrets", "seal")
	if err != nil {
		t.Fatalf("Command failed: %v", err)
	}
	if prompter.asked != maxSelectionAttempts {
		t.Errorf("Expected %d prompts, got %d", maxSelectionAttempts, prompter.asked)
	}
	if !strings.Contains(output, "giving up") {
		t.Errorf("Expected give-up message, got: %s", output)
	}
	if _, err := os.Stat(filepath.Join(dir, testSealedPath)); err == nil {
		t.Errorf("Nothing was chosen but a SealedSecret was written")
	}
}

func testSealWithoutTerminal(t *testing.T) {
	setupSealProject(t)
	stdinIsTerminal = func() bool { return false }

	output, err := runCLI(t, "secrets", "seal")
	if err != nil {
		t.Fatalf("Command failed: %v", err)
	}
	if !strings.Contains(output, "stdin is not a terminal") || !strings.Contains(output, "--yes") {
		t.Errorf("Expected terminal hint, got: %s", output)
	}
}

func testSealUnknownEnvironment(t *testing.T) {
	setupSealProject(t)

	output, err := runCLI(t, "secrets", "seal", "--yes", "-e", "qa")
	if err != nil {
		t.Fatalf("Command failed: %v", err)
	}
	if !strings.Contains(output, "unknown environment") {
		t.Errorf("Expected unknown environment message, got: %s", output)
	}
}

func testSealMissingManifests(t *testing.T) {
	setupSealProject(t)

	output, err := runCLI(t, "secrets", "seal", "--yes", "-e", "staging")
	if err != nil {
		t.Fatalf("Command failed: %v", err)
	}
	if !strings.Contains(output, "No generated manifests for staging") {
		t.Errorf("Expected missing manifests message, got: %s", output)
	}
}

func testSealDryRun(t *testing.T) {
	dir := setupSealProject(t)
	newEncryptor = func(*configs.ProjectSettings) (sealing.Encryptor, error) {
		t.Fatal("dry run must not build an encryptor")
		return nil, nil
	}

	output, err := runCLI(t, "secrets", "seal", "--all", "--dry-run")
	if err != nil {
		t.Fatalf("Command failed: %v", err)
	}
	if !strings.Contains(output, "Dry run, would write 1 SealedSecret") || !strings.Contains(output, "sealed-secret-api-applications.yaml") {
		t.Errorf("Expected dry run report, got: %s", output)
	}
	if _, err := os.Stat(filepath.Join(dir, testSealedPath)); err == nil {
		t.Errorf("Dry run wrote a SealedSecret")
	}
}

func testSealNotInitialized(t *testing.T) {
	chdir(t, t.TempDir())

	output, err := runCLI(t, "secrets", "seal", "--yes")
	if err != nil {
		t.Fatalf("Command failed: %v", err)
	}
	if !strings.Contains(output, "has not been initialized") {
		t.Errorf("Expected not initialized message, got: %s", output)
	}
}

func testSealReportsSkippedFields(t *testing.T) {
	setupSealProject(t)
	newEncryptor = func(*configs.ProjectSettings) (sealing.Encryptor, error) {
		return sealing.EncryptorFunc(func(_ context.Context, _, _, plaintext string) (string, error) {
			if plaintext == "abc" {
				return "", errors.New("controller unreachable")
			}
			return "ENC", nil
		}), nil
	}

	output, err := runCLI(t, "secrets", "seal", "--yes")
	if err == nil {
		t.Fatalf("Expected an error when a field is skipped")
	}
	if !strings.Contains(output, "Skipped [applications/api] 'TOKEN'") {
		t.Errorf("Expected skipped field in output, got: %s", output)
	}
}

func testSealKeepsPlainSecretsAfterSkippedFields(t *testing.T) {
	dir := setupSealProject(t)
	plainFile := filepath.Join(dir, ".secrets", "local.json")
	writeTestFile(t, plainFile, `{"applications": {"api": {"TOKEN": "abc"}}}`)
	newEncryptor = func(*configs.ProjectSettings) (sealing.Encryptor, error) {
		return sealing.EncryptorFunc(func(context.Context, string, string, string) (string, error) {
			return "", errors.New("controller unreachable")
		}), nil
	}

	output, err := runCLI(t, "secrets", "seal", "--yes", "--reset-plain")
	if err == nil {
		t.Fatalf("Expected an error when fields are skipped")
	}
	if !strings.Contains(output, "were kept") {
		t.Errorf("Expected plain secrets to be reported as kept, got: %s", output)
	}
	data, err := os.ReadFile(plainFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"TOKEN": "abc"`) {
		t.Errorf("Plain value was lost:\n%s", data)
	}
}

func testSealInvalidTimeout(t *testing.T) {
	dir := setupSealProject(t)
	newEncryptor = kubesealEncryptor
	cfg, _, err := configs.LoadProjectConfig(dir)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Kubeseal.Timeout = "soon"
	if err := configs.SaveProjectConfig(dir, cfg); err != nil {
		t.Fatal(err)
	}

	output, err := runCLI(t, "secrets", "seal", "--yes")
	if err == nil {
		t.Fatalf("Expected an error for an invalid timeout")
	}
	if !strings.Contains(output, "Invalid kubeseal configuration") {
		t.Errorf("Expected configuration message, got: %s", output)
	}
}

func TestSecretsSealWithKubesealBinary(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in requires a POSIX shell")
	}
	dir := setupSealProject(t)
	newEncryptor = kubesealEncryptor

	bin := filepath.Join(t.TempDir(), "kubeseal")
	// Echoes namespace, name and the plaintext from stdin.
	script := "#!/bin/sh\nprintf 'sealed:%s:%s:' \"$3\" \"$5\"\ncat\n"
	if err := os.WriteFile(bin, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	cfg, _, err := configs.LoadProjectConfig(dir)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Kubeseal.Binary = bin
	if err := configs.SaveProjectConfig(dir, cfg); err != nil {
		t.Fatal(err)
	}

	output, err := runCLI(t, "secrets", "seal", "--yes", "--delete-plain")
	if err != nil {
		t.Fatalf("Command failed: %v\nOutput: %s", err, output)
	}

	data, err := os.ReadFile(filepath.Join(dir, testSealedPath))
	if err != nil {
		t.Fatalf("SealedSecret was not written: %v", err)
	}
	if !strings.Contains(string(data), "sealed:applications:api:hunter2") {
		t.Errorf("Unexpected SealedSecret:\n%s", data)
	}
	if _, err := os.Stat(filepath.Join(dir, "generatedManifests", "local", "applications", "api", "secret.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Plain Secret manifest should be deleted")
	}
	if !strings.Contains(output, "Deleted plaintext manifests") {
		t.Errorf("Expected deletion report, got: %s", output)
	}
}

func TestSecretsSealMissingKubeseal(t *testing.T) {
	dir := setupSealProject(t)
	newEncryptor = kubesealEncryptor

	cfg, _, err := configs.LoadProjectConfig(dir)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Kubeseal.Binary = "sealctl-test-no-such-kubeseal"
	if err := configs.SaveProjectConfig(dir, cfg); err != nil {
		t.Fatal(err)
	}

	output, err := runCLI(t, "secrets", "seal", "--yes")
	if err == nil {
		t.Fatalf("Expected an error for a missing kubeseal binary")
	}
	if !strings.Contains(output, "was not found on your PATH") {
		t.Errorf("Expected missing binary message, got: %s", output)
	}
}
