// Package cmd contains testing utilities shared between command tests.
// This file provides common functions for setting up test projects,
// capturing output, and running the CLI with stubbed terminal and kubeseal.
package cmd

import (
	"bytes"
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/PolarWolf314/sealctl/internal/configs"
	logger "github.com/PolarWolf314/sealctl/internal/logging"
	"github.com/PolarWolf314/sealctl/internal/sealing"
	"github.com/PolarWolf314/sealctl/internal/selector"
	"github.com/spf13/cobra"
)

// kubesealEncryptor is the production encryptor factory.
var kubesealEncryptor = newEncryptor

// setupTestProject creates a project with a default config in a temp dir and changes into it.
func setupTestProject(t *testing.T, resources ...configs.ResourceConfig) string {
	t.Helper()

	tempDir := t.TempDir()
	cfg := configs.DefaultProjectConfig()
	cfg.Resources = resources
	if err := configs.SaveProjectConfig(tempDir, cfg); err != nil {
		t.Fatalf("Failed to write project config: %v", err)
	}

	chdir(t, tempDir)
	return tempDir
}

// chdir changes into dir and restores the working directory and command state afterwards.
func chdir(t *testing.T, dir string) {
	t.Helper()

	t.Setenv("NO_COLOR", "1")

	originalWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change to temp directory: %v", err)
	}

	originalTerminal, originalPrompter, originalEncryptor := stdinIsTerminal, newPrompter, newEncryptor
	t.Cleanup(func() {
		if err := os.Chdir(originalWd); err != nil {
			t.Fatalf("Failed to change to original directory: %v", err)
		}
		stdinIsTerminal, newPrompter, newEncryptor = originalTerminal, originalPrompter, originalEncryptor
		ResetGlobalState()
	})
}

// writeTestFile writes content below the current project.
func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// stubKubeseal replaces kubeseal with a deterministic encryptor.
func stubKubeseal(t *testing.T) {
	t.Helper()
	newEncryptor = func(*configs.ProjectSettings) (sealing.Encryptor, error) {
		return sealing.EncryptorFunc(func(_ context.Context, namespace, name, plaintext string) (string, error) {
			return "ENC(" + namespace + "/" + name + ":" + plaintext + ")", nil
		}), nil
	}
}

// scriptedPrompter answers prompts from a queue.
type scriptedPrompter struct {
	answers [][]int
	asked   int
}

func (p *scriptedPrompter) SelectMany(_ context.Context, label string, _ []selector.Item) ([]int, error) {
	p.asked++
	if len(p.answers) == 0 {
		return nil, nil
	}
	answer := p.answers[0]
	p.answers = p.answers[1:]
	return answer, nil
}

// stubTerminal pretends stdin is a terminal and answers prompts from p.
func stubTerminal(p *scriptedPrompter) {
	stdinIsTerminal = func() bool { return true }
	newPrompter = func() selector.Prompter { return p }
}

// captureOutput captures both stdout and stderr during function execution.
func captureOutput(fn func() error) (string, error) {
	// Save original stdout and stderr
	originalStdout := os.Stdout
	originalStderr := os.Stderr

	// Create pipes to capture output
	stdoutReader, stdoutWriter, _ := os.Pipe()
	stderrReader, stderrWriter, _ := os.Pipe()

	// Replace stdout and stderr
	os.Stdout = stdoutWriter
	os.Stderr = stderrWriter

	// Channel to collect output
	outputChan := make(chan string, 2)

	// Start goroutines to read from pipes
	for _, r := range []io.Reader{stdoutReader, stderrReader} {
		go func() {
			var buf bytes.Buffer
			if _, err := io.Copy(&buf, r); err != nil {
				log.Fatalf("Failed to run copy command: %s", err)
			}
			outputChan <- buf.String()
		}()
	}

	// Execute the function
	err := fn()

	// Close writers to signal EOF
	stdoutWriter.Close()
	stderrWriter.Close()

	// Restore original stdout and stderr
	os.Stdout = originalStdout
	os.Stderr = originalStderr

	// Collect output
	first := <-outputChan
	second := <-outputChan

	return first + second, err
}

// createTestCLI creates a complete CLI instance running args.
func createTestCLI(args ...string) *cobra.Command {
	Logger = logger.Logger{}

	rootCmd := &cobra.Command{
		Use:           "sealctl",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(InitCmd)
	rootCmd.AddCommand(SecretsCmd)
	rootCmd.AddCommand(PlainCmd)
	rootCmd.SetArgs(args)
	return rootCmd
}

// runCLI runs the CLI with args and returns its combined output.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return captureOutput(func() error {
		return createTestCLI(args...).Execute()
	})
}
