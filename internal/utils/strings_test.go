package utils

import (
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestFormatPaths(t *testing.T) {
	color.NoColor = true

	got := FormatPaths([]string{"a.yaml", "b/c.yaml"})
	if !strings.Contains(got, "    - a.yaml\n") || !strings.Contains(got, "    - b/c.yaml\n") {
		t.Errorf("FormatPaths() = %q", got)
	}
	if !strings.HasPrefix(got, "\n") {
		t.Errorf("FormatPaths() should start on a new line")
	}
}

func TestPluralize(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0 files"},
		{1, "1 file"},
		{2, "2 files"},
	}
	for _, tt := range tests {
		if got := Pluralize(tt.n, "file", "files"); got != tt.want {
			t.Errorf("Pluralize(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestTerminalWidthFallback(t *testing.T) {
	// go test never attaches stdout to a terminal.
	if IsOutputTerminal() {
		t.Skip("stdout is a terminal")
	}
	if got := TerminalWidth(80); got != 80 {
		t.Errorf("TerminalWidth() = %d, want fallback", got)
	}
}
