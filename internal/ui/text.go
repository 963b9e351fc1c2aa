package ui

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

// Formatter applies semantic formatting to text.
type Formatter struct {
	color  *color.Color
	prefix string
	suffix string
}

// Sprint formats the arguments and returns the resulting string.
func (f Formatter) Sprint(a ...interface{}) string {
	return f.render(fmt.Sprint(a...))
}

// Sprintf formats according to a format specifier and returns the resulting string.
func (f Formatter) Sprintf(format string, a ...interface{}) string {
	return f.render(fmt.Sprintf(format, a...))
}

func (f Formatter) render(text string) string {
	if noColor() {
		return f.prefix + text + f.suffix
	}
	return f.color.Sprint(text)
}

// EnsureNewline ensures the string ends with a newline character.
func EnsureNewline(s string) string {
	if len(s) == 0 || s[len(s)-1] != '\n' {
		return s + "\n"
	}
	return s
}

// Check renders a selection marker.
func Check(selected bool) string {
	if selected {
		return Success.Sprint("[x]")
	}
	return dim.Sprint("[ ]")
}

// noColor returns true if color output should be disabled.
func noColor() bool {
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return true
	}
	return color.NoColor
}

var (
	// Code formats runnable commands. Yellow, or `backticks`.
	Code = Formatter{color.New(color.FgYellow), "`", "`"}

	// Path formats file or directory paths. Yellow, or undecorated.
	Path = Formatter{color.New(color.FgYellow), "", ""}

	// Ref formats namespace/name identities. Bold cyan, or [brackets].
	Ref = Formatter{color.New(color.FgCyan, color.Bold), "[", "]"}

	// Field formats secret field names. Magenta, or 'single quotes'.
	Field = Formatter{color.New(color.FgMagenta), "'", "'"}

	// Group formats namespace headers in selection lists. Bold, or undecorated.
	Group = Formatter{color.New(color.Bold), "", ""}

	Success = Formatter{color.New(color.FgGreen), "", ""}
	Error   = Formatter{color.New(color.FgRed), "", ""}
	Warning = Formatter{color.New(color.FgYellow), "", ""}
	Info    = Formatter{color.New(color.FgCyan), "", ""}

	// Muted formats secondary text. Gray, or (parentheses).
	Muted = Formatter{color.New(color.FgHiBlack), "(", ")"}

	dim = Formatter{color.New(color.FgHiBlack), "", ""}
)
