package cmd

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/PolarWolf314/sealctl/internal/configs"
	kerrors "github.com/PolarWolf314/sealctl/internal/errors"
	"github.com/PolarWolf314/sealctl/internal/ui"
	"github.com/PolarWolf314/sealctl/internal/utils"
	"github.com/briandowns/spinner"
)

// newSpinner creates a spinner with the given message without starting it.
// The returned function starts it, unless verbose or debug output is on or
// stdout is not a terminal.
//
// IMPORTANT: spinner.FinalMSG values do NOT need trailing newlines. The cleanup
// function returned by startSpinner calls ui.EnsureNewline() before printing.
func newSpinner(message string) (*spinner.Spinner, func()) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message

	if err := s.Color("cyan"); err != nil {
		// If we can't set spinner color, just continue without it.
		Logger.Warnf("Failed to set spinner color: %v", err)
	}

	start := func() {
		if quietOutput() && !s.Active() {
			Logger.Debugf("Starting spinner: %s", message)
			s.Start()
			// Ensure log output is discarded unless in verbose mode.
			log.SetOutput(io.Discard)
		} else {
			Logger.Infof("%s", message)
		}
	}
	return s, start
}

// startSpinner creates and starts a spinner with the given message.
// Returns the spinner and a function that should be deferred to clean up.
func startSpinner(message string) (*spinner.Spinner, func()) {
	s, start := newSpinner(message)
	start()
	return s, spinnerCleanup(s)
}

func quietOutput() bool {
	return !verbose && !debug && utils.IsOutputTerminal()
}

// spinnerCleanup stops s if it runs and prints its final message.
func spinnerCleanup(s *spinner.Spinner) func() {
	return func() {
		finalMsg := ""
		if s.FinalMSG != "" {
			finalMsg = ui.EnsureNewline(s.FinalMSG)
			// Clear FinalMSG so s.Stop() doesn't print it.
			s.FinalMSG = ""
		}

		if s.Active() {
			Logger.Debugf("Stopping spinner")
			s.Stop()
			log.SetOutput(os.Stderr)
		}

		// Print final message to stdout (for tests to capture).
		if finalMsg != "" {
			fmt.Print(finalMsg)
		}
	}
}

// formatProjectError renders errors from loading settings and validating the environment.
// ok is false for errors that are not user mistakes.
func formatProjectError(err error) (msg string, ok bool) {
	var dirErr *kerrors.DirectoryNotFoundError
	switch {
	case errors.Is(err, kerrors.ErrProjectNotInitialized):
		return ui.Error.Sprint("✗") + " sealctl has not been initialized\n" +
			ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("sealctl init") + " at the repository root first", true

	case errors.Is(err, kerrors.ErrUnknownEnvironment):
		return ui.Error.Sprint("✗") + " " + err.Error() + "\n" +
			ui.Info.Sprint("→") + " Declare it under " + ui.Code.Sprint("environments") + " in " + ui.Path.Sprint(configs.ConfigFileName), true

	case errors.As(err, &dirErr):
		return ui.Error.Sprint("✗") + " No generated manifests for " + ui.Group.Sprint(environment) + " at " + ui.Path.Sprint(dirErr.Path) + "\n" +
			ui.Info.Sprint("→") + " Render the manifests of this environment first", true

	case errors.Is(err, kerrors.ErrInvalidSchema):
		return ui.Error.Sprint("✗") + " " + err.Error(), true

	case errors.Is(err, kerrors.ErrNoTerminal):
		return ui.Error.Sprint("✗") + " " + err.Error() + "\n" +
			ui.Info.Sprint("→") + " Pass " + ui.Code.Sprint("--yes") + " to seal every unsealed field without prompting", true

	case errors.Is(err, kerrors.ErrPromptAborted):
		return ui.Warning.Sprint("⚠") + " Selection aborted, nothing was sealed", true

	default:
		return ui.Error.Sprint("✗") + " " + err.Error(), false
	}
}
