package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"

	kerrors "github.com/PolarWolf314/sealctl/internal/errors"
	"github.com/PolarWolf314/sealctl/internal/sealing"
	"github.com/PolarWolf314/sealctl/internal/ui"
	"github.com/PolarWolf314/sealctl/internal/utils"
	"github.com/PolarWolf314/sealctl/internal/workflows"
	"github.com/spf13/cobra"
)

// maxSelectionAttempts bounds how often an empty selection is asked again.
const maxSelectionAttempts = 3

var (
	sealDryRun      bool
	sealDeletePlain bool
	sealResetPlain  bool
	sealYes         bool
	sealAll         bool
)

func init() {
	sealCmd.Flags().BoolVar(&sealDryRun, "dry-run", false, "show which SealedSecrets would be written without sealing")
	sealCmd.Flags().BoolVar(&sealDeletePlain, "delete-plain", false, "delete Secret manifests once every field is sealed")
	sealCmd.Flags().BoolVar(&sealResetPlain, "reset-plain", false, "empty the plain secrets file of the environment after sealing")
	sealCmd.Flags().BoolVarP(&sealYes, "yes", "y", false, "seal every unsealed field without prompting")
	sealCmd.Flags().BoolVar(&sealAll, "all", false, "reseal every field of every secret without prompting")
}

func resetSealCommandState() {
	sealDryRun = false
	sealDeletePlain = false
	sealResetPlain = false
	sealYes = false
	sealAll = false
}

var sealCmd = &cobra.Command{
	Use:   "seal",
	Short: "Seal secret fields into SealedSecrets",
	Long: `Seals Secret fields of an environment with kubeseal.

Secrets are listed grouped by namespace, with the ones that have unsealed
fields preselected. For every chosen secret its fields are listed; pick the
ones to (re)seal. New ciphertext is merged into the existing SealedSecret,
fields removed from the Secret are pruned.

Examples:
  sealctl secrets seal                          # Interactive, local environment
  sealctl secrets seal -e production            # Interactive, production
  sealctl secrets seal -e staging --yes         # Seal everything not sealed yet
  sealctl secrets seal --all --dry-run          # Show what a full reseal writes
  sealctl secrets seal --only 'applications/**' # Only read some manifests`,
	RunE: runSeal,
}

func runSeal(cmd *cobra.Command, args []string) error {
	Logger.Infof("Starting seal command")

	rc, err := newRunContext()
	if err != nil {
		return reportProjectError(err)
	}
	if err := rc.Settings.Config.ValidateEnvironment(rc.Environment); err != nil {
		return reportProjectError(err)
	}

	opts := workflows.SealOptions{
		DryRun:      sealDryRun,
		DeletePlain: sealDeletePlain,
		ResetPlain:  sealResetPlain,
	}
	switch {
	case sealAll:
		opts.Mode = workflows.SealEverything
	case sealYes:
		opts.Mode = workflows.SealUnsealed
	default:
		if !stdinIsTerminal() {
			return reportProjectError(kerrors.ErrNoTerminal)
		}
		rc.Prompter = newPrompter()
	}

	s, start := newSpinner("Sealing secrets for " + rc.Environment + "...")
	cleanup := spinnerCleanup(s)
	defer cleanup()

	if !opts.DryRun {
		encryptor, err := newEncryptor(rc.Settings)
		if err != nil {
			s.FinalMSG = ui.Error.Sprint("✗") + " Invalid kubeseal configuration: " + err.Error()
			return err
		}
		if k, ok := encryptor.(*sealing.Kubeseal); ok {
			if _, err := exec.LookPath(k.Binary); err != nil {
				s.FinalMSG = ui.Error.Sprint("✗") + " " + ui.Code.Sprint(k.Binary) + " was not found on your PATH\n" +
					ui.Info.Sprint("→") + " Install kubeseal or set " + ui.Code.Sprint("kubeseal.binary") + " in the project config"
				return err
			}
		}
		rc.Encryptor = startingSpinner(encryptor, start)
	}

	var result *workflows.SealResult
	for attempt := 1; ; attempt++ {
		result, err = workflows.Seal(cmd.Context(), rc, opts)
		if errors.Is(err, kerrors.ErrEmptySelection) && attempt < maxSelectionAttempts {
			fmt.Println(ui.Warning.Sprint("⚠") + " " + err.Error())
			continue
		}
		break
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			s.FinalMSG = ui.Warning.Sprint("⚠") + " Interrupted, files written so far are kept"
			if result != nil && result.Sealing != nil {
				s.FinalMSG += formatSealFiles(rc, result.Sealing.Written)
			}
			return err
		}
		if errors.Is(err, kerrors.ErrEmptySelection) {
			s.FinalMSG = ui.Error.Sprint("✗") + " " + err.Error() + ", giving up after " + utils.Pluralize(maxSelectionAttempts, "attempt", "attempts")
			return nil
		}
		msg, ok := formatProjectError(err)
		s.FinalMSG = msg
		if ok {
			return nil
		}
		return err
	}

	s.FinalMSG = formatSealResult(rc, result)
	if result.Sealing != nil && len(result.Sealing.Skipped) > 0 {
		return fmt.Errorf("%s could not be sealed", utils.Pluralize(len(result.Sealing.Skipped), "secret or field", "secrets or fields"))
	}
	return nil
}

// startingSpinner starts the spinner on the first encryption, after all prompts are done.
func startingSpinner(e sealing.Encryptor, start func()) sealing.Encryptor {
	var once sync.Once
	return sealing.EncryptorFunc(func(ctx context.Context, namespace, name, plaintext string) (string, error) {
		once.Do(start)
		return e.Seal(ctx, namespace, name, plaintext)
	})
}

// reportProjectError prints expected errors and returns the others.
func reportProjectError(err error) error {
	msg, ok := formatProjectError(err)
	fmt.Println(msg)
	if ok {
		return nil
	}
	return err
}

func formatSealResult(rc *workflows.RunContext, result *workflows.SealResult) string {
	msg := ""
	if n := len(result.LoadErrors); n > 0 {
		msg += ui.Warning.Sprint("⚠") + " " + utils.Pluralize(n, "manifest", "manifests") + " could not be read and were skipped\n"
	}

	res := result.Sealing
	if res == nil {
		return msg + ui.Success.Sprint("✓") + " Every field in " + ui.Group.Sprint(rc.Environment) + " is already sealed"
	}

	if result.DryRun {
		return msg + ui.Info.Sprint("ℹ") + " Dry run, would write " + utils.Pluralize(len(res.Planned), "SealedSecret", "SealedSecrets") + ":" +
			formatSealFiles(rc, res.Planned)
	}

	fields := 0
	for _, f := range res.Sealed {
		fields += len(f)
	}
	msg += ui.Success.Sprint("✓") + " Sealed " + utils.Pluralize(fields, "field", "fields") + " of " +
		utils.Pluralize(len(res.Sealed), "secret", "secrets") + " for " + ui.Group.Sprint(rc.Environment)

	if len(res.Written) > 0 {
		msg += "\nWritten:" + formatSealFiles(rc, res.Written)
	}
	if len(res.Unchanged) > 0 {
		msg += "\n" + ui.Muted.Sprint(utils.Pluralize(len(res.Unchanged), "file", "files")+" already up to date")
	}
	for _, skip := range res.Skipped {
		target := ui.Ref.Sprint(skip.Ref.String())
		if skip.Field != "" {
			target += " " + ui.Field.Sprint(skip.Field)
		}
		msg += "\n" + ui.Warning.Sprint("⚠") + " Skipped " + target + ": " + skip.Err.Error()
	}
	if len(result.DeletedFiles) > 0 {
		msg += "\nDeleted plaintext manifests:" + formatSealFiles(rc, result.DeletedFiles)
	}
	if result.PlainReset {
		msg += "\n" + ui.Success.Sprint("✓") + " Plain secrets of " + ui.Group.Sprint(rc.Environment) + " were reset"
	} else if sealResetPlain {
		msg += "\n" + ui.Warning.Sprint("⚠") + " Plain secrets of " + ui.Group.Sprint(rc.Environment) + " were kept, not every field was sealed"
	}
	return msg
}

func formatSealFiles(rc *workflows.RunContext, paths []string) string {
	rel := make([]string, len(paths))
	for i, p := range paths {
		rel[i] = rc.Settings.Relative(p)
	}
	return utils.FormatPaths(rel)
}
