package sealing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	kerrors "github.com/PolarWolf314/sealctl/internal/errors"
	logger "github.com/PolarWolf314/sealctl/internal/logging"
)

// Encryptor seals one plaintext value for a namespaced secret.
type Encryptor interface {
	Seal(ctx context.Context, namespace, name, plaintext string) (string, error)
}

// EncryptorFunc adapts a function to Encryptor.
type EncryptorFunc func(ctx context.Context, namespace, name, plaintext string) (string, error)

func (f EncryptorFunc) Seal(ctx context.Context, namespace, name, plaintext string) (string, error) {
	return f(ctx, namespace, name, plaintext)
}

// Kubeseal seals values by running `kubeseal --raw`.
type Kubeseal struct {
	Binary              string
	ControllerName      string
	ControllerNamespace string
	// Cert is a public certificate file or URL. When set, kubeseal does not
	// contact the controller.
	Cert string
	// Timeout bounds each invocation. Zero means no deadline.
	Timeout time.Duration

	Logger logger.Logger
}

// Args returns the kubeseal arguments for one value.
func (k *Kubeseal) Args(namespace, name string) []string {
	args := []string{"--raw", "--namespace", namespace, "--name", name, "--from-file=/dev/stdin"}
	if k.ControllerName != "" {
		args = append(args, "--controller-name", k.ControllerName)
	}
	if k.ControllerNamespace != "" {
		args = append(args, "--controller-namespace", k.ControllerNamespace)
	}
	if k.Cert != "" {
		args = append(args, "--cert", k.Cert)
	}
	return args
}

func (k *Kubeseal) Seal(ctx context.Context, namespace, name, plaintext string) (string, error) {
	if k.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, k.Timeout)
		defer cancel()
	}

	binary := k.Binary
	if binary == "" {
		binary = "kubeseal"
	}

	args := k.Args(namespace, name)
	k.Logger.Debugf("Running %s %s", binary, strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdin = strings.NewReader(plaintext)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s", k.Timeout)
		}
		return "", &kerrors.EncryptionCommandError{
			Name:      name,
			Namespace: namespace,
			Stderr:    strings.TrimSpace(stderr.String()),
			Err:       err,
		}
	}

	ciphertext := strings.TrimSpace(stdout.String())
	if ciphertext == "" {
		return "", &kerrors.EncryptionCommandError{
			Name:      name,
			Namespace: namespace,
			Stderr:    strings.TrimSpace(stderr.String()),
			Err:       errors.New("kubeseal produced no output"),
		}
	}
	return ciphertext, nil
}
