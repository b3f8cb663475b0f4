package mode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Runner executes a fixed argv without a shell.
type Runner interface {
	Run(ctx context.Context, argv []string) error
}

// CommandError reports a command that ran and exited non-zero.
type CommandError struct {
	Argv     []string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("command failed: %s exited with status %d", strings.Join(e.Argv, " "), e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

const maxStderr = 4096

// waitDelay bounds how long Run waits for leftover pipe holders after
// the context kills the process group.
var waitDelay = 2 * time.Second

func (ExecRunner) Run(ctx context.Context, argv []string) error {
	if len(argv) == 0 {
		return errors.New("empty command")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay
	configureProcess(cmd)

	err := cmd.Run()
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", argv[0], ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
		text := strings.TrimSpace(stderr.String())
		if len(text) > maxStderr {
			text = text[:maxStderr]
		}
		return &CommandError{
			Argv:     append([]string(nil), argv...),
			ExitCode: exitErr.ExitCode(),
			Stderr:   text,
		}
	}
	return err
}
