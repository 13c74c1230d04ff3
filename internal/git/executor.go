package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/bashhack/gitbackfill/internal/errors"
)

// CommandExecutor runs prepared commands. Implementations must not modify
// cmd.Env or cmd.Dir; the driver sets both explicitly.
type CommandExecutor interface {
	// Execute runs a command and reports whether it succeeded.
	Execute(ctx context.Context, cmd *exec.Cmd) error

	// ExecuteWithOutput runs a command and returns its standard output.
	ExecuteWithOutput(ctx context.Context, cmd *exec.Cmd) (string, error)
}

// ExecExecutor is the CommandExecutor backed by os/exec.
type ExecExecutor struct{}

// NewExecExecutor creates a new ExecExecutor.
func NewExecExecutor() *ExecExecutor {
	return &ExecExecutor{}
}

// Execute implements CommandExecutor.Execute.
func (e *ExecExecutor) Execute(ctx context.Context, cmd *exec.Cmd) error {
	_, err := e.run(ctx, cmd)
	return err
}

// ExecuteWithOutput implements CommandExecutor.ExecuteWithOutput.
func (e *ExecExecutor) ExecuteWithOutput(ctx context.Context, cmd *exec.Cmd) (string, error) {
	return e.run(ctx, cmd)
}

func (e *ExecExecutor) run(ctx context.Context, cmd *exec.Cmd) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		// Keep both the sentinel and the *exec.ExitError reachable.
		wrapped := fmt.Errorf("%w: %w", errors.ErrGitOperationFailed, err)
		return "", errors.NewGitError(operation(cmd.Args), cmd.Args[1:], wrapped, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// operation names the git subcommand of args, skipping "-C <dir>".
func operation(args []string) string {
	for i := 1; i < len(args); i++ {
		if args[i] == "-C" {
			i++
			continue
		}
		return args[i]
	}
	if len(args) > 0 {
		return args[0]
	}
	return ""
}
