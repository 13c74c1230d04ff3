package git

import (
	"context"
	"os/exec"
	"strings"
)

// MockCommandExecutor records commands instead of running them.
type MockCommandExecutor struct {
	Output              string
	LastCmd             *exec.Cmd
	Commands            []*exec.Cmd
	ExecuteFn           func(ctx context.Context, cmd *exec.Cmd) error
	ExecuteWithOutputFn func(ctx context.Context, cmd *exec.Cmd) (string, error)
}

// Execute implements the CommandExecutor interface
func (m *MockCommandExecutor) Execute(ctx context.Context, cmd *exec.Cmd) error {
	m.LastCmd = cmd
	m.Commands = append(m.Commands, cmd)

	if m.ExecuteFn != nil {
		return m.ExecuteFn(ctx, cmd)
	}
	return nil
}

// ExecuteWithOutput implements the CommandExecutor interface
func (m *MockCommandExecutor) ExecuteWithOutput(ctx context.Context, cmd *exec.Cmd) (string, error) {
	m.LastCmd = cmd
	m.Commands = append(m.Commands, cmd)

	if m.ExecuteWithOutputFn != nil {
		return m.ExecuteWithOutputFn(ctx, cmd)
	}
	return m.Output, nil
}

// Subcommands returns the recorded git arguments after "-C <repo>".
func (m *MockCommandExecutor) Subcommands() []string {
	out := make([]string, 0, len(m.Commands))
	for _, cmd := range m.Commands {
		out = append(out, gitArgs(cmd))
	}
	return out
}

// CountOf returns how many recorded commands ran the given subcommand.
func (m *MockCommandExecutor) CountOf(sub string) int {
	n := 0
	for _, cmd := range m.Commands {
		if operation(cmd.Args) == sub {
			n++
		}
	}
	return n
}

func gitArgs(cmd *exec.Cmd) string {
	if len(cmd.Args) < 3 || cmd.Args[1] != "-C" {
		return strings.Join(cmd.Args[1:], " ")
	}
	return strings.Join(cmd.Args[3:], " ")
}

// NewMockCommandExecutor creates a new mock executor
func NewMockCommandExecutor() *MockCommandExecutor {
	return &MockCommandExecutor{
		Commands: make([]*exec.Cmd, 0),
	}
}
