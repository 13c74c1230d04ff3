package main

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/bashhack/gitbackfill/internal/errors"
	"github.com/bashhack/gitbackfill/internal/git"
)

// MockLocker is a mock implementation of Locker
type MockLocker struct {
	AcquireErr    error
	ReleaseErr    error
	AcquireCalled bool
	ReleaseCalled bool
}

func (m *MockLocker) Acquire() error {
	m.AcquireCalled = true
	return m.AcquireErr
}

func (m *MockLocker) Release() error {
	m.ReleaseCalled = true
	return m.ReleaseErr
}

// MockInteractor answers every prompt with Response.
type MockInteractor struct {
	Response   bool
	LastPrompt string
}

func (m *MockInteractor) Confirm(c git.Confirmation) bool {
	m.LastPrompt = c.Question()
	return m.Response
}

// RecordingExecutor pretends git commands succeed. FailCommit, when set,
// is asked about every commit by its 1-based attempt number.
type RecordingExecutor struct {
	mu         sync.Mutex
	Commands   [][]string
	FailCommit func(n int) bool
	StatusErr  error
	commits    int
}

func (r *RecordingExecutor) record(cmd *exec.Cmd) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	args := cmd.Args[1:]
	if len(args) >= 2 && args[0] == "-C" {
		args = args[2:]
	}
	r.Commands = append(r.Commands, args)
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func (r *RecordingExecutor) Execute(_ context.Context, cmd *exec.Cmd) error {
	if r.record(cmd) != "commit" {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commits++
	if r.FailCommit != nil && r.FailCommit(r.commits) {
		return errors.New("nothing to commit, working tree clean")
	}
	return nil
}

func (r *RecordingExecutor) ExecuteWithOutput(_ context.Context, cmd *exec.Cmd) (string, error) {
	switch r.record(cmd) {
	case "status":
		return "", r.StatusErr
	case "branch":
		return "main\n", nil
	case "log":
		return "* 1a2b3c4 (HEAD -> main) feat: recorded", nil
	}
	return "", nil
}

// Count returns how many recorded commands ran sub.
func (r *RecordingExecutor) Count(sub string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.Commands {
		if len(c) > 0 && c[0] == sub {
			n++
		}
	}
	return n
}

// testEnv is a fake repository plus everything an App needs to run in it.
type testEnv struct {
	repo     string
	fs       afero.Fs
	executor *RecordingExecutor
	locker   *MockLocker
	prompt   *MockInteractor
	stdout   *bytes.Buffer
	stderr   *bytes.Buffer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	return &testEnv{
		repo:     filepath.Join(dir, "repo"),
		fs:       afero.NewMemMapFs(),
		executor: &RecordingExecutor{},
		locker:   &MockLocker{},
		prompt:   &MockInteractor{Response: true},
		stdout:   &bytes.Buffer{},
		stderr:   &bytes.Buffer{},
	}
}

func (e *testEnv) options() AppOptions {
	return AppOptions{
		Locker:       e.locker,
		Interactor:   e.prompt,
		Executor:     e.executor,
		FS:           e.fs,
		Now:          func() time.Time { return time.Date(2024, time.June, 30, 17, 0, 0, 0, time.Local) },
		ExecLookPath: func(string) (string, error) { return "/usr/bin/git", nil },
		IsRepository: func(string) (bool, error) { return true, nil },
	}
}

// run executes the command line against the test repository and returns
// the exit code.
func (e *testEnv) run(opts AppOptions, args ...string) int {
	args = append(args, "--repo", e.repo)
	return execute(context.Background(), args, opts, e.stdout, e.stderr)
}
