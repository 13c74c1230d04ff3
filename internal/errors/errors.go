package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds of a backfill run, checked with Is at the command boundary.
var (
	// ErrNotGitRepository: the target is not the top level of a git work tree.
	ErrNotGitRepository = errors.New("not a git repository")

	ErrGitOperationFailed = errors.New("git operation failed")

	ErrInvalidConfiguration = errors.New("invalid configuration")

	ErrLockAcquisitionFailure = errors.New("failed to acquire lock")

	// ErrAlreadyRunning: another gitbackfill holds the repository lock.
	ErrAlreadyRunning = errors.New("another gitbackfill instance is already running for this repository")

	// ErrMutationFailed: a catalog file could not be edited and a fallback
	// artifact was written instead.
	ErrMutationFailed = errors.New("file mutation failed")

	// ErrAborted: the confirmation prompt was declined. Nothing was changed.
	ErrAborted = errors.New("aborted by user")
)

// hints maps error kinds to the next thing the user can try.
var hints = []struct {
	kind error
	hint string
}{
	{ErrNotGitRepository, "run 'git init' there, or point --repo at the repository's top-level directory"},
	{ErrAlreadyRunning, "wait for the other run to finish; a lock left by a killed run is recovered automatically"},
	{ErrInvalidConfiguration, "check the flags, GITBACKFILL_* variables and the config file (gitbackfill --help)"},
	{ErrLockAcquisitionFailure, "check that the temporary directory is writable"},
	{ErrGitOperationFailed, "run 'git status' in the repository to see what git reports"},
}

// Hint returns a one-line suggestion for err, or "" when there is none.
func Hint(err error) string {
	for _, h := range hints {
		if errors.Is(err, h.kind) {
			return h.hint
		}
	}
	return ""
}

func New(message string) error {
	return errors.New(message)
}

// Wrap prefixes err with message, keeping it matchable.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

// Join returns an error that wraps the given errors, discarding nils.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// GitError is a failed git invocation. Output holds git's stderr, which
// usually says more than the exit status.
type GitError struct {
	Operation string
	Args      []string
	Err       error
	Output    string
}

func (e *GitError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "git %s failed", e.Operation)
	if e.Output != "" {
		// Only the last line; git prints hints above the fatal message.
		lines := strings.Split(strings.TrimSpace(e.Output), "\n")
		fmt.Fprintf(&b, ": %s", strings.TrimSpace(lines[len(lines)-1]))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *GitError) Unwrap() error {
	return e.Err
}

func NewGitError(operation string, args []string, err error, output string) *GitError {
	return &GitError{
		Operation: operation,
		Args:      args,
		Err:       err,
		Output:    output,
	}
}

// LockError is a failure on the repository lock file. PID is the holder
// when known.
type LockError struct {
	LockFile string
	PID      int
	Err      error
}

func (e *LockError) Error() string {
	if e.PID > 0 {
		return fmt.Sprintf("lock %s held by PID %d: %v", e.LockFile, e.PID, e.Err)
	}
	return fmt.Sprintf("lock %s: %v", e.LockFile, e.Err)
}

func (e *LockError) Unwrap() error {
	return e.Err
}

func NewLockError(lockFile string, pid int, err error) *LockError {
	return &LockError{
		LockFile: lockFile,
		PID:      pid,
		Err:      err,
	}
}

// ConfigError names the setting that was rejected. Parameter is the config
// key (window_days, policy.work_start_hour, ...).
type ConfigError struct {
	Parameter string
	Value     interface{}
	Err       error
}

func (e *ConfigError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("invalid %s %v: %v", e.Parameter, e.Value, e.Err)
	}
	return fmt.Sprintf("invalid %s: %v", e.Parameter, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func NewConfigError(parameter string, value interface{}, err error) *ConfigError {
	return &ConfigError{
		Parameter: parameter,
		Value:     value,
		Err:       err,
	}
}

// MutationError records which catalog file could not be edited.
// It always matches ErrMutationFailed.
type MutationError struct {
	Path string
	Err  error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("mutating %s: %v", e.Path, e.Err)
}

func (e *MutationError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrMutationFailed) match any MutationError.
func (e *MutationError) Is(target error) bool {
	return target == ErrMutationFailed
}

func NewMutationError(path string, err error) *MutationError {
	return &MutationError{Path: path, Err: err}
}
