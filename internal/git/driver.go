package git

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/bashhack/gitbackfill/internal/errors"
	"github.com/bashhack/gitbackfill/internal/logger"
	"github.com/bashhack/gitbackfill/internal/schedule"
)

// DefaultFallbackMessage is the commit message used when the scheduled
// message could not be committed.
const DefaultFallbackMessage = "Development update"

// DriverConfig configures a Driver.
type DriverConfig struct {
	// RepoPath is the repository every git command runs in (git -C).
	RepoPath string

	// FillerDir is where fallback_update_<n>.txt files are written,
	// relative to the filesystem root. Empty means the root itself.
	FillerDir string

	// FallbackMessage is the base message of fallback commits. Week-mode
	// entries get " - Week N" appended.
	FallbackMessage string

	// Window, when set, rejects entries dated outside it.
	Window schedule.Window
}

// Validate sanity-checks the config.
func (c *DriverConfig) Validate() error {
	if c.RepoPath == "" {
		return errors.NewConfigError("repo_path", c.RepoPath,
			errors.Wrap(errors.ErrInvalidConfiguration, "RepoPath must not be empty"))
	}
	if path.IsAbs(c.FillerDir) || strings.HasPrefix(path.Clean(c.FillerDir), "..") {
		return errors.NewConfigError("filler_dir", c.FillerDir,
			errors.Wrap(errors.ErrInvalidConfiguration, "FillerDir must be inside the repository"))
	}
	return nil
}

// Result is the outcome of committing one entry.
type Result struct {
	// Succeeded is set when a commit was created, scheduled or fallback.
	Succeeded bool

	// Fallback is set when the commit carries FallbackMessage.
	Fallback bool

	// Staged is set once the first `git add` succeeded. An unstaged
	// result means the entry was skipped without a commit attempt.
	Staged bool

	// Message is the message of the commit that was created.
	Message string

	// Err is the staging or commit failure. On a successful fallback it
	// holds the original commit error.
	Err error
}

// Driver stages and commits entries with their scheduled dates. A Driver
// is not safe for concurrent use.
type Driver struct {
	config   DriverConfig
	fs       afero.Fs
	logger   logger.Logger
	executor CommandExecutor
	environ  func() []string
	fillers  int
}

// NewDriver creates a Driver. fs must be rooted at the repository so that
// filler files land in the working tree.
func NewDriver(cfg DriverConfig, fs afero.Fs, log logger.Logger, executor CommandExecutor) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.FallbackMessage == "" {
		cfg.FallbackMessage = DefaultFallbackMessage
	}
	if executor == nil {
		executor = NewExecExecutor()
	}
	return &Driver{
		config:   cfg,
		fs:       fs,
		logger:   log,
		executor: executor,
		environ:  os.Environ,
	}, nil
}

// FallbackMessage returns the message a fallback commit for entry carries.
func (d *Driver) FallbackMessage(entry schedule.Entry) string {
	if entry.Label == "" {
		return d.config.FallbackMessage
	}
	return d.config.FallbackMessage + " - " + entry.Label
}

// Commit stages the working tree and commits it with the entry's date as
// both author and committer date. A failed commit is retried exactly once
// with a filler file and FallbackMessage; a failed stage is not retried.
func (d *Driver) Commit(ctx context.Context, entry schedule.Entry) Result {
	w := d.config.Window
	if !w.Start.IsZero() && !w.Contains(entry.Timestamp) {
		return Result{Err: errors.NewConfigError("timestamp", entry.GitDate(),
			errors.Wrap(errors.ErrInvalidConfiguration, "entry falls outside the backfill window"))}
	}

	if err := d.stage(ctx); err != nil {
		d.logger.Warning("Staging failed for entry %d: %v", entry.Seq, err)
		return Result{Err: err}
	}

	date := entry.GitDate()
	commitErr := d.commit(ctx, entry.Message, date)
	if commitErr == nil {
		d.logger.Info("Committed entry %d at %s: %s", entry.Seq, date, entry.Message)
		return Result{Succeeded: true, Staged: true, Message: entry.Message}
	}

	d.logger.Warning("Commit failed for entry %d, retrying with fallback: %v", entry.Seq, commitErr)

	fallback := d.FallbackMessage(entry)
	if err := d.writeFiller(); err != nil {
		return Result{Staged: true, Err: errors.Join(commitErr, err)}
	}
	if err := d.stage(ctx); err != nil {
		return Result{Staged: true, Err: errors.Join(commitErr, err)}
	}
	if err := d.commit(ctx, fallback, date); err != nil {
		d.logger.Error("Fallback commit failed for entry %d: %v", entry.Seq, err)
		return Result{Staged: true, Err: errors.Join(commitErr, err)}
	}

	d.logger.Info("Committed fallback for entry %d at %s: %s", entry.Seq, date, fallback)
	return Result{Succeeded: true, Fallback: true, Staged: true, Message: fallback, Err: commitErr}
}

func (d *Driver) stage(ctx context.Context) error {
	return d.runGitCommand(ctx, nil, "add", "-A")
}

func (d *Driver) commit(ctx context.Context, message, date string) error {
	return d.runGitCommand(ctx, commitEnv(d.environ(), date), "commit", "-m", message)
}

// commitEnv returns base plus both date overrides. base is copied, and
// any inherited overrides are replaced.
func commitEnv(base []string, date string) []string {
	env := make([]string, 0, len(base)+2)
	for _, kv := range base {
		if strings.HasPrefix(kv, "GIT_AUTHOR_DATE=") || strings.HasPrefix(kv, "GIT_COMMITTER_DATE=") {
			continue
		}
		env = append(env, kv)
	}
	return append(env, "GIT_AUTHOR_DATE="+date, "GIT_COMMITTER_DATE="+date)
}

// writeFiller creates the next unused fallback_update_<n>.txt.
func (d *Driver) writeFiller() error {
	if d.config.FillerDir != "" {
		if err := d.fs.MkdirAll(d.config.FillerDir, 0o755); err != nil {
			return fmt.Errorf("creating filler directory: %w", err)
		}
	}

	for {
		d.fillers++
		name := path.Join(d.config.FillerDir, fmt.Sprintf("fallback_update_%d.txt", d.fillers))
		exists, err := afero.Exists(d.fs, name)
		if err != nil {
			return fmt.Errorf("checking filler file: %w", err)
		}
		if exists {
			continue
		}
		body := fmt.Sprintf("Development update %d\n", d.fillers)
		if err := afero.WriteFile(d.fs, name, []byte(body), 0o644); err != nil {
			return fmt.Errorf("writing filler file: %w", err)
		}
		return nil
	}
}

// CheckStatus runs git status --porcelain and returns its output. It is
// the precondition query: an error means the repository is unusable.
func (d *Driver) CheckStatus(ctx context.Context) (string, error) {
	return d.runGitCommandWithOutput(ctx, "status", "--porcelain")
}

// CurrentBranch returns the name of the checked-out branch.
func (d *Driver) CurrentBranch(ctx context.Context) (string, error) {
	output, err := d.runGitCommandWithOutput(ctx, "branch", "--show-current")
	if err != nil {
		return "unknown", err
	}
	return strings.TrimSpace(output), nil
}

// RecentLog returns the last n commits as a decorated graph.
func (d *Driver) RecentLog(ctx context.Context, n int) (string, error) {
	return d.runGitCommandWithOutput(ctx, "log", "--graph", "--oneline", "--decorate", "--color=always", "-n", fmt.Sprint(n))
}

// IsRepository checks that path is the top level of a git work tree. A
// subdirectory of a repository does not count: files would be written
// there but staged and committed in the enclosing repository.
// Exit code 128 means "not a repository" and returns (false, nil); any
// other failure, such as a missing git binary, is returned as an error.
func IsRepository(path string) (bool, error) {
	return isRepository(context.Background(), NewExecExecutor(), path)
}

func isRepository(ctx context.Context, executor CommandExecutor, path string) (bool, error) {
	cmd := exec.CommandContext(ctx, "git", "-C", path, "rev-parse", "--show-toplevel")
	output, err := executor.ExecuteWithOutput(ctx, cmd)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 128 {
			return false, nil
		}
		return false, err
	}
	return sameDir(path, strings.TrimSpace(output)), nil
}

// sameDir compares two directory paths after resolving symlinks, since git
// reports the physical top level (/private/var on macOS for /var).
func sameDir(a, b string) bool {
	if b == "" {
		return false
	}
	ra, errA := filepath.EvalSymlinks(a)
	rb, errB := filepath.EvalSymlinks(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return ra == rb
}

// runGitCommand executes a git command in the repository directory. A nil
// env inherits the process environment.
func (d *Driver) runGitCommand(ctx context.Context, env []string, args ...string) error {
	cmd := d.command(ctx, args...)
	cmd.Env = env
	return d.executor.Execute(ctx, cmd)
}

// runGitCommandWithOutput executes a git command and returns its output.
func (d *Driver) runGitCommandWithOutput(ctx context.Context, args ...string) (string, error) {
	return d.executor.ExecuteWithOutput(ctx, d.command(ctx, args...))
}

func (d *Driver) command(ctx context.Context, args ...string) *exec.Cmd {
	allArgs := append([]string{"-C", d.config.RepoPath}, args...)
	return exec.CommandContext(ctx, "git", allArgs...)
}
