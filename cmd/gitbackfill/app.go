package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/afero"

	"github.com/bashhack/gitbackfill/internal/backfill"
	"github.com/bashhack/gitbackfill/internal/catalog"
	"github.com/bashhack/gitbackfill/internal/config"
	"github.com/bashhack/gitbackfill/internal/constants"
	"github.com/bashhack/gitbackfill/internal/errors"
	"github.com/bashhack/gitbackfill/internal/git"
	"github.com/bashhack/gitbackfill/internal/journal"
	"github.com/bashhack/gitbackfill/internal/lock"
	"github.com/bashhack/gitbackfill/internal/logger"
	"github.com/bashhack/gitbackfill/internal/mutate"
	"github.com/bashhack/gitbackfill/internal/schedule"
)

// Locker manages file locking
type Locker interface {
	Acquire() error
	Release() error
}

// Journal records runs and lists past ones. *journal.Journal implements it.
type Journal interface {
	backfill.Recorder
	RecentRuns(ctx context.Context, repoPath string, limit int) ([]journal.Run, error)
	Entries(ctx context.Context, runID int64) ([]journal.Entry, error)
	Close() error
}

// AppOptions contains app configuration and dependencies.
// Everything except Config is optional and defaulted by NewApp or
// Initialize, so tests can replace any single piece.
type AppOptions struct {
	// Config holds the resolved settings (required).
	Config *config.Config

	// Version is printed by the version command.
	Version config.VersionInfo

	Logger     logger.Logger
	Locker     Locker
	Interactor git.UserInteractor

	// Executor runs git commands (default: git.ExecExecutor).
	Executor git.CommandExecutor

	// FS is rooted at the repository (default: the OS filesystem under RepoPath).
	FS afero.Fs

	// OpenJournal opens the run journal (default: journal.Open).
	OpenJournal func(path string) (Journal, error)

	// Now is the end of the window when --end is not set.
	Now func() time.Time

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// ExecLookPath locates the git binary (default: exec.LookPath).
	ExecLookPath func(file string) (string, error)

	// IsRepository validates the repository (default: git.IsRepository).
	IsRepository func(string) (bool, error)
}

// App is the gitbackfill application. It wires the configuration into the
// schedule, mutator, driver and journal, and owns their lifecycle.
type App struct {
	Config   *config.Config
	Version  config.VersionInfo
	Logger   logger.Logger
	Locker   Locker
	Backfill *backfill.Backfill

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	interactor   git.UserInteractor
	executor     git.CommandExecutor
	fs           afero.Fs
	journal      Journal
	openJournal  func(path string) (Journal, error)
	now          func() time.Time
	execLookPath func(file string) (string, error)
	isRepository func(string) (bool, error)
}

// NewApp creates an App with the dependencies in opts. It panics if
// opts.Config is nil.
func NewApp(opts AppOptions) *App {
	if opts.Config == nil {
		panic("Config is required in AppOptions")
	}

	app := &App{
		Config:       opts.Config,
		Version:      opts.Version,
		Logger:       opts.Logger,
		Locker:       opts.Locker,
		Stdin:        opts.Stdin,
		Stdout:       opts.Stdout,
		Stderr:       opts.Stderr,
		interactor:   opts.Interactor,
		executor:     opts.Executor,
		fs:           opts.FS,
		openJournal:  opts.OpenJournal,
		now:          opts.Now,
		execLookPath: opts.ExecLookPath,
		isRepository: opts.IsRepository,
	}

	if app.Stdin == nil {
		app.Stdin = os.Stdin
	}
	if app.Stdout == nil {
		app.Stdout = os.Stdout
	}
	if app.Stderr == nil {
		app.Stderr = os.Stderr
	}
	if app.execLookPath == nil {
		app.execLookPath = exec.LookPath
	}
	if app.isRepository == nil {
		app.isRepository = git.IsRepository
	}
	if app.now == nil {
		app.now = time.Now
	}
	if app.executor == nil {
		app.executor = git.NewExecExecutor()
	}
	if app.openJournal == nil {
		app.openJournal = openJournal
	}

	return app
}

func openJournal(path string) (Journal, error) {
	j, err := journal.Open(path)
	if err != nil {
		return nil, err
	}
	return j, nil
}

// Initialize finalizes the configuration and sets up the components not
// provided during construction.
func (a *App) Initialize() error {
	if err := a.Config.Finalize(); err != nil {
		if errors.Is(err, errors.ErrInvalidConfiguration) {
			return err
		}
		return errors.Wrap(errors.ErrInvalidConfiguration, err.Error())
	}

	if a.Logger == nil {
		a.Logger = logger.NewWithOutput(a.Config.Debug, a.Config.LogFile, a.Config.Verbose, a.Stdout, a.Stderr)
	}
	if a.fs == nil {
		a.fs = afero.NewBasePathFs(afero.NewOsFs(), a.Config.RepoPath)
	}
	if a.interactor == nil {
		a.interactor = git.NewInteractor(a.Stdin, a.Logger)
	}

	return nil
}

func (a *App) confirmation(ctx context.Context, driver *git.Driver, window schedule.Window) git.Confirmation {
	branch, err := driver.CurrentBranch(ctx)
	if err != nil {
		branch = ""
	}
	return git.Confirmation{
		RepoPath: a.Config.RepoPath,
		Branch:   branch,
		Mode:     a.Config.Mode,
		Start:    window.Start,
		End:      window.End,
	}
}

// newGenerator builds the schedule the configuration describes.
func (a *App) newGenerator() (*schedule.Generator, *catalog.Catalog, error) {
	cat, err := a.Config.Catalog(afero.NewOsFs())
	if err != nil {
		return nil, nil, err
	}
	gen, err := schedule.NewGenerator(a.Config.Policy, a.Config.Window(a.now()), cat, a.Config.Rand())
	if err != nil {
		return nil, nil, err
	}
	return gen, cat, nil
}

// Run creates the backdated history. It stops early, without error, when
// ctx is cancelled; the summary is printed either way once work started.
func (a *App) Run(ctx context.Context) error {
	if err := a.Initialize(); err != nil {
		return err
	}

	defer func() {
		if err := a.Close(); err != nil {
			_, _ = fmt.Fprintf(a.Stderr, "❌ Error during cleanup: %v\n", err)
		}
	}()

	if err := a.checkRequiredCommands(); err != nil {
		return err
	}

	isRepo, err := a.isRepository(a.Config.RepoPath)
	if err != nil {
		a.Logger.Warning("Failed to check if path is a git repository: %v", err)
		return errors.Wrap(errors.ErrGitOperationFailed, err.Error())
	}
	if !isRepo {
		return errors.Wrap(errors.ErrNotGitRepository, a.Config.RepoPath)
	}

	gen, cat, err := a.newGenerator()
	if err != nil {
		return err
	}

	driver, err := git.NewDriver(git.DriverConfig{
		RepoPath:        a.Config.RepoPath,
		FallbackMessage: a.Config.FallbackMessage,
		Window:          gen.Window(),
	}, a.fs, a.Logger, a.executor)
	if err != nil {
		return err
	}

	if _, err := driver.CheckStatus(ctx); err != nil {
		return errors.Wrap(err, "repository is not usable")
	}
	a.Logger.Info("Git repository verified")

	if a.Locker == nil {
		locker, err := lock.New(a.Config.RepoPath)
		if err != nil {
			return errors.Wrap(err, "failed to initialize lock")
		}
		a.Locker = locker
	}
	if err := a.Locker.Acquire(); err != nil {
		if errors.Is(err, errors.ErrAlreadyRunning) {
			return err
		}
		return errors.Wrap(errors.ErrLockAcquisitionFailure, err.Error())
	}

	a.showBanner(gen, cat)
	if !a.Config.Yes && !a.interactor.Confirm(a.confirmation(ctx, driver, gen.Window())) {
		a.Logger.InfoToUser("Nothing was changed.")
		return errors.ErrAborted
	}

	deps := backfill.Deps{
		FS:        a.fs,
		Catalog:   cat,
		Mutator:   mutate.New(a.fs, a.Config.MutateOptions()),
		Committer: driver,
		Logger:    a.Logger,
	}
	if j := a.openRunJournal(); j != nil {
		deps.Recorder = j
	}

	bf, err := backfill.New(backfill.Config{
		RepoPath: a.Config.RepoPath,
		Preset:   a.presetName(),
		Seed:     a.Config.Seed,
		Verbose:  a.Config.Verbose,
	}, gen, deps)
	if err != nil {
		return err
	}
	a.Backfill = bf

	if err := bf.Run(ctx); err != nil {
		return err
	}
	bf.PrintSummary()
	return nil
}

// openRunJournal opens the journal unless disabled. A journal that cannot
// be opened only disables recording.
func (a *App) openRunJournal() Journal {
	if a.Config.NoJournal {
		return nil
	}
	j, err := a.openJournal(a.Config.JournalPath)
	if err != nil {
		a.Logger.WarningToUser("Run will not be recorded: %v", err)
		return nil
	}
	a.journal = j
	return j
}

func (a *App) presetName() string {
	if a.Config.CatalogFile != "" {
		return a.Config.CatalogFile
	}
	return a.Config.Preset
}

func (a *App) showBanner(gen *schedule.Generator, cat *catalog.Catalog) {
	w := gen.Window()
	unit := "days"
	if gen.Policy().Mode == schedule.ModeWeek {
		unit = "weeks"
	}
	a.Logger.StatusMessage("gitbackfill: %s", constants.Tagline)
	a.Logger.StatusMessage("Repository: %s", a.Config.RepoPath)
	a.Logger.StatusMessage("Window:     %s to %s (about %d %s)", w.Start.Format(mutate.DayLayout), w.End.Format(mutate.DayLayout), gen.EstimatedUnits(), unit)
	a.Logger.StatusMessage("Catalog:    %s (%d files, %d messages)", a.presetName(), len(cat.Files), len(cat.Messages))
	a.Logger.StatusMessage("Seed:       %d", a.Config.Seed)
}

// Plan prints the schedule a run with the same settings would create.
// Nothing is written and no git command runs.
func (a *App) Plan() error {
	if err := a.Initialize(); err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	gen, _, err := a.newGenerator()
	if err != nil {
		return err
	}
	entries := gen.Collect()
	if err := backfill.RenderPlan(a.Stdout, gen.Window(), entries); err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.Stdout, "Seed %d; run with --seed %d to create exactly this history.\n", a.Config.Seed, a.Config.Seed)
	return err
}

// History prints recent runs from the journal. With all set, runs of
// every repository are listed. A positive runID lists that run's entries
// instead.
func (a *App) History(ctx context.Context, runID int64, limit int, all bool) error {
	if err := a.Initialize(); err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			_, _ = fmt.Fprintf(a.Stderr, "❌ Error during cleanup: %v\n", err)
		}
	}()

	j, err := a.openJournal(a.Config.JournalPath)
	if err != nil {
		return err
	}
	a.journal = j

	if runID > 0 {
		entries, err := j.Entries(ctx, runID)
		if err != nil {
			return err
		}
		return renderEntries(a.Stdout, runID, entries)
	}

	repo := a.Config.RepoPath
	if all {
		repo = ""
	}
	runs, err := j.RecentRuns(ctx, repo, limit)
	if err != nil {
		return err
	}
	return renderRuns(a.Stdout, runs)
}

// ShowVersion displays version information
func (a *App) ShowVersion() {
	_, _ = fmt.Fprintf(a.Stdout, "gitbackfill %s (%s) built on %s\n",
		a.Version.Version,
		a.Version.Commit,
		a.Version.Date)
}

// checkRequiredCommands verifies git is available in PATH
func (a *App) checkRequiredCommands() error {
	_, err := a.execLookPath("git")
	if err != nil {
		return fmt.Errorf("git is not found in PATH, please install it and try again")
	}
	return nil
}

// Close releases resources held by the App
func (a *App) Close() error {
	var errs []error

	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			errs = append(errs, err)
		}
		a.journal = nil
	}

	if a.Locker != nil {
		if err := a.Locker.Release(); err != nil {
			if a.Logger != nil {
				a.Logger.Error("Failed to release lock during cleanup: %v", err)
			} else {
				_, _ = fmt.Fprintf(a.Stderr, "❌ Failed to release lock during cleanup: %v\n", err)
			}
			errs = append(errs, err)
		}
		a.Locker = nil
	}

	if a.Logger != nil {
		if err := a.Logger.Close(); err != nil {
			_, _ = fmt.Fprintf(a.Stderr, "❌ Failed to close logger: %v\n", err)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
