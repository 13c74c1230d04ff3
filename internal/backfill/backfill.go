package backfill

import (
	"context"
	"time"

	"github.com/spf13/afero"

	"github.com/bashhack/gitbackfill/internal/catalog"
	"github.com/bashhack/gitbackfill/internal/errors"
	"github.com/bashhack/gitbackfill/internal/git"
	"github.com/bashhack/gitbackfill/internal/journal"
	"github.com/bashhack/gitbackfill/internal/logger"
	"github.com/bashhack/gitbackfill/internal/mutate"
	"github.com/bashhack/gitbackfill/internal/schedule"
)

// progressEvery is how often, in commits, a progress line is printed when
// not verbose.
const progressEvery = 10

// Mutator edits one catalog file. *mutate.Mutator implements it.
type Mutator interface {
	Apply(file catalog.File, note mutate.Note) mutate.Result
}

// Committer turns an entry into a commit. *git.Driver implements it.
type Committer interface {
	Commit(ctx context.Context, entry schedule.Entry) git.Result
	CurrentBranch(ctx context.Context) (string, error)
	RecentLog(ctx context.Context, n int) (string, error)
}

// Recorder persists run history. *journal.Journal implements it.
type Recorder interface {
	BeginRun(ctx context.Context, run journal.Run) (int64, error)
	RecordEntry(ctx context.Context, runID int64, e journal.Entry) error
	FinishRun(ctx context.Context, runID int64, counts journal.Counts, interrupted bool) error
}

// Config holds the run settings that are not part of the schedule.
type Config struct {
	// RepoPath is recorded in the journal and shown in the summary.
	RepoPath string

	// Preset names the catalog preset, for the journal.
	Preset string

	// Seed is the generator seed, for the journal. Zero means random.
	Seed int64

	// Verbose prints a line per entry instead of periodic progress.
	Verbose bool
}

// Deps are the collaborators of a Backfill.
type Deps struct {
	// FS is rooted at the repository; catalog directories are created in it.
	FS        afero.Fs
	Catalog   *catalog.Catalog
	Mutator   Mutator
	Committer Committer

	// Recorder is optional.
	Recorder Recorder
	Logger   logger.Logger
}

// Summary counts what a run did with each requested entry. Every entry ends
// up in exactly one of committed (including fallbacks), skipped or lost.
type Summary struct {
	Requested         int
	Committed         int
	Fallbacks         int
	MutationFallbacks int
	Skipped           int
	Lost              int
}

func (s Summary) counts() journal.Counts {
	return journal.Counts{
		Requested:         s.Requested,
		Committed:         s.Committed,
		Fallbacks:         s.Fallbacks,
		MutationFallbacks: s.MutationFallbacks,
		Skipped:           s.Skipped,
		Lost:              s.Lost,
	}
}

// Backfill runs the generate, mutate, commit loop for one repository.
type Backfill struct {
	config    Config
	generator *schedule.Generator
	deps      Deps

	summary     Summary
	runID       int64
	interrupted bool
	startTime   time.Time
	branch      string
}

// New validates its inputs and returns a Backfill ready to Run.
func New(cfg Config, gen *schedule.Generator, deps Deps) (*Backfill, error) {
	if gen == nil {
		return nil, errors.NewConfigError("generator", nil,
			errors.Wrap(errors.ErrInvalidConfiguration, "a schedule generator is required"))
	}
	if deps.Mutator == nil || deps.Committer == nil || deps.Logger == nil {
		return nil, errors.NewConfigError("deps", nil,
			errors.Wrap(errors.ErrInvalidConfiguration, "mutator, committer and logger are required"))
	}
	return &Backfill{config: cfg, generator: gen, deps: deps}, nil
}

// Run consumes the generator, one entry at a time. The context is checked
// only between entries: cancelling it lets the in-flight entry finish and
// then stops the run. Already created commits are kept. Run returns nil
// when interrupted; see Interrupted.
func (b *Backfill) Run(ctx context.Context) error {
	b.startTime = time.Now()
	// Work on an entry is never cut short by cancellation.
	work := context.WithoutCancel(ctx)

	branch, err := b.deps.Committer.CurrentBranch(work)
	if err != nil {
		b.deps.Logger.Warning("Could not determine current branch: %v", err)
	}
	b.branch = branch

	b.prepareDirectories()
	b.beginJournal(work)

	window := b.generator.Window()
	b.deps.Logger.InfoToUser("Generating commits from %s to %s",
		window.Start.Format(mutate.DayLayout), window.End.Format(mutate.DayLayout))

	for {
		if ctx.Err() != nil {
			b.interrupted = true
			b.deps.Logger.WarningToUser("Interrupted, stopping after %d entries", b.summary.Requested)
			break
		}
		entry, ok := b.generator.Next()
		if !ok {
			break
		}
		b.process(work, entry)
	}

	b.finishJournal(work)
	return nil
}

// prepareDirectories creates the parent directory of every catalog file.
func (b *Backfill) prepareDirectories() {
	if b.deps.FS == nil || b.deps.Catalog == nil {
		return
	}
	for _, dir := range b.deps.Catalog.Dirs() {
		if err := b.deps.FS.MkdirAll(dir, 0o755); err != nil {
			b.deps.Logger.Warning("Could not create %s: %v", dir, err)
		}
	}
}

func (b *Backfill) process(ctx context.Context, entry schedule.Entry) {
	b.summary.Requested++

	note := mutate.Note{Timestamp: entry.Timestamp, Label: entry.Label, Unit: entry.Unit}
	mres := b.deps.Mutator.Apply(entry.File, note)
	switch {
	case mres.Fallback:
		b.summary.MutationFallbacks++
		b.deps.Logger.WarningToUser("Could not modify %s: %v", entry.File.Path, mres.Err)
	case mres.Err != nil:
		b.deps.Logger.WarningToUser("Could not modify %s or write a fallback: %v", entry.File.Path, mres.Err)
	}

	cres := b.deps.Committer.Commit(ctx, entry)

	rec := journal.Entry{
		Seq:              entry.Seq,
		Timestamp:        entry.Timestamp,
		Path:             entry.File.Path,
		Message:          entry.Message,
		MutationFallback: mres.Fallback,
	}
	if mres.Fallback {
		rec.Path = mres.Path
	}

	day := entry.Timestamp.Format(mutate.DayLayout)
	switch {
	case cres.Succeeded:
		b.summary.Committed++
		rec.Outcome = journal.OutcomeCommitted
		rec.Message = cres.Message
		if cres.Fallback {
			b.summary.Fallbacks++
			rec.Outcome = journal.OutcomeFallback
			b.deps.Logger.WarningToUser("%s: commit failed, created fallback %q", day, cres.Message)
		} else if b.config.Verbose {
			b.deps.Logger.Success("%s: %s", day, cres.Message)
		}
		if !b.config.Verbose && b.summary.Committed%progressEvery == 0 {
			b.deps.Logger.InfoToUser("Created %d commits...", b.summary.Committed)
		}
	case !cres.Staged:
		b.summary.Skipped++
		rec.Outcome = journal.OutcomeSkipped
		b.deps.Logger.WarningToUser("%s: staging failed, entry skipped: %v", day, cres.Err)
	default:
		b.summary.Lost++
		rec.Outcome = journal.OutcomeLost
		b.deps.Logger.Error("%s: commit and fallback both failed: %v", day, cres.Err)
	}
	if cres.Err != nil {
		rec.Error = cres.Err.Error()
	} else if mres.Err != nil {
		rec.Error = mres.Err.Error()
	}

	b.recordEntry(ctx, rec)
}

func (b *Backfill) beginJournal(ctx context.Context) {
	if b.deps.Recorder == nil {
		return
	}
	window := b.generator.Window()
	id, err := b.deps.Recorder.BeginRun(ctx, journal.Run{
		RepoPath:    b.config.RepoPath,
		Mode:        string(b.generator.Policy().Mode),
		Preset:      b.config.Preset,
		Seed:        b.config.Seed,
		WindowStart: window.Start,
		WindowEnd:   window.End,
		StartedAt:   b.startTime,
	})
	if err != nil {
		b.deps.Logger.Warning("Journal disabled for this run: %v", err)
		b.deps.Recorder = nil
		return
	}
	b.runID = id
}

func (b *Backfill) recordEntry(ctx context.Context, rec journal.Entry) {
	if b.deps.Recorder == nil {
		return
	}
	if err := b.deps.Recorder.RecordEntry(ctx, b.runID, rec); err != nil {
		b.deps.Logger.Warning("Failed to journal entry %d: %v", rec.Seq, err)
	}
}

func (b *Backfill) finishJournal(ctx context.Context) {
	if b.deps.Recorder == nil {
		return
	}
	if err := b.deps.Recorder.FinishRun(ctx, b.runID, b.summary.counts(), b.interrupted); err != nil {
		b.deps.Logger.Warning("Failed to journal run end: %v", err)
	}
}

// Summary returns the counts so far.
func (b *Backfill) Summary() Summary {
	return b.summary
}

// Interrupted reports whether Run stopped before the generator was exhausted.
func (b *Backfill) Interrupted() bool {
	return b.interrupted
}

// RunID returns the journal ID of the run, or 0 without a journal.
func (b *Backfill) RunID() int64 {
	return b.runID
}
