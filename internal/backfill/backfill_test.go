package backfill

import (
	"bytes"
	"context"
	"math/rand/v2"
	"strconv"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bashhack/gitbackfill/internal/catalog"
	"github.com/bashhack/gitbackfill/internal/errors"
	"github.com/bashhack/gitbackfill/internal/git"
	"github.com/bashhack/gitbackfill/internal/journal"
	"github.com/bashhack/gitbackfill/internal/logger"
	"github.com/bashhack/gitbackfill/internal/mutate"
	"github.com/bashhack/gitbackfill/internal/schedule"
)

type mockMutator struct {
	notes  []mutate.Note
	result func(seq int) mutate.Result
}

func (m *mockMutator) Apply(file catalog.File, note mutate.Note) mutate.Result {
	m.notes = append(m.notes, note)
	if m.result != nil {
		return m.result(len(m.notes))
	}
	return mutate.Result{Path: file.Path}
}

type mockCommitter struct {
	commits  []schedule.Entry
	ctxErrs  []error
	result   func(e schedule.Entry) git.Result
	onCommit func(n int)
	log      string
}

func (m *mockCommitter) Commit(ctx context.Context, e schedule.Entry) git.Result {
	m.commits = append(m.commits, e)
	if m.onCommit != nil {
		m.onCommit(len(m.commits))
	}
	m.ctxErrs = append(m.ctxErrs, ctx.Err())
	if m.result != nil {
		return m.result(e)
	}
	return git.Result{Succeeded: true, Staged: true, Message: e.Message}
}

func (m *mockCommitter) CurrentBranch(context.Context) (string, error) {
	return "main", nil
}

func (m *mockCommitter) RecentLog(context.Context, int) (string, error) {
	return m.log, nil
}

type mockRecorder struct {
	run         journal.Run
	entries     []journal.Entry
	counts      journal.Counts
	interrupted bool
	finished    bool
	beginErr    error
}

func (m *mockRecorder) BeginRun(_ context.Context, run journal.Run) (int64, error) {
	m.run = run
	if m.beginErr != nil {
		return 0, m.beginErr
	}
	return 7, nil
}

func (m *mockRecorder) RecordEntry(_ context.Context, runID int64, e journal.Entry) error {
	if runID != 7 {
		return errors.New("unexpected run id")
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockRecorder) FinishRun(_ context.Context, _ int64, counts journal.Counts, interrupted bool) error {
	m.counts = counts
	m.interrupted = interrupted
	m.finished = true
	return nil
}

func testGenerator(t *testing.T, seed uint64) *schedule.Generator {
	t.Helper()
	cat, err := catalog.New(
		[]string{"src/App.tsx", "src/data/config.json", "docs/README.md"},
		[]string{"feat: one", "fix: two"},
	)
	require.NoError(t, err)
	policy := schedule.DefaultDayPolicy()
	policy.WindowDays = 14
	end := time.Date(2024, time.February, 1, 12, 0, 0, 0, time.Local)
	g, err := schedule.NewGenerator(policy, schedule.WindowEndingAt(end, policy.WindowDays), cat,
		rand.New(rand.NewPCG(seed, seed+1)))
	require.NoError(t, err)
	return g
}

// plannedCount returns how many entries a fresh generator with the same seed yields.
func plannedCount(t *testing.T, seed uint64) int {
	return len(testGenerator(t, seed).Collect())
}

type harness struct {
	backfill  *Backfill
	mutator   *mockMutator
	committer *mockCommitter
	recorder  *mockRecorder
	fs        afero.Fs
	stdout    *bytes.Buffer
}

func newHarness(t *testing.T, seed uint64) *harness {
	t.Helper()
	h := &harness{
		mutator:   &mockMutator{},
		committer: &mockCommitter{},
		recorder:  &mockRecorder{},
		fs:        afero.NewMemMapFs(),
		stdout:    &bytes.Buffer{},
	}
	gen := testGenerator(t, seed)
	cat, err := catalog.New([]string{"src/App.tsx", "src/data/config.json", "docs/README.md"}, []string{"x"})
	require.NoError(t, err)

	b, err := New(Config{RepoPath: "/repo", Preset: "custom", Seed: 3}, gen, Deps{
		FS:        h.fs,
		Catalog:   cat,
		Mutator:   h.mutator,
		Committer: h.committer,
		Recorder:  h.recorder,
		Logger:    logger.NewWithOutput(false, "", false, h.stdout, &bytes.Buffer{}),
	})
	require.NoError(t, err)
	h.backfill = b
	return h
}

func TestNewRequiresCollaborators(t *testing.T) {
	gen := testGenerator(t, 1)
	log := logger.NewWithOutput(false, "", false, &bytes.Buffer{}, &bytes.Buffer{})

	tests := map[string]struct {
		gen  *schedule.Generator
		deps Deps
	}{
		"no generator": {deps: Deps{Mutator: &mockMutator{}, Committer: &mockCommitter{}, Logger: log}},
		"no mutator":   {gen: gen, deps: Deps{Committer: &mockCommitter{}, Logger: log}},
		"no committer": {gen: gen, deps: Deps{Mutator: &mockMutator{}, Logger: log}},
		"no logger":    {gen: gen, deps: Deps{Mutator: &mockMutator{}, Committer: &mockCommitter{}}},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := New(Config{}, tc.gen, tc.deps)
			assert.ErrorIs(t, err, errors.ErrInvalidConfiguration)
		})
	}
}

func TestRunCommitsEveryEntry(t *testing.T) {
	h := newHarness(t, 11)
	want := plannedCount(t, 11)
	require.Positive(t, want)

	require.NoError(t, h.backfill.Run(context.Background()))

	s := h.backfill.Summary()
	assert.Equal(t, want, s.Requested)
	assert.Equal(t, want, s.Committed)
	assert.Zero(t, s.Fallbacks+s.Skipped+s.Lost)
	assert.False(t, h.backfill.Interrupted())
	assert.Equal(t, int64(7), h.backfill.RunID())

	// Each entry is mutated with its own timestamp before it is committed.
	require.Len(t, h.mutator.notes, want)
	require.Len(t, h.committer.commits, want)
	for i, c := range h.committer.commits {
		assert.True(t, c.Timestamp.Equal(h.mutator.notes[i].Timestamp))
		assert.Equal(t, i+1, c.Seq)
	}

	assert.Equal(t, "/repo", h.recorder.run.RepoPath)
	assert.Equal(t, "day", h.recorder.run.Mode)
	assert.Equal(t, int64(3), h.recorder.run.Seed)
	assert.True(t, h.recorder.finished)
	assert.False(t, h.recorder.interrupted)
	assert.Equal(t, want, h.recorder.counts.Committed)
	require.Len(t, h.recorder.entries, want)
	for _, e := range h.recorder.entries {
		assert.Equal(t, journal.OutcomeCommitted, e.Outcome)
	}

	for _, dir := range []string{"src", "src/data", "docs"} {
		ok, err := afero.DirExists(h.fs, dir)
		require.NoError(t, err)
		assert.True(t, ok, "%s created", dir)
	}
}

func TestRunClassifiesOutcomes(t *testing.T) {
	h := newHarness(t, 5)
	want := plannedCount(t, 5)
	require.GreaterOrEqual(t, want, 4, "seed must plan at least four entries")

	failure := errors.New("commit failed")
	h.committer.result = func(e schedule.Entry) git.Result {
		switch e.Seq {
		case 1:
			return git.Result{Succeeded: true, Fallback: true, Staged: true, Message: "Development update", Err: failure}
		case 2:
			return git.Result{Err: errors.New("add failed")}
		case 3:
			return git.Result{Staged: true, Err: failure}
		}
		return git.Result{Succeeded: true, Staged: true, Message: e.Message}
	}
	h.mutator.result = func(n int) mutate.Result {
		if n == 4 {
			return mutate.Result{Path: "updates/update_4.txt", Fallback: true, Err: errors.New("bad json")}
		}
		return mutate.Result{}
	}

	require.NoError(t, h.backfill.Run(context.Background()))

	s := h.backfill.Summary()
	assert.Equal(t, want, s.Requested)
	assert.Equal(t, want-2, s.Committed)
	assert.Equal(t, 1, s.Fallbacks)
	assert.Equal(t, 1, s.Skipped)
	assert.Equal(t, 1, s.Lost)
	assert.Equal(t, 1, s.MutationFallbacks)
	assert.Equal(t, s.Requested, s.Committed+s.Skipped+s.Lost)

	outcomes := map[int]journal.Outcome{}
	for _, e := range h.recorder.entries {
		outcomes[e.Seq] = e.Outcome
	}
	assert.Equal(t, journal.OutcomeFallback, outcomes[1])
	assert.Equal(t, journal.OutcomeSkipped, outcomes[2])
	assert.Equal(t, journal.OutcomeLost, outcomes[3])
	assert.Equal(t, journal.OutcomeCommitted, outcomes[4])

	fourth := h.recorder.entries[3]
	assert.True(t, fourth.MutationFallback)
	assert.Equal(t, "updates/update_4.txt", fourth.Path)
	assert.Equal(t, "bad json", fourth.Error)
	assert.Equal(t, "Development update", h.recorder.entries[0].Message)
}

func TestRunStopsBetweenEntriesOnCancel(t *testing.T) {
	h := newHarness(t, 11)
	require.Greater(t, plannedCount(t, 11), 2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.committer.onCommit = func(n int) {
		if n == 2 {
			cancel()
		}
	}

	require.NoError(t, h.backfill.Run(ctx))

	// The entry in flight when cancel arrived still completes.
	require.Len(t, h.committer.commits, 2)
	for _, err := range h.committer.ctxErrs {
		assert.NoError(t, err)
	}
	assert.True(t, h.backfill.Interrupted())
	assert.Equal(t, 2, h.backfill.Summary().Committed)
	assert.True(t, h.recorder.finished)
	assert.True(t, h.recorder.interrupted)
	assert.Equal(t, 2, h.recorder.counts.Requested)
}

func TestRunWithoutJournal(t *testing.T) {
	h := newHarness(t, 2)
	h.backfill.deps.Recorder = nil
	require.NoError(t, h.backfill.Run(context.Background()))
	assert.Zero(t, h.backfill.RunID())
	assert.Empty(t, h.recorder.entries)
}

func TestRunDisablesJournalWhenBeginFails(t *testing.T) {
	h := newHarness(t, 2)
	h.recorder.beginErr = errors.New("disk full")
	require.NoError(t, h.backfill.Run(context.Background()))
	assert.Empty(t, h.recorder.entries)
	assert.False(t, h.recorder.finished)
	assert.Positive(t, h.backfill.Summary().Committed)
}

func TestPrintSummary(t *testing.T) {
	h := newHarness(t, 5)
	h.committer.log = "* abc123 (HEAD -> main) feat: one"
	h.committer.result = func(e schedule.Entry) git.Result {
		if e.Seq == 1 {
			return git.Result{Staged: true, Err: errors.New("boom")}
		}
		return git.Result{Succeeded: true, Staged: true, Message: e.Message}
	}
	require.NoError(t, h.backfill.Run(context.Background()))
	h.stdout.Reset()

	h.backfill.PrintSummary()
	out := h.stdout.String()

	s := h.backfill.Summary()
	assert.Contains(t, out, "Commits created: "+strconv.Itoa(s.Committed)+" of "+strconv.Itoa(s.Requested)+" requested")
	assert.Contains(t, out, "Lost (commit and fallback failed): 1")
	assert.Contains(t, out, "Branch: main")
	assert.Contains(t, out, "git push origin main")
	assert.Contains(t, out, "abc123")
	assert.NotContains(t, out, "Skipped")
}

func TestRenderPlan(t *testing.T) {
	gen := testGenerator(t, 9)
	entries := gen.Collect()
	require.NotEmpty(t, entries)

	var buf bytes.Buffer
	require.NoError(t, RenderPlan(&buf, gen.Window(), entries))
	out := buf.String()

	assert.Contains(t, out, "Plan: "+strconv.Itoa(len(entries))+" commits")
	for _, e := range entries {
		assert.Contains(t, out, e.Timestamp.Format(mutate.MinuteLayout))
		assert.Contains(t, out, e.Message)
	}

	buf.Reset()
	require.NoError(t, RenderPlan(&buf, gen.Window(), nil))
	assert.Contains(t, buf.String(), "Nothing scheduled.")
}
