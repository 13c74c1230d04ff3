package backfill

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/bashhack/gitbackfill/internal/mutate"
	"github.com/bashhack/gitbackfill/internal/schedule"
)

const rule = "---------------------------------------------"

// PrintSummary reports the run to the user: window, unit and commit
// counts, failures, the branch, and the last commits as a graph.
func (b *Backfill) PrintSummary() {
	log := b.deps.Logger
	s := b.summary
	window := b.generator.Window()
	units := b.generator.UnitsProcessed()
	unitName := "days"
	if b.generator.Policy().Mode == schedule.ModeWeek {
		unitName = "weeks"
	}

	log.StatusMessage("")
	log.StatusMessage(rule)
	log.StatusMessage("📊 gitbackfill Summary")
	log.StatusMessage(rule)
	log.StatusMessage("📅 Window: %s to %s", window.Start.Format(mutate.DayLayout), window.End.Format(mutate.DayLayout))
	log.StatusMessage("🗓️  %s processed: %d (about %d expected)", unitName, units, b.generator.EstimatedUnits())
	log.StatusMessage("✅ Commits created: %d of %d requested", s.Committed, s.Requested)
	if units > 0 {
		log.StatusMessage("📈 Average per %s: %.1f", unitName[:len(unitName)-1], float64(s.Committed)/float64(units))
	}
	if s.Fallbacks > 0 {
		log.StatusMessage("↩️  Fallback commits: %d", s.Fallbacks)
	}
	if s.MutationFallbacks > 0 {
		log.StatusMessage("📝 Fallback files: %d", s.MutationFallbacks)
	}
	if s.Skipped > 0 {
		log.StatusMessage("⏭️  Skipped (staging failed): %d", s.Skipped)
	}
	if s.Lost > 0 {
		log.StatusMessage("❌ Lost (commit and fallback failed): %d", s.Lost)
	}
	if b.interrupted {
		log.StatusMessage("🛑 Interrupted before the end of the window")
	}
	log.StatusMessage("⏱️  Duration: %s", time.Since(b.startTime).Round(time.Second))

	branch := b.branch
	if branch == "" {
		branch = "unknown"
	}
	log.StatusMessage("🌿 Branch: %s", branch)
	log.StatusMessage("")
	log.StatusMessage("To review the new history:")
	log.StatusMessage("  git log --oneline --graph")
	log.StatusMessage("To publish it:")
	log.StatusMessage("  git push origin %s", branch)

	b.showBranchVisualization()
	log.StatusMessage(rule)
}

func (b *Backfill) showBranchVisualization() {
	output, err := b.deps.Committer.RecentLog(context.Background(), 10)
	if err == nil && output != "" {
		b.deps.Logger.StatusMessage("")
		b.deps.Logger.StatusMessage("🔍 Recent history (last 10 commits):")
		b.deps.Logger.StatusMessage(rule)
		b.deps.Logger.StatusMessage("%s", output)
	}
}

// RenderPlan writes entries as a table, for dry runs. Nothing is modified.
func RenderPlan(w io.Writer, window schedule.Window, entries []schedule.Entry) error {
	r := lipgloss.NewRenderer(w)
	header := r.NewStyle().
		Bold(true).
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1)
	cell := r.NewStyle().Padding(0, 1)

	title := fmt.Sprintf("Plan: %d commits from %s to %s", len(entries),
		window.Start.Format(mutate.DayLayout), window.End.Format(mutate.DayLayout))
	if _, err := fmt.Fprintln(w, header.Render(title)); err != nil {
		return err
	}
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "Nothing scheduled.")
		return err
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "Date", "File", "Message").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return cell.Bold(true)
			}
			return cell
		})
	for _, e := range entries {
		t.Row(fmt.Sprint(e.Seq), e.Timestamp.Format(mutate.MinuteLayout), e.File.Path, e.Message)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}
