package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/bashhack/gitbackfill/internal/journal"
	"github.com/bashhack/gitbackfill/internal/mutate"
)

// runStatus labels a run. A run with no finish time was killed before it
// could record its summary; the next run in the same repository closes it.
func runStatus(r journal.Run) string {
	switch {
	case r.FinishedAt.IsZero():
		return "interrupted (no summary)"
	case r.Interrupted:
		return "interrupted"
	case r.Lost > 0 || r.Skipped > 0:
		return "partial"
	default:
		return "complete"
	}
}

// renderRuns writes one table row per run, newest first.
func renderRuns(w io.Writer, runs []journal.Run) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No recorded runs.")
		return err
	}

	r := lipgloss.NewRenderer(w)
	cell := r.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("Run", "Started", "Repository", "Mode", "Window", "Commits", "Fallbacks", "Lost", "Seed", "Status").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return cell.Bold(true)
			}
			return cell
		})

	for _, run := range runs {
		t.Row(
			fmt.Sprint(run.ID),
			run.StartedAt.Format(mutate.MinuteLayout),
			run.RepoPath,
			run.Mode,
			run.WindowStart.Format(mutate.DayLayout)+" to "+run.WindowEnd.Format(mutate.DayLayout),
			fmt.Sprintf("%d/%d", run.Committed, run.Requested),
			fmt.Sprint(run.Fallbacks+run.MutationFallbacks),
			fmt.Sprint(run.Lost),
			fmt.Sprint(run.Seed),
			runStatus(run),
		)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// renderEntries writes the recorded entries of one run in schedule order.
func renderEntries(w io.Writer, runID int64, entries []journal.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintf(w, "No entries recorded for run %d.\n", runID)
		return err
	}

	r := lipgloss.NewRenderer(w)
	cell := r.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "Date", "File", "Message", "Outcome", "Error").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return cell.Bold(true)
			}
			return cell
		})

	for _, e := range entries {
		outcome := string(e.Outcome)
		if e.MutationFallback {
			outcome += " (fallback file)"
		}
		t.Row(fmt.Sprint(e.Seq), e.Timestamp.Format(mutate.MinuteLayout), e.Path, e.Message, outcome, e.Error)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}
