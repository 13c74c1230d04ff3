// Package gitbackfill generates a plausible, backdated commit history
//
// gitbackfill fills an existing git repository with commits spread over a
// past time window. For every day (or week) of the window it decides how
// many commits a working developer would have made, picks a file from a
// catalog for each one, makes a small recognizable edit and commits it
// with the scheduled timestamp as both author and committer date.
//
// # Quick Start
//
//	# Navigate to a Git repository
//	cd /path/to/your/repo
//
//	# Preview 120 days of history without touching anything
//	gitbackfill plan --seed 7
//
//	# Create exactly that history
//	gitbackfill --seed 7
//
// # Key Features
//
//   - Realistic cadence: weekday and weekend rates, idle days and spread-out working hours
//   - Day and week modes: per-day commits or numbered weekly milestones
//   - Catalogs: built-in presets or a YAML catalog of files and messages
//   - Reproducible: a seed fixes the schedule, files and messages
//   - Degrades gracefully: failed commits fall back to a dated update file
//   - Journal: every run and entry is recorded for later inspection
//
// # Module Structure
//
// The module is organized into these packages:
//
//   - cmd/gitbackfill: Command-line interface (run, plan, history, version)
//   - internal/schedule: Cadence policies and the commit schedule generator
//   - internal/catalog: File catalogs and built-in presets
//   - internal/mutate: File edits per file kind, with fallback artifacts
//   - internal/git: Backdated staging and committing through the git CLI
//   - internal/backfill: Orchestration of a run and its summary
//   - internal/journal: SQLite record of runs and entries
//   - internal/config: Flags, environment and config file layering
//   - internal/lock: Per-repository run lock
//   - internal/logger: User output and debug logging
//   - internal/errors: Error kinds and wrapping helpers
//   - internal/constants: Banner, defaults and fixed values
//
// # After a Run
//
//	# Inspect the generated history
//	git log --oneline --graph
//
//	# See what was recorded
//	gitbackfill history
//
//	# Publish it
//	git push origin main
//
// # Implementation Notes
//
// gitbackfill uses the command-line Git executable rather than a Go Git
// library. Dates are passed through GIT_AUTHOR_DATE and GIT_COMMITTER_DATE
// on each commit, so no configuration of the repository is changed.
// Commands are executed through an abstracted interface that can be
// replaced for testing.
//
// The first SIGINT or SIGTERM stops the run after the current entry and
// still prints the summary.
package gitbackfill
