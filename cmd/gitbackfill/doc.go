// Package main implements gitbackfill, a backdated commit history generator
//
// gitbackfill walks a time window, decides for every day (or week) how many
// commits a plausible developer would have made, edits one file from a
// catalog for each of them and commits it with the scheduled date as both
// author and committer date. The repository ends up with a history that
// looks like it grew over weeks or months.
//
// # Basic Usage
//
//	gitbackfill                          # 120 days of day-cadence history
//	gitbackfill --mode week              # up to 20 weeks, "Week N" messages
//	gitbackfill --window-days 30 --yes   # one month, no confirmation
//	gitbackfill plan --seed 7            # preview a schedule, change nothing
//	gitbackfill --seed 7                 # then create exactly that schedule
//	gitbackfill history                  # runs recorded for this repository
//	gitbackfill history --run 3          # entries of one run
//
// # Configuration Options
//
// Every flag can also be set through a GITBACKFILL_* environment variable
// (dashes become underscores) or a config file:
//
//	--repo, -C          Repository path (env: GITBACKFILL_REPO)
//	--mode, -m          day or week (env: GITBACKFILL_MODE)
//	--window-days       Window length in days (env: GITBACKFILL_WINDOW_DAYS)
//	--end               Last day of the window, YYYY-MM-DD
//	--preset            daily or weekly built-in catalog
//	--catalog           YAML catalog of files and messages
//	--seed              Reproducible schedule
//	--marker            scalar or list marker in JSON/YAML files
//	--fallback-dir      Where fallback update files go
//	--fallback-message  Message of fallback commits
//	--yes, -y           Skip the confirmation prompt
//	--verbose, -v       One line per commit
//	--debug             Write a debug log
//	--journal           Run journal location
//	--no-journal        Do not record the run
//
// # Interruption
//
// The first SIGINT or SIGTERM lets the entry in progress finish, then the
// run stops and the summary is printed. Commits already created stay. A
// second signal exits immediately; the lock file left behind is recovered
// by the next run.
//
// # Preconditions
//
// The target must be the top-level directory of a git work tree (a
// subdirectory of a repository is rejected) whose status can be read. Without a
// terminal on stdin the confirmation prompt is declined, so unattended
// runs need --yes.
package main
