// Package git turns scheduled entries into backdated commits.
//
// The package drives the command-line git executable rather than a Go git
// library, so every repository layout and hook git itself supports keeps
// working.
//
// # Core Components
//
// - Driver: stages the working tree and commits one schedule.Entry at a time
// - CommandExecutor: interface for running git commands, mocked in tests
// - UserInteractor: asks for approval of a Confirmation before a run
// - IsRepository: the precondition; the path must be a work tree's top level
//
// # Date Overrides
//
// Each commit runs with GIT_AUTHOR_DATE and GIT_COMMITTER_DATE set to the
// entry's local timestamp in schedule.GitDateLayout. The overrides are
// passed to the child process through exec.Cmd.Env; the environment of the
// calling process is never modified.
//
// # Error Handling
//
// A failed `git add` is reported and the entry is skipped. A failed
// `git commit` gets exactly one retry: the driver writes a filler file,
// stages again and commits with a generic fallback message under the same
// date. If that also fails the entry is lost. Neither case panics or aborts
// the run; the outcome is returned in Result.
//
// # Usage
//
//	fs := afero.NewBasePathFs(afero.NewOsFs(), repoPath)
//	driver, err := git.NewDriver(git.DriverConfig{RepoPath: repoPath}, fs, log, nil)
//	if err != nil {
//	    // Handle error
//	}
//
//	res := driver.Commit(ctx, entry)
//	if !res.Succeeded {
//	    // entry skipped or lost; res.Err says why
//	}
//
// # Concurrency Model
//
// A Driver is not safe for concurrent use. Git itself serializes writers
// through index.lock, and callers take the repository lock from the lock
// package before driving commits.
package git
