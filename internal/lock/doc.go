// Package lock provides file-based locking for gitbackfill.
//
// Only one backfill run may write to a repository at a time. The lock file
// lives in the system temp directory and is named after a hash of the
// absolute repository path, so runs against different repositories never
// contend. The file holds the owner's PID and an exclusive flock(2).
//
// A lock whose owner has died is detected through the PID and taken over.
// A lock held by a live process fails with errors.ErrAlreadyRunning.
//
// # Usage
//
//	locker, err := lock.New("/path/to/repo")
//	if err != nil {
//	    // Handle error
//	}
//
//	if err := locker.Acquire(); err != nil {
//	    // Often means another run is in progress
//	}
//	defer locker.Release()
package lock
