package lock

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	"github.com/bashhack/gitbackfill/internal/errors"
)

// Locker keeps two backfill runs from writing to the same repository.
type Locker struct {
	lockFile string
	lockFd   *os.File
	pid      int
	acquired bool
}

// New creates a Locker for repoPath with its lock file in os.TempDir().
func New(repoPath string) (*Locker, error) {
	return NewInDir(os.TempDir(), repoPath)
}

// NewInDir creates a Locker for repoPath with its lock file in dir.
func NewInDir(dir, repoPath string) (*Locker, error) {
	if runtime.GOOS == "windows" {
		return nil, errors.NewLockError("", 0,
			errors.Wrap(errors.ErrLockAcquisitionFailure,
				"gitbackfill only supports Unix-like operating systems (Linux, macOS, BSD)"))
	}

	return &Locker{
		lockFile: filepath.Join(dir, FileName(repoPath)),
		pid:      os.Getpid(),
	}, nil
}

// FileName returns the lock file name for repoPath: gitbackfill-<hash>.lock,
// where hash is the first 16 hex digits of the path's SHA-256.
func FileName(repoPath string) string {
	repoHash := fmt.Sprintf("%x", sha256.Sum256([]byte(repoPath)))[:16]
	return fmt.Sprintf("gitbackfill-%s.lock", repoHash)
}

// Path returns the lock file location.
func (l *Locker) Path() string {
	return l.lockFile
}

// Held reports whether this Locker currently holds the lock.
func (l *Locker) Held() bool {
	return l.acquired
}

// Acquire takes the lock without blocking. It fails with ErrAlreadyRunning
// when a live process holds it and recovers locks left by dead ones.
func (l *Locker) Acquire() error {
	err := l.tryCreateLock()
	if err == nil {
		return nil
	} else if os.IsExist(err) {
		return l.tryAcquireExistingLock()
	}
	return err
}

func (l *Locker) tryCreateLock() error {
	var err error

	// O_EXCL with O_CREATE ensures the file is created atomically
	l.lockFd, err = os.OpenFile(l.lockFile, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0666)
	if err != nil {
		// os.IsExist must still see the original error
		if os.IsExist(err) {
			return err
		}
		return errors.NewLockError(l.lockFile, 0,
			errors.Wrap(err, "failed to create lock file"))
	}

	if err = l.acquireFlock(); err != nil {
		l.closeFileDescriptor()
		return errors.NewLockError(l.lockFile, 0,
			errors.Wrap(err, "failed to acquire lock on newly created lock file"))
	}

	return l.finishAcquire(l.writePidToLockFile())
}

func (l *Locker) tryAcquireExistingLock() error {
	var err error
	l.lockFd, err = os.OpenFile(l.lockFile, os.O_RDWR, 0666)
	if err != nil {
		return errors.NewLockError(l.lockFile, 0,
			errors.Wrap(err, "failed to open existing lock file"))
	}

	if err = l.acquireFlock(); err != nil {
		l.closeFileDescriptor()

		// Older Unixes report EWOULDBLOCK and EAGAIN as distinct codes.
		if errors.Is(err, syscall.EWOULDBLOCK) || errors.Is(err, syscall.EAGAIN) {
			return l.handleBlockedLock()
		}

		return errors.NewLockError(l.lockFile, 0,
			errors.Wrap(err, "failed to acquire lock"))
	}

	return l.finishAcquire(l.resetAndWritePid())
}

// finishAcquire marks the lock held, or releases it when writing the PID failed.
func (l *Locker) finishAcquire(writeErr error) error {
	if writeErr != nil {
		if releaseErr := l.Release(); releaseErr != nil {
			return errors.Wrap(writeErr, fmt.Sprintf("failed to write PID and failed to release lock: %v", releaseErr))
		}
		return writeErr
	}
	l.acquired = true
	return nil
}

// handleBlockedLock decides between "already running" and a stale lock.
func (l *Locker) handleBlockedLock() error {
	otherPid, pidErr := l.readLockFilePid()
	if pidErr != nil {
		return errors.NewLockError(l.lockFile, 0,
			errors.Wrap(errors.ErrAlreadyRunning, fmt.Sprintf("holder PID unknown: %v", pidErr)))
	}

	if isProcessRunning(otherPid) {
		return errors.NewLockError(l.lockFile, otherPid, errors.ErrAlreadyRunning)
	}

	return l.handleStaleLock(otherPid)
}

func (l *Locker) acquireFlock() error {
	return syscall.Flock(int(l.lockFd.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
}

func (l *Locker) resetAndWritePid() error {
	if err := l.lockFd.Truncate(0); err != nil {
		return errors.NewLockError(l.lockFile, l.pid,
			errors.Wrap(err, "failed to truncate lock file"))
	}
	return l.writePidToLockFile()
}

func (l *Locker) writePidToLockFile() error {
	if _, err := l.lockFd.WriteAt([]byte(strconv.Itoa(l.pid)), 0); err != nil {
		return errors.NewLockError(l.lockFile, l.pid,
			errors.Wrap(err, "failed to write PID to lock file"))
	}
	return nil
}

func (l *Locker) closeFileDescriptor() {
	if l.lockFd != nil {
		_ = l.lockFd.Close()
		l.lockFd = nil
	}
}

// isProcessRunning checks if a process exists using signal 0
func isProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}

// handleStaleLock removes a lock whose holder is gone and takes it over.
func (l *Locker) handleStaleLock(otherPid int) error {
	l.closeFileDescriptor()

	if err := os.Remove(l.lockFile); err != nil {
		return errors.NewLockError(l.lockFile, otherPid,
			errors.Wrap(err, fmt.Sprintf("found stale lock file from PID %d, but failed to remove it", otherPid)))
	}

	var err error
	l.lockFd, err = os.OpenFile(l.lockFile, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0666)
	if err != nil {
		if os.IsExist(err) {
			return errors.NewLockError(l.lockFile, 0,
				errors.Wrap(errors.ErrAlreadyRunning, "another run took the lock right after the stale lock was removed"))
		}
		return errors.NewLockError(l.lockFile, 0,
			errors.Wrap(err, "failed to open lock file after removing stale lock"))
	}

	if err = l.acquireFlock(); err != nil {
		l.closeFileDescriptor()
		return errors.NewLockError(l.lockFile, 0,
			errors.Wrap(err, "failed to acquire lock even after removing stale lock"))
	}

	return l.finishAcquire(l.writePidToLockFile())
}

func (l *Locker) readLockFilePid() (int, error) {
	data, err := os.ReadFile(l.lockFile)
	if err != nil {
		return 0, errors.Wrap(err, "failed to read lock file")
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, errors.Wrap(err, "invalid PID in lock file")
	}
	return pid, nil
}

// Release unlocks and removes the lock file. It is a no-op when the lock
// is not held.
func (l *Locker) Release() error {
	if l.lockFd == nil {
		return nil
	}

	var err error
	if flockErr := syscall.Flock(int(l.lockFd.Fd()), syscall.LOCK_UN); flockErr != nil {
		err = errors.NewLockError(l.lockFile, l.pid,
			errors.Wrap(flockErr, "failed to release lock"))
	}

	// Close and remove even if unlocking failed.
	if closeErr := l.lockFd.Close(); closeErr != nil && err == nil {
		err = errors.NewLockError(l.lockFile, l.pid,
			errors.Wrap(closeErr, "failed to close lock file"))
	}

	l.lockFd = nil
	l.acquired = false

	if removeErr := os.Remove(l.lockFile); removeErr != nil && !os.IsNotExist(removeErr) && err == nil {
		err = errors.NewLockError(l.lockFile, l.pid,
			errors.Wrap(removeErr, "failed to remove lock file"))
	}

	return err
}
