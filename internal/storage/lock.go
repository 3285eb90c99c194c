package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrLocked is returned when another process holds the state lock.
var ErrLocked = errors.New("state is locked by another btt process")

// errWouldBlock is returned by tryLock when the lock is held elsewhere.
var errWouldBlock = errors.New("lock would block")

const lockRetryInterval = 50 * time.Millisecond

// LockPath returns the lock file guarding the state under base.
func LockPath(base string) string {
	return filepath.Join(base, "btt.lock")
}

// Lock is an exclusive advisory lock on a file, held across processes.
type Lock struct {
	f *os.File
}

// AcquireLock takes the lock at path, retrying until ctx is done. The lock
// file is left in place on release; deleting it would let a waiter lock an
// unlinked file while a newcomer locks its replacement.
func AcquireLock(ctx context.Context, path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("storage error creating directories: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	ticker := time.NewTicker(lockRetryInterval)
	defer ticker.Stop()
	for {
		err := tryLock(f)
		if err == nil {
			return &Lock{f: f}, nil
		}
		if !errors.Is(err, errWouldBlock) {
			f.Close()
			return nil, fmt.Errorf("failed to acquire file lock: %w", err)
		}
		select {
		case <-ctx.Done():
			f.Close()
			return nil, fmt.Errorf("%w (%s)", ErrLocked, path)
		case <-ticker.C:
		}
	}
}

// Release drops the lock. Calling it more than once is safe.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := unlock(l.f)
	err = errors.Join(err, l.f.Close())
	l.f = nil
	return err
}
