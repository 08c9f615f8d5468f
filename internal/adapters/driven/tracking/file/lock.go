package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/adiirockstar/trial-matthew-schramm/internal/core/ports/driven"
)

// Ensure Lock implements the interface.
var _ driven.RunLock = (*Lock)(nil)

// Lock is an advisory lock on a file beside the tracking file. The OS
// releases it when the holding process exits, so a crash leaves no stale lock.
type Lock struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

// LockPath returns the lock file used with the tracking file at trackingPath.
func LockPath(trackingPath string) string {
	return trackingPath + ".lock"
}

// NewLock creates a lock on path. The file is created on the first TryLock.
func NewLock(path string) *Lock {
	return &Lock{path: path}
}

// TryLock takes the lock if no other holder has it.
func (l *Lock) TryLock() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.f != nil {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return false, fmt.Errorf("creating lock directory: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return false, fmt.Errorf("opening lock file: %w", err)
	}

	held, err := tryLockFile(f)
	if err != nil || !held {
		f.Close()
		if err != nil {
			return false, fmt.Errorf("locking %s: %w", l.path, err)
		}
		return false, nil
	}
	l.f = f
	return true, nil
}

// Unlock releases the lock. Unlocking a lock that is not held is a no-op.
func (l *Lock) Unlock() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.f == nil {
		return nil
	}
	err := errors.Join(unlockFile(l.f), l.f.Close())
	l.f = nil
	if err != nil {
		return fmt.Errorf("unlocking %s: %w", l.path, err)
	}
	return nil
}
