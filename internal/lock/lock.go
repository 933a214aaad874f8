// Package lock serializes provisioning runs with an advisory file lock.
package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileName is the lock file created in the data directory.
const FileName = "shimsync.lock"

var (
	lockPollEvery = 100 * time.Millisecond
	lockSleep     = time.Sleep
)

// Lock is a held advisory lock.
type Lock struct {
	file *os.File
}

// Acquire opens or creates path and takes an exclusive lock on it, polling
// until wait elapses if another process holds it.
func Acquire(path string, wait time.Duration) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file %s: %w", path, err)
	}

	deadline := time.Now().Add(wait)
	for {
		held, err := tryLock(file)
		if err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("failed to lock %s: %w", path, err)
		}
		if held {
			return &Lock{file: file}, nil
		}
		if !time.Now().Before(deadline) {
			_ = file.Close()
			return nil, fmt.Errorf("another shimsync run holds %s (waited %s)", path, wait)
		}
		lockSleep(lockPollEvery)
	}
}

// Release unlocks and closes the lock file.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	if err := unlock(l.file); err != nil {
		_ = l.file.Close()
		return err
	}
	err := l.file.Close()
	l.file = nil
	return err
}
