// File: internal/runlock/runlock.go
package runlock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// ErrLocked means another process holds the lock.
var ErrLocked = errors.New("another provisioning run holds the lock")

const defaultRetryInterval = 100 * time.Millisecond

// Lock is an exclusive, cross-process lock on a file.
type Lock struct {
	path string
	fl   *flock.Flock
}

// New returns an unacquired lock on path.
func New(path string) *Lock {
	return &Lock{path: path, fl: flock.New(path)}
}

// Path is the lock file location.
func (l *Lock) Path() string { return l.path }

// Acquire waits up to wait for the lock. A zero wait tries once. ErrLocked
// is returned when the lock stays held.
func (l *Lock) Acquire(ctx context.Context, wait time.Duration) error {
	if dir := filepath.Dir(l.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create lock directory %s: %w", dir, err)
		}
	}

	if wait <= 0 {
		ok, err := l.fl.TryLock()
		if err != nil {
			return fmt.Errorf("failed to lock %s: %w", l.path, err)
		}
		if !ok {
			return ErrLocked
		}
		return nil
	}

	lockCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	ok, err := l.fl.TryLockContext(lockCtx, defaultRetryInterval)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("failed to lock %s: %w", l.path, err)
	}
	if !ok {
		return ErrLocked
	}
	return nil
}

// Release unlocks. It is safe to call when the lock is not held.
func (l *Lock) Release() error {
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("failed to unlock %s: %w", l.path, err)
	}
	return nil
}
