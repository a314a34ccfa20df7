// File: internal/provision/discovery.go
package provision

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/access-provisioner/internal/browser"
	"github.com/xkilldash9x/access-provisioner/internal/fault"
)

// Locator finds frames and elements that appear asynchronously after
// navigations and clicks.
type Locator struct {
	logger *zap.Logger
}

// NewLocator returns a Locator that logs misses at warn level.
func NewLocator(logger *zap.Logger) *Locator {
	return &Locator{logger: logger.Named("locator")}
}

// WaitVisible reports whether sel became visible in scope within timeout.
// A miss is logged and reported as false, never as an error, so the caller
// decides whether absence is fatal.
func (l *Locator) WaitVisible(ctx context.Context, scope browser.Scope, sel string, timeout time.Duration) bool {
	if err := scope.WaitVisible(ctx, sel, timeout); err != nil {
		l.logger.Warn("Element did not become visible.",
			zap.String("selector", sel),
			zap.Duration("timeout", timeout),
			zap.Error(err))
		return false
	}
	return true
}

// FindFrame polls the page's live frame set for the first frame whose URL
// contains pattern. It takes exactly attempts snapshots, sleeping interval
// between them, and fails with FrameNotFound when none match.
func (l *Locator) FindFrame(ctx context.Context, page browser.Page, pattern string, attempts int, interval time.Duration) (browser.Frame, error) {
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		frames, err := page.Frames(ctx)
		switch {
		case err != nil && ctx.Err() != nil:
			return nil, fault.Wrap(fault.CriticalError, "find frame", ctx.Err())
		case err != nil:
			// A snapshot taken mid-navigation can fail; that still counts as an attempt.
			l.logger.Warn("Frame snapshot failed.",
				zap.String("pattern", pattern),
				zap.Int("attempt", attempt),
				zap.Error(err))
		default:
			for _, f := range frames {
				if strings.Contains(f.URL(), pattern) {
					l.logger.Debug("Frame found.",
						zap.String("pattern", pattern),
						zap.String("url", f.URL()),
						zap.Int("attempt", attempt))
					return f, nil
				}
			}
		}

		// No sleep after the final snapshot: a miss is reported right away.
		if attempt < attempts {
			if err := sleep(ctx, interval); err != nil {
				return nil, fault.Wrap(fault.CriticalError, "find frame", err)
			}
		}
	}
	return nil, fault.New(fault.FrameNotFound, "find frame", "no frame matching %q after %d attempts", pattern, attempts)
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
