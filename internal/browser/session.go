// File: internal/browser/session.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/access-provisioner/internal/config"
)

// ChromeLauncher starts a fresh browser process for every session so that no
// cookies or storage survive from one record to the next.
type ChromeLauncher struct {
	cfg            config.BrowserConfig
	logger         *zap.Logger
	startupTimeout time.Duration
	actionTimeout  time.Duration
}

var _ Launcher = (*ChromeLauncher)(nil)

// NewChromeLauncher returns a launcher for the given browser configuration.
// actionTimeout bounds every fill, select, click and script call.
func NewChromeLauncher(cfg config.BrowserConfig, actionTimeout time.Duration, logger *zap.Logger) *ChromeLauncher {
	return &ChromeLauncher{
		cfg:            cfg,
		logger:         logger.Named("browser"),
		startupTimeout: 30 * time.Second,
		actionTimeout:  actionTimeout,
	}
}

// Launch starts the browser and opens its first tab. The process is bound to
// ctx: canceling ctx kills it.
func (l *ChromeLauncher) Launch(ctx context.Context) (Session, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, AllocatorOptions(l.cfg)...)

	sessionID := uuid.New().String()
	logger := l.logger.With(zap.String("session_id", sessionID))
	sugar := logger.Sugar()
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Debugf),
	)

	s := &ChromeSession{
		id:            sessionID,
		ctx:           tabCtx,
		tabCancel:     tabCancel,
		allocCancel:   allocCancel,
		actionTimeout: l.actionTimeout,
		logger:        logger,
	}

	// The first Run on a fresh context is what actually execs the browser and
	// attaches the target. It must be given tabCtx itself: chromedp ties the
	// process lifetime to the context of that first Run, so starting it with a
	// derived, shorter lived context (say one with a timeout) would kill the
	// browser as soon as that context ended. Every later call goes through
	// operation, which layers deadlines on top without touching the process.
	if err := chromedp.Run(tabCtx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("browser failed to start: %w", err)
	}
	if err := s.ping(ctx, l.startupTimeout); err != nil {
		_ = s.Close()
		return nil, err
	}

	logger.Debug("Browser session started.")
	return s, nil
}

// ChromeSession is a Session backed by one chromedp allocator and tab.
type ChromeSession struct {
	id            string
	ctx           context.Context
	tabCancel     context.CancelFunc
	allocCancel   context.CancelFunc
	actionTimeout time.Duration
	logger        *zap.Logger

	mu       sync.Mutex
	isClosed bool
}

var _ Session = (*ChromeSession)(nil)

func (s *ChromeSession) ID() string { return s.id }

func (s *ChromeSession) Page() Page {
	return &chromePage{scope: scope{session: s}}
}

// Close asks the browser to exit, then releases the allocator.
func (s *ChromeSession) Close() error {
	s.mu.Lock()
	if s.isClosed {
		s.mu.Unlock()
		return nil
	}
	s.isClosed = true
	s.mu.Unlock()

	var err error
	if cerr := chromedp.Cancel(s.ctx); cerr != nil && !errors.Is(cerr, context.Canceled) {
		err = fmt.Errorf("failed to close browser: %w", cerr)
	}
	s.tabCancel()
	s.allocCancel()
	s.logger.Debug("Browser session closed.")
	return err
}

// ping checks the tab responds before the session is handed out.
func (s *ChromeSession) ping(ctx context.Context, timeout time.Duration) error {
	opCtx, cancel := s.operation(ctx, timeout)
	defer cancel()
	if err := chromedp.Run(opCtx, chromedp.Navigate("about:blank")); err != nil {
		return fmt.Errorf("browser failed to respond: %w", err)
	}
	return nil
}

// operation returns a context carrying the tab's chromedp values that ends
// when the caller's ctx ends, the session closes, or timeout elapses.
func (s *ChromeSession) operation(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	opCtx, cancel := CombineContext(s.ctx, ctx)
	if timeout <= 0 {
		return opCtx, cancel
	}
	opCtx, cancelTimeout := context.WithTimeout(opCtx, timeout)
	return opCtx, func() {
		cancelTimeout()
		cancel()
	}
}
