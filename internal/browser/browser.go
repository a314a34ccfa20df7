// File: internal/browser/browser.go
package browser

import (
	"context"
	"time"
)

// Scope is a document the workflow can act on: the top-level page or one of
// its frames. Every method that finds an element by selector queries the
// scope's own document only.
type Scope interface {
	// WaitVisible blocks until an element matching sel is visible or timeout elapses.
	WaitVisible(ctx context.Context, sel string, timeout time.Duration) error
	// Fill replaces the value of the first matching input and fires input and change events.
	Fill(ctx context.Context, sel, value string) error
	// Select picks the option with the given value on the first matching select.
	Select(ctx context.Context, sel, value string) error
	// Click clicks the first matching element.
	Click(ctx context.Context, sel string) error
	// Count returns how many elements currently match sel, without waiting.
	Count(ctx context.Context, sel string) (int, error)
	// ClickNth clicks the n-th (zero-based) matching element.
	ClickNth(ctx context.Context, sel string, n int) error
	// Evaluate runs a script expression in the scope's window.
	Evaluate(ctx context.Context, expr string) error
}

// Frame is a located sub-document. A Frame is only valid until the next
// navigation inside it, so callers look it up again for every step.
type Frame interface {
	Scope
	URL() string
}

// Page is the single tab of a session.
type Page interface {
	Scope
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	// Frames snapshots every frame currently loaded in the page, depth first.
	Frames(ctx context.Context) ([]Frame, error)
}

// Session is one isolated browser process with one tab.
type Session interface {
	ID() string
	Page() Page
	// Close releases the browser. It is safe to call more than once.
	Close() error
}

// Launcher opens new sessions.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}
