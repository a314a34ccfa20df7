// File: internal/browser/browserfake/fake.go

// Package browserfake provides scriptable in-memory implementations of the
// browser interfaces for tests.
package browserfake

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/xkilldash9x/access-provisioner/internal/browser"
)

// Call records one operation made against a Document.
type Call struct {
	Op       string
	Selector string
	Value    string
	Index    int
	Timeout  time.Duration
}

// ErrNotVisible is returned by WaitVisible for selectors not marked visible.
var ErrNotVisible = errors.New("element not visible")

// Document is a fake Scope. Selectors are visible only when listed in Visible;
// Fail injects an error for a given "op selector" key, e.g. "click #enviar".
type Document struct {
	mu      sync.Mutex
	visible map[string]bool
	counts  map[string]int
	values  map[string]string
	fail    map[string]error
	hooks   map[string]func()
	calls   []Call
}

// NewDocument returns a document where each selector in visible can be found.
func NewDocument(visible ...string) *Document {
	d := &Document{
		visible: map[string]bool{},
		counts:  map[string]int{},
		values:  map[string]string{},
		fail:    map[string]error{},
		hooks:   map[string]func(){},
	}
	d.Show(visible...)
	return d
}

// Show marks selectors visible with a match count of one unless already set.
func (d *Document) Show(sels ...string) *Document {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range sels {
		d.visible[s] = true
		if d.counts[s] == 0 {
			d.counts[s] = 1
		}
	}
	return d
}

// Hide removes selectors.
func (d *Document) Hide(sels ...string) *Document {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range sels {
		delete(d.visible, s)
		delete(d.counts, s)
	}
	return d
}

// SetCount sets how many elements match sel and marks it visible.
func (d *Document) SetCount(sel string, n int) *Document {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.counts[sel] = n
	d.visible[sel] = n > 0
	return d
}

// Fail makes the operation op ("fill", "select", "click", "clicknth",
// "evaluate", "count", "wait") on target return err.
func (d *Document) Fail(op, target string, err error) *Document {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fail[op+" "+target] = err
	return d
}

// OnClick runs fn after a successful click on sel.
func (d *Document) OnClick(sel string, fn func()) *Document {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hooks[sel] = fn
	return d
}

// Calls returns a copy of every call made so far.
func (d *Document) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.calls...)
}

// Ops returns the calls as "op selector" strings, in order.
func (d *Document) Ops() []string {
	var out []string
	for _, c := range d.Calls() {
		if c.Selector == "" {
			out = append(out, c.Op)
			continue
		}
		out = append(out, c.Op+" "+c.Selector)
	}
	return out
}

// Value returns the last value filled or selected into sel.
func (d *Document) Value(sel string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.values[sel]
	return v, ok
}

func (d *Document) record(c Call) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, c)
	if err := d.fail[c.Op+" "+c.Selector]; err != nil {
		return err
	}
	return nil
}

func (d *Document) present(sel string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.visible[sel]
}

func (d *Document) WaitVisible(ctx context.Context, sel string, timeout time.Duration) error {
	if err := d.record(Call{Op: "wait", Selector: sel, Timeout: timeout}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if !d.present(sel) {
		return fmt.Errorf("wait for '%s': %w", sel, ErrNotVisible)
	}
	return nil
}

func (d *Document) set(ctx context.Context, op, sel, value string) error {
	if err := d.record(Call{Op: op, Selector: sel, Value: value}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if !d.present(sel) {
		return fmt.Errorf("%s '%s': no element matches", op, sel)
	}
	d.mu.Lock()
	d.values[sel] = value
	d.mu.Unlock()
	return nil
}

func (d *Document) Fill(ctx context.Context, sel, value string) error {
	return d.set(ctx, "fill", sel, value)
}

func (d *Document) Select(ctx context.Context, sel, value string) error {
	return d.set(ctx, "select", sel, value)
}

func (d *Document) Click(ctx context.Context, sel string) error {
	if err := d.record(Call{Op: "click", Selector: sel}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if !d.present(sel) {
		return fmt.Errorf("click '%s': no element matches", sel)
	}
	d.runHook(sel)
	return nil
}

func (d *Document) runHook(sel string) {
	d.mu.Lock()
	fn := d.hooks[sel]
	d.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (d *Document) Count(ctx context.Context, sel string) (int, error) {
	if err := d.record(Call{Op: "count", Selector: sel}); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.counts[sel], nil
}

func (d *Document) ClickNth(ctx context.Context, sel string, n int) error {
	if err := d.record(Call{Op: "clicknth", Selector: sel, Index: n}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	count := d.counts[sel]
	d.mu.Unlock()
	if n < 0 || n >= count {
		return fmt.Errorf("clicknth '%s': index %d out of range (%d)", sel, n, count)
	}
	return nil
}

func (d *Document) Evaluate(ctx context.Context, expr string) error {
	if err := d.record(Call{Op: "evaluate", Selector: expr}); err != nil {
		return err
	}
	return ctx.Err()
}

// Frame is a fake frame: a Document with an address.
type Frame struct {
	*Document
	Addr string
}

var _ browser.Frame = (*Frame)(nil)

// NewFrame returns a frame at url with the given selectors visible.
func NewFrame(url string, visible ...string) *Frame {
	return &Frame{Document: NewDocument(visible...), Addr: url}
}

func (f *Frame) URL() string { return f.Addr }

// Page is a fake page. FramesFunc, when set, decides each snapshot; attempt
// counts from 1. Otherwise the frames added with SetFrames are returned.
type Page struct {
	*Document

	FramesFunc  func(attempt int) ([]browser.Frame, error)
	NavigateErr error

	mu        sync.Mutex
	frames    []browser.Frame
	snapshots int
	navigated []string
}

var _ browser.Page = (*Page)(nil)

// NewPage returns an empty page.
func NewPage() *Page {
	return &Page{Document: NewDocument()}
}

// SetFrames replaces the frames returned by the next snapshot.
func (p *Page) SetFrames(frames ...browser.Frame) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = frames
}

// AddFrame appends a frame to the current set.
func (p *Page) AddFrame(f browser.Frame) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = append(p.frames, f)
}

// Snapshots reports how many times Frames was called.
func (p *Page) Snapshots() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshots
}

// Navigated returns the URLs passed to Navigate.
func (p *Page) Navigated() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.navigated...)
}

func (p *Page) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	p.mu.Lock()
	p.navigated = append(p.navigated, url)
	p.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.NavigateErr
}

func (p *Page) Frames(ctx context.Context) ([]browser.Frame, error) {
	p.mu.Lock()
	p.snapshots++
	attempt := p.snapshots
	fn := p.FramesFunc
	frames := append([]browser.Frame(nil), p.frames...)
	p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fn != nil {
		return fn(attempt)
	}
	return frames, nil
}

// Session is a fake session around a Page.
type Session struct {
	id   string
	page *Page

	mu     sync.Mutex
	closes int
}

var _ browser.Session = (*Session)(nil)

// NewSession returns a session serving page.
func NewSession(id string, page *Page) *Session {
	return &Session{id: id, page: page}
}

func (s *Session) ID() string { return s.id }

func (s *Session) Page() browser.Page { return s.page }

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

// Closed reports whether Close was called at least once.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes > 0
}

// Launcher hands out sessions built by Build, numbered from 1.
type Launcher struct {
	Build func(n int) (*Session, error)

	mu       sync.Mutex
	launches int
	sessions []*Session
}

var _ browser.Launcher = (*Launcher)(nil)

func (l *Launcher) Launch(ctx context.Context) (browser.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.launches++
	n := l.launches
	l.mu.Unlock()

	s, err := l.Build(n)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.sessions = append(l.sessions, s)
	l.mu.Unlock()
	return s, nil
}

// Sessions returns every session launched so far.
func (l *Launcher) Sessions() []*Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Session(nil), l.sessions...)
}
