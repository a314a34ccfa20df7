// File: internal/browser/scope.go
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

const (
	fillJS = `function(v) {
	this.focus();
	this.value = v;
	this.dispatchEvent(new Event('input', {bubbles: true}));
	this.dispatchEvent(new Event('change', {bubbles: true}));
}`
	selectJS = `function(v) {
	const opts = Array.from(this.options || []);
	if (!opts.some(o => o.value === v)) {
		throw new Error('no option with value ' + v);
	}
	this.value = v;
	this.dispatchEvent(new Event('input', {bubbles: true}));
	this.dispatchEvent(new Event('change', {bubbles: true}));
}`
	clickJS = `function() {
	this.scrollIntoView({block: 'center'});
	this.click();
}`
	frameEvalJS = `function(src) {
	return this.contentWindow.eval(src);
}`
)

// scope implements Scope for the top-level document (node == nil) or for the
// document of the iframe element node.
//
// Frame scoping leans on chromedp's FromNode: given an iframe element, the
// query runs against node.ContentDocument rather than the element's children.
// That document is the one captured when the frame tree was snapshotted. Once
// the frame navigates, Chrome swaps in a new document with new node ids and a
// frame scope built from the old snapshot will query nothing, which is why
// callers re-locate frames instead of holding on to them.
type scope struct {
	session *ChromeSession
	node    *cdp.Node
}

func (s scope) queryOpts(extra ...chromedp.QueryOption) []chromedp.QueryOption {
	opts := []chromedp.QueryOption{chromedp.ByQuery}
	if s.node != nil {
		opts = append(opts, chromedp.FromNode(s.node))
	}
	return append(opts, extra...)
}

func (s scope) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	opCtx, cancel := s.session.operation(ctx, timeout)
	defer cancel()
	return chromedp.Run(opCtx, actions...)
}

func (s scope) WaitVisible(ctx context.Context, sel string, timeout time.Duration) error {
	if err := s.run(ctx, timeout, chromedp.WaitVisible(sel, s.queryOpts()...)); err != nil {
		return fmt.Errorf("wait for '%s' failed: %w", sel, err)
	}
	return nil
}

// onFirst calls fn with the first node matching sel.
func (s scope) onFirst(ctx context.Context, sel, verb string, fn func(ctx context.Context, n *cdp.Node) error) error {
	action := chromedp.QueryAfter(sel, func(ctx context.Context, _ runtime.ExecutionContextID, nodes ...*cdp.Node) error {
		if len(nodes) == 0 {
			return fmt.Errorf("no element matches '%s'", sel)
		}
		return fn(ctx, nodes[0])
	}, s.queryOpts()...)
	if err := s.run(ctx, s.session.actionTimeout, action); err != nil {
		return fmt.Errorf("%s action failed for selector '%s': %w", verb, sel, err)
	}
	return nil
}

// callOnNode runs fn with `this` bound to n. The node id is only meaningful to
// the DOM domain, so it is resolved to a runtime object first; the call then
// targets that object instead of an execution context, which is what lets the
// same helper work for nodes inside a frame's document.
func callOnNode(ctx context.Context, n *cdp.Node, fn string, args ...any) error {
	obj, err := dom.ResolveNode().WithNodeID(n.NodeID).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve node %d: %w", n.NodeID, err)
	}
	var res *runtime.RemoteObject
	return chromedp.CallFunctionOn(fn, &res,
		func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
			return p.WithObjectID(obj.ObjectID)
		},
		args...,
	).Do(ctx)
}

func (s scope) Fill(ctx context.Context, sel, value string) error {
	return s.onFirst(ctx, sel, "fill", func(ctx context.Context, n *cdp.Node) error {
		return callOnNode(ctx, n, fillJS, value)
	})
}

func (s scope) Select(ctx context.Context, sel, value string) error {
	return s.onFirst(ctx, sel, "select", func(ctx context.Context, n *cdp.Node) error {
		return callOnNode(ctx, n, selectJS, value)
	})
}

func (s scope) Click(ctx context.Context, sel string) error {
	return s.onFirst(ctx, sel, "click", func(ctx context.Context, n *cdp.Node) error {
		return callOnNode(ctx, n, clickJS)
	})
}

func (s scope) Count(ctx context.Context, sel string) (int, error) {
	// AtLeast(0) stops Nodes from waiting for a first match; zero is an answer.
	var nodes []*cdp.Node
	err := s.run(ctx, s.session.actionTimeout,
		chromedp.Nodes(sel, &nodes, s.queryOpts(chromedp.ByQueryAll, chromedp.AtLeast(0))...))
	if err != nil {
		return 0, fmt.Errorf("count action failed for selector '%s': %w", sel, err)
	}
	return len(nodes), nil
}

func (s scope) ClickNth(ctx context.Context, sel string, n int) error {
	action := chromedp.QueryAfter(sel, func(ctx context.Context, _ runtime.ExecutionContextID, nodes ...*cdp.Node) error {
		if n < 0 || n >= len(nodes) {
			return fmt.Errorf("index %d out of range, %d element(s) match", n, len(nodes))
		}
		return callOnNode(ctx, nodes[n], clickJS)
	}, s.queryOpts(chromedp.ByQueryAll)...)
	if err := s.run(ctx, s.session.actionTimeout, action); err != nil {
		return fmt.Errorf("click action failed for selector '%s' [%d]: %w", sel, n, err)
	}
	return nil
}

func (s scope) Evaluate(ctx context.Context, expr string) error {
	var err error
	if s.node == nil {
		var res *runtime.RemoteObject
		err = s.run(ctx, s.session.actionTimeout, chromedp.Evaluate(expr, &res))
	} else {
		// chromedp.Evaluate always targets the top frame. For a frame, eval is
		// called through the iframe element's contentWindow instead, which only
		// works while the frame is same-origin.
		err = s.run(ctx, s.session.actionTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
			return callOnNode(ctx, s.node, frameEvalJS, expr)
		}))
	}
	if err != nil {
		return fmt.Errorf("evaluate '%s' failed: %w", expr, err)
	}
	return nil
}

// chromePage is the tab's top-level document.
type chromePage struct {
	scope
}

var _ Page = (*chromePage)(nil)

func (p *chromePage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := p.run(ctx, timeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// Frames maps every iframe or frame element, at any depth, to the URL of the
// frame it hosts.
func (p *chromePage) Frames(ctx context.Context) ([]Frame, error) {
	var frames []Frame
	err := p.run(ctx, p.session.actionTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		tree, err := page.GetFrameTree().Do(ctx)
		if err != nil {
			return fmt.Errorf("failed to get frame tree: %w", err)
		}
		urls := make(map[cdp.FrameID]string)
		collectFrameURLs(tree, urls)
		frames, err = p.collectFrames(ctx, nil, urls, 0)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("frame snapshot failed: %w", err)
	}
	return frames, nil
}

func collectFrameURLs(tree *page.FrameTree, urls map[cdp.FrameID]string) {
	if tree == nil || tree.Frame == nil {
		return
	}
	urls[tree.Frame.ID] = tree.Frame.URL + tree.Frame.URLFragment
	for _, child := range tree.ChildFrames {
		collectFrameURLs(child, urls)
	}
}

// maxFrameDepth guards against pathological nesting.
const maxFrameDepth = 8

func (p *chromePage) collectFrames(ctx context.Context, parent *cdp.Node, urls map[cdp.FrameID]string, depth int) ([]Frame, error) {
	if depth >= maxFrameDepth {
		return nil, nil
	}
	opts := []chromedp.QueryOption{chromedp.ByQueryAll, chromedp.AtLeast(0)}
	if parent != nil {
		opts = append(opts, chromedp.FromNode(parent))
	}
	var nodes []*cdp.Node
	if err := chromedp.Nodes("iframe, frame", &nodes, opts...).Do(ctx); err != nil {
		return nil, err
	}

	// Depth first, so a frame nested inside another is listed right after its
	// parent, matching the order frames appear in the page.
	var out []Frame
	for _, n := range nodes {
		out = append(out, &chromeFrame{scope: scope{session: p.session, node: n}, url: frameURL(n, urls)})
		nested, err := p.collectFrames(ctx, n, urls, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, nested...)
	}
	return out, nil
}

func frameURL(n *cdp.Node, urls map[cdp.FrameID]string) string {
	if u, ok := urls[n.FrameID]; ok && u != "" {
		return u
	}
	if n.ContentDocument != nil && n.ContentDocument.DocumentURL != "" {
		return n.ContentDocument.DocumentURL
	}
	return n.AttributeValue("src")
}

// chromeFrame is the document hosted by one iframe or frame element.
type chromeFrame struct {
	scope
	url string
}

var _ Frame = (*chromeFrame)(nil)

func (f *chromeFrame) URL() string { return f.url }
