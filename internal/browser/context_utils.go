// File: internal/browser/context_utils.go
package browser

import (
	"context"
)

// CombineContext returns a context derived from primary, so it carries the
// chromedp target values, that is also canceled when secondary is done.
func CombineContext(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancelCause(primary)
	stop := context.AfterFunc(secondary, func() {
		cancel(context.Cause(secondary))
	})
	return combined, func() {
		stop()
		cancel(context.Canceled)
	}
}
