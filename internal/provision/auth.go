// File: internal/provision/auth.go
package provision

import (
	"context"

	"go.uber.org/zap"

	"github.com/xkilldash9x/access-provisioner/internal/browser"
	"github.com/xkilldash9x/access-provisioner/internal/config"
	"github.com/xkilldash9x/access-provisioner/internal/fault"
)

// Authenticator opens the console and submits the credential pair.
type Authenticator struct {
	cfg     config.RunConfiguration
	locator *Locator
	logger  *zap.Logger
}

// NewAuthenticator returns an Authenticator for the given run.
func NewAuthenticator(cfg config.RunConfiguration, locator *Locator, logger *zap.Logger) *Authenticator {
	return &Authenticator{cfg: cfg, locator: locator, logger: logger.Named("auth")}
}

// Login navigates to the console, fills the login frame and, once the
// post-login settle delay has passed, returns the login frame as it is after
// the reload. A missing password is a
// ValidationError raised before any navigation.
func (a *Authenticator) Login(ctx context.Context, page browser.Page, creds config.Credentials) (browser.Frame, error) {
	if err := creds.Validate(); err != nil {
		return nil, fault.Wrap(fault.ValidationError, "login", err)
	}

	a.logger.Info("Logging in.", zap.String("url", a.cfg.URL), zap.String("username", creds.Username))
	if err := page.Navigate(ctx, a.cfg.URL, a.cfg.Timing.Navigation); err != nil {
		return nil, fault.Wrap(fault.CriticalError, "navigate", err)
	}

	t := a.cfg.Timing
	frame, err := a.locator.FindFrame(ctx, page, a.cfg.Frames.Login, t.FrameAttempts, t.FrameInterval)
	if err != nil {
		return nil, err
	}

	sel := a.cfg.Selectors
	if !a.locator.WaitVisible(ctx, frame, sel.Username, t.Element) {
		return nil, missing(ctx, "login", sel.Username)
	}
	if err := frame.Fill(ctx, sel.Username, creds.Username); err != nil {
		return nil, actionErr(ctx, "fill username", err)
	}
	if err := frame.Fill(ctx, sel.Password, creds.Password); err != nil {
		return nil, actionErr(ctx, "fill password", err)
	}
	if err := frame.Click(ctx, sel.LoginSubmit); err != nil {
		return nil, actionErr(ctx, "submit login", err)
	}
	if err := sleep(ctx, t.PageLoad); err != nil {
		return nil, fault.Wrap(fault.CriticalError, "login", err)
	}

	// Submitting reloads the login frame, and the document the old handle
	// was bound to is gone. Look the frame up again for the caller.
	frame, err = a.locator.FindFrame(ctx, page, a.cfg.Frames.Login, t.FrameAttempts, t.FrameInterval)
	if err != nil {
		return nil, err
	}

	a.logger.Info("Login submitted.")
	return frame, nil
}

// missing reports a required control that never became visible. If the wait
// ended because ctx did, the failure is critical instead.
func missing(ctx context.Context, op, sel string) error {
	if err := ctx.Err(); err != nil {
		return fault.Wrap(fault.CriticalError, op, err)
	}
	return fault.New(fault.ElementTimeout, op, "element '%s' did not become visible", sel)
}

// actionErr classifies a failed fill, select or click. The driver waits for
// the element before acting, so a failure with a live ctx means it never showed.
func actionErr(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return fault.Wrap(fault.CriticalError, op, err)
	}
	return fault.Wrap(fault.ElementTimeout, op, err)
}
