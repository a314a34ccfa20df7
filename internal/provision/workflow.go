// File: internal/provision/workflow.go
package provision

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/access-provisioner/internal/browser"
	"github.com/xkilldash9x/access-provisioner/internal/config"
	"github.com/xkilldash9x/access-provisioner/internal/fault"
	"github.com/xkilldash9x/access-provisioner/internal/records"
)

// State is a position in the provisioning sequence for one record.
type State int

const (
	LoggedIn State = iota
	AccessFormReady
	GroupFormReady
	DataFilled
	SelectsConfigured
	Finalized
	Success
	Failed
)

var stateNames = [...]string{
	LoggedIn:          "LoggedIn",
	AccessFormReady:   "AccessFormReady",
	GroupFormReady:    "GroupFormReady",
	DataFilled:        "DataFilled",
	SelectsConfigured: "SelectsConfigured",
	Finalized:         "Finalized",
	Success:           "Success",
	Failed:            "Failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

// Outcome is the result of running the workflow for one record. On failure
// Reached is the last state entered and Err the cause.
type Outcome struct {
	State   State
	Reached State
	Err     error
}

// Workflow drives one authenticated session through the access form, the
// group form, the record fields, the classification dropdowns and the final
// submission.
type Workflow struct {
	cfg     config.RunConfiguration
	locator *Locator
	logger  *zap.Logger
}

// NewWorkflow returns a Workflow for the given run.
func NewWorkflow(cfg config.RunConfiguration, locator *Locator, logger *zap.Logger) *Workflow {
	return &Workflow{cfg: cfg, locator: locator, logger: logger.Named("workflow")}
}

type transition struct {
	to   State
	name string
	run  func(ctx context.Context, page browser.Page, login browser.Frame, rec records.Record) error
}

func (w *Workflow) transitions() []transition {
	return []transition{
		{AccessFormReady, "open access form", w.openAccessForm},
		{GroupFormReady, "open group form", w.openGroupForm},
		{DataFilled, "fill record", w.fillRecord},
		{SelectsConfigured, "configure classification", w.configureSelects},
		{Finalized, "finalize", w.finalize},
	}
}

// Run executes every transition in order starting from LoggedIn. It never
// retries, and an error stops the sequence at the failing step.
func (w *Workflow) Run(ctx context.Context, page browser.Page, login browser.Frame, rec records.Record) Outcome {
	logger := w.logger.With(zap.String("login", rec.Login))
	state := LoggedIn
	for _, t := range w.transitions() {
		logger.Debug("Entering step.", zap.String("step", t.name), zap.Stringer("from", state))
		if err := t.run(ctx, page, login, rec); err != nil {
			logger.Error("Step failed.",
				zap.String("step", t.name),
				zap.Stringer("reached", state),
				zap.String("kind", string(fault.KindOf(err))),
				zap.Error(err))
			return Outcome{State: Failed, Reached: state, Err: err}
		}
		state = t.to
	}
	logger.Info("Record submitted.")
	return Outcome{State: Success, Reached: Finalized}
}

// openAccessForm follows the include-access link and submits the frequency.
func (w *Workflow) openAccessForm(ctx context.Context, page browser.Page, login browser.Frame, _ records.Record) error {
	sel, t := w.cfg.Selectors, w.cfg.Timing

	if err := login.Click(ctx, sel.AccessLink); err != nil {
		return actionErr(ctx, "open access link", err)
	}
	if err := sleep(ctx, t.PageLoad); err != nil {
		return fault.Wrap(fault.CriticalError, "open access form", err)
	}

	frame, err := w.locator.FindFrame(ctx, page, w.cfg.Frames.Access, t.FrameAttempts, t.FrameInterval)
	if err != nil {
		return err
	}
	if !w.locator.WaitVisible(ctx, frame, sel.Frequency, t.Element) {
		return missing(ctx, "frequency", sel.Frequency)
	}
	if err := frame.Select(ctx, sel.Frequency, w.cfg.Values.Frequency); err != nil {
		return actionErr(ctx, "select frequency", err)
	}
	// Submitting the access form loads the group form into a different
	// frame; the next step finds it by its own URL pattern.
	if err := frame.Click(ctx, sel.Submit); err != nil {
		return actionErr(ctx, "submit access form", err)
	}
	if err := sleep(ctx, t.Settle); err != nil {
		return fault.Wrap(fault.CriticalError, "open access form", err)
	}
	return nil
}

// groupFrame locates the group form afresh; a frame handle is never carried
// from one step to the next.
func (w *Workflow) groupFrame(ctx context.Context, page browser.Page) (browser.Frame, error) {
	t := w.cfg.Timing
	return w.locator.FindFrame(ctx, page, w.cfg.Frames.Group, t.FrameAttempts, t.FrameInterval)
}

func (w *Workflow) openGroupForm(ctx context.Context, page browser.Page, _ browser.Frame, _ records.Record) error {
	sel := w.cfg.Selectors
	frame, err := w.groupFrame(ctx, page)
	if err != nil {
		return err
	}
	if !w.locator.WaitVisible(ctx, frame, sel.Subgroup, w.cfg.Timing.Element) {
		return missing(ctx, "subgroup", sel.Subgroup)
	}
	if err := frame.Select(ctx, sel.Subgroup, w.cfg.SubgroupID); err != nil {
		return actionErr(ctx, "select subgroup", err)
	}
	return nil
}

// fillRecord writes the non-blank manager fields, then the required fields,
// then the observation text.
func (w *Workflow) fillRecord(ctx context.Context, page browser.Page, _ browser.Frame, rec records.Record) error {
	frame, err := w.groupFrame(ctx, page)
	if err != nil {
		return err
	}
	sel := w.cfg.Selectors

	optional := map[string]string{
		"manager1_login": sel.Manager1Login,
		"manager1_email": sel.Manager1Email,
		"manager2_login": sel.Manager2Login,
		"manager2_email": sel.Manager2Email,
	}
	for _, f := range rec.Optional() {
		value := strings.TrimSpace(f.Value)
		if value == "" || optional[f.Name] == "" {
			continue
		}
		if err := frame.Fill(ctx, optional[f.Name], value); err != nil {
			return actionErr(ctx, "fill "+f.Name, err)
		}
	}

	required := map[string]string{
		"name":          sel.Name,
		"login":         sel.Login,
		"email":         sel.Email,
		"client_filter": sel.ClientFilter,
	}
	for _, f := range rec.Required() {
		value := strings.TrimSpace(f.Value)
		if value == "" {
			return fault.New(fault.ValidationError, "fill record", "required field %s is blank", f.Name)
		}
		if err := frame.Fill(ctx, required[f.Name], value); err != nil {
			return actionErr(ctx, "fill "+f.Name, err)
		}
	}

	if err := frame.Fill(ctx, sel.Observation, w.cfg.Values.Observation); err != nil {
		return actionErr(ctx, "fill observation", err)
	}
	return nil
}

// configureSelects sets the three classification dropdowns. Unlike every
// other control these may be absent for some client types, so a miss is
// logged and skipped. They also get the shorter Select timeout: a missing
// dropdown is expected and should not hold the record for the full element
// wait, while a missing required control is fatal and deserves the full one.
func (w *Workflow) configureSelects(ctx context.Context, page browser.Page, _ browser.Frame, _ records.Record) error {
	frame, err := w.groupFrame(ctx, page)
	if err != nil {
		return err
	}
	sel, v := w.cfg.Selectors, w.cfg.Values
	dropdowns := []struct {
		name, selector, value string
	}{
		{"person_type", sel.PersonType, v.PersonType},
		{"role", sel.Role, v.Role},
		{"sector", sel.Sector, v.Sector},
	}
	for _, d := range dropdowns {
		if !w.locator.WaitVisible(ctx, frame, d.selector, w.cfg.Timing.Select) {
			// A miss caused by cancellation is not a missing dropdown.
			if err := ctx.Err(); err != nil {
				return fault.Wrap(fault.CriticalError, "configure classification", err)
			}
			w.logger.Warn("Classification dropdown missing; skipping.", zap.String("dropdown", d.name))
			continue
		}
		if err := frame.Select(ctx, d.selector, d.value); err != nil {
			if ctx.Err() != nil {
				return fault.Wrap(fault.CriticalError, "configure classification", err)
			}
			w.logger.Warn("Could not set classification dropdown; skipping.",
				zap.String("dropdown", d.name), zap.String("value", d.value), zap.Error(err))
		}
	}
	return nil
}

// finalize picks the company, runs the select-all hook and submits.
func (w *Workflow) finalize(ctx context.Context, page browser.Page, _ browser.Frame, _ records.Record) error {
	frame, err := w.groupFrame(ctx, page)
	if err != nil {
		return err
	}
	sel, t := w.cfg.Selectors, w.cfg.Timing

	if !w.locator.WaitVisible(ctx, frame, sel.CompanySearch, t.Element) {
		return missing(ctx, "company search", sel.CompanySearch)
	}
	if err := frame.Click(ctx, sel.CompanySearch); err != nil {
		return actionErr(ctx, "open company search", err)
	}
	if err := sleep(ctx, t.SearchSettle); err != nil {
		return fault.Wrap(fault.CriticalError, "finalize", err)
	}

	if err := w.pickCompany(ctx, frame); err != nil {
		return err
	}
	if err := sleep(ctx, t.SearchSettle); err != nil {
		return fault.Wrap(fault.CriticalError, "finalize", err)
	}

	if hook := sel.SelectAllHook; hook != "" {
		if err := frame.Evaluate(ctx, hook); err != nil {
			if ctx.Err() != nil {
				return fault.Wrap(fault.CriticalError, "select all", err)
			}
			w.logger.Warn("Select-all hook failed; continuing.", zap.String("hook", hook), zap.Error(err))
		}
	}

	if !w.locator.WaitVisible(ctx, frame, sel.Submit, t.Element) {
		return missing(ctx, "submit", sel.Submit)
	}
	if err := frame.Click(ctx, sel.Submit); err != nil {
		return actionErr(ctx, "submit", err)
	}
	if err := sleep(ctx, t.FinalSubmit); err != nil {
		return fault.Wrap(fault.CriticalError, "finalize", err)
	}
	return nil
}

// pickCompany clicks the configured ordinal among the company matches,
// falling back to the first match when the ordinal is out of range.
func (w *Workflow) pickCompany(ctx context.Context, frame browser.Frame) error {
	sel := w.cfg.Selectors.Company
	if !w.locator.WaitVisible(ctx, frame, sel, w.cfg.Timing.Element) {
		if err := ctx.Err(); err != nil {
			return fault.Wrap(fault.CriticalError, "pick company", err)
		}
		w.logger.Warn("No company matches; skipping company selection.", zap.String("selector", sel))
		return nil
	}
	count, err := frame.Count(ctx, sel)
	if err != nil {
		return actionErr(ctx, "count companies", err)
	}
	pos := ClampOrdinal(w.cfg.CompanyPosition, count)
	if pos != w.cfg.CompanyPosition {
		w.logger.Warn("Company position out of range; using the first match.",
			zap.Int("position", w.cfg.CompanyPosition),
			zap.Int("matches", count))
	}
	if err := frame.ClickNth(ctx, sel, pos); err != nil {
		return actionErr(ctx, "pick company", err)
	}
	return nil
}

// ClampOrdinal returns pos when it indexes one of count matches, else 0.
func ClampOrdinal(pos, count int) int {
	if pos < 0 || pos >= count {
		return 0
	}
	return pos
}
