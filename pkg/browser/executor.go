package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/entrhq/actionapi/pkg/logging"
)

// SessionLookup finds live sessions. *SessionManager implements it.
type SessionLookup interface {
	Get(id string) (*Session, error)
}

// Result is the outcome of an action that reached the page.
// Screenshot is taken after the action whether it succeeded or not.
type Result struct {
	Success    bool
	Screenshot []byte

	// Cause explains a soft failure; nil on success
	Cause error
}

// UploadGuard maps a client-supplied upload path to the local file the
// browser may read, rejecting paths it does not allow.
type UploadGuard interface {
	Resolve(path string) (string, error)
}

// Executor dispatches actions to session pages.
type Executor struct {
	sessions     SessionLookup
	policy       *NavigationPolicy
	uploads      UploadGuard
	logger       *logging.Logger
	hoverTimeout time.Duration
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithNavigationPolicy restricts which URLs goto may load.
func WithNavigationPolicy(policy *NavigationPolicy) ExecutorOption {
	return func(e *Executor) {
		e.policy = policy
	}
}

// WithUploadGuard restricts which local files upload_file may use.
// Without a guard paths are passed to the browser unchanged.
func WithUploadGuard(guard UploadGuard) ExecutorOption {
	return func(e *Executor) {
		e.uploads = guard
	}
}

// WithExecutorLogger sets the executor logger.
func WithExecutorLogger(logger *logging.Logger) ExecutorOption {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExecutor creates an executor over sessions.
func NewExecutor(sessions SessionLookup, opts ...ExecutorOption) *Executor {
	e := &Executor{
		sessions:     sessions,
		logger:       logging.Discard("executor"),
		hoverTimeout: HoverVisibleTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs action on the session's page.
//
// Returned errors are hard failures: ErrSessionNotFound, ErrInvalidRequest,
// ErrInvalidLocator, or ctx's error if ctx ends while waiting for another
// action on the same session. They occur before the page is touched.
// Everything that goes wrong on the page (navigation errors, no matching
// element, action errors, hover timeout) is reported as Result{Success: false}
// with a screenshot of the current page.
func (e *Executor) Execute(ctx context.Context, sessionID string, action Action) (Result, error) {
	session, err := e.sessions.Get(sessionID)
	if err != nil {
		return Result{}, err
	}

	action, err = action.normalize()
	if err != nil {
		return Result{}, err
	}
	switch p := action.Params.(type) {
	case NavigateParams:
		if err := e.policy.check(p.URL); err != nil {
			return Result{}, err
		}
	case UploadParams:
		if action.Params, err = e.resolveUploads(p); err != nil {
			return Result{}, err
		}
	}

	if err := session.acquire(ctx); err != nil {
		return Result{}, err
	}
	defer session.release()
	if session.isClosed() {
		return Result{}, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	session.touch()
	defer session.touch()

	if action.Kind.IsPageLevel() {
		nav := action.Params.(NavigateParams)
		return e.runSoft(session, action, func() error {
			if err := session.Page.Goto(nav.URL, nav); err != nil {
				return fmt.Errorf("navigation to %s failed: %w", nav.URL, err)
			}
			return nil
		}), nil
	}

	return e.runSoft(session, action, func() error {
		resolved, err := Resolve(session.Page, *action.Locator)
		if err != nil {
			return err
		}
		if resolved.Count == 0 {
			return fmt.Errorf("%w: %s", ErrElementNotFound, action.Locator)
		}
		e.logger.Debugf("session %s: %s resolved %s via %s (%d matches)",
			session.ID, action.Kind, action.Locator, resolved.Strategy, resolved.Count)
		return e.invoke(resolved.Element, action)
	}), nil
}

func (e *Executor) resolveUploads(p UploadParams) (UploadParams, error) {
	if e.uploads == nil {
		return p, nil
	}
	files := make([]string, len(p.Files))
	for i, f := range p.Files {
		resolved, err := e.uploads.Resolve(f)
		if err != nil {
			return p, fmt.Errorf("%w: upload %q rejected: %v", ErrInvalidRequest, f, err)
		}
		files[i] = resolved
	}
	return UploadParams{Files: files}, nil
}

// runSoft runs op and folds its error into a Result with a screenshot.
func (e *Executor) runSoft(session *Session, action Action, op func() error) Result {
	err := op()
	shot := e.capture(session)
	if err != nil {
		e.logger.Debugf("session %s: %s failed: %v", session.ID, action.Kind, err)
		return Result{Success: false, Screenshot: shot, Cause: err}
	}
	return Result{Success: true, Screenshot: shot}
}

func (e *Executor) capture(session *Session) []byte {
	shot, err := session.Page.Screenshot()
	if err != nil {
		e.logger.Warnf("session %s: screenshot failed: %v", session.ID, err)
		return nil
	}
	return shot
}

func (e *Executor) invoke(el Element, action Action) error {
	switch p := action.Params.(type) {
	case ClickParams:
		if action.Kind == ActionDblclick {
			return el.Dblclick(p)
		}
		return el.Click(p)
	case HoverParams:
		if err := el.WaitVisible(e.hoverTimeout); err != nil {
			return fmt.Errorf("element not visible within %s: %w", e.hoverTimeout, err)
		}
		return el.Hover(p)
	case FillParams:
		return el.Fill(p)
	case TypeParams:
		return el.Type(p)
	case PressParams:
		return el.Press(p)
	case CheckParams:
		if action.Kind == ActionUncheck {
			return el.Uncheck(p)
		}
		return el.Check(p)
	case SelectParams:
		return el.SelectOption(p)
	case UploadParams:
		return el.SetInputFiles(p)
	case FocusParams:
		return el.Focus()
	default:
		return fmt.Errorf("unsupported action %q", action.Kind)
	}
}

// Navigate loads params.URL in the session's page.
func (e *Executor) Navigate(ctx context.Context, sessionID string, params NavigateParams) (Result, error) {
	return e.Execute(ctx, sessionID, Action{Kind: ActionGoto, Params: params})
}

// Click clicks the element matched by loc.
func (e *Executor) Click(ctx context.Context, sessionID string, loc Locator, params ClickParams) (Result, error) {
	return e.Execute(ctx, sessionID, Action{Kind: ActionClick, Locator: &loc, Params: params})
}

// Dblclick double-clicks the element matched by loc.
func (e *Executor) Dblclick(ctx context.Context, sessionID string, loc Locator, params ClickParams) (Result, error) {
	return e.Execute(ctx, sessionID, Action{Kind: ActionDblclick, Locator: &loc, Params: params})
}

// Hover waits for the element to be visible, then hovers it.
func (e *Executor) Hover(ctx context.Context, sessionID string, loc Locator, params HoverParams) (Result, error) {
	return e.Execute(ctx, sessionID, Action{Kind: ActionHover, Locator: &loc, Params: params})
}

// Fill replaces the element's value.
func (e *Executor) Fill(ctx context.Context, sessionID string, loc Locator, params FillParams) (Result, error) {
	return e.Execute(ctx, sessionID, Action{Kind: ActionFill, Locator: &loc, Params: params})
}

// Type sends params.Text one key at a time.
func (e *Executor) Type(ctx context.Context, sessionID string, loc Locator, params TypeParams) (Result, error) {
	return e.Execute(ctx, sessionID, Action{Kind: ActionType, Locator: &loc, Params: params})
}

// Press presses a single key on the element.
func (e *Executor) Press(ctx context.Context, sessionID string, loc Locator, params PressParams) (Result, error) {
	return e.Execute(ctx, sessionID, Action{Kind: ActionPress, Locator: &loc, Params: params})
}

// Check checks a checkbox or radio.
func (e *Executor) Check(ctx context.Context, sessionID string, loc Locator, params CheckParams) (Result, error) {
	return e.Execute(ctx, sessionID, Action{Kind: ActionCheck, Locator: &loc, Params: params})
}

// Uncheck unchecks a checkbox.
func (e *Executor) Uncheck(ctx context.Context, sessionID string, loc Locator, params CheckParams) (Result, error) {
	return e.Execute(ctx, sessionID, Action{Kind: ActionUncheck, Locator: &loc, Params: params})
}

// SelectOption selects options of a <select> element.
func (e *Executor) SelectOption(ctx context.Context, sessionID string, loc Locator, params SelectParams) (Result, error) {
	return e.Execute(ctx, sessionID, Action{Kind: ActionSelectOption, Locator: &loc, Params: params})
}

// UploadFile sets the files of a file input.
func (e *Executor) UploadFile(ctx context.Context, sessionID string, loc Locator, params UploadParams) (Result, error) {
	return e.Execute(ctx, sessionID, Action{Kind: ActionUploadFile, Locator: &loc, Params: params})
}

// Focus focuses the element.
func (e *Executor) Focus(ctx context.Context, sessionID string, loc Locator) (Result, error) {
	return e.Execute(ctx, sessionID, Action{Kind: ActionFocus, Locator: &loc, Params: FocusParams{}})
}
