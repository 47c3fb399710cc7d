package browser

import (
	"fmt"
	"time"
)

// ActionKind names an automation operation.
type ActionKind string

const (
	ActionGoto         ActionKind = "goto"
	ActionClick        ActionKind = "click"
	ActionDblclick     ActionKind = "dblclick"
	ActionHover        ActionKind = "hover"
	ActionFill         ActionKind = "fill"
	ActionType         ActionKind = "type"
	ActionPress        ActionKind = "press"
	ActionCheck        ActionKind = "check"
	ActionUncheck      ActionKind = "uncheck"
	ActionSelectOption ActionKind = "select_option"
	ActionUploadFile   ActionKind = "upload_file"
	ActionFocus        ActionKind = "focus"
)

// ActionKinds lists every supported action.
var ActionKinds = []ActionKind{
	ActionGoto, ActionClick, ActionDblclick, ActionHover, ActionFill, ActionType,
	ActionPress, ActionCheck, ActionUncheck, ActionSelectOption, ActionUploadFile, ActionFocus,
}

// IsPageLevel reports whether the action runs against the page rather than an element.
func (k ActionKind) IsPageLevel() bool {
	return k == ActionGoto
}

// Params is implemented by the parameter type of each action kind.
type Params interface {
	validate() error
}

// NavigateParams configures page navigation.
type NavigateParams struct {
	URL string

	// WaitUntil: "load", "domcontentloaded", "networkidle" or "commit"; empty uses the engine default
	WaitUntil string

	// Timeout of zero uses the session default
	Timeout time.Duration
}

var waitUntilStates = map[string]bool{
	"":                 true,
	"load":             true,
	"domcontentloaded": true,
	"networkidle":      true,
	"commit":           true,
}

func (p NavigateParams) validate() error {
	if p.URL == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidRequest)
	}
	if !waitUntilStates[p.WaitUntil] {
		return fmt.Errorf("%w: invalid wait_until %q", ErrInvalidRequest, p.WaitUntil)
	}
	if p.Timeout < 0 {
		return fmt.Errorf("%w: timeout cannot be negative", ErrInvalidRequest)
	}
	return nil
}

// ClickParams configures click and dblclick.
type ClickParams struct {
	Force bool

	// Delay between mousedown and mouseup
	Delay time.Duration

	// Button is "left", "right" or "middle"; empty means left
	Button string
}

func (p ClickParams) validate() error {
	switch p.Button {
	case "", "left", "right", "middle":
	default:
		return fmt.Errorf("%w: button must be one of left, right, middle, got %q", ErrInvalidRequest, p.Button)
	}
	return checkDelay(p.Delay)
}

// Position is a point relative to the element's top-left corner.
type Position struct {
	X float64
	Y float64
}

// HoverParams configures hover.
type HoverParams struct {
	Force    bool
	Position *Position
}

func (p HoverParams) validate() error { return nil }

// FillParams configures fill. An empty Value clears the field.
type FillParams struct {
	Value string
	Force bool
}

func (p FillParams) validate() error { return nil }

// TypeParams configures per-key typing.
type TypeParams struct {
	Text  string
	Delay time.Duration
}

func (p TypeParams) validate() error { return checkDelay(p.Delay) }

// PressParams configures a single key press such as "Enter" or "Control+a".
type PressParams struct {
	Key   string
	Delay time.Duration
}

func (p PressParams) validate() error {
	if p.Key == "" {
		return fmt.Errorf("%w: key is required", ErrInvalidRequest)
	}
	return checkDelay(p.Delay)
}

// CheckParams configures check and uncheck.
type CheckParams struct {
	Force bool
}

func (p CheckParams) validate() error { return nil }

// SelectParams picks options by value and/or by label.
type SelectParams struct {
	Values []string
	Labels []string
}

func (p SelectParams) validate() error {
	if len(p.Values) == 0 && len(p.Labels) == 0 {
		return fmt.Errorf("%w: at least one option value or label is required", ErrInvalidRequest)
	}
	return nil
}

// UploadParams lists local file paths to set on a file input.
type UploadParams struct {
	Files []string
}

func (p UploadParams) validate() error {
	if len(p.Files) == 0 {
		return fmt.Errorf("%w: at least one file is required", ErrInvalidRequest)
	}
	return nil
}

// FocusParams carries no options.
type FocusParams struct{}

func (p FocusParams) validate() error { return nil }

func checkDelay(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("%w: delay cannot be negative", ErrInvalidRequest)
	}
	return nil
}

// Action is one request against a session.
type Action struct {
	Kind ActionKind

	// Locator is required for every kind except goto
	Locator *Locator

	// Params must be the parameter type of Kind; nil means all defaults
	Params Params
}

// normalize fills nil params with the kind's zero value and checks that the
// params type matches the kind, then validates params and locator.
func (a Action) normalize() (Action, error) {
	if a.Params == nil {
		zero, err := zeroParams(a.Kind)
		if err != nil {
			return a, err
		}
		a.Params = zero
	}

	var ok bool
	switch a.Kind {
	case ActionGoto:
		_, ok = a.Params.(NavigateParams)
	case ActionClick, ActionDblclick:
		_, ok = a.Params.(ClickParams)
	case ActionHover:
		_, ok = a.Params.(HoverParams)
	case ActionFill:
		_, ok = a.Params.(FillParams)
	case ActionType:
		_, ok = a.Params.(TypeParams)
	case ActionPress:
		_, ok = a.Params.(PressParams)
	case ActionCheck, ActionUncheck:
		_, ok = a.Params.(CheckParams)
	case ActionSelectOption:
		_, ok = a.Params.(SelectParams)
	case ActionUploadFile:
		_, ok = a.Params.(UploadParams)
	case ActionFocus:
		_, ok = a.Params.(FocusParams)
	default:
		return a, fmt.Errorf("%w: unsupported action %q", ErrInvalidRequest, a.Kind)
	}
	if !ok {
		return a, fmt.Errorf("%w: %T is not valid for action %q", ErrInvalidRequest, a.Params, a.Kind)
	}

	if err := a.Params.validate(); err != nil {
		return a, err
	}

	if a.Kind.IsPageLevel() {
		return a, nil
	}
	if a.Locator == nil {
		return a, fmt.Errorf("%w: locator is required for action %q", ErrInvalidRequest, a.Kind)
	}
	if err := a.Locator.Validate(); err != nil {
		return a, err
	}
	return a, nil
}

func zeroParams(kind ActionKind) (Params, error) {
	switch kind {
	case ActionGoto:
		return NavigateParams{}, nil
	case ActionClick, ActionDblclick:
		return ClickParams{}, nil
	case ActionHover:
		return HoverParams{}, nil
	case ActionFill:
		return FillParams{}, nil
	case ActionType:
		return TypeParams{}, nil
	case ActionPress:
		return PressParams{}, nil
	case ActionCheck, ActionUncheck:
		return CheckParams{}, nil
	case ActionSelectOption:
		return SelectParams{}, nil
	case ActionUploadFile:
		return UploadParams{}, nil
	case ActionFocus:
		return FocusParams{}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported action %q", ErrInvalidRequest, kind)
	}
}
