package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/entrhq/actionapi/pkg/browser"
)

// StartSessionRequest opens a session. Browser and Headless fall back to the
// server defaults when omitted.
type StartSessionRequest struct {
	Browser           string   `json:"browser"`
	Headless          *bool    `json:"headless"`
	ViewportWidth     *int     `json:"viewport_width"`
	ViewportHeight    *int     `json:"viewport_height"`
	DeviceScaleFactor *float64 `json:"device_scale_factor"`
}

// viewport returns nil when no viewport fields are set. Width and height
// must come together, and a scale factor needs a viewport.
func (r StartSessionRequest) viewport() (*browser.Viewport, error) {
	switch {
	case r.ViewportWidth == nil && r.ViewportHeight == nil:
		if r.DeviceScaleFactor != nil {
			return nil, fmt.Errorf("%w: device_scale_factor requires viewport_width and viewport_height", browser.ErrInvalidRequest)
		}
		return nil, nil
	case r.ViewportWidth == nil || r.ViewportHeight == nil:
		return nil, fmt.Errorf("%w: viewport_width and viewport_height must be set together", browser.ErrInvalidRequest)
	}
	return &browser.Viewport{
		Width:             *r.ViewportWidth,
		Height:            *r.ViewportHeight,
		DeviceScaleFactor: r.DeviceScaleFactor,
	}, nil
}

// StartSessionResponse carries the new session ID.
type StartSessionResponse struct {
	SessionID string `json:"sessionId"`
}

// CloseSessionRequest names the session to close.
type CloseSessionRequest struct {
	SessionID string `json:"sessionId"`
}

// SelectValue picks an option by value or by label. JSON accepts a plain
// string (a value) or {"value": "..."} / {"label": "..."}.
type SelectValue struct {
	Value string
	Label string
}

func (v *SelectValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &v.Value)
	}

	var obj struct {
		Value string `json:"value"`
		Label string `json:"label"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if obj.Value == "" && obj.Label == "" {
		return fmt.Errorf("option must have a value or a label")
	}
	v.Value, v.Label = obj.Value, obj.Label
	return nil
}

// Point is a hover position in CSS pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ActionRequest is the body of every /action endpoint. Only the fields that
// apply to the endpoint's action are read; durations are milliseconds.
type ActionRequest struct {
	SessionID string           `json:"sessionId"`
	Locator   *browser.Locator `json:"locator,omitempty"`

	// goto
	URL       string `json:"url,omitempty"`
	WaitUntil string `json:"wait_until,omitempty"`
	Timeout   int    `json:"timeout,omitempty"`

	// click, dblclick, hover, fill, check, uncheck
	Force    bool   `json:"force,omitempty"`
	Button   string `json:"button,omitempty"`
	Position *Point `json:"position,omitempty"`

	// click, dblclick, type, press
	Delay int `json:"delay,omitempty"`

	// fill with an empty value clears the field
	Value  string        `json:"value,omitempty"`
	Text   string        `json:"text,omitempty"`
	Key    string        `json:"key,omitempty"`
	Values []SelectValue `json:"values,omitempty"`
	Files  []string      `json:"files,omitempty"`
}

func millis(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

// action converts the request into a browser.Action for kind.
func (r ActionRequest) action(kind browser.ActionKind) (browser.Action, error) {
	a := browser.Action{Kind: kind, Locator: r.Locator}

	switch kind {
	case browser.ActionGoto:
		a.Params = browser.NavigateParams{URL: r.URL, WaitUntil: r.WaitUntil, Timeout: millis(r.Timeout)}
	case browser.ActionClick, browser.ActionDblclick:
		a.Params = browser.ClickParams{Force: r.Force, Delay: millis(r.Delay), Button: r.Button}
	case browser.ActionHover:
		p := browser.HoverParams{Force: r.Force}
		if r.Position != nil {
			p.Position = &browser.Position{X: r.Position.X, Y: r.Position.Y}
		}
		a.Params = p
	case browser.ActionFill:
		a.Params = browser.FillParams{Value: r.Value, Force: r.Force}
	case browser.ActionType:
		a.Params = browser.TypeParams{Text: r.Text, Delay: millis(r.Delay)}
	case browser.ActionPress:
		a.Params = browser.PressParams{Key: r.Key, Delay: millis(r.Delay)}
	case browser.ActionCheck, browser.ActionUncheck:
		a.Params = browser.CheckParams{Force: r.Force}
	case browser.ActionSelectOption:
		var p browser.SelectParams
		for _, v := range r.Values {
			if v.Value != "" {
				p.Values = append(p.Values, v.Value)
			}
			if v.Label != "" {
				p.Labels = append(p.Labels, v.Label)
			}
		}
		a.Params = p
	case browser.ActionUploadFile:
		a.Params = browser.UploadParams{Files: r.Files}
	case browser.ActionFocus:
		a.Params = browser.FocusParams{}
	default:
		return a, fmt.Errorf("%w: unsupported action %q", browser.ErrInvalidRequest, kind)
	}
	return a, nil
}
