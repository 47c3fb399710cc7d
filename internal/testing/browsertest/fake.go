// Package browsertest provides in-memory implementations of the browser
// driver interfaces for tests.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/actionapi/pkg/browser"
)

// PNG is the screenshot every fake page returns.
var PNG = []byte("\x89PNG\r\n\x1a\nfake-screenshot")

// ErrInjected is a convenient error for failure injection.
var ErrInjected = errors.New("injected failure")

// RoleQuery is the key under which GetByRole queries are recorded and matched.
func RoleQuery(role, name string) string {
	return fmt.Sprintf("role=%s[name=%q]", role, name)
}

// Launcher is a fake browser.Launcher. Error fields inject failures at each
// step of session startup and teardown. Every lifecycle step is appended to
// the event log in the order it happens.
type Launcher struct {
	mu     sync.Mutex
	events []string
	pages  []*Page
	starts int

	StartErr        error
	LaunchErr       error
	NewContextErr   error
	NewPageErr      error
	PageCloseErr    error
	ContextCloseErr error
	BrowserCloseErr error
	StopErr         error

	// Configure, when set, is called on every new page before it is returned.
	Configure func(*Page)
}

// NewLauncher creates a fake launcher that succeeds at every step.
func NewLauncher() *Launcher {
	return &Launcher{}
}

func (l *Launcher) record(event string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

// Events returns a copy of the lifecycle event log.
func (l *Launcher) Events() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

// Starts returns how many times Start was called.
func (l *Launcher) Starts() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.starts
}

// Pages returns every page created so far.
func (l *Launcher) Pages() []*Page {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Page(nil), l.pages...)
}

// LastPage returns the most recently created page, or nil.
func (l *Launcher) LastPage() *Page {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.pages) == 0 {
		return nil
	}
	return l.pages[len(l.pages)-1]
}

// Start implements browser.Launcher.
func (l *Launcher) Start(ctx context.Context) (browser.Driver, error) {
	l.mu.Lock()
	l.starts++
	l.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l.StartErr != nil {
		return nil, l.StartErr
	}
	l.record("start driver")
	return &driver{l: l}, nil
}

type driver struct {
	l *Launcher
}

func (d *driver) Launch(kind browser.BrowserKind, headless bool) (browser.BrowserInstance, error) {
	if d.l.LaunchErr != nil {
		return nil, d.l.LaunchErr
	}
	d.l.record(fmt.Sprintf("launch %s headless=%v", kind, headless))
	return &instance{l: d.l}, nil
}

func (d *driver) Stop() error {
	d.l.record("stop driver")
	return d.l.StopErr
}

type instance struct {
	l *Launcher
}

func (b *instance) NewContext(opts browser.ContextOptions) (browser.BrowsingContext, error) {
	if b.l.NewContextErr != nil {
		return nil, b.l.NewContextErr
	}
	if vp := opts.Viewport; vp != nil {
		scale := "default"
		if vp.DeviceScaleFactor != nil {
			scale = fmt.Sprintf("%v", *vp.DeviceScaleFactor)
		}
		b.l.record(fmt.Sprintf("new context %dx%d scale=%s", vp.Width, vp.Height, scale))
	} else {
		b.l.record("new context")
	}
	return &browsingContext{l: b.l}, nil
}

func (b *instance) Close() error {
	b.l.record("close browser")
	return b.l.BrowserCloseErr
}

type browsingContext struct {
	l *Launcher
}

func (c *browsingContext) NewPage() (browser.Page, error) {
	if c.l.NewPageErr != nil {
		return nil, c.l.NewPageErr
	}
	c.l.record("new page")

	p := NewPage()
	p.launcher = c.l
	if c.l.Configure != nil {
		c.l.Configure(p)
	}

	c.l.mu.Lock()
	c.l.pages = append(c.l.pages, p)
	c.l.mu.Unlock()
	return p, nil
}

func (c *browsingContext) Close() error {
	c.l.record("close context")
	return c.l.ContextCloseErr
}

// Call records one element action.
type Call struct {
	Action string
	Query  string
	Params any
}

// Page is a fake browser.Page. Matches maps a query (a raw selector or a
// RoleQuery key) to the number of elements it finds; unknown queries match
// nothing.
type Page struct {
	mu       sync.Mutex
	launcher *Launcher
	url      string
	queries  []string
	calls    []Call
	gotos    []string
	timeout  time.Duration
	closed   bool

	Matches        map[string]int
	CountErrs      map[string]error
	ActionErrs     map[string]error
	GotoErr        error
	VisibleErr     error
	ScreenshotData []byte

	// GotoHook, when set, runs inside Goto before it returns.
	GotoHook func(url string)
}

// NewPage creates a standalone fake page at about:blank.
func NewPage() *Page {
	return &Page{
		url:            "about:blank",
		Matches:        make(map[string]int),
		CountErrs:      make(map[string]error),
		ActionErrs:     make(map[string]error),
		ScreenshotData: PNG,
	}
}

// SetMatches sets how many elements query matches.
func (p *Page) SetMatches(query string, n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Matches[query] = n
}

// Queries returns every query issued against the page, in order.
func (p *Page) Queries() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.queries...)
}

// Calls returns every element action performed, in order.
func (p *Page) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Call(nil), p.calls...)
}

// Gotos returns every URL passed to Goto.
func (p *Page) Gotos() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.gotos...)
}

// DefaultTimeout returns the value last passed to SetDefaultTimeout.
func (p *Page) DefaultTimeout() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.timeout
}

// Closed reports whether Close was called.
func (p *Page) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Page) Goto(url string, params browser.NavigateParams) error {
	p.mu.Lock()
	p.gotos = append(p.gotos, url)
	hook := p.GotoHook
	err := p.GotoErr
	p.mu.Unlock()

	if hook != nil {
		hook(url)
	}
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.url = url
	p.mu.Unlock()
	return nil
}

func (p *Page) Screenshot() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, errors.New("page closed")
	}
	return append([]byte(nil), p.ScreenshotData...), nil
}

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *Page) SetDefaultTimeout(timeout time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timeout = timeout
}

func (p *Page) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	if p.launcher != nil {
		p.launcher.record("close page")
		return p.launcher.PageCloseErr
	}
	return nil
}

func (p *Page) Locator(selector string) browser.Element {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queries = append(p.queries, selector)
	return &Element{page: p, query: selector}
}

func (p *Page) GetByRole(role, name string) browser.Element {
	q := RoleQuery(role, name)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queries = append(p.queries, q)
	return &Element{page: p, query: q}
}

// Element is a fake browser.Element bound to one query on a Page.
type Element struct {
	page  *Page
	query string
}

// Query returns the query this element was built from.
func (e *Element) Query() string {
	return e.query
}

func (e *Element) Count() (int, error) {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	if err := e.page.CountErrs[e.query]; err != nil {
		return 0, err
	}
	return e.page.Matches[e.query], nil
}

func (e *Element) WaitVisible(timeout time.Duration) error {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	e.page.calls = append(e.page.calls, Call{Action: "wait_visible", Query: e.query, Params: timeout})
	return e.page.VisibleErr
}

func (e *Element) do(action string, params any) error {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	e.page.calls = append(e.page.calls, Call{Action: action, Query: e.query, Params: params})
	return e.page.ActionErrs[action]
}

func (e *Element) Click(params browser.ClickParams) error { return e.do("click", params) }
func (e *Element) Dblclick(params browser.ClickParams) error { return e.do("dblclick", params) }
func (e *Element) Hover(params browser.HoverParams) error { return e.do("hover", params) }
func (e *Element) Fill(params browser.FillParams) error { return e.do("fill", params) }
func (e *Element) Type(params browser.TypeParams) error { return e.do("type", params) }
func (e *Element) Press(params browser.PressParams) error { return e.do("press", params) }
func (e *Element) Check(params browser.CheckParams) error { return e.do("check", params) }
func (e *Element) Uncheck(params browser.CheckParams) error { return e.do("uncheck", params) }
func (e *Element) SelectOption(params browser.SelectParams) error {
	return e.do("select_option", params)
}
func (e *Element) SetInputFiles(params browser.UploadParams) error {
	return e.do("upload_file", params)
}
func (e *Element) Focus() error { return e.do("focus", nil) }
