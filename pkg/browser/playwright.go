package browser

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightLauncher starts one Playwright driver process per session.
type PlaywrightLauncher struct {
	opts *playwright.RunOptions
}

// NewPlaywrightLauncher creates a launcher. Driver output goes to out; pass
// nil to discard it.
func NewPlaywrightLauncher(out io.Writer) *PlaywrightLauncher {
	if out == nil {
		out = io.Discard
	}
	return &PlaywrightLauncher{
		opts: &playwright.RunOptions{
			Verbose: false,
			Stdout:  out,
			Stderr:  out,
		},
	}
}

// Install downloads the driver and the browsers it needs.
func (l *PlaywrightLauncher) Install(kinds ...BrowserKind) error {
	opts := *l.opts
	for _, k := range kinds {
		opts.Browsers = append(opts.Browsers, string(k))
	}
	if err := playwright.Install(&opts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}
	return nil
}

// Start runs a new driver process.
func (l *PlaywrightLauncher) Start(ctx context.Context) (Driver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pw, err := playwright.Run(l.opts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}
	return &playwrightDriver{pw: pw}, nil
}

type playwrightDriver struct {
	pw *playwright.Playwright
}

func (d *playwrightDriver) Launch(kind BrowserKind, headless bool) (BrowserInstance, error) {
	var browserType playwright.BrowserType
	switch kind {
	case KindChromium:
		browserType = d.pw.Chromium
	case KindFirefox:
		browserType = d.pw.Firefox
	case KindWebKit:
		browserType = d.pw.WebKit
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBrowserKind, kind)
	}

	b, err := browserType.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(headless),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	return &playwrightBrowser{browser: b}, nil
}

func (d *playwrightDriver) Stop() error {
	return d.pw.Stop()
}

type playwrightBrowser struct {
	browser playwright.Browser
}

func (b *playwrightBrowser) NewContext(opts ContextOptions) (BrowsingContext, error) {
	contextOpts := playwright.BrowserNewContextOptions{}
	if vp := opts.Viewport; vp != nil {
		contextOpts.Viewport = &playwright.Size{
			Width:  vp.Width,
			Height: vp.Height,
		}
		contextOpts.DeviceScaleFactor = vp.DeviceScaleFactor
	}

	c, err := b.browser.NewContext(contextOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create context: %w", err)
	}
	return &playwrightContext{context: c}, nil
}

func (b *playwrightBrowser) Close() error {
	return b.browser.Close()
}

type playwrightContext struct {
	context playwright.BrowserContext
}

func (c *playwrightContext) NewPage() (Page, error) {
	p, err := c.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	return &playwrightPage{page: p}, nil
}

func (c *playwrightContext) Close() error {
	return c.context.Close()
}

type playwrightPage struct {
	page playwright.Page
}

func (p *playwrightPage) Goto(url string, params NavigateParams) error {
	opts := playwright.PageGotoOptions{}
	if params.WaitUntil != "" {
		waitUntil := playwright.WaitUntilState(params.WaitUntil)
		opts.WaitUntil = &waitUntil
	}
	if params.Timeout > 0 {
		opts.Timeout = millis(params.Timeout)
	}

	_, err := p.page.Goto(url, opts)
	return err
}

func (p *playwrightPage) Screenshot() ([]byte, error) {
	return p.page.Screenshot(playwright.PageScreenshotOptions{
		Type: playwright.ScreenshotTypePng,
	})
}

func (p *playwrightPage) URL() string {
	return p.page.URL()
}

func (p *playwrightPage) SetDefaultTimeout(timeout time.Duration) {
	p.page.SetDefaultTimeout(float64(timeout.Milliseconds()))
}

func (p *playwrightPage) Close() error {
	return p.page.Close()
}

func (p *playwrightPage) Locator(selector string) Element {
	return &playwrightElement{locator: p.page.Locator(selector)}
}

func (p *playwrightPage) GetByRole(role, name string) Element {
	return &playwrightElement{locator: p.page.GetByRole(playwright.AriaRole(role), playwright.PageGetByRoleOptions{
		Name: name,
	})}
}

type playwrightElement struct {
	locator playwright.Locator
}

func (e *playwrightElement) Count() (int, error) {
	return e.locator.Count()
}

func (e *playwrightElement) WaitVisible(timeout time.Duration) error {
	return e.locator.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: millis(timeout),
	})
}

func (e *playwrightElement) Click(params ClickParams) error {
	opts := playwright.LocatorClickOptions{
		Force: playwright.Bool(params.Force),
	}
	if params.Button != "" {
		button := playwright.MouseButton(params.Button)
		opts.Button = &button
	}
	if params.Delay > 0 {
		opts.Delay = millis(params.Delay)
	}
	return e.locator.Click(opts)
}

func (e *playwrightElement) Dblclick(params ClickParams) error {
	opts := playwright.LocatorDblclickOptions{
		Force: playwright.Bool(params.Force),
	}
	if params.Button != "" {
		button := playwright.MouseButton(params.Button)
		opts.Button = &button
	}
	if params.Delay > 0 {
		opts.Delay = millis(params.Delay)
	}
	return e.locator.Dblclick(opts)
}

func (e *playwrightElement) Hover(params HoverParams) error {
	opts := playwright.LocatorHoverOptions{
		Force: playwright.Bool(params.Force),
	}
	if params.Position != nil {
		opts.Position = &playwright.Position{X: params.Position.X, Y: params.Position.Y}
	}
	return e.locator.Hover(opts)
}

func (e *playwrightElement) Fill(params FillParams) error {
	return e.locator.Fill(params.Value, playwright.LocatorFillOptions{
		Force: playwright.Bool(params.Force),
	})
}

func (e *playwrightElement) Type(params TypeParams) error {
	opts := playwright.LocatorPressSequentiallyOptions{}
	if params.Delay > 0 {
		opts.Delay = millis(params.Delay)
	}
	return e.locator.PressSequentially(params.Text, opts)
}

func (e *playwrightElement) Press(params PressParams) error {
	opts := playwright.LocatorPressOptions{}
	if params.Delay > 0 {
		opts.Delay = millis(params.Delay)
	}
	return e.locator.Press(params.Key, opts)
}

func (e *playwrightElement) Check(params CheckParams) error {
	return e.locator.Check(playwright.LocatorCheckOptions{
		Force: playwright.Bool(params.Force),
	})
}

func (e *playwrightElement) Uncheck(params CheckParams) error {
	return e.locator.Uncheck(playwright.LocatorUncheckOptions{
		Force: playwright.Bool(params.Force),
	})
}

func (e *playwrightElement) SelectOption(params SelectParams) error {
	values := playwright.SelectOptionValues{}
	if len(params.Values) > 0 {
		values.Values = &params.Values
	}
	if len(params.Labels) > 0 {
		values.Labels = &params.Labels
	}
	_, err := e.locator.SelectOption(values)
	return err
}

func (e *playwrightElement) SetInputFiles(params UploadParams) error {
	return e.locator.SetInputFiles(params.Files)
}

func (e *playwrightElement) Focus() error {
	return e.locator.Focus()
}

func millis(d time.Duration) *float64 {
	return playwright.Float(float64(d) / float64(time.Millisecond))
}
