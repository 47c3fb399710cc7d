package browser

import (
	"context"
	"time"
)

// Launcher starts driver connections. Each session owns exactly one.
type Launcher interface {
	Start(ctx context.Context) (Driver, error)
}

// Driver is one connection to the automation engine.
type Driver interface {
	Launch(kind BrowserKind, headless bool) (BrowserInstance, error)
	Stop() error
}

// BrowserInstance is one launched browser process.
type BrowserInstance interface {
	NewContext(opts ContextOptions) (BrowsingContext, error)
	Close() error
}

// ContextOptions configures a new browsing context.
type ContextOptions struct {
	Viewport *Viewport
}

// BrowsingContext is an isolated cookie/storage boundary inside a browser.
type BrowsingContext interface {
	NewPage() (Page, error)
	Close() error
}

// Page is the execution target for every action in a session.
type Page interface {
	Goto(url string, params NavigateParams) error
	Screenshot() ([]byte, error)
	URL() string
	SetDefaultTimeout(timeout time.Duration)
	Close() error

	// Locator queries with the engine's native selector language.
	Locator(selector string) Element

	// GetByRole queries by accessibility role and accessible name.
	GetByRole(role, name string) Element
}

// Element is a lazy reference to zero or more nodes on a page.
type Element interface {
	Count() (int, error)
	WaitVisible(timeout time.Duration) error

	Click(params ClickParams) error
	Dblclick(params ClickParams) error
	Hover(params HoverParams) error
	Fill(params FillParams) error
	Type(params TypeParams) error
	Press(params PressParams) error
	Check(params CheckParams) error
	Uncheck(params CheckParams) error
	SelectOption(params SelectParams) error
	SetInputFiles(params UploadParams) error
	Focus() error
}
