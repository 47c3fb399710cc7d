package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// BrowserKind selects the browser engine a session runs on.
type BrowserKind string

const (
	// KindChromium is the primary engine
	KindChromium BrowserKind = "chromium"

	// KindFirefox is the first alternate engine
	KindFirefox BrowserKind = "firefox"

	// KindWebKit is the second alternate engine
	KindWebKit BrowserKind = "webkit"
)

// BrowserKinds lists every supported kind in a stable order.
var BrowserKinds = []BrowserKind{KindChromium, KindFirefox, KindWebKit}

// ParseBrowserKind maps a case-insensitive name to a BrowserKind.
func ParseBrowserKind(name string) (BrowserKind, error) {
	kind := BrowserKind(strings.ToLower(strings.TrimSpace(name)))
	for _, k := range BrowserKinds {
		if k == kind {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q (must be one of chromium, firefox, webkit)", ErrUnsupportedBrowserKind, name)
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int
	Height int

	// DeviceScaleFactor is optional; nil keeps the engine default
	DeviceScaleFactor *float64
}

// Validate checks that the viewport dimensions are usable.
func (v *Viewport) Validate() error {
	if v == nil {
		return nil
	}
	if v.Width <= 0 || v.Height <= 0 {
		return fmt.Errorf("%w: viewport width and height must be positive, got %dx%d", ErrInvalidRequest, v.Width, v.Height)
	}
	if v.DeviceScaleFactor != nil && *v.DeviceScaleFactor <= 0 {
		return fmt.Errorf("%w: device scale factor must be positive, got %v", ErrInvalidRequest, *v.DeviceScaleFactor)
	}
	return nil
}

// SessionOptions configures a new browser session.
type SessionOptions struct {
	// Kind is the browser engine to launch
	Kind BrowserKind

	// Headless controls whether the browser runs without a visible window
	Headless bool

	// Viewport sets the context viewport; nil keeps the engine default
	Viewport *Viewport
}

// Session represents an active browser session with its associated resources.
// Ownership runs Driver > Browser > Context > Page.
type Session struct {
	// ID is the unique identifier issued at creation
	ID string

	// Kind is the browser engine backing this session
	Kind BrowserKind

	// Headless indicates if the browser is running in headless mode
	Headless bool

	// Viewport is the viewport the context was created with, if any
	Viewport *Viewport

	// CreatedAt is the timestamp when the session was created
	CreatedAt time.Time

	Driver  Driver
	Browser BrowserInstance
	Context BrowsingContext
	Page    Page

	// lock serializes actions on the single page
	lock *semaphore.Weighted
	now  func() time.Time

	mu         sync.Mutex
	lastUsedAt time.Time
	currentURL string
	closed     bool
}

func newSession(id string, opts SessionOptions, clock func() time.Time) *Session {
	now := clock()
	return &Session{
		ID:         id,
		Kind:       opts.Kind,
		Headless:   opts.Headless,
		Viewport:   opts.Viewport,
		CreatedAt:  now,
		lock:       semaphore.NewWeighted(1),
		now:        clock,
		lastUsedAt: now,
		currentURL: "about:blank",
	}
}

// acquire blocks until no other action runs on this session or ctx is done.
func (s *Session) acquire(ctx context.Context) error {
	return s.lock.Acquire(ctx, 1)
}

func (s *Session) release() {
	s.lock.Release(1)
}

// touch records activity and the page URL. Actions call it when they take
// the lock and again when they finish.
func (s *Session) touch() {
	url := s.Page.URL()
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsedAt = now
	if url != "" {
		s.currentURL = url
	}
}

func (s *Session) markClosed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// LastUsedAt returns the time of the last action on this session.
func (s *Session) LastUsedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsedAt
}

// CurrentURL returns the page URL observed after the last action.
func (s *Session) CurrentURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentURL
}

// Info returns a snapshot of the session metadata.
func (s *Session) Info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionInfo{
		ID:         s.ID,
		Kind:       s.Kind,
		Headless:   s.Headless,
		CurrentURL: s.currentURL,
		CreatedAt:  s.CreatedAt,
		LastUsedAt: s.lastUsedAt,
	}
}

// SessionInfo contains metadata about a browser session.
type SessionInfo struct {
	ID         string      `json:"id"`
	Kind       BrowserKind `json:"browser"`
	Headless   bool        `json:"headless"`
	CurrentURL string      `json:"currentUrl"`
	CreatedAt  time.Time   `json:"createdAt"`
	LastUsedAt time.Time   `json:"lastUsedAt"`
}

// Default values for sessions and actions
const (
	DefaultActionTimeout = 30 * time.Second
	DefaultMaxSessions   = 0 // unlimited
	HoverVisibleTimeout  = 5 * time.Second
)
