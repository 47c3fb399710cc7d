package browser

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/entrhq/actionapi/pkg/logging"
)

// SessionManager owns every live session and the resources behind it.
// It is safe for concurrent use; create calls do not block one another
// while the browser is starting.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	issued   map[string]struct{}
	pending  int

	launcher      Launcher
	logger        *logging.Logger
	maxSessions   int
	actionTimeout time.Duration
	now           func() time.Time
	newID         func() string
}

// Option configures a SessionManager.
type Option func(*SessionManager)

// WithLogger sets the logger used for lifecycle and teardown messages.
func WithLogger(logger *logging.Logger) Option {
	return func(m *SessionManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMaxSessions caps the number of concurrent sessions; 0 means unlimited.
func WithMaxSessions(max int) Option {
	return func(m *SessionManager) {
		m.maxSessions = max
	}
}

// WithActionTimeout sets the default timeout applied to every new page.
func WithActionTimeout(timeout time.Duration) Option {
	return func(m *SessionManager) {
		m.actionTimeout = timeout
	}
}

// WithClock replaces time.Now, mainly for idle-expiry tests.
func WithClock(now func() time.Time) Option {
	return func(m *SessionManager) {
		m.now = now
	}
}

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(gen func() string) Option {
	return func(m *SessionManager) {
		m.newID = gen
	}
}

// NewSessionManager creates a session manager that starts drivers with launcher.
func NewSessionManager(launcher Launcher, opts ...Option) *SessionManager {
	m := &SessionManager{
		sessions:      make(map[string]*Session),
		issued:        make(map[string]struct{}),
		launcher:      launcher,
		logger:        logging.Discard("browser"),
		maxSessions:   DefaultMaxSessions,
		actionTimeout: DefaultActionTimeout,
		now:           time.Now,
		newID:         uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// releaseStep is one resource to free during teardown.
type releaseStep struct {
	name  string
	close func() error
}

// teardown frees resources in the given order. Failures are logged and the
// remaining steps still run.
func (m *SessionManager) teardown(label string, steps []releaseStep) {
	for _, step := range steps {
		if step.close == nil {
			continue
		}
		if err := step.close(); err != nil {
			m.logger.Warnf("session %s: failed to close %s: %v", label, step.name, err)
		}
	}
}

// reserve claims a slot against maxSessions for a create in progress.
func (m *SessionManager) reserve() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxSessions > 0 && len(m.sessions)+m.pending >= m.maxSessions {
		return fmt.Errorf("%w: maximum number of sessions (%d) reached", ErrSessionStartFailure, m.maxSessions)
	}
	m.pending++
	return nil
}

func (m *SessionManager) unreserve() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending--
}

// Create launches driver, browser, context and page, stores the bundle and
// returns its new ID. If any step fails, everything acquired so far is
// released in reverse order and nothing is stored.
func (m *SessionManager) Create(ctx context.Context, opts SessionOptions) (string, error) {
	kind, err := ParseBrowserKind(string(opts.Kind))
	if err != nil {
		return "", err
	}
	opts.Kind = kind

	if err := opts.Viewport.Validate(); err != nil {
		return "", err
	}

	if err := m.reserve(); err != nil {
		return "", err
	}
	defer m.unreserve()

	var acquired []releaseStep
	fail := func(stage string, cause error) (string, error) {
		for i, j := 0, len(acquired)-1; i < j; i, j = i+1, j-1 {
			acquired[i], acquired[j] = acquired[j], acquired[i]
		}
		m.teardown("(starting)", acquired)
		m.logger.Errorf("failed to start %s session at %s: %v", kind, stage, cause)
		return "", fmt.Errorf("%w: %s: %w", ErrSessionStartFailure, stage, cause)
	}

	driver, err := m.launcher.Start(ctx)
	if err != nil {
		return fail("start driver", err)
	}
	acquired = append(acquired, releaseStep{"driver", driver.Stop})

	instance, err := driver.Launch(kind, opts.Headless)
	if err != nil {
		return fail("launch "+string(kind), err)
	}
	acquired = append(acquired, releaseStep{"browser", instance.Close})

	bctx, err := instance.NewContext(ContextOptions{Viewport: opts.Viewport})
	if err != nil {
		return fail("create context", err)
	}
	acquired = append(acquired, releaseStep{"context", bctx.Close})

	page, err := bctx.NewPage()
	if err != nil {
		return fail("create page", err)
	}
	if m.actionTimeout > 0 {
		page.SetDefaultTimeout(m.actionTimeout)
	}

	m.mu.Lock()
	id := m.newID()
	for _, taken := m.issued[id]; taken; _, taken = m.issued[id] {
		id = m.newID()
	}
	m.issued[id] = struct{}{}

	session := newSession(id, opts, m.now)
	session.Driver = driver
	session.Browser = instance
	session.Context = bctx
	session.Page = page
	m.sessions[id] = session
	m.mu.Unlock()

	m.logger.Infof("session %s started (%s, headless=%v)", id, kind, opts.Headless)
	return id, nil
}

// Close releases a session's page, context, browser and driver, in that
// order, and forgets it. It returns false if the ID is unknown. Any action
// still running on the session finishes first.
func (m *SessionManager) Close(id string) bool {
	m.mu.Lock()
	session, exists := m.sessions[id]
	if exists {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !exists {
		return false
	}

	// The entry is already gone, so no new action can start.
	_ = session.acquire(context.Background())
	defer session.release()
	session.markClosed()

	m.teardown(id, session.releaseSteps())
	m.logger.Infof("session %s closed", id)
	return true
}

func (s *Session) releaseSteps() []releaseStep {
	return []releaseStep{
		{"page", s.Page.Close},
		{"context", s.Context.Close},
		{"browser", s.Browser.Close},
		{"driver", s.Driver.Stop},
	}
}

// Get retrieves an active session by ID.
func (m *SessionManager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return session, nil
}

// List returns information about all active sessions, oldest first.
func (m *SessionManager) List() []SessionInfo {
	m.mu.RLock()
	infos := make([]SessionInfo, 0, len(m.sessions))
	for _, session := range m.sessions {
		infos = append(infos, session.Info())
	}
	m.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}

// Count returns the number of active sessions.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CloseIdle closes sessions unused for longer than maxIdle and returns how many were closed.
// A session with an action in progress is never idle.
func (m *SessionManager) CloseIdle(maxIdle time.Duration) int {
	m.mu.RLock()
	candidates := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		candidates = append(candidates, session)
	}
	m.mu.RUnlock()

	closed := 0
	for _, session := range candidates {
		if m.closeIfIdle(session, maxIdle) {
			m.logger.Infof("session %s closed after %s idle", session.ID, maxIdle)
			closed++
		}
	}
	return closed
}

// closeIfIdle holds the session lock from the idle check through removal, so
// no action can slip in between. Busy sessions are left for the next sweep.
func (m *SessionManager) closeIfIdle(session *Session, maxIdle time.Duration) bool {
	if !session.lock.TryAcquire(1) {
		return false
	}
	defer session.release()

	if m.now().Sub(session.LastUsedAt()) <= maxIdle {
		return false
	}

	m.mu.Lock()
	current, exists := m.sessions[session.ID]
	if exists && current == session {
		delete(m.sessions, session.ID)
	}
	m.mu.Unlock()
	if !exists || current != session {
		return false
	}

	session.markClosed()
	m.teardown(session.ID, session.releaseSteps())
	return true
}

// CloseAll closes every session and returns how many were closed.
func (m *SessionManager) CloseAll() int {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	closed := 0
	for _, id := range ids {
		if m.Close(id) {
			closed++
		}
	}
	return closed
}
