// Package api exposes the session registry and action executor over HTTP.
//
// Routes:
//
//	GET  /                  service info
//	GET  /healthz           liveness
//	GET  /metrics           Prometheus metrics
//	GET  /sessions          active sessions
//	POST /session/start     {browser, headless, viewport_width, viewport_height, device_scale_factor}
//	POST /session/close     {sessionId}
//	POST /action/{kind}     {sessionId, locator, ...}
//
// Action responses are 200 with {status:"success", screenshot} or, when the
// action failed on the page, {status:"error", error, screenshot}. Requests
// rejected before reaching the page get a 4xx/5xx with {status:"error", error}.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/net/netutil"

	"github.com/entrhq/actionapi/pkg/browser"
	"github.com/entrhq/actionapi/pkg/logging"
)

// SessionRegistry is the subset of *browser.SessionManager the server uses.
type SessionRegistry interface {
	Create(ctx context.Context, opts browser.SessionOptions) (string, error)
	Close(id string) bool
	List() []browser.SessionInfo
	Count() int
	CloseIdle(maxIdle time.Duration) int
	CloseAll() int
}

// ActionExecutor runs actions; *browser.Executor implements it.
type ActionExecutor interface {
	Execute(ctx context.Context, sessionID string, action browser.Action) (browser.Result, error)
}

// ServerConfig configures the API server.
type ServerConfig struct {
	Sessions SessionRegistry
	Executor ActionExecutor

	// Logger defaults to a discarding logger
	Logger *logging.Logger

	// Metrics defaults to a fresh registry
	Metrics *Metrics

	// Session defaults for start requests that omit them
	DefaultKind browser.BrowserKind
	Headless    bool

	// IdleTimeout closes sessions unused for this long; 0 disables it
	IdleTimeout time.Duration

	// MaxConnections caps concurrent connections; 0 means unlimited
	MaxConnections int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	Version string
}

// Server is the action API server.
type Server struct {
	cfg      ServerConfig
	sessions SessionRegistry
	executor ActionExecutor
	logger   *logging.Logger
	metrics  *Metrics
	router   chi.Router
}

// NewServer creates a new API server.
func NewServer(cfg ServerConfig) *Server {
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard("api")
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics()
	}
	if cfg.DefaultKind == "" {
		cfg.DefaultKind = browser.KindChromium
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 15 * time.Second
	}

	s := &Server{
		cfg:      cfg,
		sessions: cfg.Sessions,
		executor: cfg.Executor,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	// Set before Route so the subrouters inherit them
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusNotFound, statusResponse{Status: "error", Error: "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusMethodNotAllowed, statusResponse{Status: "error", Error: "method not allowed"})
	})

	r.Get("/", s.handleRoot)
	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	r.Get("/sessions", s.handleListSessions)

	r.Route("/session", func(r chi.Router) {
		r.Post("/start", s.handleStartSession)
		r.Post("/close", s.handleCloseSession)
	})

	r.Route("/action", func(r chi.Router) {
		for _, kind := range browser.ActionKinds {
			r.Post("/"+string(kind), s.handleAction(kind))
		}
	})

	return r
}

// Handler returns the HTTP handler for all routes.
func (s *Server) Handler() http.Handler {
	return s.router
}

// requestLogger logs one line per request at debug level.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debugf("%s %s %d %s [%s]", r.Method, r.URL.Path, ww.Status(), time.Since(start), middleware.GetReqID(r.Context()))
	})
}

// Serve accepts connections on ln until ctx is done, then shuts the HTTP
// server down and closes every remaining session.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.cfg.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxConnections)
	}

	httpServer := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	if s.cfg.IdleTimeout > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.runJanitor(ctx)
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.Serve(ln)
	}()
	s.logger.Infof("listening on %s", ln.Addr())

	var err error
	select {
	case err = <-serveErr:
	case <-ctx.Done():
		s.logger.Infof("shutting down")
		shutdownCtx, stop := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		err = httpServer.Shutdown(shutdownCtx)
		stop()
		<-serveErr
	}

	cancel()
	wg.Wait()

	if n := s.sessions.CloseAll(); n > 0 {
		s.metrics.sessionsClosed.WithLabelValues("shutdown").Add(float64(n))
		s.logger.Infof("closed %d session(s) on shutdown", n)
	}
	s.metrics.setActiveSessions(s.sessions.Count())

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// runJanitor closes idle sessions until ctx is done.
func (s *Server) runJanitor(ctx context.Context) {
	interval := s.cfg.IdleTimeout / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepIdle()
		}
	}
}

func (s *Server) sweepIdle() {
	if n := s.sessions.CloseIdle(s.cfg.IdleTimeout); n > 0 {
		s.metrics.sessionsClosed.WithLabelValues("idle").Add(float64(n))
		s.logger.Infof("closed %d idle session(s)", n)
	}
	s.metrics.setActiveSessions(s.sessions.Count())
}
