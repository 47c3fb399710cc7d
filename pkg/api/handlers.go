package api

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/entrhq/actionapi/pkg/browser"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	endpoints := []string{
		"GET /healthz",
		"GET /metrics",
		"GET /sessions",
		"POST /session/start",
		"POST /session/close",
	}
	for _, kind := range browser.ActionKinds {
		endpoints = append(endpoints, "POST /action/"+string(kind))
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"name":      "actionapi",
		"version":   s.cfg.Version,
		"browsers":  browser.BrowserKinds,
		"endpoints": endpoints,
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Count(),
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"sessions": s.sessions.List(),
	})
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		respondError(w, err)
		return
	}

	opts := browser.SessionOptions{
		Kind:     browser.BrowserKind(req.Browser),
		Headless: s.cfg.Headless,
	}
	if opts.Kind == "" {
		opts.Kind = s.cfg.DefaultKind
	}
	if req.Headless != nil {
		opts.Headless = *req.Headless
	}

	viewport, err := req.viewport()
	if err != nil {
		respondError(w, err)
		return
	}
	opts.Viewport = viewport

	id, err := s.sessions.Create(r.Context(), opts)
	if err != nil {
		if errors.Is(err, browser.ErrSessionStartFailure) {
			s.metrics.startFailures.Inc()
			s.logger.Errorf("start session: %v", err)
		}
		respondError(w, err)
		return
	}

	s.metrics.sessionsStarted.Inc()
	s.metrics.setActiveSessions(s.sessions.Count())
	respondJSON(w, http.StatusOK, StartSessionResponse{SessionID: id})
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	var req CloseSessionRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		respondError(w, err)
		return
	}

	if !s.sessions.Close(req.SessionID) {
		respondError(w, fmt.Errorf("%w: %s", browser.ErrSessionNotFound, req.SessionID))
		return
	}

	s.metrics.sessionsClosed.WithLabelValues("request").Inc()
	s.metrics.setActiveSessions(s.sessions.Count())
	respondJSON(w, http.StatusOK, statusResponse{
		Status:  "success",
		Message: fmt.Sprintf("Session %s closed successfully", req.SessionID),
	})
}

// handleAction returns the handler for one action kind.
func (s *Server) handleAction(kind browser.ActionKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		var req ActionRequest
		if err := decodeJSONBody(w, r, &req); err != nil {
			s.metrics.observeAction(kind, outcomeError, time.Since(start))
			respondError(w, err)
			return
		}

		action, err := req.action(kind)
		if err != nil {
			s.metrics.observeAction(kind, outcomeError, time.Since(start))
			respondError(w, err)
			return
		}

		result, err := s.executor.Execute(r.Context(), req.SessionID, action)
		if err != nil {
			s.metrics.observeAction(kind, outcomeError, time.Since(start))
			respondError(w, err)
			return
		}

		screenshot := base64.StdEncoding.EncodeToString(result.Screenshot)
		if !result.Success {
			s.metrics.observeAction(kind, outcomeFailure, time.Since(start))
			cause := "action failed"
			if result.Cause != nil {
				cause = result.Cause.Error()
			}
			respondJSON(w, http.StatusOK, statusResponse{Status: "error", Error: cause, Screenshot: screenshot})
			return
		}

		s.metrics.observeAction(kind, outcomeSuccess, time.Since(start))
		respondJSON(w, http.StatusOK, statusResponse{Status: "success", Screenshot: screenshot})
	}
}
