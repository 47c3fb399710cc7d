package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/entrhq/actionapi/pkg/browser"
)

const maxBodyBytes int64 = 1 << 20

// statusResponse is the envelope of every session and action response.
type statusResponse struct {
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	Message    string `json:"message,omitempty"`
	Screenshot string `json:"screenshot,omitempty"`
}

// respondJSON sends a JSON response with appropriate headers.
func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// respondError sends {status:"error", error} with a status derived from err.
func respondError(w http.ResponseWriter, err error) {
	respondJSON(w, statusFor(err), statusResponse{Status: "error", Error: err.Error()})
}

// statusFor maps hard errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, browser.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, browser.ErrInvalidRequest),
		errors.Is(err, browser.ErrInvalidLocator),
		errors.Is(err, browser.ErrUnsupportedBrowserKind):
		return http.StatusBadRequest
	case errors.Is(err, errBadBody):
		return http.StatusBadRequest
	case errors.Is(err, errBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

var (
	errBadBody      = errors.New("malformed request body")
	errBodyTooLarge = errors.New("request body too large")
)

// decodeJSONBody reads one JSON value into dst. Locator errors keep their
// sentinel; everything else is reported as a malformed body.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil {
		return fmt.Errorf("%w: request body required", errBadBody)
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return fmt.Errorf("%w (max %d bytes)", errBodyTooLarge, maxBodyBytes)
		case errors.Is(err, browser.ErrInvalidLocator):
			return err
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: request body required", errBadBody)
		default:
			return fmt.Errorf("%w: %v", errBadBody, err)
		}
	}
	return nil
}
