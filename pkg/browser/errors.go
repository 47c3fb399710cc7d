package browser

import "errors"

// Hard errors. These are returned from registry and executor calls and must
// be checked with errors.Is; the returned error usually wraps one of these
// with more context.
var (
	ErrUnsupportedBrowserKind = errors.New("unsupported browser kind")
	ErrSessionStartFailure    = errors.New("failed to start session")
	ErrSessionNotFound        = errors.New("session not found")
	ErrInvalidRequest         = errors.New("invalid request")
	ErrInvalidLocator         = errors.New("invalid locator")
)

// ErrElementNotFound is the cause carried by a soft failure when a locator
// resolves to zero elements. It is never returned as a hard error.
var ErrElementNotFound = errors.New("no element matches locator")
