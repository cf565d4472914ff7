package exporter

import (
	"errors"
	"fmt"
)

// Sentinel errors for export operations.
var (
	// ErrBackpressure is returned when the governor's wait queue is full.
	// Callers should retry later; the request was never started.
	ErrBackpressure = errors.New("render queue full, retry later")

	// ErrRenderTimeout means the request deadline elapsed while waiting for
	// a surface or during a browser operation. Fatal to the request only;
	// the shared browser session stays up.
	ErrRenderTimeout = errors.New("render deadline exceeded")

	// ErrNavigation means the browser failed to load the export view.
	ErrNavigation = errors.New("navigation failed")

	// ErrElementNotFound means an expected element was missing after the
	// readiness wait elapsed. Never retried.
	ErrElementNotFound = errors.New("expected element not found")

	// ErrDisallowedURL means an externally supplied URL failed the
	// scheme/host allow-list check. Surfaced immediately, never retried.
	ErrDisallowedURL = errors.New("url not allowed")

	// ErrSessionClosed is returned by Acquire after the manager shut down.
	ErrSessionClosed = errors.New("browser session closed")

	// ErrBrowserLaunch wraps failures to start or connect to Chrome.
	ErrBrowserLaunch = errors.New("failed to launch browser")

	// Request validation errors.
	ErrUnknownFormat   = errors.New("unknown export format")
	ErrUnknownTemplate = errors.New("unknown template")
	ErrEmptyUserID     = errors.New("user id cannot be empty")

	// ErrArtifactInvalid means a produced artifact failed its integrity
	// check (PDF structure or PNG header).
	ErrArtifactInvalid = errors.New("generated artifact failed validation")
)

// NotFoundError reports that an identifier resolved to no projection,
// distinguishing a missing user from a user without a resume.
type NotFoundError struct {
	Kind string // "user" or "resume"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
