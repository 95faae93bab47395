package relay

import (
	"errors"
	"fmt"
)

var (
	// ErrInput is returned when the request carries no URL.
	ErrInput = errors.New("url is required")

	// ErrNoPlayableMedia is returned when resolution succeeded but yielded
	// nothing the selected strategy can stream.
	ErrNoPlayableMedia = errors.New("no playable media found")
)

// ResolutionError wraps a failure of the extraction engine. Message is the
// engine's diagnostic text, passed through untouched.
type ResolutionError struct {
	Message string
	Err     error
}

func (e *ResolutionError) Error() string { return e.Message }

func (e *ResolutionError) Unwrap() error { return e.Err }

// UpstreamFetchError is returned when the media source failed before any
// byte reached the client: a failed or non-2xx GET, or a toolchain that
// could not start or produced nothing.
type UpstreamFetchError struct {
	StatusCode int // 0 when no HTTP response was received
	Err        error
}

func (e *UpstreamFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream fetch failed: %v", e.Err)
}

func (e *UpstreamFetchError) Unwrap() error { return e.Err }

// RelayInterruptedError reports a relay that ended early after headers were
// committed. It is never turned into an HTTP error.
type RelayInterruptedError struct {
	Written int64
	Err     error
}

func (e *RelayInterruptedError) Error() string {
	return fmt.Sprintf("relay interrupted after %d bytes: %v", e.Written, e.Err)
}

func (e *RelayInterruptedError) Unwrap() error { return e.Err }
