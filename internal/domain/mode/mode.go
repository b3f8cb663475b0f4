// Package mode switches the active streaming backend by restarting the
// service that owns it.
package mode

import (
	"errors"
	"fmt"
)

// Mode identifies a streaming backend.
type Mode string

const (
	// Janus is the WebRTC transport.
	Janus Mode = "janus"
	// MJPEG is the uStreamer fallback transport.
	MJPEG Mode = "mjpeg"
)

// All lists every valid mode.
var All = []Mode{Janus, MJPEG}

var ErrInvalidMode = errors.New("invalid mode")

// Parse accepts exactly "janus" or "mjpeg".
func Parse(token string) (Mode, error) {
	switch Mode(token) {
	case Janus, MJPEG:
		return Mode(token), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, token)
	}
}

func (m Mode) String() string {
	return string(m)
}

// Outcome classifies one switch attempt.
type Outcome string

const (
	OutcomeSucceeded     Outcome = "succeeded"
	OutcomeCommandFailed Outcome = "command_failed"
	OutcomeUnknownError  Outcome = "unknown_error"
)

// UnknownErrorDiagnostic is returned to callers for unclassified failures.
const UnknownErrorDiagnostic = "Unknown error"
