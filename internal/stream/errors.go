// Package stream implements the token-streaming client for the inference
// endpoint: one network stream per session, delta delivery in arrival order,
// idempotent cancellation, and error classification.
package stream

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers know whether to offer a retry.
type Kind string

const (
	// KindValidation covers locally rejected input and non-auth 4xx
	// responses. Terminal; the message is surfaced verbatim.
	KindValidation Kind = "validation"
	// KindAuth covers 401/403. Terminal, no auto-retry.
	KindAuth Kind = "auth"
	// KindNetwork covers connection resets, connect timeouts and mid-stream
	// stalls. Retryable via an explicit user-triggered retry.
	KindNetwork Kind = "network"
	// KindProvider covers 5xx and model failures. Retryable, same as network.
	KindProvider Kind = "provider"
	// KindPersistence covers notes/telemetry write failures. Logged only,
	// never surfaced.
	KindPersistence Kind = "persistence"
	// KindParse covers corrupted cached payloads. Treated as empty state.
	KindParse Kind = "parse"
)

// Error is a classified stream failure.
type Error struct {
	Kind    Kind
	Message string
	Status  int // HTTP status when the failure came from a response
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Retryable reports whether an explicit retry of the identical request is
// worth offering.
func (e *Error) Retryable() bool {
	return e.Kind == KindNetwork || e.Kind == KindProvider
}

// ClassifyStatus maps an HTTP response status to an error kind.
func ClassifyStatus(status int) Kind {
	switch {
	case status == 401 || status == 403:
		return KindAuth
	case status >= 400 && status < 500:
		return KindValidation
	default:
		return KindProvider
	}
}

// AsError extracts a classified *Error from err, wrapping unclassified
// transport failures as network errors.
func AsError(err error) *Error {
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	return &Error{Kind: KindNetwork, Message: err.Error()}
}
