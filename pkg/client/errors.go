// Package client is the Go client for the authentication service: a request
// gateway with duplicate-suppression, retry-with-backoff and centralized
// failure translation, plus a session monitor that owns the client's belief
// about "am I authenticated".
package client

import (
	"errors"
	"fmt"
)

// Kind classifies every failure the gateway can surface. Nothing above the
// gateway inspects raw transport detail.
type Kind int

const (
	KindNetwork Kind = iota
	KindTimeout
	KindCancelled
	KindHTTP
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindCancelled:
		return "cancelled"
	case KindHTTP:
		return "http"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind Kind
	// Status is set for KindHTTP only.
	Status  int
	Message string
	err     error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindHTTP:
		return fmt.Sprintf("http %d: %s", e.Status, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

func (e *Error) Unwrap() error {
	return e.err
}

// IsCancelled reports whether err is a superseded or aborted request. Such
// failures are never user-facing and never retried.
func IsCancelled(err error) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Kind == KindCancelled
}

// IsRetryable reports whether a failure is worth retrying: transport
// problems, timeouts and the transient HTTP statuses.
func IsRetryable(err error) bool {
	var ce *Error
	if !errors.As(err, &ce) {
		return false
	}
	switch ce.Kind {
	case KindNetwork, KindTimeout:
		return true
	case KindHTTP:
		switch ce.Status {
		case 429, 502, 503, 504:
			return true
		}
	}
	return false
}
