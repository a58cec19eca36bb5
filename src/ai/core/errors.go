package core

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind splits provider failures into the two classes the pipeline
// cares about: Transient failures are retried under the stage bound,
// Fatal ones surface immediately and trip the admission breaker.
type ErrorKind int

const (
	Transient ErrorKind = iota
	Fatal
)

// ProviderError wraps a failed backend call with its classification.
type ProviderError struct {
	Provider string
	Status   int // HTTP status, 0 for transport errors
	Kind     ErrorKind
	Message  string
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: API error %d: %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Transient() bool { return e.Kind == Transient }

// ClassifyStatus maps an HTTP status to an error kind. Auth failures
// and unknown models are configuration problems; everything else that
// errors is worth retrying.
func ClassifyStatus(status int) ErrorKind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return Fatal
	default:
		return Transient
	}
}

// StatusError builds a ProviderError from a non-200 response.
func StatusError(provider string, status int, body []byte) *ProviderError {
	msg := string(body)
	if len(msg) > 300 {
		msg = msg[:300]
	}
	return &ProviderError{Provider: provider, Status: status, Kind: ClassifyStatus(status), Message: msg}
}

// TransportError wraps a network-level failure. Timeouts and broken
// connections are always transient.
func TransportError(provider string, err error) error {
	return &ProviderError{Provider: provider, Kind: Transient, Message: err.Error()}
}

// IsFatal reports whether err carries a fatal provider classification.
func IsFatal(err error) bool {
	var perr *ProviderError
	return errors.As(err, &perr) && perr.Kind == Fatal
}
