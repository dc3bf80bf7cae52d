package platform

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTransport marks a network-level failure: the request never produced
// a platform response. Retryable at the caller's discretion.
var ErrTransport = errors.New("platform: transport failure")

// PlatformError means the platform understood the request and rejected
// it. Never retried; the workflow compensates instead.
type PlatformError struct {
	StatusCode int
	Type       string
	Detail     string
}

func (e *PlatformError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 3)
	parts = append(parts, "platform error")

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if detail := strings.TrimSpace(e.Detail); detail != "" {
		parts = append(parts, detail)
	} else if e.Type != "" {
		parts = append(parts, e.Type)
	}

	return strings.Join(parts, ": ")
}

// IsTransport reports whether an error is a network-level failure rather
// than a platform rejection.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}
