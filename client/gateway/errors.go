package gateway

import (
	"errors"
	"fmt"
)

// Kind buckets every request failure into exactly one category so callers
// branch on classification instead of probing transport details.
type Kind string

const (
	// KindAuth covers transport 401/403 and the reserved session-invalid
	// business codes. Auth failures clear credentials and are never retried.
	KindAuth Kind = "auth"
	// KindTimeout covers deadline expiry on a request that was sent.
	KindTimeout Kind = "timeout"
	// KindNetwork covers no-response failures: connection loss, server 5xx
	// and cancellation.
	KindNetwork Kind = "network"
	// KindBusiness covers a delivered envelope whose code is non-success.
	KindBusiness Kind = "business"
	// KindUnknown covers everything else.
	KindUnknown Kind = "unknown"
)

// ErrLocked is returned synchronously when a lockable request's fingerprint
// is already held by an in-flight request.
var ErrLocked = errors.New("gateway: request locked")

// Error is the settled failure of a gateway request. Code and Message carry
// the envelope fields when a response was delivered.
type Error struct {
	Kind    Kind
	Code    int
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("gateway: %s: %s", e.Kind, e.Message)
	}
	if e.cause != nil {
		return fmt.Sprintf("gateway: %s: %v", e.Kind, e.cause)
	}
	return fmt.Sprintf("gateway: %s", e.Kind)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// KindOf extracts the classification of err, or KindUnknown when err is not
// a gateway error.
func KindOf(err error) Kind {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Kind
	}
	return KindUnknown
}
