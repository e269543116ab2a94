package pesapal

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredentials is returned when consumer key or secret is not configured.
	ErrMissingCredentials = errors.New("pesapal: consumer key and secret are required")

	// ErrMissingCallbackURL is returned when the browser return URL is not configured.
	ErrMissingCallbackURL = errors.New("pesapal: callback URL is not configured")

	// ErrMissingIPNURL is returned when the notification endpoint is not configured.
	ErrMissingIPNURL = errors.New("pesapal: IPN URL is not configured")

	// ErrMissingTrackingID is returned for status queries without a tracking id.
	ErrMissingTrackingID = errors.New("pesapal: order tracking id is required")
)

// AuthError indicates the provider rejected our credentials. Not retried.
type AuthError struct {
	Code    string
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("pesapal: authentication failed: %s (code: %s)", e.Message, e.Code)
	}
	return fmt.Sprintf("pesapal: authentication failed: %s", e.Message)
}

func (e *AuthError) Unwrap() error { return e.Err }

// GatewayError wraps a structured error returned by the provider for order
// submission or status queries. The provider code and message are carried
// verbatim for diagnostics, never swallowed.
type GatewayError struct {
	Op      string // "submit_order" or "transaction_status"
	Code    string
	Message string
}

func (e *GatewayError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("pesapal: %s: %s (code: %s)", e.Op, e.Message, e.Code)
	}
	return fmt.Sprintf("pesapal: %s: %s", e.Op, e.Message)
}

// TransportError wraps a connection or timeout failure. The backoff poller
// treats these as transient and retries within its budget.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("pesapal: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
