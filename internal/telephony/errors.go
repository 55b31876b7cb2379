package telephony

import (
	"errors"
	"fmt"
)

// ErrNotCompleted is wrapped by the ProviderError returned when an end-call
// request succeeds but the provider reports a status other than completed.
var ErrNotCompleted = errors.New("telephony: call not completed")

// apiError is the provider's JSON error body.
type apiError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

// RejectedRequestError is returned when the provider answers 400, usually
// because a phone number is malformed. The request should not be repeated
// unchanged.
type RejectedRequestError struct {
	Op       string
	Code     int
	Message  string
	MoreInfo string
}

func (e *RejectedRequestError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("telephony: %s rejected by provider (code %d): %s", e.Op, e.Code, e.Message)
	}
	return fmt.Sprintf("telephony: %s rejected by provider: %s", e.Op, e.Message)
}

// ProviderError covers every other provider-side failure: non-2xx statuses
// other than 400, unreadable or incomplete 2xx bodies, and end-call requests
// that did not complete the call.
type ProviderError struct {
	Op         string
	StatusCode int
	Code       int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("telephony: %s failed (http %d): %s", e.Op, e.StatusCode, msg)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// TransportError means the request never produced a provider response:
// connection failures, cancelled contexts and timeouts.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("telephony: %s transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the underlying error was a timeout.
func (e *TransportError) Timeout() bool {
	var t interface{ Timeout() bool }
	return errors.As(e.Err, &t) && t.Timeout()
}
