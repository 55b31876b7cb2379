package events

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownType    = errors.New("events: unknown discriminant")
	ErrInvalidPayload = errors.New("events: invalid payload")
	ErrDuplicateType  = errors.New("events: type already registered")
)

// Decode error kinds.
const (
	KindEventType      = "event_type"
	KindPayload        = "payload"
	KindStatus         = "status"
	KindClassification = "classification"
)

// DecodeError reports an inbound signal that could not be mapped onto the
// event taxonomy. Callers fail closed: nothing is applied.
type DecodeError struct {
	Kind  string
	Value string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("decode %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("decode %s %q: %v", e.Kind, e.Value, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
