package calls

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("calls: not found")
	ErrAlreadyExists = errors.New("calls: already exists")
	// ErrContention is returned when compare-and-set kept losing races.
	ErrContention = errors.New("calls: too many concurrent updates")
)

// Store persists Call records.
//
// Status and classification are never overwritten blindly: the CompareAndSet
// methods only write when the stored value still equals from, and report
// false otherwise. Implementations must return ErrNotFound for unknown
// conversation ids.
type Store interface {
	Create(ctx context.Context, c Call) error
	Get(ctx context.Context, conversationID string) (Call, error)
	FindByProviderCallID(ctx context.Context, providerCallID string) (Call, error)

	CompareAndSetStatus(ctx context.Context, conversationID string, from, to Status, at time.Time) (bool, error)
	CompareAndSetClassification(ctx context.Context, conversationID string, from, to Classification, at time.Time) (bool, error)

	SetProviderCallID(ctx context.Context, conversationID, providerCallID string, at time.Time) error
	SetRecordingURL(ctx context.Context, conversationID, url string, at time.Time) error
}
