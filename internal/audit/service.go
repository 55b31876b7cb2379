package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for journal entries.
//
// It MUST be append-only.
type Repository interface {
	Append(ctx context.Context, e Entry) error
	List(ctx context.Context, conversationID string) ([]Entry, error)
}

// Service journals call signals.
//
// Callers should treat journaling as best-effort: a failed append is logged,
// never allowed to block a state transition.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEntry = errors.New("audit: invalid entry")

func (s *Service) Append(ctx context.Context, e Entry) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.ConversationID == "" {
		return ErrInvalidEntry
	}
	if e.EventType == "" {
		return ErrInvalidEntry
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// List returns the journal of one conversation, oldest first.
func (s *Service) List(ctx context.Context, conversationID string) ([]Entry, error) {
	if s.repo == nil {
		return nil, errors.New("audit: repository not configured")
	}
	if conversationID == "" {
		return nil, ErrInvalidEntry
	}
	return s.repo.List(ctx, conversationID)
}
