package calls

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps calls in process memory. Used in tests and single-node
// local runs.
type MemoryStore struct {
	mu         sync.Mutex
	calls      map[string]Call
	byProvider map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		calls:      make(map[string]Call),
		byProvider: make(map[string]string),
	}
}

func (s *MemoryStore) Create(ctx context.Context, c Call) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.calls[c.ConversationID]; ok {
		return ErrAlreadyExists
	}
	s.calls[c.ConversationID] = c
	if c.ProviderCallID != "" {
		s.byProvider[c.ProviderCallID] = c.ConversationID
	}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, conversationID string) (Call, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.calls[conversationID]
	if !ok {
		return Call{}, ErrNotFound
	}
	return c, nil
}

func (s *MemoryStore) FindByProviderCallID(ctx context.Context, providerCallID string) (Call, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byProvider[providerCallID]
	if !ok {
		return Call{}, ErrNotFound
	}
	return s.calls[id], nil
}

func (s *MemoryStore) CompareAndSetStatus(ctx context.Context, conversationID string, from, to Status, at time.Time) (bool, error) {
	return s.update(conversationID, func(c *Call) bool {
		if c.Status != from {
			return false
		}
		c.Status = to
		c.UpdatedAt = at
		return true
	})
}

func (s *MemoryStore) CompareAndSetClassification(ctx context.Context, conversationID string, from, to Classification, at time.Time) (bool, error) {
	return s.update(conversationID, func(c *Call) bool {
		if c.AMDClassification != from {
			return false
		}
		c.AMDClassification = to
		c.UpdatedAt = at
		return true
	})
}

func (s *MemoryStore) SetProviderCallID(ctx context.Context, conversationID, providerCallID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.calls[conversationID]
	if !ok {
		return ErrNotFound
	}
	if c.ProviderCallID != "" {
		delete(s.byProvider, c.ProviderCallID)
	}
	c.ProviderCallID = providerCallID
	c.UpdatedAt = at
	s.calls[conversationID] = c
	s.byProvider[providerCallID] = conversationID
	return nil
}

func (s *MemoryStore) SetRecordingURL(ctx context.Context, conversationID, url string, at time.Time) error {
	_, err := s.update(conversationID, func(c *Call) bool {
		c.RecordingURL = url
		c.UpdatedAt = at
		return true
	})
	return err
}

func (s *MemoryStore) update(conversationID string, fn func(*Call) bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.calls[conversationID]
	if !ok {
		return false, ErrNotFound
	}
	if !fn(&c) {
		return false, nil
	}
	s.calls[conversationID] = c
	return true, nil
}
