package memory

import (
	"context"
	"sync"

	"arcquiz-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu       sync.RWMutex
	visitors map[string]domain.Visitor
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		visitors: make(map[string]domain.Visitor),
	}
}

func (s *SessionStore) Load(_ context.Context, visitorID string) (domain.Visitor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	visitor, ok := s.visitors[visitorID]
	if !ok {
		return domain.Visitor{}, domain.ErrVisitorNotFound
	}
	return visitor.Clone(), nil
}

func (s *SessionStore) Save(_ context.Context, visitor domain.Visitor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visitors[visitor.ID] = visitor.Clone()
	return nil
}

func (s *SessionStore) Delete(_ context.Context, visitorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.visitors, visitorID)
	return nil
}

// Len reports the number of stored visitors.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.visitors)
}
