package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"arcquiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// SessionStore keeps one JSON snapshot per visitor under quiz:visitor:{id}.
// Every save refreshes the TTL, so idle visitors expire on their own.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client: client,
		ttl:    ttl,
	}
}

func (s *SessionStore) Load(ctx context.Context, visitorID string) (domain.Visitor, error) {
	raw, err := s.client.Get(ctx, s.key(visitorID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Visitor{}, domain.ErrVisitorNotFound
	}
	if err != nil {
		return domain.Visitor{}, fmt.Errorf("get visitor: %w", err)
	}

	var visitor domain.Visitor
	if err := json.Unmarshal(raw, &visitor); err != nil {
		return domain.Visitor{}, fmt.Errorf("unmarshal visitor: %w", err)
	}
	return visitor, nil
}

func (s *SessionStore) Save(ctx context.Context, visitor domain.Visitor) error {
	raw, err := json.Marshal(visitor)
	if err != nil {
		return fmt.Errorf("marshal visitor: %w", err)
	}
	if err := s.client.Set(ctx, s.key(visitor.ID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("set visitor: %w", err)
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, visitorID string) error {
	return s.client.Del(ctx, s.key(visitorID)).Err()
}

func (s *SessionStore) key(visitorID string) string {
	return "quiz:visitor:" + visitorID
}
