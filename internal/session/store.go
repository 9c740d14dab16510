// README: Redis-backed store holding the latest plan of each client session.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"bikeplan/internal/service"
)

// ErrNotFound is returned when a session has no stored plan.
var ErrNotFound = errors.New("session has no plan")

const keyPrefix = "bikeplan:session:"

// Store keeps one plan per session id. Each new query resets the session
// before planning so a failed run never leaves the previous result behind.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func key(id string) string {
	return keyPrefix + id + ":plan"
}

// Reset drops whatever the session held.
func (s *Store) Reset(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("reset session %s: %w", id, err)
	}
	return nil
}

// Save stores the finished session, replacing any previous value.
func (s *Store) Save(ctx context.Context, ps *service.PlanningSession) error {
	b, err := json.Marshal(ps)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", ps.ID, err)
	}
	if err := s.rdb.Set(ctx, key(ps.ID), b, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session %s: %w", ps.ID, err)
	}
	return nil
}

// Load returns the stored plan or ErrNotFound.
func (s *Store) Load(ctx context.Context, id string) (*service.PlanningSession, error) {
	b, err := s.rdb.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	var ps service.PlanningSession
	if err := json.Unmarshal(b, &ps); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &ps, nil
}
