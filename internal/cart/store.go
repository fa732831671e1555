package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-marketplace/internal/redisx"
	"github.com/redis/go-redis/v9"
)

// Store owns cart durability per session.
type Store interface {
	// Load returns an empty cart when the session has none.
	Load(ctx context.Context, sessionID string) (*Cart, error)
	Save(ctx context.Context, sessionID string, c *Cart) error
	Delete(ctx context.Context, sessionID string) error
}

// RedisStore keeps each cart as a JSON value under cart:{session}, refreshing
// the TTL on every save.
type RedisStore struct {
	RDB *redis.Client
	TTL time.Duration
}

func key(sessionID string) string { return fmt.Sprintf(redisx.KeyCart, sessionID) }

func (s *RedisStore) Load(ctx context.Context, sessionID string) (*Cart, error) {
	b, err := s.RDB.Get(ctx, key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return &Cart{}, nil
	}
	if err != nil {
		return nil, err
	}
	c := &Cart{}
	if err := json.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return c, nil
}

func (s *RedisStore) Save(ctx context.Context, sessionID string, c *Cart) error {
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = redisx.TTLCart
	}
	return s.RDB.Set(ctx, key(sessionID), b, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return s.RDB.Del(ctx, key(sessionID)).Err()
}
