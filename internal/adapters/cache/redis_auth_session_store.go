package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Blockchain-Oracle/aptoTip-sub000/internal/ports"
)

const authSessionKeyPrefix = "tip:auth:session:"

// RedisAuthSessionStore persists ephemeral key material across the OAuth
// redirect round trip. The Redis TTL equals the ephemeral pair's lifetime, so
// abandoned flows expire on their own and the store cannot grow unbounded.
type RedisAuthSessionStore struct {
	client *redis.Client
}

func NewRedisAuthSessionStore(client *redis.Client) *RedisAuthSessionStore {
	return &RedisAuthSessionStore{client: client}
}

func (s *RedisAuthSessionStore) Put(ctx context.Context, session ports.AuthSession, ttl time.Duration) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, authSessionKeyPrefix+session.SessionID, raw, ttl).Err()
}

func (s *RedisAuthSessionStore) Get(ctx context.Context, sessionID string) (*ports.AuthSession, error) {
	raw, err := s.client.Get(ctx, authSessionKeyPrefix+sessionID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var out ports.AuthSession
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *RedisAuthSessionStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, authSessionKeyPrefix+sessionID).Err()
}
