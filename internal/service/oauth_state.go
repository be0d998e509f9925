package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const oauthStatePrefix = "oauth:state:"

// OAuthStateStore issues and consumes single-use anti-CSRF state values.
type OAuthStateStore interface {
	Issue(ctx context.Context) (string, error)
	Consume(ctx context.Context, state string) error
}

type redisOAuthStateStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisOAuthStateStore stores state values in Redis with the given TTL.
func NewRedisOAuthStateStore(client *redis.Client, ttl time.Duration) OAuthStateStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &redisOAuthStateStore{client: client, ttl: ttl}
}

func (s *redisOAuthStateStore) Issue(ctx context.Context) (string, error) {
	state := uuid.NewString()
	ok, err := s.client.SetNX(ctx, oauthStatePrefix+state, 1, s.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("store oauth state: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("store oauth state: collision")
	}
	return state, nil
}

// Consume deletes the state. Only the first caller for a given value succeeds.
func (s *redisOAuthStateStore) Consume(ctx context.Context, state string) error {
	state = strings.TrimSpace(state)
	if state == "" {
		return ErrOAuthState
	}

	removed, err := s.client.Del(ctx, oauthStatePrefix+state).Result()
	if err != nil {
		return fmt.Errorf("consume oauth state: %w", err)
	}
	if removed == 0 {
		return ErrOAuthState
	}
	return nil
}
