package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return server, client
}

func TestOAuthStateIsSingleUse(t *testing.T) {
	_, client := newMiniRedis(t)
	store := NewRedisOAuthStateStore(client, time.Minute)

	state, err := store.Issue(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, state)

	require.NoError(t, store.Consume(context.Background(), state))
	require.ErrorIs(t, store.Consume(context.Background(), state), ErrOAuthState)
}

func TestOAuthStateExpires(t *testing.T) {
	server, client := newMiniRedis(t)
	store := NewRedisOAuthStateStore(client, time.Minute)

	state, err := store.Issue(context.Background())
	require.NoError(t, err)
	require.True(t, server.Exists(oauthStatePrefix+state))

	server.FastForward(2 * time.Minute)
	require.ErrorIs(t, store.Consume(context.Background(), state), ErrOAuthState)
}

func TestOAuthStateRejectsUnknownValues(t *testing.T) {
	_, client := newMiniRedis(t)
	store := NewRedisOAuthStateStore(client, time.Minute)

	require.ErrorIs(t, store.Consume(context.Background(), ""), ErrOAuthState)
	require.ErrorIs(t, store.Consume(context.Background(), "forged"), ErrOAuthState)
}
