package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/JJediny/heimdall2/internal/auth"
	"github.com/JJediny/heimdall2/internal/database"
	"github.com/JJediny/heimdall2/internal/models"
	"github.com/JJediny/heimdall2/internal/repository"
)

const testSecret = "service-test-secret-0123456789abcdef"

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.ConnectSQLite(database.MemorySQLiteDSN(uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, repository.AutoMigrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func countUsers(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Table("users").Count(&count).Error)
	return count
}

func newTestIssuer(t *testing.T) *auth.SessionIssuer {
	t.Helper()
	issuer, err := auth.NewSessionIssuer(auth.SessionConfig{Secret: testSecret, Issuer: "heimdall-test", TTL: time.Hour})
	require.NoError(t, err)
	return issuer
}

// seedLocalUser stores a user whose password is hashed with the minimum bcrypt cost.
func seedLocalUser(t *testing.T, users repository.UserRepository, hasher *auth.PasswordHasher, username, password string) models.User {
	t.Helper()
	hash, err := hasher.Hash(password)
	require.NoError(t, err)
	user := models.User{Username: username, PasswordHash: &hash}
	require.NoError(t, users.Create(context.Background(), &user))
	return user
}

type gatewayFixture struct {
	db       *gorm.DB
	users    repository.UserRepository
	hasher   *auth.PasswordHasher
	issuer   *auth.SessionIssuer
	events   *recordingPublisher
	resolver FederatedIdentityResolver
	gateway  AuthenticationGateway
}

func newGatewayFixture(t *testing.T) gatewayFixture {
	t.Helper()

	db := setupServiceDB(t)
	users := repository.NewUserRepository(db)
	hasher := auth.NewPasswordHasher(4)
	issuer := newTestIssuer(t)
	events := &recordingPublisher{}
	resolver := NewFederatedIdentityResolver(users, testLogger())
	gateway := NewAuthenticationGateway(
		NewCredentialVerifier(users, hasher, testLogger()),
		resolver,
		issuer,
		users,
		hasher,
		validator.New(),
		events,
		testLogger(),
	)

	return gatewayFixture{db: db, users: users, hasher: hasher, issuer: issuer, events: events, resolver: resolver, gateway: gateway}
}

type recordedEvent struct {
	Type    string
	Payload interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
	err    error
}

func (r *recordingPublisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{Type: eventType, Payload: payload})
	return r.err
}

func (r *recordingPublisher) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, event := range r.events {
		out = append(out, event.Type)
	}
	return out
}
