package service

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JJediny/heimdall2/internal/auth"
	"github.com/JJediny/heimdall2/internal/dto"
	"github.com/JJediny/heimdall2/internal/models"
)

func TestLoginWithCredentialsIssuesSessionForUser(t *testing.T) {
	fx := newGatewayFixture(t)
	user := seedLocalUser(t, fx.users, fx.hasher, "alice", "correct horse battery")

	session, err := fx.gateway.LoginWithCredentials(context.Background(), "alice", "correct horse battery")
	require.NoError(t, err)
	require.NotEmpty(t, session.AccessToken)
	require.Equal(t, "Bearer", session.TokenType)
	require.Equal(t, user.ID, session.UserID)
	require.Equal(t, "alice", session.User.Username)
	require.True(t, session.ExpiresAt.After(session.IssuedAt))

	claims, err := fx.issuer.Verify(session.AccessToken)
	require.NoError(t, err)
	require.Equal(t, strconv.FormatUint(uint64(user.ID), 10), claims.Subject)

	authenticated, err := fx.gateway.Authenticate(context.Background(), session.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, authenticated.ID)
}

func TestLoginWithCredentialsRejectsBadPassword(t *testing.T) {
	fx := newGatewayFixture(t)
	seedLocalUser(t, fx.users, fx.hasher, "alice", "correct horse battery")

	_, err := fx.gateway.LoginWithCredentials(context.Background(), "alice", "nope")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = fx.gateway.LoginWithCredentials(context.Background(), "nobody", "nope")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginWithFederatedProfileReusesUser(t *testing.T) {
	fx := newGatewayFixture(t)
	profile := models.ExternalProfile{Provider: "github", Subject: "583231", Username: "octocat"}

	first, err := fx.gateway.LoginWithFederatedProfile(context.Background(), profile)
	require.NoError(t, err)
	second, err := fx.gateway.LoginWithFederatedProfile(context.Background(), profile)
	require.NoError(t, err)

	require.Equal(t, first.UserID, second.UserID)
	require.NotEqual(t, first.AccessToken, second.AccessToken)
	require.Equal(t, "github", first.User.Provider)
	require.False(t, first.User.HasPassword)
	require.Equal(t, int64(1), countUsers(t, fx.db))
}

func TestRegisterCreatesLocalUser(t *testing.T) {
	fx := newGatewayFixture(t)

	created, err := fx.gateway.Register(context.Background(), dto.RegisterRequest{
		Username: "alice",
		Password: "correct horse battery",
		Email:    "Alice@Example.com",
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.Equal(t, "alice@example.com", created.Email)
	require.True(t, created.HasPassword)
	require.Equal(t, []string{EventUserRegistered}, fx.events.types())

	session, err := fx.gateway.LoginWithCredentials(context.Background(), "alice", "correct horse battery")
	require.NoError(t, err)
	require.Equal(t, created.ID, session.UserID)
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	fx := newGatewayFixture(t)
	req := dto.RegisterRequest{Username: "alice", Password: "correct horse battery"}

	_, err := fx.gateway.Register(context.Background(), req)
	require.NoError(t, err)

	_, err = fx.gateway.Register(context.Background(), req)
	require.ErrorIs(t, err, ErrConflict)
}

func TestRegisterValidatesInput(t *testing.T) {
	fx := newGatewayFixture(t)

	_, err := fx.gateway.Register(context.Background(), dto.RegisterRequest{Username: "al", Password: "short"})
	require.ErrorIs(t, err, ErrValidation)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Fields, "username")
	require.Contains(t, validationErr.Fields, "password")

	_, err = fx.gateway.Register(context.Background(), dto.RegisterRequest{Username: "<b>alice</b>", Password: "correct horse battery"})
	require.ErrorIs(t, err, ErrValidation)
	require.Equal(t, int64(0), countUsers(t, fx.db))
}

func TestRegisterKeepsDisplayNameVerbatim(t *testing.T) {
	fx := newGatewayFixture(t)

	user, err := fx.gateway.Register(context.Background(), dto.RegisterRequest{Username: "o'neil", Password: "correct horse battery", DisplayName: "Shaq O'Neil & Co"})
	require.NoError(t, err)
	require.Equal(t, "o'neil", user.Username)
	require.Equal(t, "Shaq O'Neil & Co", user.DisplayName)
}

func TestRegisterSucceedsWhenEventPublishingFails(t *testing.T) {
	fx := newGatewayFixture(t)
	fx.events.err = context.DeadlineExceeded

	_, err := fx.gateway.Register(context.Background(), dto.RegisterRequest{Username: "alice", Password: "correct horse battery"})
	require.NoError(t, err)
}

func TestAuthenticateRejectsInvalidTokens(t *testing.T) {
	fx := newGatewayFixture(t)

	_, err := fx.gateway.Authenticate(context.Background(), "not-a-token")
	require.ErrorIs(t, err, auth.ErrSessionInvalid)

	orphan, err := fx.issuer.Issue(models.User{ID: 999, Username: "ghost"})
	require.NoError(t, err)
	_, err = fx.gateway.Authenticate(context.Background(), orphan.Token)
	require.ErrorIs(t, err, auth.ErrSessionInvalid)
}
