package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/JJediny/heimdall2/internal/auth"
	"github.com/JJediny/heimdall2/internal/models"
	"github.com/JJediny/heimdall2/internal/repository"
)

// CredentialVerifier checks a username/password pair against stored users.
type CredentialVerifier interface {
	Verify(ctx context.Context, username, password string) (models.User, error)
}

type credentialVerifier struct {
	users  repository.UserRepository
	hasher *auth.PasswordHasher
	logger zerolog.Logger
}

// NewCredentialVerifier constructs a verifier backed by the user repository.
func NewCredentialVerifier(users repository.UserRepository, hasher *auth.PasswordHasher, logger zerolog.Logger) CredentialVerifier {
	return &credentialVerifier{
		users:  users,
		hasher: hasher,
		logger: logger.With().Str("component", "credential_verifier").Logger(),
	}
}

// Verify returns the user when the password matches. Every failure mode a
// caller could use to probe for accounts collapses into ErrInvalidCredentials.
func (v *credentialVerifier) Verify(ctx context.Context, username, password string) (models.User, error) {
	if username == "" || password == "" {
		v.hasher.CompareDummy(password)
		return models.User{}, ErrInvalidCredentials
	}

	user, err := v.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			v.hasher.CompareDummy(password)
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, fmt.Errorf("lookup user: %w", err)
	}

	if !user.HasPassword() {
		v.hasher.CompareDummy(password)
		return models.User{}, ErrInvalidCredentials
	}

	if !v.hasher.Compare(*user.PasswordHash, password) {
		v.logger.Debug().Uint("user_id", user.ID).Msg("password mismatch")
		return models.User{}, ErrInvalidCredentials
	}

	return user, nil
}
