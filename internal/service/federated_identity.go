package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/JJediny/heimdall2/internal/models"
	"github.com/JJediny/heimdall2/internal/repository"
)

// FederatedIdentityResolver maps a verified external profile onto exactly one local user.
type FederatedIdentityResolver interface {
	Resolve(ctx context.Context, profile models.ExternalProfile) (models.User, error)
}

type federatedIdentityResolver struct {
	users     repository.UserRepository
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewFederatedIdentityResolver constructs a resolver backed by the user repository.
func NewFederatedIdentityResolver(users repository.UserRepository, logger zerolog.Logger) FederatedIdentityResolver {
	return &federatedIdentityResolver{
		users:     users,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "federated_identity").Logger(),
	}
}

// Resolve looks the identity up and creates it on first sight. A concurrent
// first login loses the insert race on the (provider, subject) index and is
// answered by a single retry as a lookup.
func (r *federatedIdentityResolver) Resolve(ctx context.Context, profile models.ExternalProfile) (models.User, error) {
	provider := strings.TrimSpace(profile.Provider)
	subject := strings.TrimSpace(profile.Subject)
	if provider == "" {
		return models.User{}, newValidationError("provider", "is required")
	}
	if subject == "" {
		return models.User{}, newValidationError("subject", "is required")
	}

	user, err := r.users.FindByExternalIdentity(ctx, provider, subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, fmt.Errorf("lookup external identity: %w", err)
	}

	candidate := r.newFederatedUser(profile, provider, subject, r.deriveUsername(profile.Username, provider, subject))
	err = r.users.Create(ctx, &candidate)
	if err == nil {
		r.logger.Info().Uint("user_id", candidate.ID).Str("provider", provider).Msg("federated user created")
		return candidate, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return models.User{}, fmt.Errorf("create federated user: %w", err)
	}

	user, err = r.users.FindByExternalIdentity(ctx, provider, subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, fmt.Errorf("lookup external identity: %w", err)
	}

	// The identity is still unknown, so the conflict was on the username.
	fallback := fallbackUsername(provider, subject)
	if candidate.Username == fallback {
		return models.User{}, ErrConflict
	}
	candidate = r.newFederatedUser(profile, provider, subject, fallback)
	if err := r.users.Create(ctx, &candidate); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.User{}, ErrConflict
		}
		return models.User{}, fmt.Errorf("create federated user: %w", err)
	}

	r.logger.Info().Uint("user_id", candidate.ID).Str("provider", provider).Msg("federated user created with fallback username")
	return candidate, nil
}

func (r *federatedIdentityResolver) newFederatedUser(profile models.ExternalProfile, provider, subject, username string) models.User {
	providerValue := provider
	subjectValue := subject

	snapshot := map[string]interface{}{"subject": subject}
	if profile.Username != "" {
		snapshot["login"] = profile.Username
	}
	if profile.DisplayName != "" {
		snapshot["name"] = profile.DisplayName
	}
	if profile.Email != "" {
		snapshot["email"] = profile.Email
	}
	if profile.AvatarURL != "" {
		snapshot["avatar_url"] = profile.AvatarURL
	}

	return models.User{
		Username:        username,
		Provider:        &providerValue,
		ProviderSubject: &subjectValue,
		DisplayName:     strings.TrimSpace(profile.DisplayName),
		Email:           strings.TrimSpace(profile.Email),
		Profile:         snapshot,
	}
}

func (r *federatedIdentityResolver) deriveUsername(login, provider, subject string) string {
	username := strings.TrimSpace(login)
	if username == "" || containsMarkup(r.sanitizer, username) {
		return fallbackUsername(provider, subject)
	}
	return username
}

func fallbackUsername(provider, subject string) string {
	return subject + "@" + provider
}
