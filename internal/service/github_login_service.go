package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/JJediny/heimdall2/internal/dto"
	"github.com/JJediny/heimdall2/internal/models"
	"github.com/JJediny/heimdall2/pkg/github"
)

const providerGitHub = "github"

// GitHubClient is the subset of pkg/github the login flow depends on.
type GitHubClient interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (github.Token, error)
	FetchProfile(ctx context.Context, accessToken string) (github.Profile, error)
}

// GitHubLoginService drives the OAuth web flow and hands the verified profile to the gateway.
type GitHubLoginService interface {
	Begin(ctx context.Context) (string, error)
	Complete(ctx context.Context, code, state string) (dto.SessionResponse, error)
}

type githubLoginService struct {
	client  GitHubClient
	states  OAuthStateStore
	gateway AuthenticationGateway
	logger  zerolog.Logger
}

// NewGitHubLoginService constructs the GitHub login flow. A nil client disables it.
func NewGitHubLoginService(client GitHubClient, states OAuthStateStore, gateway AuthenticationGateway, logger zerolog.Logger) GitHubLoginService {
	return &githubLoginService{
		client:  client,
		states:  states,
		gateway: gateway,
		logger:  logger.With().Str("component", "github_login_service").Logger(),
	}
}

// Begin returns the GitHub authorize URL carrying a fresh state value.
func (s *githubLoginService) Begin(ctx context.Context) (string, error) {
	if s.client == nil || s.states == nil {
		return "", ErrOAuthDisabled
	}

	state, err := s.states.Issue(ctx)
	if err != nil {
		return "", err
	}
	return s.client.AuthCodeURL(state), nil
}

// Complete validates the state, exchanges the code and logs the user in.
func (s *githubLoginService) Complete(ctx context.Context, code, state string) (dto.SessionResponse, error) {
	if s.client == nil || s.states == nil {
		return dto.SessionResponse{}, ErrOAuthDisabled
	}
	if strings.TrimSpace(code) == "" {
		return dto.SessionResponse{}, newValidationError("code", "is required")
	}

	if err := s.states.Consume(ctx, state); err != nil {
		return dto.SessionResponse{}, err
	}

	token, err := s.client.Exchange(ctx, code)
	if err != nil {
		s.logger.Warn().Err(err).Msg("github code exchange failed")
		return dto.SessionResponse{}, fmt.Errorf("%w: %v", ErrOAuthProvider, err)
	}

	profile, err := s.client.FetchProfile(ctx, token.AccessToken)
	if err != nil {
		s.logger.Warn().Err(err).Msg("github profile fetch failed")
		return dto.SessionResponse{}, fmt.Errorf("%w: %v", ErrOAuthProvider, err)
	}

	return s.gateway.LoginWithFederatedProfile(ctx, models.ExternalProfile{
		Provider:    providerGitHub,
		Subject:     profile.Subject(),
		Username:    profile.Login,
		DisplayName: profile.Name,
		Email:       profile.Email,
		AvatarURL:   profile.AvatarURL,
	})
}
