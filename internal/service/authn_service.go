package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/JJediny/heimdall2/internal/auth"
	"github.com/JJediny/heimdall2/internal/dto"
	"github.com/JJediny/heimdall2/internal/models"
	"github.com/JJediny/heimdall2/internal/observability"
	"github.com/JJediny/heimdall2/internal/repository"
)

const tokenTypeBearer = "Bearer"

// CredentialSource produces a verified principal or fails. Every login path
// is one implementation of it.
type CredentialSource interface {
	Method() string
	Principal(ctx context.Context) (models.User, error)
}

type localPassword struct {
	verifier CredentialVerifier
	username string
	password string
}

func (l localPassword) Method() string { return "local" }

func (l localPassword) Principal(ctx context.Context) (models.User, error) {
	return l.verifier.Verify(ctx, l.username, l.password)
}

type githubOAuthProfile struct {
	resolver FederatedIdentityResolver
	profile  models.ExternalProfile
}

func (g githubOAuthProfile) Method() string {
	if g.profile.Provider != "" {
		return g.profile.Provider
	}
	return "federated"
}

func (g githubOAuthProfile) Principal(ctx context.Context) (models.User, error) {
	return g.resolver.Resolve(ctx, g.profile)
}

// AuthenticationGateway is the single entry point for establishing and checking sessions.
type AuthenticationGateway interface {
	LoginWithCredentials(ctx context.Context, username, password string) (dto.SessionResponse, error)
	LoginWithFederatedProfile(ctx context.Context, profile models.ExternalProfile) (dto.SessionResponse, error)
	Register(ctx context.Context, req dto.RegisterRequest) (dto.UserResponse, error)
	Authenticate(ctx context.Context, token string) (models.User, error)
}

type authenticationGateway struct {
	verifier  CredentialVerifier
	resolver  FederatedIdentityResolver
	issuer    *auth.SessionIssuer
	users     repository.UserRepository
	hasher    *auth.PasswordHasher
	validator *validator.Validate
	events    EventPublisher
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewAuthenticationGateway wires the verifier, resolver and issuer together.
func NewAuthenticationGateway(
	verifier CredentialVerifier,
	resolver FederatedIdentityResolver,
	issuer *auth.SessionIssuer,
	users repository.UserRepository,
	hasher *auth.PasswordHasher,
	validate *validator.Validate,
	events EventPublisher,
	logger zerolog.Logger,
) AuthenticationGateway {
	if events == nil {
		events = NewLogEventPublisher(logger)
	}
	return &authenticationGateway{
		verifier:  verifier,
		resolver:  resolver,
		issuer:    issuer,
		users:     users,
		hasher:    hasher,
		validator: validate,
		events:    events,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "authn_service").Logger(),
		tracer:    otel.Tracer("github.com/JJediny/heimdall2/internal/service/authn"),
	}
}

func (g *authenticationGateway) LoginWithCredentials(ctx context.Context, username, password string) (dto.SessionResponse, error) {
	return g.login(ctx, localPassword{verifier: g.verifier, username: username, password: password})
}

func (g *authenticationGateway) LoginWithFederatedProfile(ctx context.Context, profile models.ExternalProfile) (dto.SessionResponse, error) {
	return g.login(ctx, githubOAuthProfile{resolver: g.resolver, profile: profile})
}

func (g *authenticationGateway) login(ctx context.Context, source CredentialSource) (dto.SessionResponse, error) {
	method := source.Method()
	ctx, span := g.tracer.Start(ctx, "authn.login")
	defer span.End()
	span.SetAttributes(attribute.String("authn.method", method))

	user, err := source.Principal(ctx)
	if err != nil {
		outcome := "error"
		if errors.Is(err, ErrInvalidCredentials) {
			outcome = "rejected"
		}
		observability.LoginAttempts().WithLabelValues(method, outcome).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "principal rejected")
		return dto.SessionResponse{}, err
	}

	session, err := g.issuer.Issue(user)
	if err != nil {
		observability.LoginAttempts().WithLabelValues(method, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "session issue failed")
		return dto.SessionResponse{}, fmt.Errorf("issue session: %w", err)
	}

	observability.LoginAttempts().WithLabelValues(method, "success").Inc()
	span.SetAttributes(attribute.Int64("authn.user_id", int64(user.ID)))
	span.SetStatus(codes.Ok, "authenticated")
	g.logger.Info().Uint("user_id", user.ID).Str("method", method).Str("token_id", session.TokenID).Msg("session issued")

	return dto.SessionResponse{
		AccessToken: session.Token,
		TokenType:   tokenTypeBearer,
		IssuedAt:    session.IssuedAt,
		ExpiresAt:   session.ExpiresAt,
		UserID:      session.Subject,
		User:        dto.NewUserResponse(user),
	}, nil
}

func (g *authenticationGateway) Register(ctx context.Context, req dto.RegisterRequest) (dto.UserResponse, error) {
	ctx, span := g.tracer.Start(ctx, "authn.register")
	defer span.End()

	if err := g.validator.Struct(req); err != nil {
		span.SetStatus(codes.Error, "validation failed")
		return dto.UserResponse{}, ValidationFromError(err)
	}

	username := strings.TrimSpace(req.Username)
	if containsMarkup(g.sanitizer, username) {
		return dto.UserResponse{}, newValidationError("username", "contains invalid characters")
	}

	hash, err := g.hasher.Hash(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordEmpty) || errors.Is(err, auth.ErrPasswordTooLong) {
			return dto.UserResponse{}, newValidationError("password", err.Error())
		}
		return dto.UserResponse{}, err
	}

	user := models.User{
		Username:     username,
		PasswordHash: &hash,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
	}
	if err := g.users.Create(ctx, &user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			span.SetStatus(codes.Error, "duplicate username")
			return dto.UserResponse{}, ErrConflict
		}
		span.RecordError(err)
		return dto.UserResponse{}, fmt.Errorf("create user: %w", err)
	}

	response := dto.NewUserResponse(user)
	if err := g.events.Publish(ctx, EventUserRegistered, response); err != nil {
		g.logger.Warn().Err(err).Uint("user_id", user.ID).Msg("failed to publish registration event")
	}

	g.logger.Info().Uint("user_id", user.ID).Msg("user registered")
	return response, nil
}

// Authenticate resolves a session token to its user. A token for a user that
// no longer exists is reported as invalid.
func (g *authenticationGateway) Authenticate(ctx context.Context, token string) (models.User, error) {
	claims, err := g.issuer.Verify(token)
	if err != nil {
		return models.User{}, err
	}

	userID, err := claims.UserID()
	if err != nil {
		return models.User{}, err
	}

	user, err := g.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, auth.ErrSessionInvalid
		}
		return models.User{}, fmt.Errorf("load session user: %w", err)
	}

	return user, nil
}
