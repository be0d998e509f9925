// Package auth issues and verifies stateless session tokens and hashes local passwords.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/JJediny/heimdall2/internal/models"
)

const minSecretLength = 32

var (
	// ErrSessionExpired indicates a well-formed token whose expiry has passed.
	ErrSessionExpired = errors.New("session expired")
	// ErrSessionInvalid covers malformed, tampered or foreign tokens.
	ErrSessionInvalid = errors.New("session invalid")
	// ErrSigningKeyMissing is returned at construction when no usable secret is configured.
	ErrSigningKeyMissing = errors.New("session signing key missing")
)

// SessionConfig configures the SessionIssuer.
type SessionConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
	Now    func() time.Time
}

// Claims is the payload carried by a session token.
type Claims struct {
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrSessionInvalid
	}
	return uint(id), nil
}

// Session is an issued session artifact.
type Session struct {
	Token     string
	Subject   uint
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// SessionIssuer signs and verifies HS256 session tokens.
type SessionIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionIssuer validates the signing material up front so a misconfigured
// process fails at startup rather than on the first login.
func NewSessionIssuer(cfg SessionConfig) (*SessionIssuer, error) {
	if len(cfg.Secret) < minSecretLength {
		return nil, fmt.Errorf("%w: secret must be at least %d bytes", ErrSigningKeyMissing, minSecretLength)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &SessionIssuer{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    ttl,
		now:    now,
	}, nil
}

// TTL returns the configured session lifetime.
func (s *SessionIssuer) TTL() time.Duration {
	return s.ttl
}

// Issue signs a new session token for the user.
func (s *SessionIssuer) Issue(user models.User) (Session, error) {
	if user.ID == 0 {
		return Session{}, fmt.Errorf("issue session: user has no id")
	}

	now := s.now().UTC()
	claims := Claims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Session{}, fmt.Errorf("sign session: %w", err)
	}

	return Session{
		Token:     signed,
		Subject:   user.ID,
		TokenID:   claims.ID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Verify checks signature, algorithm, issuer and validity window.
func (s *SessionIssuer) Verify(token string) (Claims, error) {
	if token == "" {
		return Claims{}, ErrSessionInvalid
	}

	claims := Claims{}
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if s.issuer != "" {
		options = append(options, jwt.WithIssuer(s.issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, options...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrSessionExpired
		}
		return Claims{}, fmt.Errorf("%w: %v", ErrSessionInvalid, err)
	}
	if !parsed.Valid {
		return Claims{}, ErrSessionInvalid
	}
	if _, err := claims.UserID(); err != nil {
		return Claims{}, err
	}

	return claims, nil
}
