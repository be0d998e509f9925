package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultAuthURL  = "https://github.com/login/oauth/authorize"
	defaultTokenURL = "https://github.com/login/oauth/access_token"
	defaultUserURL  = "https://api.github.com/user"
)

var githubDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "heimdall",
	Subsystem: "github",
	Name:      "request_duration_seconds",
	Help:      "Duration of GitHub OAuth API requests",
}, []string{"operation", "outcome"})

// ErrTokenExchange indicates GitHub refused or failed the code exchange.
var ErrTokenExchange = errors.New("github token exchange failed")

// ErrProfile indicates the authenticated user profile could not be fetched.
var ErrProfile = errors.New("github profile request failed")

// Config contains the OAuth application credentials registered with GitHub.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	AuthURL      string
	TokenURL     string
	UserURL      string
	Timeout      time.Duration
}

// Token is the access token returned by the code exchange.
type Token struct {
	AccessToken string
	TokenType   string
	Scope       string
}

// Profile is the subset of the GitHub /user payload used for login.
type Profile struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

// Subject returns the stable provider subject for the profile.
func (p Profile) Subject() string {
	if p.ID <= 0 {
		return ""
	}
	return strconv.FormatInt(p.ID, 10)
}

// Client performs the GitHub side of the OAuth web flow.
type Client struct {
	cfg        Config
	httpClient *http.Client
	tracer     trace.Tracer
	logger     zerolog.Logger
}

// New constructs a GitHub OAuth client.
func New(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("github client credentials must be provided")
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.UserURL == "" {
		cfg.UserURL = defaultUserURL
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{"read:user", "user:email"}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		tracer:     otel.Tracer("github.com/JJediny/heimdall2/pkg/github"),
		logger:     logger.With().Str("component", "github_oauth").Logger(),
	}, nil
}

// AuthCodeURL builds the authorize URL the browser is redirected to.
func (c *Client) AuthCodeURL(state string) string {
	query := url.Values{}
	query.Set("client_id", c.cfg.ClientID)
	query.Set("scope", strings.Join(c.cfg.Scopes, " "))
	query.Set("state", state)
	if c.cfg.RedirectURL != "" {
		query.Set("redirect_uri", c.cfg.RedirectURL)
	}

	authURL, err := url.Parse(c.cfg.AuthURL)
	if err != nil {
		return c.cfg.AuthURL + "?" + query.Encode()
	}
	authURL.RawQuery = query.Encode()
	return authURL.String()
}

// Exchange trades an authorization code for an access token.
func (c *Client) Exchange(ctx context.Context, code string) (Token, error) {
	ctx, span := c.tracer.Start(ctx, "github.exchange")
	defer span.End()
	start := time.Now()

	token, err := c.exchange(ctx, code)
	c.observe(span, "exchange", start, err)
	return token, err
}

func (c *Client) exchange(ctx context.Context, code string) (Token, error) {
	if strings.TrimSpace(code) == "" {
		return Token{}, fmt.Errorf("%w: missing code", ErrTokenExchange)
	}

	form := url.Values{}
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("code", code)
	if c.cfg.RedirectURL != "" {
		form.Set("redirect_uri", c.cfg.RedirectURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Token{}, fmt.Errorf("%w: status %d", ErrTokenExchange, resp.StatusCode)
	}

	// GitHub reports bad codes with 200 and an error field.
	var payload struct {
		AccessToken      string `json:"access_token"`
		TokenType        string `json:"token_type"`
		Scope            string `json:"scope"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Token{}, fmt.Errorf("%w: decode: %v", ErrTokenExchange, err)
	}
	if payload.Error != "" {
		return Token{}, fmt.Errorf("%w: %s: %s", ErrTokenExchange, payload.Error, payload.ErrorDescription)
	}
	if payload.AccessToken == "" {
		return Token{}, fmt.Errorf("%w: missing access token", ErrTokenExchange)
	}

	return Token{AccessToken: payload.AccessToken, TokenType: payload.TokenType, Scope: payload.Scope}, nil
}

// FetchProfile loads the authenticated user's profile.
func (c *Client) FetchProfile(ctx context.Context, accessToken string) (Profile, error) {
	ctx, span := c.tracer.Start(ctx, "github.profile")
	defer span.End()
	start := time.Now()

	profile, err := c.fetchProfile(ctx, accessToken)
	if err == nil {
		span.SetAttributes(attribute.String("github.login", profile.Login))
	}
	c.observe(span, "profile", start, err)
	return profile, err
}

func (c *Client) fetchProfile(ctx context.Context, accessToken string) (Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.UserURL, nil)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %v", ErrProfile, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %v", ErrProfile, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Profile{}, fmt.Errorf("%w: status %d", ErrProfile, resp.StatusCode)
	}

	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return Profile{}, fmt.Errorf("%w: decode: %v", ErrProfile, err)
	}
	if profile.Subject() == "" {
		return Profile{}, fmt.Errorf("%w: missing user id", ErrProfile)
	}

	return profile, nil
}

func (c *Client) observe(span trace.Span, operation string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, operation+" failed")
		c.logger.Warn().Err(err).Str("operation", operation).Msg("github request failed")
	}
	githubDuration.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())
}
