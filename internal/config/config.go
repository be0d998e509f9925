package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName              string
	AppEnv               string
	AppPort              string
	DatabaseURL          string
	RedisURL             string
	NATSURL              string
	NATSSubject          string
	JWTSecret            string
	JWTIssuer            string
	SessionTTL           time.Duration
	LoginRateLimitMax    int
	LoginRateLimitWindow time.Duration
	GitHubClientID       string
	GitHubClientSecret   string
	GitHubCallbackURL    string
	GitHubScopes         []string
	OAuthStateTTL        time.Duration
	CORSAllowOrigins     string
	BodyLimit            int
	ProxyHeader          string
	TrustedProxies       []string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// GitHubEnabled reports whether GitHub OAuth login is configured.
func (c Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != "" && c.GitHubCallbackURL != ""
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("HEIMDALL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Heimdall API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "3000")
	v.SetDefault("jwt.issuer", "heimdall")
	v.SetDefault("session.ttl", "24h")
	v.SetDefault("login.rate_limit_max", 20)
	v.SetDefault("login.rate_limit_window", "60s")
	v.SetDefault("github.scopes", "read:user,user:email")
	v.SetDefault("oauth.state_ttl", "10m")
	v.SetDefault("nats.subject", "heimdall.events")
	v.SetDefault("cors.allow_origins", "*")
	v.SetDefault("http.body_limit", 50<<20)

	sessionTTL, err := parseDuration(v, "session.ttl", 24*time.Hour)
	if err != nil {
		return Config{}, err
	}

	window, err := parseDuration(v, "login.rate_limit_window", time.Minute)
	if err != nil {
		return Config{}, err
	}

	stateTTL, err := parseDuration(v, "oauth.state_ttl", 10*time.Minute)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:              v.GetString("app.name"),
		AppEnv:               v.GetString("app.env"),
		AppPort:              v.GetString("app.port"),
		DatabaseURL:          v.GetString("database.url"),
		RedisURL:             v.GetString("redis.url"),
		NATSURL:              v.GetString("nats.url"),
		NATSSubject:          v.GetString("nats.subject"),
		JWTSecret:            v.GetString("jwt.secret"),
		JWTIssuer:            v.GetString("jwt.issuer"),
		SessionTTL:           sessionTTL,
		LoginRateLimitMax:    v.GetInt("login.rate_limit_max"),
		LoginRateLimitWindow: window,
		GitHubClientID:       v.GetString("github.client_id"),
		GitHubClientSecret:   v.GetString("github.client_secret"),
		GitHubCallbackURL:    v.GetString("github.callback_url"),
		GitHubScopes:         splitList(v.GetString("github.scopes")),
		OAuthStateTTL:        stateTTL,
		CORSAllowOrigins:     v.GetString("cors.allow_origins"),
		BodyLimit:            v.GetInt("http.body_limit"),
		ProxyHeader:          strings.TrimSpace(v.GetString("http.proxy_header")),
		TrustedProxies:       splitList(v.GetString("http.trusted_proxies")),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.LoginRateLimitMax <= 0 {
		cfg.LoginRateLimitMax = 20
	}

	if cfg.BodyLimit <= 0 {
		cfg.BodyLimit = 50 << 20
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return fallback, nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return fallback, nil
	}

	return d, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
