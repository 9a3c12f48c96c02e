package authcore

import (
	"errors"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full service configuration. Instances are set up once
// during initialization and treated as immutable afterwards.
type Config struct {
	Provider ProviderConfig `envPrefix:"PROVIDER_"`
	Session  SessionConfig  `envPrefix:"SESSION_"`
	Signup   SignupConfig   `envPrefix:"SIGNUP_"`
	Profile  ProfileConfig  `envPrefix:"PROFILE_"`
	Audit    AuditConfig    `envPrefix:"AUDIT_"`
	Metrics  MetricsConfig  `envPrefix:"METRICS_"`

	// Development widens error logging. Classified errors are logged
	// with their raw diagnostic text only in this mode.
	Development bool `env:"DEVELOPMENT"`
}

/*
====================================
PROVIDER CONFIG
====================================
*/

// ProviderConfig locates the hosted identity provider.
type ProviderConfig struct {
	BaseURL string        `env:"BASE_URL"`
	APIKey  string        `env:"API_KEY"`
	Timeout time.Duration `env:"TIMEOUT"`
	// RedirectTo is appended to signup and recovery emails as the
	// post-confirmation landing URL.
	RedirectTo string `env:"REDIRECT_TO"`
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig tunes local session lifecycle behavior.
type SessionConfig struct {
	// AutoRefreshLead is how long before token expiry the proactive
	// renewal timer fires.
	AutoRefreshLead time.Duration `env:"AUTO_REFRESH_LEAD"`
	// AutoRefreshMaxRetries bounds the timer-fired retry ladder.
	AutoRefreshMaxRetries int `env:"AUTO_REFRESH_MAX_RETRIES"`
	// AutoRefreshBaseDelay is the first ladder backoff.
	AutoRefreshBaseDelay time.Duration `env:"AUTO_REFRESH_BASE_DELAY"`
	// PersistOuterExpiry bounds how long a persisted snapshot may
	// outlive the process that wrote it.
	PersistOuterExpiry time.Duration `env:"PERSIST_OUTER_EXPIRY"`
}

/*
====================================
SIGNUP CONFIG
====================================
*/

// SignupConfig tunes local signup throttling.
type SignupConfig struct {
	// Cooldown is the minimum spacing between signup attempts for one
	// identity, successful or not.
	Cooldown time.Duration `env:"COOLDOWN"`
	// SweepInterval is how often expired cooldown entries are removed.
	SweepInterval time.Duration `env:"SWEEP_INTERVAL"`
}

/*
====================================
PROFILE CONFIG
====================================
*/

// ProfileConfig tunes profile reconciliation.
type ProfileConfig struct {
	// DefaultRole is assumed when a signed-in identity carries no role
	// metadata.
	DefaultRole Role `env:"DEFAULT_ROLE"`
}

// AuditConfig tunes the async audit pipeline.
type AuditConfig struct {
	Enabled    bool `env:"ENABLED"`
	BufferSize int  `env:"BUFFER_SIZE"`
	DropIfFull bool `env:"DROP_IF_FULL"`
}

// MetricsConfig tunes the in-process counters.
type MetricsConfig struct {
	Enabled bool `env:"ENABLED"`
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		Provider: ProviderConfig{
			Timeout: 10 * time.Second,
		},
		Session: SessionConfig{
			AutoRefreshLead:       5 * time.Minute,
			AutoRefreshMaxRetries: 3,
			AutoRefreshBaseDelay:  time.Second,
			PersistOuterExpiry:    30 * 24 * time.Hour,
		},
		Signup: SignupConfig{
			Cooldown:      5 * time.Second,
			SweepInterval: time.Minute,
		},
		Profile: ProfileConfig{
			DefaultRole: RoleBuyer,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

// ConfigFromEnv returns the default configuration overlaid with any
// AUTHCORE_* environment variables.
func ConfigFromEnv() (Config, error) {
	cfg := defaultConfig()
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "AUTHCORE_"}); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks internal consistency. It does not reach the network;
// a syntactically valid but wrong provider URL still passes.
func (c *Config) Validate() error {
	if c.Provider.BaseURL == "" {
		return errors.New("Provider BaseURL is required")
	}
	if !strings.HasPrefix(c.Provider.BaseURL, "http://") && !strings.HasPrefix(c.Provider.BaseURL, "https://") {
		return errors.New("Provider BaseURL must be an http(s) URL")
	}
	if c.Provider.APIKey == "" {
		return errors.New("Provider APIKey is required")
	}
	if c.Provider.Timeout <= 0 {
		return errors.New("Provider Timeout must be > 0")
	}

	if c.Session.AutoRefreshLead <= 0 {
		return errors.New("Session AutoRefreshLead must be > 0")
	}
	if c.Session.AutoRefreshMaxRetries < 0 {
		return errors.New("Session AutoRefreshMaxRetries must be >= 0")
	}
	if c.Session.AutoRefreshBaseDelay <= 0 {
		return errors.New("Session AutoRefreshBaseDelay must be > 0")
	}
	if c.Session.PersistOuterExpiry <= 0 {
		return errors.New("Session PersistOuterExpiry must be > 0")
	}

	if c.Signup.Cooldown <= 0 {
		return errors.New("Signup Cooldown must be > 0")
	}
	if c.Signup.SweepInterval <= 0 {
		return errors.New("Signup SweepInterval must be > 0")
	}

	if !c.Profile.DefaultRole.Valid() {
		return errors.New("Profile DefaultRole is invalid")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
