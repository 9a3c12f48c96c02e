package authcore

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := defaultConfig()
	cfg.Provider.BaseURL = "https://auth.example.com"
	cfg.Provider.APIKey = "test-key"
	return cfg
}

func TestDefaultConfigValidatesWithCredentials(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing base url", func(c *Config) { c.Provider.BaseURL = "" }, "BaseURL is required"},
		{"non-http base url", func(c *Config) { c.Provider.BaseURL = "ftp://auth" }, "http(s)"},
		{"missing api key", func(c *Config) { c.Provider.APIKey = "" }, "APIKey is required"},
		{"zero timeout", func(c *Config) { c.Provider.Timeout = 0 }, "Timeout"},
		{"zero refresh lead", func(c *Config) { c.Session.AutoRefreshLead = 0 }, "AutoRefreshLead"},
		{"negative retries", func(c *Config) { c.Session.AutoRefreshMaxRetries = -1 }, "AutoRefreshMaxRetries"},
		{"zero base delay", func(c *Config) { c.Session.AutoRefreshBaseDelay = 0 }, "AutoRefreshBaseDelay"},
		{"zero outer expiry", func(c *Config) { c.Session.PersistOuterExpiry = 0 }, "PersistOuterExpiry"},
		{"zero cooldown", func(c *Config) { c.Signup.Cooldown = 0 }, "Cooldown"},
		{"zero sweep interval", func(c *Config) { c.Signup.SweepInterval = 0 }, "SweepInterval"},
		{"bad default role", func(c *Config) { c.Profile.DefaultRole = "owner" }, "DefaultRole"},
		{"audit without buffer", func(c *Config) { c.Audit.Enabled = true; c.Audit.BufferSize = 0 }, "BufferSize"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("invalid config accepted")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestConfigFromEnvOverlaysDefaults(t *testing.T) {
	t.Setenv("AUTHCORE_PROVIDER_BASE_URL", "https://env.example.com")
	t.Setenv("AUTHCORE_PROVIDER_API_KEY", "env-key")
	t.Setenv("AUTHCORE_SIGNUP_COOLDOWN", "9s")
	t.Setenv("AUTHCORE_METRICS_ENABLED", "true")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Provider.BaseURL != "https://env.example.com" || cfg.Provider.APIKey != "env-key" {
		t.Fatalf("provider overlay missing: %+v", cfg.Provider)
	}
	if cfg.Signup.Cooldown != 9*time.Second {
		t.Fatalf("cooldown = %v, want 9s", cfg.Signup.Cooldown)
	}
	if !cfg.Metrics.Enabled {
		t.Fatal("metrics overlay missing")
	}
	// Untouched fields keep their defaults.
	if cfg.Session.AutoRefreshLead != 5*time.Minute {
		t.Fatalf("default refresh lead lost: %v", cfg.Session.AutoRefreshLead)
	}
}
