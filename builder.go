package authcore

import (
	"database/sql"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"

	internalaudit "github.com/softprint/authcore/internal/audit"
	"github.com/softprint/authcore/profile"
	"github.com/softprint/authcore/provider"
	"github.com/softprint/authcore/session"
)

// Builder assembles a [Service]. Configure it during initialization and
// call Build once; a Builder is not reusable.
type Builder struct {
	config Config

	providerClient provider.Client
	profileStore   profile.Store
	sessionStore   session.Store
	sessionFile    string
	sessionRedis   redis.UniversalClient
	sessionKey     string
	auditSink      AuditSink
	logger         *slog.Logger

	built bool
}

// New returns a Builder carrying the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the entire configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithProviderClient injects a provider client, overriding the HTTP
// client Build would construct from the Provider config section.
func (b *Builder) WithProviderClient(client provider.Client) *Builder {
	b.providerClient = client
	return b
}

// WithProfileStore injects the profile persistence backend.
func (b *Builder) WithProfileStore(store profile.Store) *Builder {
	b.profileStore = store
	return b
}

// WithPostgres wires profile persistence to an open Postgres handle.
// The caller owns the handle and should have run [profile.Migrate].
func (b *Builder) WithPostgres(db *sql.DB) *Builder {
	b.profileStore = profile.NewPostgresStore(db)
	return b
}

// WithSessionStore injects a pre-built session snapshot backend. An
// injected store owns its own outer-expiry setting; use
// [Builder.WithSessionFile] or [Builder.WithSessionRedis] to have Build
// construct one from the Session config section instead.
func (b *Builder) WithSessionStore(store session.Store) *Builder {
	b.sessionStore = store
	return b
}

// WithSessionFile persists session snapshots to path, bounded by the
// configured Session.PersistOuterExpiry.
func (b *Builder) WithSessionFile(path string) *Builder {
	b.sessionFile = path
	return b
}

// WithSessionRedis persists session snapshots under key on client, with
// a TTL of the configured Session.PersistOuterExpiry.
func (b *Builder) WithSessionRedis(client redis.UniversalClient, key string) *Builder {
	b.sessionRedis = client
	b.sessionKey = key
	return b
}

// WithAuditSink injects the audit event consumer.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger injects the structured logger used for diagnostics.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// Build validates the configuration and wires the service together.
func (b *Builder) Build() (*Service, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config

	if b.providerClient == nil {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		client, err := provider.NewHTTPClient(provider.HTTPConfig{
			BaseURL: cfg.Provider.BaseURL,
			APIKey:  cfg.Provider.APIKey,
			Timeout: cfg.Provider.Timeout,
		})
		if err != nil {
			return nil, err
		}
		b.providerClient = client
	}

	if b.profileStore == nil {
		return nil, errors.New("profile store required")
	}

	if b.sessionStore == nil {
		switch {
		case b.sessionFile != "":
			b.sessionStore = session.NewFileStore(b.sessionFile, cfg.Session.PersistOuterExpiry)
		case b.sessionRedis != nil:
			b.sessionStore = session.NewRedisStore(b.sessionRedis, b.sessionKey, cfg.Session.PersistOuterExpiry)
		default:
			b.sessionStore = session.NewMemoryStore()
		}
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	metrics := NewMetrics(cfg.Metrics)

	manager := session.NewManager(
		providerTokenClient{client: b.providerClient},
		b.sessionStore,
		session.Config{
			AutoRefreshLead:        cfg.Session.AutoRefreshLead,
			AutoRefreshMaxRetries:  cfg.Session.AutoRefreshMaxRetries,
			AutoRefreshBaseDelay:   cfg.Session.AutoRefreshBaseDelay,
			OnRefreshDeduped:       func() { metrics.Inc(MetricRefreshDeduped) },
			OnAutoRefreshExhausted: func() { metrics.Inc(MetricAutoRefreshExhausted) },
		},
		logger,
	)

	svc := &Service{
		config:     cfg,
		provider:   b.providerClient,
		sessions:   manager,
		profiles:   profile.NewSync(b.profileStore, logger),
		classifier: NewClassifier(cfg.Development, logger),
		limiter:    newSignupLimiter(cfg.Signup.Cooldown, cfg.Signup.SweepInterval),
		metrics:    metrics,
		logger:     logger,
	}

	// The profile layer retries on whatever the taxonomy deems
	// retryable, keeping the retry decision in one place.
	svc.profiles.SetRetryable(func(err error) bool {
		return IsRetryable(svc.classifier.Classify(err))
	})

	if cfg.Audit.Enabled {
		svc.audit = internalaudit.NewDispatcher(b.auditSink, cfg.Audit.BufferSize, cfg.Audit.DropIfFull)
	}

	b.built = true

	return svc, nil
}
