package authcore

import (
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/nebulaclass/authcore/password"
	"github.com/nebulaclass/authcore/revocation"
	"github.com/nebulaclass/authcore/sso"
	"github.com/nebulaclass/authcore/store"
	"github.com/nebulaclass/authcore/token"
)

// Builder assembles an Engine. Misconfiguration (missing secrets, absent
// providers, invalid TTLs) surfaces from Build, never per request.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	identities IdentityProvider
	mailer     Mailer
	settings   SettingsProvider
	auditSink  AuditSink
	logger     zerolog.Logger
	hasLogger  bool

	built bool
}

// New returns a Builder seeded with defaults.
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

// WithRedis sets the client backing the verification store.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithIdentityProvider sets the host user store.
func (b *Builder) WithIdentityProvider(p IdentityProvider) *Builder {
	b.identities = p
	return b
}

// WithMailer sets the login-code delivery collaborator.
func (b *Builder) WithMailer(m Mailer) *Builder {
	b.mailer = m
	return b
}

// WithSettings sets the mutable-settings provider for the dynamic refresh
// lifetime and the SSO configuration record.
func (b *Builder) WithSettings(s SettingsProvider) *Builder {
	b.settings = s
	return b
}

// WithAuditSink sets the audit destination and enables dispatch.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = sink != nil
	return b
}

// WithLogger sets the logger used for best-effort failure paths. Defaults
// to a no-op logger.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = logger
	b.hasLogger = true
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and wires the engine. A Builder can be
// used once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	b.built = true

	if b.identities == nil {
		return nil, errors.New("identity provider is required")
	}
	if b.redis == nil {
		return nil, errors.New("redis client is required")
	}
	if err := b.config.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if !b.hasLogger {
		logger = zerolog.Nop()
	}

	var ttlProvider token.RefreshTTLProvider
	if b.settings != nil {
		ttlProvider = b.settings
	}

	issuer, err := token.NewIssuer(token.Config{
		AccessSecret:      b.config.Token.AccessSecret,
		RefreshSecret:     b.config.Token.RefreshSecret,
		AccessTTL:         b.config.Token.AccessTTL,
		DefaultRefreshTTL: b.config.Token.DefaultRefreshTTL,
		Issuer:            b.config.Token.Issuer,
		Audience:          b.config.Token.Audience,
		Leeway:            b.config.Token.Leeway,
	}, ttlProvider)
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(b.config.Password)
	if err != nil {
		return nil, err
	}

	kv := store.New(b.redis, b.config.Store.OpTimeout)

	return &Engine{
		config:     b.config,
		issuer:     issuer,
		hasher:     hasher,
		store:      kv,
		ledger:     revocation.NewLedger(kv, revocationPolicy(b.config.Revocation.Policy), logger),
		sso:        sso.NewValidator(),
		identities: b.identities,
		mailer:     b.mailer,
		settings:   b.settings,
		limiter:    newLoginLimiter(kv, b.config.Throttle, logger),
		audit:      newAuditDispatcher(b.config.Audit, b.auditSink),
		metrics:    NewMetrics(b.config.Metrics),
		logger:     logger,
	}, nil
}
