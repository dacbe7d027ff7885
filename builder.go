package authcore

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/bizdesk/authcore/internal/audit"
	"github.com/bizdesk/authcore/internal/rate"
	"github.com/bizdesk/authcore/password"
	"github.com/bizdesk/authcore/refresh"
	"github.com/bizdesk/authcore/token"
)

// Builder assembles an Engine. Configure, attach dependencies, then call
// Build exactly once. The zero Builder is unusable; start from New.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	store  refresh.Store

	directory UserDirectory
	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

// WithConfig replaces the whole configuration. The config is deep-copied;
// later mutations of cfg by the caller do not reach the engine.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis attaches a Redis client. Build derives the refresh store from
// it unless WithStore overrides, and runs the attempt throttles on it.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithStore sets the refresh store explicitly: the in-memory store for
// tests and single-node setups, the Postgres store for durable sessions,
// or a custom implementation.
func (b *Builder) WithStore(store refresh.Store) *Builder {
	b.store = store
	return b
}

// WithUserDirectory attaches the host's user store. Required.
func (b *Builder) WithUserDirectory(dir UserDirectory) *Builder {
	b.directory = dir
	return b
}

// WithAuditSink attaches the audit destination and enables auditing.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = sink != nil
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the verification latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, wires the engine, and returns it.
// A Builder can build at most once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.directory == nil {
		return nil, errors.New("user directory required")
	}

	store := b.store
	if store == nil {
		if b.redis == nil {
			return nil, errors.New("refresh store required: attach one with WithStore or WithRedis")
		}
		store = refresh.NewRedisStore(b.redis, cfg.Refresh.RedisPrefix)
	}

	throttling := cfg.Security.MaxLoginAttempts > 0 || cfg.Security.MaxRefreshAttempts > 0
	if throttling && b.redis == nil {
		return nil, errors.New("attempt throttling requires a redis client")
	}

	tokens, err := token.NewManager(token.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		SigningMethod: token.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cfg.JWT.PrivateKey,
		PublicKey:     cfg.JWT.PublicKey,
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		KeyID:         cfg.JWT.KeyID,
		VerifyKeys:    cfg.JWT.VerifyKeys,
	})
	if err != nil {
		return nil, err
	}

	passwords, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if throttling {
		limiter = rate.New(b.redis, rate.Config{
			MaxLoginAttempts:   cfg.Security.MaxLoginAttempts,
			LoginWindow:        cfg.Security.LoginCooldown,
			ThrottleByIP:       cfg.Security.ThrottleLoginByIP,
			MaxRefreshAttempts: cfg.Security.MaxRefreshAttempts,
			RefreshWindow:      cfg.Security.RefreshCooldown,
		})
	}

	dispatcher := audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	b.built = true
	return &Engine{
		config:    cfg,
		directory: b.directory,
		tokens:    tokens,
		passwords: passwords,
		store:     store,
		limiter:   limiter,
		audit:     dispatcher,
		metrics:   NewMetrics(cfg.Metrics),
	}, nil
}
