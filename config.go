package authcore

import (
	"errors"
	"time"
)

// Config is the full engine configuration. Start from DefaultConfig and
// override; Build validates the result and refuses anything it cannot run
// safely. There are no fallback secrets: missing key material is an error,
// never a default.
type Config struct {
	JWT      JWTConfig
	Refresh  RefreshConfig
	Password PasswordConfig
	Security SecurityConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

// JWTConfig configures access-token signing and verification.
type JWTConfig struct {
	AccessTTL     time.Duration
	SigningMethod string // "ed25519" (default) or "hs256"
	PrivateKey    []byte
	PublicKey     []byte

	Issuer   string
	Audience string

	// Leeway tolerates clock skew on verification, capped at two minutes.
	Leeway time.Duration

	// KeyID and VerifyKeys enable signing-key rotation: new tokens carry
	// KeyID, verification accepts any kid in VerifyKeys.
	KeyID      string
	VerifyKeys map[string][]byte
}

// RefreshConfig configures the refresh token lifecycle.
type RefreshConfig struct {
	// TTL is the fixed lifetime of each issued refresh token. Rotation
	// issues the replacement with a full TTL; it does not extend the
	// consumed token's.
	TTL time.Duration

	// RedisPrefix namespaces refresh keys when the store is Redis-backed.
	RedisPrefix string
}

// PasswordConfig carries the argon2id parameters. Memory is in KiB.
type PasswordConfig struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	// UpgradeOnLogin rehashes with current parameters after a successful
	// login against a legacy bcrypt or weaker argon2id hash.
	UpgradeOnLogin bool
}

// SecurityConfig tunes abuse handling.
type SecurityConfig struct {
	// RevokeAllOnReuse escalates a detected refresh-token replay by
	// revoking every live session of the owning user. Off by default:
	// the replayed token is rejected and audited either way.
	RevokeAllOnReuse bool

	// MaxLoginAttempts caps failed logins per email per window; zero
	// disables the throttle. ThrottleLoginByIP adds a per-IP counter.
	MaxLoginAttempts  int
	LoginCooldown     time.Duration
	ThrottleLoginByIP bool

	// MaxRefreshAttempts caps rotation attempts per token per window;
	// zero disables.
	MaxRefreshAttempts int
	RefreshCooldown    time.Duration
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process metrics.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the baseline configuration. Key material and the
// user directory are always caller-supplied.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     15 * time.Minute,
			SigningMethod: "ed25519",
			Leeway:        30 * time.Second,
		},
		Refresh: RefreshConfig{
			TTL:         7 * 24 * time.Hour,
			RedisPrefix: "authcore",
		},
		Password: PasswordConfig{
			Memory:         65536,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			UpgradeOnLogin: true,
		},
		Security: SecurityConfig{
			RevokeAllOnReuse:   false,
			MaxLoginAttempts:   0,
			LoginCooldown:      15 * time.Minute,
			ThrottleLoginByIP:  false,
			MaxRefreshAttempts: 0,
			RefreshCooldown:    time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	if len(cfg.JWT.VerifyKeys) > 0 {
		out.JWT.VerifyKeys = make(map[string][]byte, len(cfg.JWT.VerifyKeys))
		for kid, key := range cfg.JWT.VerifyKeys {
			out.JWT.VerifyKeys[kid] = cloneBytes(key)
		}
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate rejects configurations the engine cannot run safely.
func (c *Config) Validate() error {
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.SigningMethod != "ed25519" && c.JWT.SigningMethod != "hs256" {
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.SigningMethod == "ed25519" {
		if len(c.JWT.PrivateKey) == 0 {
			return errors.New("ed25519 requires PrivateKey")
		}
		if len(c.JWT.PublicKey) == 0 && len(c.JWT.VerifyKeys) == 0 {
			return errors.New("ed25519 requires PublicKey or VerifyKeys")
		}
	}
	if c.JWT.SigningMethod == "hs256" && len(c.JWT.PrivateKey) == 0 {
		return errors.New("hs256 requires PrivateKey")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	if c.Refresh.TTL <= 0 {
		return errors.New("Refresh TTL must be > 0")
	}
	if c.Refresh.TTL <= c.JWT.AccessTTL {
		return errors.New("Refresh TTL must exceed JWT AccessTTL")
	}

	if c.Security.MaxLoginAttempts < 0 || c.Security.MaxRefreshAttempts < 0 {
		return errors.New("Security attempt limits must be >= 0")
	}
	if c.Security.MaxLoginAttempts > 0 && c.Security.LoginCooldown <= 0 {
		return errors.New("Security LoginCooldown must be > 0 when login throttling is enabled")
	}
	if c.Security.MaxRefreshAttempts > 0 && c.Security.RefreshCooldown <= 0 {
		return errors.New("Security RefreshCooldown must be > 0 when refresh throttling is enabled")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
