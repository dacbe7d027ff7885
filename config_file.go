package authcore

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config for YAML decoding. Durations are strings in Go
// duration syntax; key material is referenced by file path, never inlined.
type fileConfig struct {
	JWT struct {
		AccessTTL      string            `yaml:"access_ttl"`
		SigningMethod  string            `yaml:"signing_method"`
		PrivateKeyFile string            `yaml:"private_key_file"`
		PublicKeyFile  string            `yaml:"public_key_file"`
		Issuer         string            `yaml:"issuer"`
		Audience       string            `yaml:"audience"`
		Leeway         string            `yaml:"leeway"`
		KeyID          string            `yaml:"key_id"`
		VerifyKeyFiles map[string]string `yaml:"verify_key_files"`
	} `yaml:"jwt"`
	Refresh struct {
		TTL         string `yaml:"ttl"`
		RedisPrefix string `yaml:"redis_prefix"`
	} `yaml:"refresh"`
	Password struct {
		Memory         *uint32 `yaml:"memory"`
		Time           *uint32 `yaml:"time"`
		Parallelism    *uint8  `yaml:"parallelism"`
		SaltLength     *uint32 `yaml:"salt_length"`
		KeyLength      *uint32 `yaml:"key_length"`
		UpgradeOnLogin *bool   `yaml:"upgrade_on_login"`
	} `yaml:"password"`
	Security struct {
		RevokeAllOnReuse   *bool  `yaml:"revoke_all_on_reuse"`
		MaxLoginAttempts   *int   `yaml:"max_login_attempts"`
		LoginCooldown      string `yaml:"login_cooldown"`
		ThrottleLoginByIP  *bool  `yaml:"throttle_login_by_ip"`
		MaxRefreshAttempts *int   `yaml:"max_refresh_attempts"`
		RefreshCooldown    string `yaml:"refresh_cooldown"`
	} `yaml:"security"`
	Audit struct {
		Enabled    *bool `yaml:"enabled"`
		BufferSize *int  `yaml:"buffer_size"`
		DropIfFull *bool `yaml:"drop_if_full"`
	} `yaml:"audit"`
	Metrics struct {
		Enabled           *bool `yaml:"enabled"`
		LatencyHistograms *bool `yaml:"latency_histograms"`
	} `yaml:"metrics"`
}

// LoadConfigFile reads a YAML configuration file, layers it over
// DefaultConfig, and applies AUTHCORE_* environment overrides. Unset fields
// keep their defaults; the result still needs a Validate (Build runs one).
//
// Recognized environment variables: AUTHCORE_JWT_PRIVATE_KEY_FILE,
// AUTHCORE_JWT_PUBLIC_KEY_FILE, AUTHCORE_JWT_ISSUER, AUTHCORE_JWT_AUDIENCE,
// AUTHCORE_REDIS_PREFIX, AUTHCORE_REVOKE_ALL_ON_REUSE.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	if err := applyFileConfig(&cfg, &fc); err != nil {
		return cfg, err
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyFileConfig(cfg *Config, fc *fileConfig) error {
	if err := setDuration(&cfg.JWT.AccessTTL, fc.JWT.AccessTTL, "jwt.access_ttl"); err != nil {
		return err
	}
	if fc.JWT.SigningMethod != "" {
		cfg.JWT.SigningMethod = fc.JWT.SigningMethod
	}
	if err := setKeyFile(&cfg.JWT.PrivateKey, fc.JWT.PrivateKeyFile); err != nil {
		return err
	}
	if err := setKeyFile(&cfg.JWT.PublicKey, fc.JWT.PublicKeyFile); err != nil {
		return err
	}
	if fc.JWT.Issuer != "" {
		cfg.JWT.Issuer = fc.JWT.Issuer
	}
	if fc.JWT.Audience != "" {
		cfg.JWT.Audience = fc.JWT.Audience
	}
	if err := setDuration(&cfg.JWT.Leeway, fc.JWT.Leeway, "jwt.leeway"); err != nil {
		return err
	}
	if fc.JWT.KeyID != "" {
		cfg.JWT.KeyID = fc.JWT.KeyID
	}
	if len(fc.JWT.VerifyKeyFiles) > 0 {
		cfg.JWT.VerifyKeys = make(map[string][]byte, len(fc.JWT.VerifyKeyFiles))
		for kid, file := range fc.JWT.VerifyKeyFiles {
			key, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read verify key %q: %w", kid, err)
			}
			cfg.JWT.VerifyKeys[kid] = key
		}
	}

	if err := setDuration(&cfg.Refresh.TTL, fc.Refresh.TTL, "refresh.ttl"); err != nil {
		return err
	}
	if fc.Refresh.RedisPrefix != "" {
		cfg.Refresh.RedisPrefix = fc.Refresh.RedisPrefix
	}

	setIf(&cfg.Password.Memory, fc.Password.Memory)
	setIf(&cfg.Password.Time, fc.Password.Time)
	setIf(&cfg.Password.Parallelism, fc.Password.Parallelism)
	setIf(&cfg.Password.SaltLength, fc.Password.SaltLength)
	setIf(&cfg.Password.KeyLength, fc.Password.KeyLength)
	setIf(&cfg.Password.UpgradeOnLogin, fc.Password.UpgradeOnLogin)

	setIf(&cfg.Security.RevokeAllOnReuse, fc.Security.RevokeAllOnReuse)
	setIf(&cfg.Security.MaxLoginAttempts, fc.Security.MaxLoginAttempts)
	if err := setDuration(&cfg.Security.LoginCooldown, fc.Security.LoginCooldown, "security.login_cooldown"); err != nil {
		return err
	}
	setIf(&cfg.Security.ThrottleLoginByIP, fc.Security.ThrottleLoginByIP)
	setIf(&cfg.Security.MaxRefreshAttempts, fc.Security.MaxRefreshAttempts)
	if err := setDuration(&cfg.Security.RefreshCooldown, fc.Security.RefreshCooldown, "security.refresh_cooldown"); err != nil {
		return err
	}

	setIf(&cfg.Audit.Enabled, fc.Audit.Enabled)
	setIf(&cfg.Audit.BufferSize, fc.Audit.BufferSize)
	setIf(&cfg.Audit.DropIfFull, fc.Audit.DropIfFull)

	setIf(&cfg.Metrics.Enabled, fc.Metrics.Enabled)
	setIf(&cfg.Metrics.EnableLatencyHistograms, fc.Metrics.LatencyHistograms)

	return nil
}

func applyEnvOverrides(cfg *Config) error {
	if err := setKeyFile(&cfg.JWT.PrivateKey, os.Getenv("AUTHCORE_JWT_PRIVATE_KEY_FILE")); err != nil {
		return err
	}
	if err := setKeyFile(&cfg.JWT.PublicKey, os.Getenv("AUTHCORE_JWT_PUBLIC_KEY_FILE")); err != nil {
		return err
	}
	if v := os.Getenv("AUTHCORE_JWT_ISSUER"); v != "" {
		cfg.JWT.Issuer = v
	}
	if v := os.Getenv("AUTHCORE_JWT_AUDIENCE"); v != "" {
		cfg.JWT.Audience = v
	}
	if v := os.Getenv("AUTHCORE_REDIS_PREFIX"); v != "" {
		cfg.Refresh.RedisPrefix = v
	}
	if v := os.Getenv("AUTHCORE_REVOKE_ALL_ON_REUSE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("AUTHCORE_REVOKE_ALL_ON_REUSE: %w", err)
		}
		cfg.Security.RevokeAllOnReuse = b
	}
	return nil
}

func setDuration(dst *time.Duration, raw, field string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	*dst = d
	return nil
}

func setKeyFile(dst *[]byte, path string) error {
	if path == "" {
		return nil
	}
	key, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read key file: %w", err)
	}
	*dst = key
	return nil
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
