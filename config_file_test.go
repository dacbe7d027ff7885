package authcore

import (
	"crypto/ed25519"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTestKeys(t *testing.T, dir string) (privPath, pubPath string) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	privPath = filepath.Join(dir, "signing.key")
	pubPath = filepath.Join(dir, "signing.pub")
	if err := os.WriteFile(privPath, priv, 0o600); err != nil {
		t.Fatalf("write private key: %v", err)
	}
	if err := os.WriteFile(pubPath, pub, 0o600); err != nil {
		t.Fatalf("write public key: %v", err)
	}
	return privPath, pubPath
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	privPath, pubPath := writeTestKeys(t, dir)

	yaml := `
jwt:
  access_ttl: 10m
  signing_method: ed25519
  private_key_file: ` + privPath + `
  public_key_file: ` + pubPath + `
  issuer: bizdesk
  audience: bizdesk-api
  leeway: 1m
refresh:
  ttl: 48h
  redis_prefix: bd
password:
  memory: 131072
  upgrade_on_login: false
security:
  revoke_all_on_reuse: true
  max_login_attempts: 10
  login_cooldown: 30m
audit:
  enabled: true
  buffer_size: 256
metrics:
  enabled: true
  latency_histograms: true
`
	path := filepath.Join(dir, "authcore.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.JWT.AccessTTL != 10*time.Minute || cfg.JWT.Issuer != "bizdesk" || cfg.JWT.Leeway != time.Minute {
		t.Fatalf("jwt section mismatch: %+v", cfg.JWT)
	}
	if len(cfg.JWT.PrivateKey) != ed25519.PrivateKeySize || len(cfg.JWT.PublicKey) != ed25519.PublicKeySize {
		t.Fatalf("key material not loaded: priv=%d pub=%d", len(cfg.JWT.PrivateKey), len(cfg.JWT.PublicKey))
	}
	if cfg.Refresh.TTL != 48*time.Hour || cfg.Refresh.RedisPrefix != "bd" {
		t.Fatalf("refresh section mismatch: %+v", cfg.Refresh)
	}
	if cfg.Password.Memory != 131072 || cfg.Password.UpgradeOnLogin {
		t.Fatalf("password section mismatch: %+v", cfg.Password)
	}
	// Unset fields keep their defaults.
	if cfg.Password.Time != DefaultConfig().Password.Time {
		t.Fatalf("expected default time cost, got %d", cfg.Password.Time)
	}
	if !cfg.Security.RevokeAllOnReuse || cfg.Security.MaxLoginAttempts != 10 || cfg.Security.LoginCooldown != 30*time.Minute {
		t.Fatalf("security section mismatch: %+v", cfg.Security)
	}
	if !cfg.Audit.Enabled || cfg.Audit.BufferSize != 256 {
		t.Fatalf("audit section mismatch: %+v", cfg.Audit)
	}
	if !cfg.Metrics.Enabled || !cfg.Metrics.EnableLatencyHistograms {
		t.Fatalf("metrics section mismatch: %+v", cfg.Metrics)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("loaded config should validate: %v", err)
	}
}

func TestLoadConfigFileEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	privPath, pubPath := writeTestKeys(t, dir)

	path := filepath.Join(dir, "authcore.yaml")
	yaml := `
jwt:
  private_key_file: ` + privPath + `
  public_key_file: ` + pubPath + `
  issuer: from-file
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("AUTHCORE_JWT_ISSUER", "from-env")
	t.Setenv("AUTHCORE_REDIS_PREFIX", "env-prefix")
	t.Setenv("AUTHCORE_REVOKE_ALL_ON_REUSE", "true")

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.JWT.Issuer != "from-env" {
		t.Fatalf("expected env to win, got issuer %q", cfg.JWT.Issuer)
	}
	if cfg.Refresh.RedisPrefix != "env-prefix" {
		t.Fatalf("expected env prefix, got %q", cfg.Refresh.RedisPrefix)
	}
	if !cfg.Security.RevokeAllOnReuse {
		t.Fatal("expected env to enable RevokeAllOnReuse")
	}
}

func TestLoadConfigFileErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadConfigFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("jwt: [not a mapping"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadConfigFile(bad); err == nil {
		t.Fatal("expected parse error")
	}

	badDur := filepath.Join(dir, "dur.yaml")
	if err := os.WriteFile(badDur, []byte("jwt:\n  access_ttl: soon\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadConfigFile(badDur); err == nil {
		t.Fatal("expected duration parse error")
	}
}
