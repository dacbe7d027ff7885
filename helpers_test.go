package authcore

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/bizdesk/authcore/password"
	"github.com/bizdesk/authcore/refresh"
)

const (
	testEmail    = "ops@example.com"
	testPassword = "correct horse battery staple"
	testUserID   = "user-1"
	testTenantID = "tenant-a"
)

var errDirectoryDown = errors.New("directory down")

// fakeDirectory is an in-memory UserDirectory. failAll simulates an
// infrastructure outage on every call.
type fakeDirectory struct {
	mu      sync.Mutex
	users   map[string]UserRecord // keyed by user ID
	failAll bool

	passwordUpdates int
}

func newFakeDirectory(users ...UserRecord) *fakeDirectory {
	d := &fakeDirectory{users: make(map[string]UserRecord, len(users))}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

func (d *fakeDirectory) FindUserByEmail(_ context.Context, email string) (UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failAll {
		return UserRecord{}, errDirectoryDown
	}
	for _, u := range d.users {
		if u.Email == email {
			return u, nil
		}
	}
	return UserRecord{}, ErrUserNotFound
}

func (d *fakeDirectory) FindUserByID(_ context.Context, userID string) (UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failAll {
		return UserRecord{}, errDirectoryDown
	}
	if u, ok := d.users[userID]; ok {
		return u, nil
	}
	return UserRecord{}, ErrUserNotFound
}

func (d *fakeDirectory) UpdatePasswordHash(_ context.Context, userID, newHash string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failAll {
		return errDirectoryDown
	}
	u, ok := d.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = newHash
	d.users[userID] = u
	d.passwordUpdates++
	return nil
}

func (d *fakeDirectory) setStatus(t testing.TB, userID string, status UserStatus) {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[userID]
	if !ok {
		t.Fatalf("no such user %q", userID)
	}
	u.Status = status
	d.users[userID] = u
}

func (d *fakeDirectory) updates() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.passwordUpdates
}

// testHashParams keeps argon2 cheap so the suite stays fast.
var testHashParams = password.Config{
	Memory:      8 * 1024,
	Time:        1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

func hashPassword(t testing.TB, plain string) string {
	t.Helper()
	hasher, err := password.NewHasher(testHashParams)
	if err != nil {
		t.Fatalf("hasher: %v", err)
	}
	hash, err := hasher.Hash(plain)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return hash
}

func testUser(t testing.TB) UserRecord {
	t.Helper()
	return UserRecord{
		ID:           testUserID,
		Email:        testEmail,
		TenantID:     testTenantID,
		PasswordHash: hashPassword(t, testPassword),
		Status:       UserActive,
		Roles: []RoleAssignment{
			{RoleID: "billing-admin", TenantID: testTenantID},
			{RoleID: "auditor", TenantID: "tenant-other"},
		},
	}
}

func testConfig(t testing.TB) Config {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	cfg := DefaultConfig()
	cfg.JWT.PrivateKey = priv
	cfg.JWT.PublicKey = pub
	cfg.JWT.Issuer = "authcore-test"
	cfg.Password = PasswordConfig{
		Memory:         testHashParams.Memory,
		Time:           testHashParams.Time,
		Parallelism:    testHashParams.Parallelism,
		SaltLength:     testHashParams.SaltLength,
		KeyLength:      testHashParams.KeyLength,
		UpgradeOnLogin: DefaultConfig().Password.UpgradeOnLogin,
	}
	return cfg
}

// newTestEngine builds an engine over miniredis and the in-memory refresh
// store, with cfg optionally reshaped by the mutators.
func newTestEngine(t testing.TB, dir *fakeDirectory, mutate ...func(*Config)) *Engine {
	t.Helper()

	cfg := testConfig(t)
	for _, m := range mutate {
		m(&cfg)
	}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	engine, err := New().
		WithConfig(cfg).
		WithRedis(client).
		WithStore(refresh.NewMemoryStore()).
		WithUserDirectory(dir).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

// newTestEngineRedisStore lets Build derive the refresh store from the
// Redis client instead of injecting the in-memory one.
func newTestEngineRedisStore(t testing.TB, dir *fakeDirectory) *Engine {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	engine, err := New().
		WithConfig(testConfig(t)).
		WithRedis(client).
		WithUserDirectory(dir).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}
