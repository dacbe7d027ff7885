package middleware

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/bizdesk/authcore"
	"github.com/bizdesk/authcore/password"
	"github.com/bizdesk/authcore/refresh"
)

const testPassword = "correct horse battery staple"

type singleUserDirectory struct {
	user authcore.UserRecord
}

func (d *singleUserDirectory) FindUserByEmail(_ context.Context, email string) (authcore.UserRecord, error) {
	if email == d.user.Email {
		return d.user, nil
	}
	return authcore.UserRecord{}, authcore.ErrUserNotFound
}

func (d *singleUserDirectory) FindUserByID(_ context.Context, userID string) (authcore.UserRecord, error) {
	if userID == d.user.ID {
		return d.user, nil
	}
	return authcore.UserRecord{}, authcore.ErrUserNotFound
}

func (d *singleUserDirectory) UpdatePasswordHash(_ context.Context, _, newHash string) error {
	d.user.PasswordHash = newHash
	return nil
}

// newTestEngine builds an engine over miniredis and logs in the fixture
// user, returning the engine and a valid access token.
func newTestEngine(t *testing.T) (*authcore.Engine, string) {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	hasher, err := password.NewHasher(password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("hasher: %v", err)
	}
	hash, err := hasher.Hash(testPassword)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	dir := &singleUserDirectory{user: authcore.UserRecord{
		ID:           "user-1",
		Email:        "ops@example.com",
		TenantID:     "tenant-a",
		PasswordHash: hash,
		Status:       authcore.UserActive,
		Roles: []authcore.RoleAssignment{
			{RoleID: "billing-admin", TenantID: "tenant-a"},
		},
	}}

	cfg := authcore.DefaultConfig()
	cfg.JWT.PrivateKey = priv
	cfg.JWT.PublicKey = pub
	cfg.JWT.Issuer = "authcore-test"
	cfg.Password.UpgradeOnLogin = false

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	engine, err := authcore.New().
		WithConfig(cfg).
		WithRedis(client).
		WithStore(refresh.NewMemoryStore()).
		WithUserDirectory(dir).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)

	result, err := engine.Login(context.Background(), "ops@example.com", testPassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	return engine, result.AccessToken
}

func TestGuardAdmitsBearerToken(t *testing.T) {
	engine, token := newTestEngine(t)

	var gotClaims *authcore.Claims
	handler := Guard(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClaims, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotClaims == nil || gotClaims.Subject != "user-1" || gotClaims.TenantID != "tenant-a" {
		t.Fatalf("unexpected claims in context: %+v", gotClaims)
	}
}

func TestGuardRejectsMissingAndGarbageTokens(t *testing.T) {
	engine, _ := newTestEngine(t)

	handler := Guard(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler reached without valid token")
	}))

	for name, authz := range map[string]string{
		"no header":    "",
		"not bearer":   "Basic abc",
		"empty bearer": "Bearer ",
		"garbage":      "Bearer not.a.jwt",
	} {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		if authz != "" {
			req.Header.Set("Authorization", authz)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, rec.Code)
		}
	}
}

func TestGuardCookieFallback(t *testing.T) {
	engine, token := newTestEngine(t)

	handler := Guard(engine, WithCookie("access_token"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 via cookie, got %d", rec.Code)
	}

	// Header takes precedence over the cookie.
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 when header token is bogus, got %d", rec.Code)
	}
}

func TestGuardNilEngine(t *testing.T) {
	handler := Guard(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler reached with nil engine")
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
