package middleware

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/accountforge/authcore"
)

type staticUserProvider struct {
	mu     sync.Mutex
	users  map[string]authcore.UserRecord
	nextID int
}

func (p *staticUserProvider) GetUserByEmail(_ context.Context, email string) (authcore.UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, rec := range p.users {
		if rec.Email == email {
			return rec, nil
		}
	}
	return authcore.UserRecord{}, authcore.ErrNotFound
}

func (p *staticUserProvider) GetUserByID(_ context.Context, userID string) (authcore.UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.users[userID]
	if !ok {
		return authcore.UserRecord{}, authcore.ErrNotFound
	}
	return rec, nil
}

func (p *staticUserProvider) GetUserByFederatedID(context.Context, string) (authcore.UserRecord, error) {
	return authcore.UserRecord{}, authcore.ErrNotFound
}

func (p *staticUserProvider) CreateUser(_ context.Context, input authcore.CreateUserInput) (authcore.UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	rec := authcore.UserRecord{
		UserID:       "u" + strconv.Itoa(p.nextID),
		Email:        input.Email,
		PasswordHash: input.PasswordHash,
		Role:         input.Role,
		Perms:        input.Perms,
	}
	p.users[rec.UserID] = rec
	return rec, nil
}

func (p *staticUserProvider) UpdatePasswordHash(context.Context, string, string) error { return nil }

func (p *staticUserProvider) SetTwoFactor(context.Context, string, string, bool) error { return nil }

func (p *staticUserProvider) DisableTwoFactor(context.Context, string) error { return nil }

func newGuardEngine(t *testing.T) (*authcore.Engine, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := authcore.Config{}
	cfg.JWT.AccessSecret = bytes.Repeat([]byte("a"), 32)
	cfg.JWT.RefreshSecret = bytes.Repeat([]byte("r"), 32)
	cfg.JWT.Issuer = "authcore-test"
	cfg.JWT.Audience = "authcore-clients"
	cfg.JWT.AccessTTL = time.Minute
	cfg.JWT.RefreshTTL = time.Hour
	cfg.Crypto.Key = bytes.Repeat([]byte("k"), 32)
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.SaltLength = 16
	cfg.Password.KeyLength = 32

	engine, err := authcore.NewBuilder().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(&staticUserProvider{users: map[string]authcore.UserRecord{}}).
		WithPermissions("reports.read").
		Build()
	if err != nil {
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}
	return engine, func() {
		engine.Close()
		mr.Close()
	}
}

func signInFor(t *testing.T, engine *authcore.Engine, role string) authcore.TokenPair {
	t.Helper()
	email := fmt.Sprintf("%s@example.com", role)
	if _, err := engine.SignUp(context.Background(), email, "correct-password-123", role); err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	pair, err := engine.SignIn(context.Background(), email, "correct-password-123", "")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	return pair
}

func TestGuardBearerFlow(t *testing.T) {
	engine, done := newGuardEngine(t)
	defer done()
	pair := signInFor(t, engine, "member")

	var seen *authcore.Identity
	handler := Guard(engine, authcore.Route{Auth: authcore.AuthBearer}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = authcore.IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/reports", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if seen == nil || seen.Email != "member@example.com" {
		t.Fatalf("identity not propagated: %+v", seen)
	}
}

func TestGuardRejectsAndNeverCallsNext(t *testing.T) {
	engine, done := newGuardEngine(t)
	defer done()
	pair := signInFor(t, engine, "member")

	nextCalled := false
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { nextCalled = true })

	cases := []struct {
		name   string
		route  authcore.Route
		header http.Header
		status int
	}{
		{
			name:   "missing token",
			route:  authcore.Route{Auth: authcore.AuthBearer},
			header: http.Header{},
			status: http.StatusUnauthorized,
		},
		{
			name:   "garbage token",
			route:  authcore.Route{Auth: authcore.AuthBearer},
			header: http.Header{"Authorization": {"Bearer garbage"}},
			status: http.StatusUnauthorized,
		},
		{
			name:   "role denied",
			route:  authcore.Route{Auth: authcore.AuthBearer, Roles: []string{"admin"}},
			header: http.Header{"Authorization": {"Bearer " + pair.AccessToken}},
			status: http.StatusForbidden,
		},
		{
			name:   "permission denied",
			route:  authcore.Route{Auth: authcore.AuthBearer, Permission: "reports.read"},
			header: http.Header{"Authorization": {"Bearer " + pair.AccessToken}},
			status: http.StatusForbidden,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			nextCalled = false
			req := httptest.NewRequest(http.MethodGet, "/reports", nil)
			req.Header = tc.header
			rr := httptest.NewRecorder()
			Guard(engine, tc.route, next).ServeHTTP(rr, req)

			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rr.Code)
			}
			if nextCalled {
				t.Fatal("next handler must not run on refusal")
			}
		})
	}
}

func TestGuardAuthNonePassesThrough(t *testing.T) {
	engine, done := newGuardEngine(t)
	defer done()

	handler := Guard(engine, authcore.Route{Auth: authcore.AuthNone}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := authcore.IdentityFromContext(r.Context()); ok {
			t.Error("anonymous request must carry no identity")
		}
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestStatusForError(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{nil, http.StatusOK},
		{authcore.ErrUnauthorized, http.StatusUnauthorized},
		{fmt.Errorf("wrap: %w", authcore.ErrUnauthorized), http.StatusUnauthorized},
		{authcore.ErrForbidden, http.StatusForbidden},
		{authcore.ErrConflict, http.StatusConflict},
		{authcore.ErrNotFound, http.StatusNotFound},
		{authcore.ErrStoreUnavailable, http.StatusServiceUnavailable},
		{errors.New("anything else"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := StatusForError(tc.err); got != tc.status {
			t.Fatalf("StatusForError(%v) = %d, want %d", tc.err, got, tc.status)
		}
	}
}
