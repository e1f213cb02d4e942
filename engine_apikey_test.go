package authcore

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func newAPIKeyEngine(t *testing.T, up UserProvider, keys APIKeyProvider) (*Engine, func()) {
	t.Helper()
	mr, rdb := newTestRedis(t)
	engine, err := NewBuilder().
		WithConfig(engineTestConfig()).
		WithRedis(rdb).
		WithUserProvider(up).
		WithAPIKeyProvider(keys).
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

func TestAPIKeyRoundTrip(t *testing.T) {
	up := newMockUserProvider()
	keys := newMockAPIKeyProvider()
	engine, done := newAPIKeyEngine(t, up, keys)
	defer done()

	rec := seedUser(t, engine, "alice@example.com", "correct-password-123", "member")

	full, err := engine.CreateAPIKey(context.Background(), rec.UserID)
	if err != nil {
		t.Fatalf("CreateAPIKey failed: %v", err)
	}
	if !strings.Contains(full, ".") {
		t.Fatalf("expected identifier.secret shape, got %q", full)
	}

	id, err := engine.Resolve(context.Background(), Route{Auth: AuthAPIKey}, Credentials{APIKey: full})
	if err != nil {
		t.Fatalf("api key resolve failed: %v", err)
	}
	if id.UserID != rec.UserID {
		t.Fatalf("expected key to resolve to %s, got %s", rec.UserID, id.UserID)
	}

	// Only the hash is stored.
	identifier, secret, err := splitKeyForTest(full)
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}
	stored, err := keys.GetAPIKey(context.Background(), identifier)
	if err != nil {
		t.Fatalf("stored key lookup failed: %v", err)
	}
	if strings.Contains(string(stored.SecretHash[:]), secret) {
		t.Fatal("provider must never see the plaintext secret")
	}
}

func splitKeyForTest(full string) (string, string, error) {
	i := strings.IndexByte(full, '.')
	if i < 0 {
		return "", "", errors.New("no separator")
	}
	return full[:i], full[i+1:], nil
}

func TestAPIKeyRejections(t *testing.T) {
	up := newMockUserProvider()
	keys := newMockAPIKeyProvider()
	engine, done := newAPIKeyEngine(t, up, keys)
	defer done()

	rec := seedUser(t, engine, "alice@example.com", "correct-password-123", "member")
	full, err := engine.CreateAPIKey(context.Background(), rec.UserID)
	if err != nil {
		t.Fatalf("CreateAPIKey failed: %v", err)
	}
	identifier, _, err := splitKeyForTest(full)
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}

	cases := []struct {
		name string
		key  string
	}{
		{"malformed", "no-separator-here"},
		{"unknown identifier", "ffffffff-0000-0000-0000-000000000000.c2VjcmV0"},
		{"wrong secret", identifier + ".c2VjcmV0"},
		{"empty", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.Resolve(context.Background(), Route{Auth: AuthAPIKey}, Credentials{APIKey: tc.key})
			if !errors.Is(err, ErrUnauthorized) {
				t.Fatalf("expected ErrUnauthorized, got %v", err)
			}
		})
	}
}

func TestCreateAPIKeyForMissingUser(t *testing.T) {
	up := newMockUserProvider()
	keys := newMockAPIKeyProvider()
	engine, done := newAPIKeyEngine(t, up, keys)
	defer done()

	if _, err := engine.CreateAPIKey(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
