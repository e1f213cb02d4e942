package authcore

import (
	"bytes"
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis failed: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, rdb
}

func engineTestConfig() Config {
	cfg := defaultConfig()
	cfg.JWT.AccessSecret = bytes.Repeat([]byte("a"), 32)
	cfg.JWT.RefreshSecret = bytes.Repeat([]byte("r"), 32)
	cfg.JWT.Issuer = "authcore-test"
	cfg.JWT.Audience = "authcore-clients"
	cfg.Crypto.Key = bytes.Repeat([]byte("k"), 32)
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Throttle.MaxAttempts = 3
	cfg.Throttle.Cooldown = time.Minute
	return cfg
}

type mockUserProvider struct {
	mu      sync.Mutex
	users   map[string]UserRecord // by userID
	byEmail map[string]string
	byFed   map[string]string
	nextID  int

	createCalls int
	createErr   error
}

func newMockUserProvider() *mockUserProvider {
	return &mockUserProvider{
		users:   map[string]UserRecord{},
		byEmail: map[string]string{},
		byFed:   map[string]string{},
	}
}

func (m *mockUserProvider) add(rec UserRecord) UserRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.UserID == "" {
		m.nextID++
		rec.UserID = "u" + strconv.Itoa(m.nextID)
	}
	m.users[rec.UserID] = rec
	m.byEmail[rec.Email] = rec.UserID
	if rec.FederatedID != "" {
		m.byFed[rec.FederatedID] = rec.UserID
	}
	return rec
}

func (m *mockUserProvider) GetUserByEmail(_ context.Context, email string) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byEmail[email]
	if !ok {
		return UserRecord{}, ErrNotFound
	}
	return m.users[id], nil
}

func (m *mockUserProvider) GetUserByID(_ context.Context, userID string) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.users[userID]
	if !ok {
		return UserRecord{}, ErrNotFound
	}
	return rec, nil
}

func (m *mockUserProvider) GetUserByFederatedID(_ context.Context, externalID string) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byFed[externalID]
	if !ok {
		return UserRecord{}, ErrNotFound
	}
	return m.users[id], nil
}

func (m *mockUserProvider) CreateUser(_ context.Context, input CreateUserInput) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.createErr != nil {
		return UserRecord{}, m.createErr
	}
	if _, exists := m.byEmail[input.Email]; exists {
		return UserRecord{}, ErrConflict
	}
	if input.FederatedID != "" {
		if _, exists := m.byFed[input.FederatedID]; exists {
			return UserRecord{}, ErrConflict
		}
	}
	m.nextID++
	rec := UserRecord{
		UserID:       "u" + strconv.Itoa(m.nextID),
		Email:        input.Email,
		PasswordHash: input.PasswordHash,
		Role:         input.Role,
		Perms:        input.Perms,
		FederatedID:  input.FederatedID,
	}
	m.users[rec.UserID] = rec
	m.byEmail[rec.Email] = rec.UserID
	if rec.FederatedID != "" {
		m.byFed[rec.FederatedID] = rec.UserID
	}
	return rec, nil
}

func (m *mockUserProvider) UpdatePasswordHash(_ context.Context, userID, newHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	rec.PasswordHash = newHash
	m.users[userID] = rec
	return nil
}

func (m *mockUserProvider) SetTwoFactor(_ context.Context, email, encryptedSecret string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byEmail[email]
	if !ok {
		return ErrNotFound
	}
	rec := m.users[id]
	rec.TwoFactorSecret = encryptedSecret
	rec.TwoFactorEnabled = enabled
	m.users[id] = rec
	return nil
}

func (m *mockUserProvider) DisableTwoFactor(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byEmail[email]
	if !ok {
		return ErrNotFound
	}
	rec := m.users[id]
	rec.TwoFactorSecret = ""
	rec.TwoFactorEnabled = false
	m.users[id] = rec
	return nil
}

type mockAPIKeyProvider struct {
	mu   sync.Mutex
	keys map[string]APIKeyRecord
}

func newMockAPIKeyProvider() *mockAPIKeyProvider {
	return &mockAPIKeyProvider{keys: map[string]APIKeyRecord{}}
}

func (m *mockAPIKeyProvider) StoreAPIKey(_ context.Context, record APIKeyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[record.Identifier] = record
	return nil
}

func (m *mockAPIKeyProvider) GetAPIKey(_ context.Context, identifier string) (APIKeyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.keys[identifier]
	if !ok {
		return APIKeyRecord{}, ErrNotFound
	}
	return rec, nil
}

type mockFederatedVerifier struct {
	identity FederatedIdentity
	err      error
}

func (m *mockFederatedVerifier) VerifyProviderToken(context.Context, string) (FederatedIdentity, error) {
	return m.identity, m.err
}

func newTestEngine(t *testing.T, cfg Config, up UserProvider) (*Engine, *redis.Client, func()) {
	t.Helper()
	mr, rdb := newTestRedis(t)

	engine, err := NewBuilder().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(up).
		WithPermissions("reports.read", "reports.write").
		Build()
	if err != nil {
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}
	return engine, rdb, func() {
		engine.Close()
		mr.Close()
	}
}

// seedUser creates an account through SignUp so the stored hash is real.
func seedUser(t *testing.T, engine *Engine, email, pass, role string) UserRecord {
	t.Helper()
	rec, err := engine.SignUp(context.Background(), email, pass, role)
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	return rec
}
