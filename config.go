package authcore

import (
	"errors"
	"time"
)

// Config carries every tunable of the engine. Values only; loading them
// from files or the environment is the embedding application's job.
type Config struct {
	JWT      JWTConfig
	Session  SessionConfig
	TOTP     TOTPConfig
	Password PasswordConfig
	Crypto   CryptoConfig
	Authz    AuthzConfig
	Cookie   CookieConfig
	Throttle ThrottleConfig
	Events   EventConfig
	Metrics  MetricsConfig
}

// JWTConfig configures the token codec. Access and refresh tokens are
// signed with independent secrets.
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	AccessSecret  []byte
	RefreshSecret []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

// SessionConfig configures the Redis refresh session store.
type SessionConfig struct {
	RedisPrefix string
}

// TOTPConfig configures second-factor code generation and verification.
// Skew is the number of adjacent time steps accepted on each side of the
// current one; at least 1 is required to tolerate clock drift.
type TOTPConfig struct {
	AppName   string
	Digits    int
	Period    int
	Skew      int
	Algorithm string // "SHA1" (default), "SHA256", "SHA512"
}

// PasswordConfig configures argon2id hashing and the concurrency gate
// that keeps slow hashes off the shared request path.
type PasswordConfig struct {
	Memory              uint32 // KB
	Time                uint32
	Parallelism         uint8
	SaltLength          uint32
	KeyLength           uint32
	MaxConcurrentHashes int64
}

// CryptoMode selects the at-rest encryption scheme for TOTP seeds.
type CryptoMode string

const (
	// CryptoAESGCM uses a single 32-byte symmetric key.
	CryptoAESGCM CryptoMode = "aesgcm"
	// CryptoRSA uses a PEM-encoded RSA-OAEP key pair.
	CryptoRSA CryptoMode = "rsa"
)

// CryptoConfig configures the secret encryption service. Exactly the
// material for the selected mode must be present; anything else fails
// Build with ErrCrypto.
type CryptoConfig struct {
	Mode          CryptoMode
	Key           []byte // aesgcm
	PublicKeyPEM  []byte // rsa
	PrivateKeyPEM []byte // rsa
}

// AuthzConfig configures the authorization decision engine.
type AuthzConfig struct {
	// SuperRole bypasses role checks only; permission and policy stages
	// still apply to it. Empty disables the bypass.
	SuperRole string
}

// CookieConfig shapes the refresh-token transport cookie. Path should be
// exactly the refresh endpoint so the browser never sends the token
// anywhere else.
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	SameSite string // "lax" (default), "strict", "none"
	Secure   bool
}

// ThrottleConfig bounds failed password sign-in attempts. The zero
// value leaves throttling on; set Disabled to opt out.
type ThrottleConfig struct {
	Disabled          bool
	DisableIPThrottle bool
	MaxAttempts       int
	Cooldown          time.Duration
}

// EventConfig controls the async security event dispatcher. The zero
// value leaves dispatch on with drop-if-full delivery.
type EventConfig struct {
	Disabled    bool
	BufferSize  int
	BlockIfFull bool
}

// MetricsConfig toggles the internal counters read by the exporters.
// The zero value leaves them on.
type MetricsConfig struct {
	Disabled bool
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
			Leeway:     30 * time.Second,
		},
		Session: SessionConfig{
			RedisPrefix: "ac",
		},
		TOTP: TOTPConfig{
			AppName:   "authcore",
			Digits:    6,
			Period:    30,
			Skew:      1,
			Algorithm: "SHA1",
		},
		Password: PasswordConfig{
			Memory:              64 * 1024,
			Time:                3,
			Parallelism:         2,
			SaltLength:          16,
			KeyLength:           32,
			MaxConcurrentHashes: 8,
		},
		Crypto: CryptoConfig{
			Mode: CryptoAESGCM,
		},
		Authz: AuthzConfig{
			SuperRole: "super",
		},
		Cookie: CookieConfig{
			Name:     "refresh_token",
			Path:     "/auth/refresh",
			SameSite: "lax",
			Secure:   true,
		},
		Throttle: ThrottleConfig{
			MaxAttempts: 10,
			Cooldown:    15 * time.Minute,
		},
		Events: EventConfig{
			BufferSize: 256,
		},
	}
}

func validateConfig(cfg Config) error {
	if cfg.JWT.AccessTTL <= 0 || cfg.JWT.RefreshTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	if cfg.JWT.RefreshTTL <= cfg.JWT.AccessTTL {
		return errors.New("refresh TTL must exceed access TTL")
	}
	if cfg.Session.RedisPrefix == "" {
		return errors.New("session redis prefix cannot be empty")
	}
	if cfg.TOTP.Digits < 6 || cfg.TOTP.Digits > 8 {
		return errors.New("totp digits must be 6..8")
	}
	if cfg.TOTP.Period <= 0 {
		return errors.New("totp period must be positive")
	}
	if cfg.TOTP.Skew < 1 {
		return errors.New("totp skew must be >= 1")
	}
	if cfg.TOTP.AppName == "" {
		return errors.New("totp app name cannot be empty")
	}
	if cfg.Password.MaxConcurrentHashes <= 0 {
		return errors.New("password hash concurrency must be positive")
	}
	switch cfg.Crypto.Mode {
	case CryptoAESGCM, CryptoRSA:
	default:
		return errors.New("unknown crypto mode")
	}
	if !cfg.Throttle.Disabled {
		if cfg.Throttle.MaxAttempts <= 0 {
			return errors.New("throttle max attempts must be positive")
		}
		if cfg.Throttle.Cooldown <= 0 {
			return errors.New("throttle cooldown must be positive")
		}
	}
	if cfg.Cookie.Name == "" || cfg.Cookie.Path == "" {
		return errors.New("cookie name and path cannot be empty")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.AccessSecret = append([]byte(nil), cfg.JWT.AccessSecret...)
	out.JWT.RefreshSecret = append([]byte(nil), cfg.JWT.RefreshSecret...)
	out.Crypto.Key = append([]byte(nil), cfg.Crypto.Key...)
	out.Crypto.PublicKeyPEM = append([]byte(nil), cfg.Crypto.PublicKeyPEM...)
	out.Crypto.PrivateKeyPEM = append([]byte(nil), cfg.Crypto.PrivateKeyPEM...)
	return out
}
