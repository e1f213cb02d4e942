package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const minSecretBytes = 32

var (
	// ErrExpired is returned when a structurally valid token is past its
	// expiry (plus configured leeway).
	ErrExpired = errors.New("token expired")
	// ErrInvalid is returned for every other verification failure:
	// signature mismatch, wrong issuer or audience, malformed claims.
	ErrInvalid = errors.New("token invalid")
)

// Config carries the signing material and claim constants for both token
// classes. AccessSecret and RefreshSecret must differ.
type Config struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	AccessSecret  []byte
	RefreshSecret []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

// AccessClaims is the payload of an access token: the subject plus an
// identity snapshot so authorization never needs a repository round-trip.
type AccessClaims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	Perms []byte `json:"prm,omitempty"`
	jwt.RegisteredClaims
}

// RefreshClaims is the payload of a refresh token: the subject and the
// opaque rotating refresh-token ID validated against the session store.
type RefreshClaims struct {
	RefreshTokenID string `json:"rti"`
	jwt.RegisteredClaims
}

// Manager signs and verifies both token classes. Safe for concurrent use
// after construction.
type Manager struct {
	config Config
}

func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if len(cfg.AccessSecret) < minSecretBytes || len(cfg.RefreshSecret) < minSecretBytes {
		return nil, fmt.Errorf("signing secrets must be at least %d bytes", minSecretBytes)
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.Issuer == "" || cfg.Audience == "" {
		return nil, errors.New("issuer and audience are required")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	return &Manager{config: cfg}, nil
}

// SignAccess issues an access token for subject embedding the identity
// snapshot. perms is the encoded permission flag set.
func (m *Manager) SignAccess(subject, email, role string, perms []byte) (string, error) {
	claims := AccessClaims{
		Email:            email,
		Role:             role,
		Perms:            perms,
		RegisteredClaims: m.registered(subject, m.config.AccessTTL),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.config.AccessSecret)
}

// SignRefresh issues a refresh token for subject carrying refreshTokenID.
func (m *Manager) SignRefresh(subject, refreshTokenID string) (string, error) {
	claims := RefreshClaims{
		RefreshTokenID:   refreshTokenID,
		RegisteredClaims: m.registered(subject, m.config.RefreshTTL),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.config.RefreshSecret)
}

// ParseAccess verifies signature, issuer, audience, and expiry of an
// access token and returns its claims.
func (m *Manager) ParseAccess(tokenStr string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := m.parse(tokenStr, claims, m.config.AccessSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

// ParseRefresh verifies signature, issuer, audience, and expiry of a
// refresh token and returns its claims.
func (m *Manager) ParseRefresh(tokenStr string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := m.parse(tokenStr, claims, m.config.RefreshSecret); err != nil {
		return nil, err
	}
	if claims.RefreshTokenID == "" {
		return nil, ErrInvalid
	}
	return claims, nil
}

func (m *Manager) registered(subject string, ttl time.Duration) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    m.config.Issuer,
		Audience:  jwt.ClaimStrings{m.config.Audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (m *Manager) parse(tokenStr string, claims jwt.Claims, secret []byte) error {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.config.Issuer),
		jwt.WithAudience(m.config.Audience),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return fmt.Errorf("%w: %v", ErrExpired, err)
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !token.Valid {
		return ErrInvalid
	}
	return nil
}
