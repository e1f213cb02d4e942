package authcore

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/semaphore"

	"github.com/accountforge/authcore/authz"
	"github.com/accountforge/authcore/internal/events"
	"github.com/accountforge/authcore/internal/rate"
	"github.com/accountforge/authcore/jwt"
	"github.com/accountforge/authcore/password"
	"github.com/accountforge/authcore/permission"
	"github.com/accountforge/authcore/secrets"
	"github.com/accountforge/authcore/session"
)

// Builder assembles an [Engine]. Zero values in the supplied Config fall
// back to defaults; Build validates the result and wires every
// component, so a successfully built engine is fully operational.
type Builder struct {
	cfg         Config
	cfgSet      bool
	redis       redis.UniversalClient
	users       UserProvider
	apiKeys     APIKeyProvider
	federated   FederatedVerifier
	sink        EventSink
	permissions []string
	policies    map[string]authz.PolicyFunc
}

// NewBuilder starts an engine definition.
func NewBuilder() *Builder {
	return &Builder{policies: make(map[string]authz.PolicyFunc)}
}

// WithConfig supplies the engine configuration. Zero-valued sections and
// fields keep their defaults.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	b.cfgSet = true
	return b
}

// WithRedis supplies the Redis client backing sessions and throttling.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserProvider supplies the identity lookup collaborator. Required.
func (b *Builder) WithUserProvider(p UserProvider) *Builder {
	b.users = p
	return b
}

// WithAPIKeyProvider supplies API key storage. Optional; without it the
// API key operations return [ErrEngineNotReady].
func (b *Builder) WithAPIKeyProvider(p APIKeyProvider) *Builder {
	b.apiKeys = p
	return b
}

// WithFederatedVerifier supplies the identity provider token verifier.
// Optional; without it FederatedSignIn returns [ErrEngineNotReady].
func (b *Builder) WithFederatedVerifier(v FederatedVerifier) *Builder {
	b.federated = v
	return b
}

// WithEventSink supplies the destination for security events. Optional.
func (b *Builder) WithEventSink(sink EventSink) *Builder {
	b.sink = sink
	return b
}

// WithPermissions registers the permission catalog in order. Bit
// positions follow registration order and must stay stable across
// deployments that share tokens.
func (b *Builder) WithPermissions(names ...string) *Builder {
	b.permissions = append(b.permissions, names...)
	return b
}

// WithPolicy registers a named policy handler.
func (b *Builder) WithPolicy(name string, fn authz.PolicyFunc) *Builder {
	b.policies[name] = fn
	return b
}

// Build validates the configuration and assembles the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.users == nil {
		return nil, errors.New("authcore: user provider is required")
	}
	if b.redis == nil {
		return nil, errors.New("authcore: redis client is required")
	}

	cfg := defaultConfig()
	if b.cfgSet {
		cfg = mergeConfig(cfg, cloneConfig(b.cfg))
	}
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("authcore: invalid config: %w", err)
	}

	tokens, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		AccessSecret:  cfg.JWT.AccessSecret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, fmt.Errorf("authcore: jwt: %w", err)
	}

	cipher, err := buildCipher(cfg.Crypto)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCrypto, err)
	}

	hasher, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, fmt.Errorf("authcore: password: %w", err)
	}

	registry := permission.NewRegistry()
	for _, name := range b.permissions {
		if _, err := registry.Register(name); err != nil {
			return nil, fmt.Errorf("authcore: permission %q: %w", name, err)
		}
	}
	registry.Freeze()

	az := authz.New(registry, cfg.Authz.SuperRole)
	for name, fn := range b.policies {
		if err := az.RegisterPolicy(name, fn); err != nil {
			return nil, fmt.Errorf("authcore: %w", err)
		}
	}

	var limiter *rate.Limiter
	if !cfg.Throttle.Disabled {
		limiter = rate.New(b.redis, rate.Config{
			EnableIPThrottle: !cfg.Throttle.DisableIPThrottle,
			MaxAttempts:      cfg.Throttle.MaxAttempts,
			Cooldown:         cfg.Throttle.Cooldown,
		})
	}

	return &Engine{
		config:    cfg,
		tokens:    tokens,
		sessions:  session.NewStore(b.redis, cfg.Session.RedisPrefix, cfg.JWT.RefreshTTL),
		limiter:   limiter,
		cipher:    cipher,
		totp:      newTOTPManager(cfg.TOTP),
		hasher:    hasher,
		hashGate:  semaphore.NewWeighted(cfg.Password.MaxConcurrentHashes),
		registry:  registry,
		authz:     az,
		users:     b.users,
		apiKeys:   b.apiKeys,
		federated: b.federated,
		dispatcher: events.NewDispatcher(events.Config{
			Enabled:    !cfg.Events.Disabled && b.sink != nil,
			BufferSize: cfg.Events.BufferSize,
			DropIfFull: !cfg.Events.BlockIfFull,
		}, b.sink),
		metrics: NewMetrics(cfg.Metrics),
	}, nil
}

func buildCipher(cfg CryptoConfig) (secrets.Cipher, error) {
	switch cfg.Mode {
	case CryptoAESGCM:
		return secrets.NewAESGCM(cfg.Key)
	case CryptoRSA:
		return secrets.NewRSA(cfg.PublicKeyPEM, cfg.PrivateKeyPEM)
	default:
		return nil, fmt.Errorf("unknown crypto mode %q", cfg.Mode)
	}
}

// mergeConfig lays user overrides over the defaults field by field so a
// caller can set only what it cares about.
func mergeConfig(def, over Config) Config {
	out := over
	if out.JWT.AccessTTL == 0 {
		out.JWT.AccessTTL = def.JWT.AccessTTL
	}
	if out.JWT.RefreshTTL == 0 {
		out.JWT.RefreshTTL = def.JWT.RefreshTTL
	}
	if out.JWT.Leeway == 0 {
		out.JWT.Leeway = def.JWT.Leeway
	}
	if out.Session.RedisPrefix == "" {
		out.Session.RedisPrefix = def.Session.RedisPrefix
	}
	if out.TOTP.AppName == "" {
		out.TOTP.AppName = def.TOTP.AppName
	}
	if out.TOTP.Digits == 0 {
		out.TOTP.Digits = def.TOTP.Digits
	}
	if out.TOTP.Period == 0 {
		out.TOTP.Period = def.TOTP.Period
	}
	if out.TOTP.Skew == 0 {
		out.TOTP.Skew = def.TOTP.Skew
	}
	if out.TOTP.Algorithm == "" {
		out.TOTP.Algorithm = def.TOTP.Algorithm
	}
	if out.Password.Memory == 0 {
		out.Password = def.Password
	}
	if out.Password.MaxConcurrentHashes == 0 {
		out.Password.MaxConcurrentHashes = def.Password.MaxConcurrentHashes
	}
	if out.Crypto.Mode == "" {
		out.Crypto.Mode = def.Crypto.Mode
	}
	if out.Authz.SuperRole == "" {
		out.Authz.SuperRole = def.Authz.SuperRole
	}
	if out.Cookie.Name == "" {
		out.Cookie = def.Cookie
	}
	if out.Throttle.MaxAttempts == 0 {
		out.Throttle.MaxAttempts = def.Throttle.MaxAttempts
	}
	if out.Throttle.Cooldown == 0 {
		out.Throttle.Cooldown = def.Throttle.Cooldown
	}
	if out.Events.BufferSize == 0 {
		out.Events.BufferSize = def.Events.BufferSize
	}
	return out
}
