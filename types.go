package authcore

import (
	"context"

	"github.com/accountforge/authcore/authz"
	"github.com/accountforge/authcore/permission"
)

// Identity is the verified per-request principal. Alias of the authz
// type so middleware, policies, and engine callers share one shape.
type Identity = authz.Identity

// Route is the explicit per-route access declaration evaluated by the
// authorization engine.
type Route = authz.Route

// AuthType is a route's declared authentication requirement.
type AuthType = authz.AuthType

const (
	AuthNone     = authz.AuthNone
	AuthPassword = authz.AuthPassword
	AuthBearer   = authz.AuthBearer
	AuthAPIKey   = authz.AuthAPIKey
)

// UserRecord is the account shape the engine consumes from the identity
// lookup collaborator. TwoFactorSecret is opaque ciphertext produced by
// the engine; providers store and return it verbatim.
type UserRecord struct {
	UserID           string
	Email            string
	PasswordHash     string // empty for federated-only accounts
	Role             string
	Perms            permission.Flags
	TwoFactorEnabled bool
	TwoFactorSecret  string
	FederatedID      string
}

// CreateUserInput is what the engine hands the provider when creating an
// account (sign-up or first federated sign-in).
type CreateUserInput struct {
	Email        string
	PasswordHash string
	Role         string
	Perms        permission.Flags
	FederatedID  string
}

// UserProvider is the identity lookup and mutation collaborator. Record
// storage and schema are outside this module.
//
// Contract: lookups return [ErrNotFound] for missing accounts; CreateUser
// returns [ErrConflict] on a duplicate email or federated ID (including
// the unique-constraint race).
type UserProvider interface {
	GetUserByEmail(ctx context.Context, email string) (UserRecord, error)
	GetUserByID(ctx context.Context, userID string) (UserRecord, error)
	GetUserByFederatedID(ctx context.Context, externalID string) (UserRecord, error)
	CreateUser(ctx context.Context, input CreateUserInput) (UserRecord, error)
	UpdatePasswordHash(ctx context.Context, userID, newHash string) error
	// SetTwoFactor persists the encrypted secret and the enabled flag in
	// one write; last write wins.
	SetTwoFactor(ctx context.Context, email, encryptedSecret string, enabled bool) error
	DisableTwoFactor(ctx context.Context, email string) error
}

// APIKeyRecord associates a lookup identifier and secret hash with one
// account.
type APIKeyRecord struct {
	Identifier string
	SecretHash [32]byte
	UserID     string
}

// APIKeyProvider stores and resolves API key records. Lookups return
// [ErrNotFound] for unknown identifiers.
type APIKeyProvider interface {
	StoreAPIKey(ctx context.Context, record APIKeyRecord) error
	GetAPIKey(ctx context.Context, identifier string) (APIKeyRecord, error)
}

// FederatedIdentity is the verified result of a federation provider's
// token check. The verification internals live outside this module.
type FederatedIdentity struct {
	ExternalID string
	Email      string
}

// FederatedVerifier validates a provider token (e.g. an OAuth ID token)
// and returns the verified external identity.
type FederatedVerifier interface {
	VerifyProviderToken(ctx context.Context, providerToken string) (FederatedIdentity, error)
}

// Credentials carries whatever the caller presented; the route's auth
// type selects which fields the resolver reads.
type Credentials struct {
	Email         string
	Password      string
	TwoFactorCode string
	BearerToken   string
	APIKey        string
}

// TokenPair is the result of sign-in and federated sign-in. The refresh
// token is meant for the scoped cookie built by [Engine.RefreshCookie],
// never for a response body.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TwoFactorSetup is returned by provisioning: the base32 secret and the
// otpauth:// URI for authenticator apps.
type TwoFactorSetup struct {
	Secret string
	URI    string
}
