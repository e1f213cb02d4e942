package authcore

import "errors"

// Boundary taxonomy. Everything the transport layer maps to an HTTP status
// is one of the first five sentinels; the rest are internal refinements
// that are folded into ErrUnauthorized before they cross the resolver
// boundary.
var (
	// ErrUnauthorized covers bad credentials, invalid or expired tokens,
	// invalid API keys, invalid 2FA codes, and suspected token theft.
	// Externally indistinguishable on purpose.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means authenticated but lacking the role, permission,
	// or policy clearance the route declares.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict is returned on duplicate account creation, including the
	// unique-constraint race on federated sign-up.
	ErrConflict = errors.New("account already exists")
	// ErrNotFound is returned by 2FA and API-key management operations when
	// the target account does not exist.
	ErrNotFound = errors.New("account not found")
	// ErrCrypto indicates misconfigured encryption keys or malformed
	// ciphertext. Fatal for the operation, never silently degraded.
	ErrCrypto = errors.New("crypto failure")
)

var (
	// ErrInvalidCredentials is the internal form of a password mismatch or
	// unknown email during password sign-in.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidTwoFactorCode is returned when an account with 2FA enabled
	// presents a missing or wrong TOTP code.
	ErrInvalidTwoFactorCode = errors.New("invalid 2fa code")
	// ErrTokenTheft marks a refresh token that was already rotated out and
	// presented again. Kept distinct internally for alerting; the boundary
	// returns ErrUnauthorized.
	ErrTokenTheft = errors.New("refresh token reuse detected")
	// ErrFederatedOnly rejects password sign-in on an account that carries
	// only a federated identity.
	ErrFederatedOnly = errors.New("account has no password credential")
	// ErrPasswordMismatch rejects change-password attempts against another
	// user's account.
	ErrPasswordMismatch = errors.New("cannot change password of another account")
	// ErrSignInRateLimited is returned when the per-identifier or per-IP
	// sign-in budget is exhausted.
	ErrSignInRateLimited = errors.New("sign-in rate limited")
	// ErrStoreUnavailable wraps Redis transport failures from the refresh
	// session store and throttle counters.
	ErrStoreUnavailable = errors.New("session store unavailable")
	// ErrEngineNotReady is returned when an Engine method runs before
	// Builder.Build wired the dependencies.
	ErrEngineNotReady = errors.New("engine not initialized")
)
