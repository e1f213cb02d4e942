package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/accountforge/authcore/authz"
	"github.com/accountforge/authcore/permission"
)

// Resolve authenticates the presented credentials using the strategy the
// route declares and returns the verified identity. AuthNone routes
// resolve to a nil identity without touching the credentials. Every
// credential refusal is [ErrUnauthorized] with no strategy detail.
func (e *Engine) Resolve(ctx context.Context, route Route, creds Credentials) (*Identity, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	switch route.Auth {
	case authz.AuthNone:
		return nil, nil

	case authz.AuthPassword:
		return e.resolvePassword(ctx, creds)

	case authz.AuthBearer:
		id, err := e.resolveBearer(creds.BearerToken)
		if err != nil {
			e.metrics.Inc(MetricBearerRejected)
			return nil, err
		}
		e.metrics.Inc(MetricBearerResolved)
		return id, nil

	case authz.AuthAPIKey:
		id, err := e.authenticateAPIKey(ctx, creds.APIKey)
		if err != nil {
			if !errors.Is(err, ErrStoreUnavailable) {
				e.metrics.Inc(MetricAPIKeyRejected)
			}
			return nil, err
		}
		e.metrics.Inc(MetricAPIKeyResolved)
		return id, nil

	default:
		return nil, fmt.Errorf("%w: unknown auth type", ErrUnauthorized)
	}
}

// resolvePassword verifies the full password credential set, including
// the TOTP step for enrolled accounts, without issuing tokens or
// touching the session store.
func (e *Engine) resolvePassword(ctx context.Context, creds Credentials) (*Identity, error) {
	rec, err := e.users.GetUserByEmail(ctx, creds.Email)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, ErrInvalidCredentials)
	}
	if err != nil {
		return nil, e.storeErr(err)
	}
	if rec.PasswordHash == "" {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, ErrFederatedOnly)
	}

	ok, err := e.verifyPassword(ctx, creds.Password, rec.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, ErrInvalidCredentials)
	}

	if rec.TwoFactorEnabled {
		if creds.TwoFactorCode == "" {
			return nil, fmt.Errorf("%w: %v", ErrUnauthorized, ErrInvalidTwoFactorCode)
		}
		secret, err := e.cipher.Decrypt(rec.TwoFactorSecret)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCrypto, err)
		}
		ok, err := e.totp.VerifyCode(secret, creds.TwoFactorCode, time.Now())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCrypto, err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: %v", ErrUnauthorized, ErrInvalidTwoFactorCode)
		}
	}

	return &Identity{
		UserID: rec.UserID,
		Email:  rec.Email,
		Role:   rec.Role,
		Perms:  rec.Perms,
	}, nil
}

// resolveBearer builds the identity straight from verified access-token
// claims. No repository round-trip: the claims are the snapshot.
func (e *Engine) resolveBearer(token string) (*Identity, error) {
	claims, err := e.tokens.ParseAccess(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	perms, err := permission.Decode(claims.Perms)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return &Identity{
		UserID: claims.Subject,
		Email:  claims.Email,
		Role:   claims.Role,
		Perms:  perms,
	}, nil
}

// Authorize runs the route's access declaration against the resolved
// identity: auth requirement, roles, permission, then policies, first
// denial wins. Unauthenticated and denied map to [ErrUnauthorized] and
// [ErrForbidden] respectively.
func (e *Engine) Authorize(ctx context.Context, id *Identity, route Route) error {
	if err := e.ready(); err != nil {
		return err
	}
	err := e.authz.Authorize(ctx, id, route)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, authz.ErrUnauthenticated):
		e.metrics.Inc(MetricAuthzDenied)
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	default:
		e.metrics.Inc(MetricAuthzDenied)
		return fmt.Errorf("%w: %v", ErrForbidden, err)
	}
}

// RegisterPolicy adds a named policy handler for routes to reference.
// Registration is meant for startup; duplicate names error.
func (e *Engine) RegisterPolicy(name string, fn authz.PolicyFunc) error {
	if err := e.ready(); err != nil {
		return err
	}
	return e.authz.RegisterPolicy(name, fn)
}
