package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/accountforge/authcore/authz"
	"github.com/accountforge/authcore/internal"
	"github.com/accountforge/authcore/internal/events"
	"github.com/accountforge/authcore/internal/flows"
	"github.com/accountforge/authcore/internal/rate"
	"github.com/accountforge/authcore/jwt"
	"github.com/accountforge/authcore/password"
	"github.com/accountforge/authcore/permission"
	"github.com/accountforge/authcore/secrets"
	"github.com/accountforge/authcore/session"
)

// Engine is the authentication and authorization core. Construct it with
// [NewBuilder]; the zero value is not usable. All methods are safe for
// concurrent use.
type Engine struct {
	config Config

	tokens   *jwt.Manager
	sessions *session.Store
	limiter  *rate.Limiter
	cipher   secrets.Cipher
	totp     *totpManager
	hasher   *password.Hasher
	hashGate *semaphore.Weighted

	registry *permission.Registry
	authz    *authz.Engine

	users     UserProvider
	apiKeys   APIKeyProvider
	federated FederatedVerifier

	dispatcher *events.Dispatcher
	metrics    *Metrics
}

// Metrics exposes the engine's counter core for the exporters under
// metrics/export.
func (e *Engine) Metrics() *Metrics {
	return e.metrics
}

// EventsDropped reports how many events the dispatcher discarded under
// backpressure.
func (e *Engine) EventsDropped() uint64 {
	return e.dispatcher.Dropped()
}

// Permissions returns the frozen permission registry.
func (e *Engine) Permissions() *permission.Registry {
	return e.registry
}

// Close stops the event dispatcher, draining buffered events. Safe to
// call more than once; the engine must not be used afterwards.
func (e *Engine) Close() {
	e.dispatcher.Close()
}

// Ping verifies Redis connectivity and reports the round-trip time.
func (e *Engine) Ping(ctx context.Context) (time.Duration, error) {
	return e.sessions.Ping(ctx)
}

// SignIn verifies an email/password pair (plus TOTP code when the
// account has two-factor enabled) and returns a fresh token pair. Any
// earlier refresh session for the user is invalidated. All credential
// refusals come back as [ErrUnauthorized]; callers must not leak which
// step failed.
func (e *Engine) SignIn(ctx context.Context, email, pass, twoFactorCode string) (TokenPair, error) {
	if err := e.ready(); err != nil {
		return TokenPair{}, err
	}
	ip := ClientIPFromContext(ctx)

	res := flows.RunSignIn(ctx, email, pass, twoFactorCode, ip, e.signInDeps())
	switch res.Failure {
	case flows.SignInFailureNone:
		e.metrics.Inc(MetricSignInSuccess)
		e.emit(ctx, Event{
			EventType: EventSignInSuccess,
			UserID:    res.User.UserID,
			Email:     email,
			IP:        ip,
			Success:   true,
		})
		return TokenPair{AccessToken: res.Tokens.AccessToken, RefreshToken: res.Tokens.RefreshToken}, nil

	case flows.SignInFailureRateLimited:
		if errors.Is(res.Err, rate.ErrRedisUnavailable) {
			return TokenPair{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Err)
		}
		e.metrics.Inc(MetricSignInRateLimited)
		e.emitSignInFailure(ctx, email, ip, res.User.UserID, ErrSignInRateLimited)
		return TokenPair{}, fmt.Errorf("%w: %v", ErrUnauthorized, ErrSignInRateLimited)

	case flows.SignInFailureUserMissing, flows.SignInFailureBadPassword:
		e.metrics.Inc(MetricSignInFailure)
		e.emitSignInFailure(ctx, email, ip, res.User.UserID, ErrInvalidCredentials)
		return TokenPair{}, fmt.Errorf("%w: %v", ErrUnauthorized, ErrInvalidCredentials)

	case flows.SignInFailureNoPassword:
		e.metrics.Inc(MetricSignInFailure)
		e.emitSignInFailure(ctx, email, ip, res.User.UserID, ErrFederatedOnly)
		return TokenPair{}, fmt.Errorf("%w: %v", ErrUnauthorized, ErrFederatedOnly)

	case flows.SignInFailureTwoFactor:
		e.metrics.Inc(MetricTwoFactorFailure)
		e.emitSignInFailure(ctx, email, ip, res.User.UserID, ErrInvalidTwoFactorCode)
		return TokenPair{}, fmt.Errorf("%w: %v", ErrUnauthorized, ErrInvalidTwoFactorCode)

	case flows.SignInFailureCrypto:
		return TokenPair{}, fmt.Errorf("%w: %v", ErrCrypto, res.Err)

	default:
		return TokenPair{}, e.storeErr(res.Err)
	}
}

// Refresh rotates a refresh token for a new pair. The presented token is
// spent whether or not the call succeeds. Reuse of an already rotated
// token invalidates the user's live session and is reported as the same
// [ErrUnauthorized] the caller would see for any bad token.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if err := e.ready(); err != nil {
		return TokenPair{}, err
	}
	ip := ClientIPFromContext(ctx)

	res := flows.RunRefresh(ctx, refreshToken, e.refreshDeps())
	switch res.Failure {
	case flows.RefreshFailureNone:
		e.metrics.Inc(MetricRefreshSuccess)
		e.emit(ctx, Event{
			EventType: EventTokenRefreshed,
			UserID:    res.User.UserID,
			Email:     res.User.Email,
			IP:        ip,
			Success:   true,
		})
		return TokenPair{AccessToken: res.Tokens.AccessToken, RefreshToken: res.Tokens.RefreshToken}, nil

	case flows.RefreshFailureReuse:
		// A spent or superseded ID means someone presented a token the
		// legitimate client already rotated. Kill the live session so the
		// holder of the newer token has to authenticate again too.
		if err := e.sessions.Invalidate(ctx, res.User.UserID); err != nil {
			return TokenPair{}, e.storeErr(err)
		}
		e.metrics.Inc(MetricRefreshReuseDetected)
		e.emit(ctx, Event{
			EventType: EventTokenTheft,
			UserID:    res.User.UserID,
			Email:     res.User.Email,
			IP:        ip,
			Error:     ErrTokenTheft.Error(),
		})
		return TokenPair{}, fmt.Errorf("%w: %v", ErrUnauthorized, ErrTokenTheft)

	case flows.RefreshFailureDecode, flows.RefreshFailureUserMissing, flows.RefreshFailureNoSession:
		e.metrics.Inc(MetricRefreshFailure)
		return TokenPair{}, fmt.Errorf("%w: invalid refresh token", ErrUnauthorized)

	default:
		return TokenPair{}, e.storeErr(res.Err)
	}
}

// SignOut invalidates the user's active refresh session. The access
// token stays valid until it expires; only the refresh path is cut.
func (e *Engine) SignOut(ctx context.Context, userID string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.sessions.Invalidate(ctx, userID); err != nil {
		return e.storeErr(err)
	}
	e.metrics.Inc(MetricSignOut)
	e.emit(ctx, Event{
		EventType: EventSignOut,
		UserID:    userID,
		IP:        ClientIPFromContext(ctx),
		Success:   true,
	})
	return nil
}

func (e *Engine) ready() error {
	if e == nil || e.tokens == nil || e.sessions == nil || e.users == nil {
		return ErrEngineNotReady
	}
	return nil
}

func (e *Engine) storeErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

func (e *Engine) emit(ctx context.Context, event Event) {
	if e.dispatcher == nil {
		return
	}
	event.Timestamp = time.Now().UTC()
	e.dispatcher.Emit(ctx, events.Event(event))
}

func (e *Engine) emitSignInFailure(ctx context.Context, email, ip, userID string, cause error) {
	e.emit(ctx, Event{
		EventType: EventSignInFailure,
		UserID:    userID,
		Email:     email,
		IP:        ip,
		Error:     cause.Error(),
	})
}

// hashPassword and verifyPassword run under the concurrency gate so a
// burst of argon2id work cannot starve the rest of the process.
func (e *Engine) hashPassword(ctx context.Context, pass string) (string, error) {
	if err := e.hashGate.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer e.hashGate.Release(1)
	return e.hasher.Hash(pass)
}

func (e *Engine) verifyPassword(ctx context.Context, pass, hash string) (bool, error) {
	if err := e.hashGate.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer e.hashGate.Release(1)
	return e.hasher.Verify(pass, hash)
}

func snapshotOf(rec UserRecord) flows.UserSnapshot {
	return flows.UserSnapshot{
		UserID:           rec.UserID,
		Email:            rec.Email,
		PasswordHash:     rec.PasswordHash,
		Role:             rec.Role,
		Perms:            rec.Perms,
		TwoFactorEnabled: rec.TwoFactorEnabled,
		TwoFactorSecret:  rec.TwoFactorSecret,
		FederatedID:      rec.FederatedID,
	}
}

func (e *Engine) issueDeps() flows.IssueDeps {
	return flows.IssueDeps{
		NewRefreshTokenID: internal.NewRefreshTokenID,
		SignAccess:        e.tokens.SignAccess,
		SignRefresh:       e.tokens.SignRefresh,
		InsertSession:     e.sessions.Insert,
	}
}

func (e *Engine) signInDeps() flows.SignInDeps {
	deps := flows.SignInDeps{
		GetUserByEmail: func(ctx context.Context, email string) (flows.UserSnapshot, bool, error) {
			rec, err := e.users.GetUserByEmail(ctx, email)
			if errors.Is(err, ErrNotFound) {
				return flows.UserSnapshot{}, false, nil
			}
			if err != nil {
				return flows.UserSnapshot{}, false, err
			}
			return snapshotOf(rec), true, nil
		},
		VerifyPassword: e.verifyPassword,
		DecryptSecret:  e.cipher.Decrypt,
		VerifyTOTP: func(secret, code string) (bool, error) {
			return e.totp.VerifyCode(secret, code, time.Now())
		},
		Issue: e.issueDeps(),
	}
	if e.limiter != nil {
		deps.CheckRate = e.limiter.CheckSignIn
		deps.IncrementRate = e.limiter.IncrementSignIn
		deps.ResetRate = e.limiter.ResetSignIn
	}
	return deps
}

func (e *Engine) refreshDeps() flows.RefreshDeps {
	return flows.RefreshDeps{
		ParseRefresh: func(token string) (string, string, error) {
			claims, err := e.tokens.ParseRefresh(token)
			if err != nil {
				return "", "", err
			}
			return claims.Subject, claims.RefreshTokenID, nil
		},
		GetUserByID: func(ctx context.Context, userID string) (flows.UserSnapshot, bool, error) {
			rec, err := e.users.GetUserByID(ctx, userID)
			if errors.Is(err, ErrNotFound) {
				return flows.UserSnapshot{}, false, nil
			}
			if err != nil {
				return flows.UserSnapshot{}, false, err
			}
			return snapshotOf(rec), true, nil
		},
		NewRefreshTokenID: internal.NewRefreshTokenID,
		Rotate:            e.sessions.Rotate,
		SignAccess:        e.tokens.SignAccess,
		SignRefresh:       e.tokens.SignRefresh,
		ReuseErr:          session.ErrReuse,
		NoSessionErr:      session.ErrNoSession,
	}
}
