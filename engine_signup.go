package authcore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const minPasswordLength = 8

// SignUp creates a local account with an argon2id password hash and
// returns the stored record. Duplicate emails come back as
// [ErrConflict]. No token pair is issued; the caller signs in
// afterwards.
func (e *Engine) SignUp(ctx context.Context, email, pass, role string) (UserRecord, error) {
	if err := e.ready(); err != nil {
		return UserRecord{}, err
	}
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return UserRecord{}, fmt.Errorf("%w: empty email", ErrUnauthorized)
	}
	if len(pass) < minPasswordLength {
		return UserRecord{}, fmt.Errorf("%w: password too short", ErrUnauthorized)
	}

	hash, err := e.hashPassword(ctx, pass)
	if err != nil {
		return UserRecord{}, fmt.Errorf("%w: %v", ErrCrypto, err)
	}

	rec, err := e.users.CreateUser(ctx, CreateUserInput{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			e.metrics.Inc(MetricSignUpDuplicate)
			return UserRecord{}, err
		}
		return UserRecord{}, e.storeErr(err)
	}

	e.metrics.Inc(MetricSignUpSuccess)
	e.emit(ctx, Event{
		EventType: EventSignUp,
		UserID:    rec.UserID,
		Email:     rec.Email,
		IP:        ClientIPFromContext(ctx),
		Success:   true,
	})
	e.emit(ctx, Event{
		EventType: EventWelcome,
		UserID:    rec.UserID,
		Email:     rec.Email,
		IP:        ClientIPFromContext(ctx),
		Success:   true,
	})
	return rec, nil
}

// ChangePassword re-verifies the current password and installs a new
// hash, then invalidates the user's refresh session so every device has
// to sign in again. callerID must match the account being changed.
func (e *Engine) ChangePassword(ctx context.Context, callerID, email, currentPass, newPass string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if len(newPass) < minPasswordLength {
		return fmt.Errorf("%w: password too short", ErrUnauthorized)
	}

	rec, err := e.users.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrUnauthorized, ErrInvalidCredentials)
	}
	if err != nil {
		return e.storeErr(err)
	}
	if callerID != rec.UserID {
		return fmt.Errorf("%w: %v", ErrForbidden, ErrPasswordMismatch)
	}
	if rec.PasswordHash == "" {
		return fmt.Errorf("%w: %v", ErrUnauthorized, ErrFederatedOnly)
	}

	ok, err := e.verifyPassword(ctx, currentPass, rec.PasswordHash)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	if !ok {
		return fmt.Errorf("%w: %v", ErrUnauthorized, ErrInvalidCredentials)
	}

	hash, err := e.hashPassword(ctx, newPass)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	if err := e.users.UpdatePasswordHash(ctx, rec.UserID, hash); err != nil {
		return e.storeErr(err)
	}
	if err := e.sessions.Invalidate(ctx, rec.UserID); err != nil {
		return e.storeErr(err)
	}

	e.emit(ctx, Event{
		EventType: EventPasswordChanged,
		UserID:    rec.UserID,
		Email:     rec.Email,
		IP:        ClientIPFromContext(ctx),
		Success:   true,
	})
	return nil
}
