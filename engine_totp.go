package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ProvisionTwoFactor generates a fresh TOTP secret for the account,
// persists it encrypted with two-factor still disabled, and returns the
// plaintext secret plus otpauth:// URI exactly once for enrollment. The
// plaintext is never stored.
func (e *Engine) ProvisionTwoFactor(ctx context.Context, email string) (TwoFactorSetup, error) {
	if err := e.ready(); err != nil {
		return TwoFactorSetup{}, err
	}

	rec, err := e.users.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return TwoFactorSetup{}, err
	}
	if err != nil {
		return TwoFactorSetup{}, e.storeErr(err)
	}

	secret, err := e.totp.GenerateSecret()
	if err != nil {
		return TwoFactorSetup{}, fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	encrypted, err := e.cipher.Encrypt(secret)
	if err != nil {
		return TwoFactorSetup{}, fmt.Errorf("%w: %v", ErrCrypto, err)
	}

	// Enabled stays false until the user proves possession of the secret
	// through EnableTwoFactor. Re-provisioning overwrites any pending
	// secret; last write wins.
	if err := e.users.SetTwoFactor(ctx, rec.Email, encrypted, false); err != nil {
		if errors.Is(err, ErrNotFound) {
			return TwoFactorSetup{}, err
		}
		return TwoFactorSetup{}, e.storeErr(err)
	}

	return TwoFactorSetup{
		Secret: secret,
		URI:    e.totp.ProvisionURI(secret, rec.Email),
	}, nil
}

// EnableTwoFactor verifies a code against the provisioned secret and
// flips two-factor on. From the next sign-in onward the code is
// mandatory.
func (e *Engine) EnableTwoFactor(ctx context.Context, email, code string) error {
	if err := e.ready(); err != nil {
		return err
	}

	rec, err := e.users.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return err
	}
	if err != nil {
		return e.storeErr(err)
	}
	if rec.TwoFactorSecret == "" {
		return fmt.Errorf("%w: no two-factor secret provisioned", ErrUnauthorized)
	}

	secret, err := e.cipher.Decrypt(rec.TwoFactorSecret)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	ok, err := e.totp.VerifyCode(secret, code, time.Now())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	if !ok {
		e.metrics.Inc(MetricTwoFactorFailure)
		return fmt.Errorf("%w: %v", ErrUnauthorized, ErrInvalidTwoFactorCode)
	}

	if err := e.users.SetTwoFactor(ctx, rec.Email, rec.TwoFactorSecret, true); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return e.storeErr(err)
	}

	e.metrics.Inc(MetricTwoFactorEnabled)
	e.emit(ctx, Event{
		EventType: EventTwoFactorEnabled,
		UserID:    rec.UserID,
		Email:     rec.Email,
		IP:        ClientIPFromContext(ctx),
		Success:   true,
	})
	return nil
}

// DisableTwoFactor turns two-factor off and discards the stored secret.
func (e *Engine) DisableTwoFactor(ctx context.Context, email string) error {
	if err := e.ready(); err != nil {
		return err
	}

	rec, err := e.users.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return err
	}
	if err != nil {
		return e.storeErr(err)
	}

	if err := e.users.DisableTwoFactor(ctx, rec.Email); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return e.storeErr(err)
	}

	e.metrics.Inc(MetricTwoFactorDisabled)
	e.emit(ctx, Event{
		EventType: EventTwoFactorDisabled,
		UserID:    rec.UserID,
		Email:     rec.Email,
		IP:        ClientIPFromContext(ctx),
		Success:   true,
	})
	return nil
}
