package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/accountforge/authcore/apikey"
)

// CreateAPIKey mints a structured API key bound to the account and
// stores its identifier and secret hash. The full "identifier.secret"
// string is returned exactly once; only the hash survives.
func (e *Engine) CreateAPIKey(ctx context.Context, userID string) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}
	if e.apiKeys == nil {
		return "", fmt.Errorf("%w: no api key provider configured", ErrEngineNotReady)
	}

	if _, err := e.users.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", err
		}
		return "", e.storeErr(err)
	}

	key, err := apikey.Generate()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	if err := e.apiKeys.StoreAPIKey(ctx, APIKeyRecord{
		Identifier: key.Identifier,
		SecretHash: key.SecretHash,
		UserID:     userID,
	}); err != nil {
		return "", e.storeErr(err)
	}

	e.metrics.Inc(MetricAPIKeyCreated)
	e.emit(ctx, Event{
		EventType: EventAPIKeyCreated,
		UserID:    userID,
		IP:        ClientIPFromContext(ctx),
		Success:   true,
		Metadata:  map[string]string{"identifier": key.Identifier},
	})
	return key.Full, nil
}

// authenticateAPIKey resolves a presented key to its owning identity.
// Malformed keys, unknown identifiers, and secret mismatches are all the
// same [ErrUnauthorized].
func (e *Engine) authenticateAPIKey(ctx context.Context, full string) (*Identity, error) {
	if e.apiKeys == nil {
		return nil, fmt.Errorf("%w: no api key provider configured", ErrEngineNotReady)
	}

	identifier, secret, err := apikey.Split(full)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	rec, err := e.apiKeys.GetAPIKey(ctx, identifier)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown api key", ErrUnauthorized)
	}
	if err != nil {
		return nil, e.storeErr(err)
	}
	if !apikey.Verify(secret, rec.SecretHash) {
		return nil, fmt.Errorf("%w: api key secret mismatch", ErrUnauthorized)
	}

	user, err := e.users.GetUserByID(ctx, rec.UserID)
	if errors.Is(err, ErrNotFound) {
		// Key outlived its account.
		return nil, fmt.Errorf("%w: unknown api key", ErrUnauthorized)
	}
	if err != nil {
		return nil, e.storeErr(err)
	}

	return &Identity{
		UserID: user.UserID,
		Email:  user.Email,
		Role:   user.Role,
		Perms:  user.Perms,
	}, nil
}
