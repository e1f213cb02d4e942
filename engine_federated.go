package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/accountforge/authcore/internal/flows"
)

// FederatedSignIn exchanges an identity provider's token for a local
// token pair, provisioning the account on first sign-in. A concurrent
// first sign-in that loses the unique-constraint race surfaces as
// [ErrConflict]; retrying resolves it.
func (e *Engine) FederatedSignIn(ctx context.Context, providerToken string) (TokenPair, error) {
	if err := e.ready(); err != nil {
		return TokenPair{}, err
	}
	if e.federated == nil {
		return TokenPair{}, fmt.Errorf("%w: no federated verifier configured", ErrEngineNotReady)
	}
	ip := ClientIPFromContext(ctx)

	res := flows.RunFederatedSignIn(ctx, providerToken, e.federatedDeps(ip))
	switch res.Failure {
	case flows.FederatedFailureNone:
		e.metrics.Inc(MetricFederatedSignIn)
		e.emit(ctx, Event{
			EventType: EventSignInSuccess,
			UserID:    res.User.UserID,
			Email:     res.User.Email,
			IP:        ip,
			Success:   true,
			Metadata:  map[string]string{"method": "federated"},
		})
		return TokenPair{AccessToken: res.Tokens.AccessToken, RefreshToken: res.Tokens.RefreshToken}, nil

	case flows.FederatedFailureVerify:
		e.metrics.Inc(MetricSignInFailure)
		e.emitSignInFailure(ctx, "", ip, "", res.Err)
		return TokenPair{}, fmt.Errorf("%w: provider token rejected", ErrUnauthorized)

	case flows.FederatedFailureCreate:
		if errors.Is(res.Err, ErrConflict) {
			return TokenPair{}, res.Err
		}
		return TokenPair{}, e.storeErr(res.Err)

	default:
		return TokenPair{}, e.storeErr(res.Err)
	}
}

func (e *Engine) federatedDeps(ip string) flows.FederatedDeps {
	return flows.FederatedDeps{
		VerifyProviderToken: func(ctx context.Context, token string) (string, string, error) {
			fid, err := e.federated.VerifyProviderToken(ctx, token)
			if err != nil {
				return "", "", err
			}
			return fid.ExternalID, fid.Email, nil
		},
		GetUserByFederatedID: func(ctx context.Context, externalID string) (flows.UserSnapshot, bool, error) {
			rec, err := e.users.GetUserByFederatedID(ctx, externalID)
			if errors.Is(err, ErrNotFound) {
				return flows.UserSnapshot{}, false, nil
			}
			if err != nil {
				return flows.UserSnapshot{}, false, err
			}
			return snapshotOf(rec), true, nil
		},
		CreateUser: func(ctx context.Context, email, externalID string) (flows.UserSnapshot, error) {
			rec, err := e.users.CreateUser(ctx, CreateUserInput{
				Email:       email,
				FederatedID: externalID,
			})
			if err != nil {
				return flows.UserSnapshot{}, err
			}
			return snapshotOf(rec), nil
		},
		EmitWelcome: func(ctx context.Context, user flows.UserSnapshot) {
			e.emit(ctx, Event{
				EventType: EventWelcome,
				UserID:    user.UserID,
				Email:     user.Email,
				IP:        ip,
				Success:   true,
			})
		},
		Issue: e.issueDeps(),
	}
}
