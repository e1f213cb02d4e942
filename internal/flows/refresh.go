package flows

import (
	"context"
	"errors"
)

// RefreshFailure classifies why a refresh was refused.
type RefreshFailure int

const (
	RefreshFailureNone RefreshFailure = iota
	RefreshFailureDecode
	RefreshFailureUserMissing
	RefreshFailureUserLookup
	RefreshFailureReuse
	RefreshFailureNoSession
	RefreshFailureRotate
	RefreshFailureIssue
)

// RefreshDeps holds the collaborators for the refresh rotation flow.
//
// Rotate must be atomic with respect to concurrent rotations for the same
// user and must return ReuseErr when the presented ID does not match the
// live one (or was already spent), and NoSessionErr when the user has no
// session at all.
type RefreshDeps struct {
	ParseRefresh      func(token string) (subject, refreshTokenID string, err error)
	GetUserByID       func(ctx context.Context, userID string) (UserSnapshot, bool, error)
	NewRefreshTokenID func() string
	Rotate            func(ctx context.Context, userID, presentedID, nextID string) error
	SignAccess        func(subject, email, role string, perms []byte) (string, error)
	SignRefresh       func(subject, refreshTokenID string) (string, error)
	ReuseErr          error
	NoSessionErr      error
}

// RefreshResult reports the outcome of a refresh attempt.
type RefreshResult struct {
	Failure RefreshFailure
	Err     error
	User    UserSnapshot
	Tokens  TokenPair
}

// RunRefresh rotates a refresh token: decode, load the user, atomically
// swap the stored refresh-token ID for a new one, then sign a fresh pair
// carrying the new ID. A presented ID that was already spent is treated as
// reuse so the caller can flag possible token theft.
//
// The new session ID is committed by Rotate before the tokens are signed;
// if signing then fails the old token is already dead and the client must
// authenticate again. That is the safe side of the trade.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	subject, presentedID, err := deps.ParseRefresh(refreshToken)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureDecode, Err: err}
	}

	user, found, err := deps.GetUserByID(ctx, subject)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureUserLookup, Err: err}
	}
	if !found {
		return RefreshResult{Failure: RefreshFailureUserMissing}
	}

	nextID := deps.NewRefreshTokenID()
	if err := deps.Rotate(ctx, user.UserID, presentedID, nextID); err != nil {
		switch {
		case errors.Is(err, deps.ReuseErr):
			return RefreshResult{Failure: RefreshFailureReuse, User: user}
		case errors.Is(err, deps.NoSessionErr):
			return RefreshResult{Failure: RefreshFailureNoSession, User: user}
		default:
			return RefreshResult{Failure: RefreshFailureRotate, Err: err, User: user}
		}
	}

	access, err := deps.SignAccess(user.UserID, user.Email, user.Role, user.Perms.Encode())
	if err != nil {
		return RefreshResult{Failure: RefreshFailureIssue, Err: err, User: user}
	}
	refresh, err := deps.SignRefresh(user.UserID, nextID)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureIssue, Err: err, User: user}
	}
	return RefreshResult{User: user, Tokens: TokenPair{AccessToken: access, RefreshToken: refresh}}
}
