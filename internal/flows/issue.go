package flows

import "context"

// IssueDeps holds the collaborators for minting a token pair and binding
// the refresh half to the session store.
type IssueDeps struct {
	NewRefreshTokenID func() string
	SignAccess        func(subject, email, role string, perms []byte) (string, error)
	SignRefresh       func(subject, refreshTokenID string) (string, error)
	InsertSession     func(ctx context.Context, userID, refreshTokenID string) error
}

// TokenPair is the result of a successful issuance.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// RunIssue mints an access/refresh pair for the user and records the new
// refresh-token ID as the user's single active session. Any prior active
// refresh-token ID is overwritten, which is what invalidates earlier
// sessions on a fresh sign-in.
func RunIssue(ctx context.Context, user UserSnapshot, deps IssueDeps) (TokenPair, error) {
	tokenID := deps.NewRefreshTokenID()

	access, err := deps.SignAccess(user.UserID, user.Email, user.Role, user.Perms.Encode())
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := deps.SignRefresh(user.UserID, tokenID)
	if err != nil {
		return TokenPair{}, err
	}
	if err := deps.InsertSession(ctx, user.UserID, tokenID); err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
