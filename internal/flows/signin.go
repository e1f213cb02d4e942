package flows

import "context"

// SignInFailure classifies why a password sign-in was refused.
type SignInFailure int

const (
	SignInFailureNone SignInFailure = iota
	SignInFailureRateLimited
	SignInFailureUserMissing
	SignInFailureUserLookup
	SignInFailureNoPassword
	SignInFailureBadPassword
	SignInFailureTwoFactor
	SignInFailureCrypto
	SignInFailureIssue
)

// SignInDeps holds the collaborators for the password sign-in flow.
//
// CheckRate, IncrementRate and ResetRate may be nil when throttling is
// disabled. DecryptSecret and VerifyTOTP are only called for users with
// two-factor enabled.
type SignInDeps struct {
	CheckRate      func(ctx context.Context, identifier, ip string) error
	IncrementRate  func(ctx context.Context, identifier, ip string) error
	ResetRate      func(ctx context.Context, identifier, ip string) error
	GetUserByEmail func(ctx context.Context, email string) (UserSnapshot, bool, error)
	VerifyPassword func(ctx context.Context, password, hash string) (bool, error)
	DecryptSecret  func(encrypted string) (string, error)
	VerifyTOTP     func(secret, code string) (bool, error)
	Issue          IssueDeps
}

// SignInResult reports the outcome of a sign-in attempt. On failure, Err
// carries the underlying cause for kinds that have one (lookup, crypto and
// issuance errors); refusals driven purely by the credentials leave it nil.
type SignInResult struct {
	Failure SignInFailure
	Err     error
	User    UserSnapshot
	Tokens  TokenPair
}

// RunSignIn verifies an email/password pair, enforces the two-factor step
// when the user has it enabled, and issues a fresh token pair. The failed
// attempt counter is bumped for every credential refusal and cleared on
// success.
func RunSignIn(ctx context.Context, email, password, twoFactorCode, clientIP string, deps SignInDeps) SignInResult {
	if deps.CheckRate != nil {
		if err := deps.CheckRate(ctx, email, clientIP); err != nil {
			return SignInResult{Failure: SignInFailureRateLimited, Err: err}
		}
	}

	user, found, err := deps.GetUserByEmail(ctx, email)
	if err != nil {
		return SignInResult{Failure: SignInFailureUserLookup, Err: err}
	}
	if !found {
		return refuse(ctx, deps, email, clientIP, SignInFailureUserMissing, user)
	}

	// Federated-only accounts have no local password and cannot sign in
	// with one.
	if user.PasswordHash == "" {
		return refuse(ctx, deps, email, clientIP, SignInFailureNoPassword, user)
	}

	ok, err := deps.VerifyPassword(ctx, password, user.PasswordHash)
	if err != nil {
		return SignInResult{Failure: SignInFailureCrypto, Err: err, User: user}
	}
	if !ok {
		return refuse(ctx, deps, email, clientIP, SignInFailureBadPassword, user)
	}

	if user.TwoFactorEnabled {
		if twoFactorCode == "" {
			return refuse(ctx, deps, email, clientIP, SignInFailureTwoFactor, user)
		}
		secret, err := deps.DecryptSecret(user.TwoFactorSecret)
		if err != nil {
			return SignInResult{Failure: SignInFailureCrypto, Err: err, User: user}
		}
		ok, err := deps.VerifyTOTP(secret, twoFactorCode)
		if err != nil {
			return SignInResult{Failure: SignInFailureCrypto, Err: err, User: user}
		}
		if !ok {
			return refuse(ctx, deps, email, clientIP, SignInFailureTwoFactor, user)
		}
	}

	tokens, err := RunIssue(ctx, user, deps.Issue)
	if err != nil {
		return SignInResult{Failure: SignInFailureIssue, Err: err, User: user}
	}

	if deps.ResetRate != nil {
		_ = deps.ResetRate(ctx, email, clientIP)
	}
	return SignInResult{User: user, Tokens: tokens}
}

func refuse(ctx context.Context, deps SignInDeps, email, clientIP string, kind SignInFailure, user UserSnapshot) SignInResult {
	if deps.IncrementRate != nil {
		_ = deps.IncrementRate(ctx, email, clientIP)
	}
	return SignInResult{Failure: kind, User: user}
}
