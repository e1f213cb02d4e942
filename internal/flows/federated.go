package flows

import "context"

// FederatedFailure classifies why a federated sign-in was refused.
type FederatedFailure int

const (
	FederatedFailureNone FederatedFailure = iota
	FederatedFailureVerify
	FederatedFailureLookup
	FederatedFailureCreate
	FederatedFailureIssue
)

// FederatedDeps holds the collaborators for the federated sign-in flow.
// EmitWelcome may be nil when no event sink is configured; it only fires
// for accounts created by this flow.
type FederatedDeps struct {
	VerifyProviderToken  func(ctx context.Context, providerToken string) (externalID, email string, err error)
	GetUserByFederatedID func(ctx context.Context, externalID string) (UserSnapshot, bool, error)
	CreateUser           func(ctx context.Context, email, externalID string) (UserSnapshot, error)
	EmitWelcome          func(ctx context.Context, user UserSnapshot)
	Issue                IssueDeps
}

// FederatedResult reports the outcome of a federated sign-in. Created is
// true when the account was provisioned during this call.
type FederatedResult struct {
	Failure FederatedFailure
	Err     error
	Created bool
	User    UserSnapshot
	Tokens  TokenPair
}

// RunFederatedSignIn exchanges an identity provider's token for a local
// token pair, provisioning the account on first sign-in. A provider token
// the verifier rejects is a plain refusal; everything after verification
// is an infrastructure failure of one kind or another.
func RunFederatedSignIn(ctx context.Context, providerToken string, deps FederatedDeps) FederatedResult {
	externalID, email, err := deps.VerifyProviderToken(ctx, providerToken)
	if err != nil {
		return FederatedResult{Failure: FederatedFailureVerify, Err: err}
	}

	user, found, err := deps.GetUserByFederatedID(ctx, externalID)
	if err != nil {
		return FederatedResult{Failure: FederatedFailureLookup, Err: err}
	}

	created := false
	if !found {
		user, err = deps.CreateUser(ctx, email, externalID)
		if err != nil {
			return FederatedResult{Failure: FederatedFailureCreate, Err: err}
		}
		created = true
	}

	tokens, err := RunIssue(ctx, user, deps.Issue)
	if err != nil {
		return FederatedResult{Failure: FederatedFailureIssue, Err: err, Created: created, User: user}
	}

	if created && deps.EmitWelcome != nil {
		deps.EmitWelcome(ctx, user)
	}
	return FederatedResult{Created: created, User: user, Tokens: tokens}
}
