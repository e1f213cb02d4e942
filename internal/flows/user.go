package flows

import "github.com/accountforge/authcore/permission"

// UserSnapshot is the slice of a user record the flows need. The root
// package projects its provider records into this shape so the flows never
// depend on the provider contract directly.
type UserSnapshot struct {
	UserID           string
	Email            string
	PasswordHash     string
	Role             string
	Perms            permission.Flags
	TwoFactorEnabled bool
	TwoFactorSecret  string
	FederatedID      string
}
