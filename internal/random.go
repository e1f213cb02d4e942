package internal

import (
	"github.com/google/uuid"
)

// NewRefreshTokenID returns an opaque random identifier for a refresh
// session. UUIDv4 gives 122 bits of randomness, enough that collisions
// and guesses are not a practical concern for the spent-ID index.
func NewRefreshTokenID() string {
	return uuid.NewString()
}
