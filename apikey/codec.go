package apikey

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/google/uuid"
)

const secretBytes = 32

// ErrMalformed is returned by Split for keys that do not match the
// identifier.secret shape.
var ErrMalformed = errors.New("malformed api key")

// Key is the result of a generation: the full distributable string (shown
// to the caller exactly once), the lookup identifier, and the hash to
// persist.
type Key struct {
	Full       string
	Identifier string
	Secret     string
	SecretHash [32]byte
}

// Generate produces a new API key with a random identifier and secret.
func Generate() (Key, error) {
	raw := make([]byte, secretBytes)
	if _, err := rand.Read(raw); err != nil {
		return Key{}, err
	}

	identifier := uuid.NewString()
	secret := base64.RawURLEncoding.EncodeToString(raw)

	return Key{
		Full:       identifier + "." + secret,
		Identifier: identifier,
		Secret:     secret,
		SecretHash: HashSecret(secret),
	}, nil
}

// Split decomposes a presented key into identifier and secret. Both parts
// must be non-empty; anything else is [ErrMalformed].
func Split(full string) (identifier, secret string, err error) {
	identifier, secret, ok := strings.Cut(full, ".")
	if !ok || identifier == "" || secret == "" {
		return "", "", ErrMalformed
	}
	return identifier, secret, nil
}

// HashSecret returns the storable hash of a key secret.
func HashSecret(secret string) [32]byte {
	return sha256.Sum256([]byte(secret))
}

// Verify compares a presented secret against a stored hash in constant
// time.
func Verify(secret string, storedHash [32]byte) bool {
	computed := HashSecret(secret)
	return subtle.ConstantTimeCompare(computed[:], storedHash[:]) == 1
}
