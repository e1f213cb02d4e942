package secrets

import "errors"

var (
	// ErrInvalidKey is returned at construction for absent or wrongly
	// sized key material.
	ErrInvalidKey = errors.New("invalid encryption key")
	// ErrMalformedCiphertext is returned when a ciphertext cannot be
	// decoded, is truncated, or fails authentication.
	ErrMalformedCiphertext = errors.New("malformed ciphertext")
)

// Cipher encrypts and decrypts small secrets. Implementations must fail
// with ErrMalformedCiphertext on any tampered or wrong-key input.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}
