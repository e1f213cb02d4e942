package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

const (
	gcmNonceSize = 12
	gcmKeySize   = 32
	sep          = "|" // base64(nonce)|base64(ciphertext)
)

// AESGCM is a symmetric [Cipher] using AES-256-GCM with a random nonce
// per encryption.
type AESGCM struct {
	aead cipher.AEAD
}

// NewAESGCM builds an AES-256-GCM cipher from a 32-byte key.
func NewAESGCM(key []byte) (*AESGCM, error) {
	if len(key) != gcmKeySize {
		return nil, fmt.Errorf("%w: need %d bytes, got %d", ErrInvalidKey, gcmKeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return &AESGCM{aead: aead}, nil
}

func (c *AESGCM) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, gcmNonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ct := c.aead.Seal(nil, nonce, []byte(plaintext), nil)

	return base64.StdEncoding.EncodeToString(nonce) + sep +
		base64.StdEncoding.EncodeToString(ct), nil
}

func (c *AESGCM) Decrypt(ciphertext string) (string, error) {
	nonceB64, ctB64, ok := strings.Cut(ciphertext, sep)
	if !ok {
		return "", ErrMalformedCiphertext
	}

	nonce, err := base64.StdEncoding.DecodeString(nonceB64)
	if err != nil || len(nonce) != gcmNonceSize {
		return "", ErrMalformedCiphertext
	}
	ct, err := base64.StdEncoding.DecodeString(ctB64)
	if err != nil {
		return "", ErrMalformedCiphertext
	}

	plain, err := c.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		// Authentication failure: wrong key or tampered data.
		return "", ErrMalformedCiphertext
	}
	return string(plain), nil
}
