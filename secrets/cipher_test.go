package secrets

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"strings"
	"testing"
)

func TestAESGCMRoundTrip(t *testing.T) {
	c, err := NewAESGCM(bytes.Repeat([]byte("k"), 32))
	if err != nil {
		t.Fatalf("NewAESGCM failed: %v", err)
	}

	ct, err := c.Encrypt("JBSWY3DPEHPK3PXP")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if !strings.Contains(ct, "|") {
		t.Fatalf("expected nonce|ciphertext shape, got %q", ct)
	}
	plain, err := c.Decrypt(ct)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if plain != "JBSWY3DPEHPK3PXP" {
		t.Fatalf("round trip mangled: %q", plain)
	}
}

func TestAESGCMFreshNoncePerEncrypt(t *testing.T) {
	c, err := NewAESGCM(bytes.Repeat([]byte("k"), 32))
	if err != nil {
		t.Fatalf("NewAESGCM failed: %v", err)
	}
	a, _ := c.Encrypt("same input")
	b, _ := c.Encrypt("same input")
	if a == b {
		t.Fatal("two encryptions of the same plaintext must differ")
	}
}

func TestAESGCMRejectsBadInput(t *testing.T) {
	if _, err := NewAESGCM([]byte("too short")); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}

	c, err := NewAESGCM(bytes.Repeat([]byte("k"), 32))
	if err != nil {
		t.Fatalf("NewAESGCM failed: %v", err)
	}
	for _, bad := range []string{"", "no-separator", "!!!|!!!", "YWJj|YWJj"} {
		if _, err := c.Decrypt(bad); !errors.Is(err, ErrMalformedCiphertext) {
			t.Fatalf("input %q: expected ErrMalformedCiphertext, got %v", bad, err)
		}
	}

	// Tampering breaks authentication.
	ct, err := c.Encrypt("secret")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	other, err := NewAESGCM(bytes.Repeat([]byte("x"), 32))
	if err != nil {
		t.Fatalf("NewAESGCM failed: %v", err)
	}
	if _, err := other.Decrypt(ct); !errors.Is(err, ErrMalformedCiphertext) {
		t.Fatalf("wrong key must fail decryption, got %v", err)
	}
}

func testRSAPEMs(t *testing.T) (publicPEM, privatePEM []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	pub, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("MarshalPKIXPublicKey failed: %v", err)
	}
	publicPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pub})
	privatePEM = pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	return publicPEM, privatePEM
}

func TestRSARoundTrip(t *testing.T) {
	publicPEM, privatePEM := testRSAPEMs(t)
	c, err := NewRSA(publicPEM, privatePEM)
	if err != nil {
		t.Fatalf("NewRSA failed: %v", err)
	}

	ct, err := c.Encrypt("JBSWY3DPEHPK3PXP")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	plain, err := c.Decrypt(ct)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if plain != "JBSWY3DPEHPK3PXP" {
		t.Fatalf("round trip mangled: %q", plain)
	}
}

func TestRSARejectsMismatchedPair(t *testing.T) {
	publicPEM, _ := testRSAPEMs(t)
	_, otherPrivate := testRSAPEMs(t)
	if _, err := NewRSA(publicPEM, otherPrivate); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey for mismatched pair, got %v", err)
	}
}
