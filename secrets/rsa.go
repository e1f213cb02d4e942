package secrets

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
)

const minRSABits = 2048

// RSA is an asymmetric [Cipher]: RSA-OAEP over SHA-256 with a configured
// key pair. Encryption uses the public key, decryption the private key.
type RSA struct {
	public  *rsa.PublicKey
	private *rsa.PrivateKey
}

// NewRSA builds an RSA-OAEP cipher from PEM-encoded public and private
// keys. Both halves are required; this service both seals new secrets and
// opens stored ones.
func NewRSA(publicPEM, privatePEM []byte) (*RSA, error) {
	pub, err := parsePublicKey(publicPEM)
	if err != nil {
		return nil, err
	}
	priv, err := parsePrivateKey(privatePEM)
	if err != nil {
		return nil, err
	}
	if pub.N.Cmp(priv.N) != 0 {
		return nil, fmt.Errorf("%w: public and private keys do not match", ErrInvalidKey)
	}
	return &RSA{public: pub, private: priv}, nil
}

func (c *RSA) Encrypt(plaintext string) (string, error) {
	ct, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, c.public, []byte(plaintext), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedCiphertext, err)
	}
	return base64.StdEncoding.EncodeToString(ct), nil
}

func (c *RSA) Decrypt(ciphertext string) (string, error) {
	ct, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrMalformedCiphertext
	}
	plain, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, c.private, ct, nil)
	if err != nil {
		return "", ErrMalformedCiphertext
	}
	return string(plain), nil
}

func parsePublicKey(pemBytes []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block in public key", ErrInvalidKey)
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA public key", ErrInvalidKey)
	}
	if pub.N.BitLen() < minRSABits {
		return nil, fmt.Errorf("%w: RSA key below %d bits", ErrInvalidKey, minRSABits)
	}
	return pub, nil
}

func parsePrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block in private key", ErrInvalidKey)
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	priv, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA private key", ErrInvalidKey)
	}
	return priv, nil
}
