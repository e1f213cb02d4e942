// Package secrets encrypts TOTP seeds at rest.
//
// Two [Cipher] implementations are provided: AES-256-GCM with a single
// process-wide key, and RSA-OAEP with a configured key pair. Both are
// authenticated or padded such that decrypting with the wrong key, or
// decrypting corrupted/truncated data, fails cleanly instead of yielding
// garbage a caller could mistake for a valid secret. Key misconfiguration
// is rejected at construction, not at first use.
package secrets
