// Package apikey generates and validates structured API keys.
//
// A distributable key is "<identifier>.<secret>": a stable UUID identifier
// used for record lookup, and a random secret of which only the SHA-256
// hash is stored. Verification is a constant-time hash comparison; the
// secret is never recoverable from the stored record.
package apikey
