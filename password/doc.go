// Package password hashes and verifies user passwords with argon2id.
//
// Hashes are stored in PHC string format
// ($argon2id$v=19$m=...,t=...,p=...$salt$hash) so parameters travel with
// the hash and can be tightened over time. Verification recomputes with
// the stored parameters and compares in constant time; callers learn only
// match or mismatch, never why.
package password
