// Package authcore provides an authentication and authorization core
// with argon2id password verification, TOTP second factor, dual-secret
// JWT pairs, Redis-backed rotating refresh sessions with reuse
// detection, structured API keys, and an ordered route authorization
// engine (roles, permission bits, named policies).
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder],
// [Config], the provider contracts ([UserProvider], [APIKeyProvider],
// [FederatedVerifier]), and value types. Flow orchestration, throttle
// counters, and event dispatch live under internal/ and are never
// exported. Account storage is the embedding application's concern;
// the engine only consumes the provider contracts.
//
// # What this package must NOT do
//
//   - Reveal which credential step failed: every refusal at the public
//     boundary is [ErrUnauthorized].
//   - Store plaintext TOTP secrets or API key secrets; only ciphertext
//     and hashes cross the provider contracts.
//   - Expose Redis clients or session encoding details in its public
//     API.
//
// # Performance contract
//
// Bearer resolution is the hot path: it verifies the access token and
// builds the identity from claims alone, with no provider or Redis
// round-trip. Sign-in, refresh, and account operations are allowed
// provider calls plus one Redis round-trip each (the refresh rotation
// is a single atomic script).
package authcore
