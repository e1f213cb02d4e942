// Package jwt signs and verifies the two token classes issued by the
// engine: short-lived stateless access tokens carrying an identity
// snapshot, and long-lived refresh tokens carrying the rotating
// refresh-token ID.
//
// The two classes are signed with independent HMAC secrets so leaking one
// does not compromise the other, and a token of one class never verifies
// as the other. Issuer, audience, and expiry are enforced on every parse;
// expiry failures are distinguishable from signature/claim failures via
// [ErrExpired] and [ErrInvalid].
//
// # What this package must NOT do
//
//   - Access Redis or perform any I/O.
//   - Decide rotation policy; it only encodes and verifies.
package jwt
