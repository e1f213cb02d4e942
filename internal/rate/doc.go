// Package rate provides Redis-backed fixed-window counters that throttle
// password sign-in attempts.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key
// prefixes:
//   - as:  sign-in per-identifier
//   - asi: sign-in per-IP
//
// Counters are keyed by identifier and, optionally, caller IP so a
// credential-stuffing run from one address hits the budget regardless of
// which accounts it targets.
package rate
