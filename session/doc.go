// Package session tracks, per user, the single currently-valid refresh
// token ID in Redis, and implements the rotation protocol that detects
// stolen-token replay.
//
// # Key layout
//
//	<prefix>:u:<userID>  active refresh-token ID, TTL = refresh lifetime
//	<prefix>:s:<tokenID> spent-ID marker set when the ID is rotated out
//
// The spent index is what distinguishes a replayed, already-rotated token
// (theft) from a token that simply expired or was never issued.
//
// # Atomicity
//
// Rotate is a single Lua compare-and-swap: validate, mark spent, and
// install the next ID in one script, so two concurrent refresh attempts
// with the same token can never both succeed.
package session
