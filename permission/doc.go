// Package permission implements the capability flag-set attached to an
// account and carried inside access tokens.
//
// A Registry maps stable permission names (e.g. "user:create") to bit
// positions; Flags is the 64-bit set evaluated by the authorization engine.
// The registry is registered once at startup and frozen before first use,
// so lookups on the request path are lock-free reads.
//
// # What this package must NOT do
//
//   - Perform I/O of any kind.
//   - Import any other package of this module.
package permission
