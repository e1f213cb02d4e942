// Package authz renders per-request access decisions from explicit route
// metadata.
//
// A [Route] declares its authentication requirement, allowed roles,
// required permission, and named policies in one plain struct evaluated
// at dispatch time; nothing is discovered via reflection or ambient
// request state. Evaluation order is fixed and fail-closed:
//
//  1. authentication requirement (identity present unless AuthNone)
//  2. role membership (the super role bypasses this stage only)
//  3. permission flag
//  4. named policies, in declaration order, first deny wins
//
// No stage runs after a prior denial.
package authz
