// Package flows contains the orchestration logic for the token lifecycle
// protocols: password sign-in, token issuance, refresh rotation, and
// federated sign-in.
//
// Each flow takes its collaborators as a struct of plain functions so the
// protocol sequencing can be tested without the root package, Redis, or
// real crypto, and so the root package stays a thin wiring layer.
// Failures are classified with flow-local kinds; mapping them onto the
// public error taxonomy is the root package's job.
package flows
