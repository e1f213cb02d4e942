// Package internal holds shared helpers (random identifiers) used by the
// root engine and its flow packages. Nothing here is part of the public
// API.
package internal
