// Package domain defines the core business types and errors for the bordereaux
// pipeline.
//
// This package contains pure domain logic with no dependencies on storage,
// transport or presentation. Stage packages, the engine and the CLI depend on
// these types; the dependency direction is always:
//
//	Infrastructure → Domain (CORRECT)
//	Domain → Infrastructure (FORBIDDEN)
//
// The one exception is github.com/google/uuid, used to mint run identifiers.
package domain
