// Package errors provides error handling for fieldqa.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - Hints and details for user-facing messages
//
// Usage:
//
//	// Create new error
//	err := errors.New("something went wrong")
//
//	// Wrap with context
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	// Check errors
//	if errors.Is(err, errors.ErrLayerNotFound) {
//	    // degrade to empty result
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New         = crdb.New
	Newf        = crdb.Newf
	Wrap        = crdb.Wrap
	Wrapf       = crdb.Wrapf
	WithStack   = crdb.WithStack
	WithMessage = crdb.WithMessage
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is     = crdb.Is
	IsAny  = crdb.IsAny
	As     = crdb.As
	Unwrap = crdb.Unwrap
)

// Sentinel errors for the detection engine. Detectors never let these
// escape their boundary; they exist for internal signaling and tests.
// Wrap them with errors.Wrap() to add context while preserving the type.
var (
	// ErrLayerNotFound indicates a configured or conventionally named
	// layer does not resolve in the project snapshot.
	ErrLayerNotFound = New("layer not found")

	// ErrRelationNotFound indicates no declared relation connects the
	// two layers a detector needs joined.
	ErrRelationNotFound = New("relation not found")

	// ErrFieldNotFound indicates a relation or configured field is
	// missing from its layer, even case-insensitively.
	ErrFieldNotFound = New("field not found")

	// ErrInvalidGeometry indicates a geometry blob could not be decoded.
	ErrInvalidGeometry = New("invalid geometry")
)
