package sai

import "errors"

// Errors surfaced while building or interpreting attribute values and
// object keys. Higher-level invariant violations (duplicate matches,
// refcount underflow, view-size mismatch) live in pkg/reconcile and
// pkg/asicview, closer to where they're detected.
var (
	ErrUnknownAttribute = errors.New("sai: attribute not found in metadata table")
	ErrInvalidKey       = errors.New("sai: malformed object key")
	ErrWrongValueKind   = errors.New("sai: value kind does not match attribute metadata")
)
