// Package plumbing holds the error taxonomy shared across every layer
// (§6/§7): a closed set of machine-readable kinds plus a human-readable
// hint, never raw sentinel errors once an error crosses an operation
// boundary.
package plumbing

import (
	"errors"
	"fmt"
)

// Kind is the machine-readable error taxonomy surfaced upward from every
// public operation.
type Kind string

const (
	KindNotFound        Kind = "NotFound"
	KindAlreadyExists   Kind = "AlreadyExists"
	KindCorrupt         Kind = "Corrupt"
	KindHashMismatch    Kind = "HashMismatch"
	KindMissingBase     Kind = "MissingBase"
	KindInvalidPackfile Kind = "InvalidPackfile"
	KindInvalidRef      Kind = "InvalidRef"
	KindRefRaceLost     Kind = "RefRaceLost"
	KindWorkingTreeDirty Kind = "WorkingTreeDirty"
	KindMergeConflict   Kind = "MergeConflict"
	KindAuthRequired    Kind = "AuthRequired"
	KindAuthFailed      Kind = "AuthFailed"
	KindNetworkError    Kind = "NetworkError"
	KindNetworkTimeout  Kind = "NetworkTimeout"
	KindCors            Kind = "Cors"
	KindQuotaExceeded   Kind = "QuotaExceeded"
	KindProtocolError   Kind = "ProtocolError"
	KindCancelled       Kind = "Cancelled"

	// kindBackend is not part of §6's enumeration; it labels a raw storage
	// backend failure before an operation has enough context to pick a
	// more specific kind.
	kindBackend Kind = "Backend"
)

// KindBackend returns the backend-failure kind used to wrap a raw
// storage.ErrBackend before more context is available.
func KindBackend() Kind { return kindBackend }

// Error is the taxonomic value every public operation returns on failure
// (§7: "Errors are taxonomic values, never control-flow side effects").
type Error struct {
	Kind  Kind
	Hint  string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Hint, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Hint)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs a taxonomic error with a hint and no wrapped cause.
func New(k Kind, hint string) *Error {
	return &Error{Kind: k, Hint: hint}
}

// Wrap constructs a taxonomic error around an underlying cause.
func Wrap(k Kind, hint string, cause error) *Error {
	return &Error{Kind: k, Hint: hint, Cause: cause}
}

// KindOf extracts the Kind from err, if it (or something it wraps) is a
// *Error; ok is false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
