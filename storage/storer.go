// Package storage defines the abstract key/value contract every persistence
// operation in gitcore flows through (§4.2). The typed storer interfaces
// layered on top of it for objects, references, the index, and config are
// in plumbing/storer.
package storage

import (
	"context"
	"errors"
)

// Sentinel errors a KVStore implementation returns; callers branch on these
// via errors.Is, never on backend-specific types.
var (
	ErrNotFound       = errors.New("storage: key not found")
	ErrQuotaExceeded  = errors.New("storage: quota exceeded")
	ErrNotSupported   = errors.New("storage: operation not supported")
	ErrBackend        = errors.New("storage: backend error")
)

// Quota reports the backend's usage, when it can be reported at all.
type Quota struct {
	Used  int64
	Total int64
}

// KVStore is the only persistence primitive the core consumes (§4.2). Every
// method is asynchronous in spirit — in Go that means it accepts a
// context.Context and can block — and keys are opaque UTF-8 strings whose
// naming scheme is entirely the core's choice.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// List returns every key sharing the given prefix. Ordering across
	// concurrent writers is not guaranteed (§5).
	List(ctx context.Context, prefix string) ([]string, error)
	Clear(ctx context.Context) error
}

// Quotaer is optionally implemented by a KVStore backend that can report
// usage; callers must type-assert for it.
type Quotaer interface {
	Quota(ctx context.Context) (Quota, error)
}

// CAS is optionally implemented by a KVStore backend that can perform an
// atomic compare-and-swap put. Backends lacking native CAS can still be
// used — the ref store then falls back to a read-then-conditional-write
// that is merely advisory (§5 notes there is no cross-process locking
// available), and a racing writer detects the loss on its own follow-up
// read rather than through a guaranteed atomic failure.
type CAS interface {
	// CompareAndSwap stores value at key only if the current value equals
	// expected (nil meaning "key must not exist"). Returns ErrCASMismatch
	// on conflict.
	CompareAndSwap(ctx context.Context, key string, expected, value []byte) error
}

// ErrCASMismatch signals a lost race on a CAS-backed update; the reference
// store surfaces this upward as RefRaceLost.
var ErrCASMismatch = errors.New("storage: compare-and-swap mismatch")
