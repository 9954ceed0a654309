// Package hash provides the pluggable cryptographic hash used to address
// every object in a repository.
package hash

import (
	"crypto"
	"errors"
	"fmt"
	"hash"

	"github.com/pjbgf/sha1cd"
)

const (
	SHA1Size    = 20
	SHA1HexSize = SHA1Size * 2

	SHA256Size    = 32
	SHA256HexSize = SHA256Size * 2
)

// ErrUnsupportedHashFunction is returned when registering or resolving a
// hash algorithm that gitcore does not know about.
var ErrUnsupportedHashFunction = errors.New("unsupported hash function")

var algos = map[crypto.Hash]func() hash.Hash{}

func init() {
	reset()
}

func reset() {
	algos[crypto.SHA1] = sha1cd.New
	algos[crypto.SHA256] = crypto.SHA256.New
}

// RegisterHash overrides the implementation used for a given algorithm,
// e.g. to swap in a deterministic or instrumented hasher.
func RegisterHash(h crypto.Hash, f func() hash.Hash) error {
	if f == nil {
		return fmt.Errorf("cannot register hash: f is nil")
	}
	switch h {
	case crypto.SHA1, crypto.SHA256:
		algos[h] = f
	default:
		return fmt.Errorf("%w: %v", ErrUnsupportedHashFunction, h)
	}
	return nil
}

// Hash mirrors hash.Hash so callers do not need to import it directly.
type Hash interface {
	hash.Hash
}

// New returns a fresh hash state for the given algorithm. Panics if the
// algorithm was never registered, which should only happen for a value
// outside {crypto.SHA1, crypto.SHA256}.
func New(h crypto.Hash) Hash {
	hh, ok := algos[h]
	if !ok {
		panic(fmt.Sprintf("hash algorithm not registered: %v", h))
	}
	return hh()
}

// Algorithm identifies the object-id width configured for a repository.
type Algorithm int

const (
	SHA1 Algorithm = iota
	SHA256
)

// Size returns the object-id width in bytes for the algorithm.
func (a Algorithm) Size() int {
	if a == SHA256 {
		return SHA256Size
	}
	return SHA1Size
}

func (a Algorithm) cryptoHash() crypto.Hash {
	if a == SHA256 {
		return crypto.SHA256
	}
	return crypto.SHA1
}

// NewHasher returns a hasher for the algorithm's underlying hash function.
func (a Algorithm) NewHasher() Hash {
	return New(a.cryptoHash())
}

func (a Algorithm) String() string {
	if a == SHA256 {
		return "sha256"
	}
	return "sha1"
}

// ParseAlgorithm resolves the `core.hashAlgorithm` config value.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch s {
	case "", "sha1":
		return SHA1, nil
	case "sha256":
		return SHA256, nil
	default:
		return SHA1, fmt.Errorf("%w: %q", ErrUnsupportedHashFunction, s)
	}
}
