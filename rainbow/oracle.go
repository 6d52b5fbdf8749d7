package rainbow

import (
	"bytes"
	"encoding/hex"
)

// Digest is the output of a HashOracle.
type Digest []byte

// String returns the lowercase hex encoding of the digest.
func (d Digest) String() string {
	return hex.EncodeToString(d)
}

// Equal reports whether both digests hold the same bytes.
func (d Digest) Equal(other Digest) bool {
	return bytes.Equal(d, other)
}

// A HashOracle is the one-way function the table inverts.
// Implementations must be stateless and safe for concurrent use.
type HashOracle interface {
	// Size returns the length of every digest in bytes.
	Size() int

	// Hash maps a plaintext to its digest.
	Hash(plaintext string) (Digest, error)
}

// A ReductionPolicy maps a digest back into the plaintext space.
// The column index lets a policy behave differently along a chain, which
// lowers the chance of two chains merging.
// Implementations must be stateless and safe for concurrent use.
type ReductionPolicy interface {
	Reduce(digest Digest, column uint32) (string, error)
}
