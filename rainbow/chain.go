package rainbow

import (
	"fmt"
)

// ChainEngine computes chains of alternating hash and reduce steps.
// It holds no mutable state and may be shared by any number of goroutines.
//
// Columns are numbered [0, iterations). Column i hashes the current value and
// reduces the digest with column index i, so the digest found at column c of
// a chain is hash(Advance(start, 0, c)) and the endpoint is
// Advance(start, 0, iterations).
type ChainEngine struct {
	iterations uint32
	hash       HashOracle
	reduce     ReductionPolicy
}

// NewChainEngine creates an engine for chains of the given length.
func NewChainEngine(iterations uint32, hash HashOracle, reduce ReductionPolicy) (*ChainEngine, error) {
	if iterations == 0 {
		return nil, configErrorf("iterations", "must be greater than zero")
	}
	if hash == nil {
		return nil, configErrorf("hash", "missing hash oracle")
	}
	if hash.Size() <= 0 {
		return nil, configErrorf("hash", "invalid digest size %d", hash.Size())
	}
	if reduce == nil {
		return nil, configErrorf("reduction", "missing reduction policy")
	}
	return &ChainEngine{
		iterations: iterations,
		hash:       hash,
		reduce:     reduce,
	}, nil
}

// Iterations returns the chain length.
func (e *ChainEngine) Iterations() uint32 {
	return e.iterations
}

// HashOracle returns the oracle the engine was built with.
func (e *ChainEngine) HashOracle() HashOracle {
	return e.hash
}

// ReductionPolicy returns the policy the engine was built with.
func (e *ChainEngine) ReductionPolicy() ReductionPolicy {
	return e.reduce
}

// ComputeChain returns the endpoint of the chain starting at start.
func (e *ChainEngine) ComputeChain(start string) (string, error) {
	return e.Advance(start, 0, e.iterations)
}

// Advance replays the columns [from, to) starting with value.
func (e *ChainEngine) Advance(value string, from, to uint32) (string, error) {
	if from > to {
		return "", configErrorf("columns", "from column %d is past to column %d", from, to)
	}
	if to > e.iterations {
		return "", configErrorf("columns", "column %d is past the chain length %d", to, e.iterations)
	}

	for i := from; i < to; i++ {
		digest, err := e.Hash(value)
		if err != nil {
			return "", fmt.Errorf("column %d: %w", i, err)
		}
		value, err = e.reduce.Reduce(digest, i)
		if err != nil {
			return "", fmt.Errorf("unable to reduce at column %d: %w", i, err)
		}
	}
	return value, nil
}

// Hash calls the oracle and checks the digest length it reports.
func (e *ChainEngine) Hash(plaintext string) (Digest, error) {
	digest, err := e.hash.Hash(plaintext)
	if err != nil {
		return nil, fmt.Errorf("unable to hash %q: %w", plaintext, err)
	}
	if len(digest) != e.hash.Size() {
		return nil, configErrorf("hash", "oracle returned %d bytes, announced %d", len(digest), e.hash.Size())
	}
	return digest, nil
}
