package rainbow

import (
	"errors"
	"testing"
)

// shiftHash moves every lowercase letter one position forward.
type shiftHash struct{ size int }

func (h shiftHash) Size() int { return h.size }

func (h shiftHash) Hash(p string) (Digest, error) {
	if p == "boom" {
		return nil, &ConfigurationError{Field: "hash", Msg: "exploding oracle"}
	}
	if len(p) != h.size {
		return nil, errors.New("wrong plaintext length")
	}
	d := make(Digest, len(p))
	for i := 0; i < len(p); i++ {
		d[i] = 'a' + (p[i]-'a'+1)%26
	}
	return d, nil
}

// shiftReduce moves every byte of the digest forward by the column.
type shiftReduce struct{}

func (shiftReduce) Reduce(d Digest, column uint32) (string, error) {
	out := make([]byte, len(d))
	for i, c := range d {
		out[i] = byte('a' + (uint32(c-'a')+column)%26)
	}
	return string(out), nil
}

// constReduce sends every digest to the same plaintext, so all chains merge.
type constReduce struct{ value string }

func (r constReduce) Reduce(Digest, uint32) (string, error) { return r.value, nil }

// binaryReduce squeezes every digest into {a, b}^n, which merges often.
type binaryReduce struct{}

func (binaryReduce) Reduce(d Digest, column uint32) (string, error) {
	out := make([]byte, len(d))
	for i, c := range d {
		out[i] = 'a' + byte((uint32(c)+column)%2)
	}
	return string(out), nil
}

func newStubTable(t testing.TB, iterations uint32, r ReductionPolicy) *Table {
	t.Helper()
	engine, err := NewChainEngine(iterations, shiftHash{size: 4}, r)
	if err != nil {
		t.Fatalf("NewChainEngine: %v", err)
	}
	return NewTable(engine)
}

// contents returns the table as endpoint -> set of starts.
func contents(t *Table) map[string]map[string]struct{} {
	out := make(map[string]map[string]struct{})
	for _, row := range t.Rows() {
		if out[row.End] == nil {
			out[row.End] = make(map[string]struct{})
		}
		out[row.End][row.Start] = struct{}{}
	}
	return out
}

func sameContents(a, b map[string]map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for end, starts := range a {
		other, ok := b[end]
		if !ok || len(other) != len(starts) {
			return false
		}
		for s := range starts {
			if _, ok := other[s]; !ok {
				return false
			}
		}
	}
	return true
}
