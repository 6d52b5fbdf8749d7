package rainbow

import (
	"math/rand"
	"strings"
	"sync"
)

// InsertResult describes what Table.Insert did with a start.
type InsertResult int

const (
	// Added means the chain produced an endpoint the table did not know yet.
	Added InsertResult = iota
	// Merged means the endpoint was known and the start was appended to it.
	Merged
	// Duplicate means the start was already stored; nothing changed.
	Duplicate
)

func (r InsertResult) String() string {
	switch r {
	case Added:
		return "added"
	case Merged:
		return "merged"
	case Duplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// Row is one start/endpoint pair as stored in a table file.
type Row struct {
	Start string
	End   string
}

// tableState is everything Load replaces in one go.
type tableState struct {
	// Endpoints in insertion order.
	order []string
	// Starts per endpoint, in insertion order.
	// Merges are rare, so a slice with a linear duplicate check beats a set.
	starts map[string][]string
	chains int
}

func newTableState() *tableState {
	return &tableState{starts: make(map[string][]string)}
}

// add records start under end. It must be called with the table lock held
// when the state is shared.
func (s *tableState) add(start, end string) InsertResult {
	existing, ok := s.starts[end]
	if !ok {
		s.order = append(s.order, end)
		s.starts[end] = []string{start}
		s.chains++
		return Added
	}
	for _, known := range existing {
		if known == start {
			return Duplicate
		}
	}
	s.starts[end] = append(existing, start)
	s.chains++
	return Merged
}

// A Table maps chain endpoints to the distinct starts that produced them.
// It is safe for concurrent use. All chains go through Insert, so every row
// corresponds to a chain the engine actually computed.
type Table struct {
	engine *ChainEngine

	mu    sync.RWMutex
	state *tableState
}

// NewTable creates an empty table bound to the given engine.
func NewTable(engine *ChainEngine) *Table {
	return &Table{
		engine: engine,
		state:  newTableState(),
	}
}

// Engine returns the chain engine of the table.
func (t *Table) Engine() *ChainEngine {
	return t.engine
}

// checkCandidate rejects plaintexts the row format cannot carry.
func checkCandidate(start string) error {
	if start == "" {
		return &MalformedCandidateError{Candidate: start, Reason: "empty plaintext"}
	}
	if strings.ContainsAny(start, ",\"\r\n") {
		return &MalformedCandidateError{Candidate: start, Reason: "contains a comma, quote or line break"}
	}
	return nil
}

// Insert computes the chain for start and records it.
// The chain is computed before the lock is taken; only the check-and-add on
// the endpoint is serialized.
func (t *Table) Insert(start string) (InsertResult, error) {
	if err := checkCandidate(start); err != nil {
		return Duplicate, err
	}
	end, err := t.engine.ComputeChain(start)
	if err != nil {
		return Duplicate, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.add(start, end), nil
}

// LookupEndpoint returns a copy of the starts stored under end.
// The result is empty if the endpoint is unknown.
func (t *Table) LookupEndpoint(end string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	starts := t.state.starts[end]
	if len(starts) == 0 {
		return nil
	}
	out := make([]string, len(starts))
	copy(out, starts)
	return out
}

// Clear removes all chains.
func (t *Table) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = newTableState()
}

// Size returns the number of distinct endpoints.
func (t *Table) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.state.order)
}

// Chains returns the number of stored starts, counting every start of a
// merged endpoint.
func (t *Table) Chains() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state.chains
}

// Merges returns the number of endpoints shared by more than one start.
func (t *Table) Merges() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	merges := 0
	for _, starts := range t.state.starts {
		if len(starts) > 1 {
			merges++
		}
	}
	return merges
}

// Rows returns every start/endpoint pair, grouped by endpoint in insertion
// order and by start insertion order within each group.
func (t *Table) Rows() []Row {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rows := make([]Row, 0, t.state.chains)
	for _, end := range t.state.order {
		for _, start := range t.state.starts[end] {
			rows = append(rows, Row{Start: start, End: end})
		}
	}
	return rows
}

// replace swaps in a fully built state.
func (t *Table) replace(state *tableState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = state
}

// SamplePlaintext picks a random stored start and replays a random prefix
// of its chain. The result is a plaintext the table should be able to
// invert, which makes it useful for self-tests.
func (t *Table) SamplePlaintext(rng *rand.Rand) (string, error) {
	t.mu.RLock()
	if len(t.state.order) == 0 {
		t.mu.RUnlock()
		return "", ErrEmptyTable
	}
	starts := t.state.starts[t.state.order[rng.Intn(len(t.state.order))]]
	start := starts[rng.Intn(len(starts))]
	t.mu.RUnlock()

	column := uint32(rng.Int63n(int64(t.engine.Iterations())))
	return t.engine.Advance(start, 0, column)
}
