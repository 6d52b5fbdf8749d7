package rainbow

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// LookupStats describes the work done by a lookup.
type LookupStats struct {
	// ColumnsTried is the number of columns replayed.
	ColumnsTried int
	// EndpointHits counts columns whose hypothetical endpoint was stored.
	EndpointHits int
	// Verified counts chain replays that produced a matching digest.
	Verified int
	// FalsePositives counts chain replays that reached the column but did
	// not hash to the target.
	FalsePositives int
	Elapsed        time.Duration
}

func (s *LookupStats) add(o LookupStats) {
	s.ColumnsTried += o.ColumnsTried
	s.EndpointHits += o.EndpointHits
	s.Verified += o.Verified
	s.FalsePositives += o.FalsePositives
}

// Lookup returns every plaintext the table can recover for target.
// An empty result is a normal outcome, not an error.
func Lookup(t *Table, target Digest) ([]string, error) {
	found, _, err := LookupWithStats(context.Background(), t, target)
	return found, err
}

// LookupContext is Lookup with cancellation between columns.
func LookupContext(ctx context.Context, t *Table, target Digest) ([]string, error) {
	found, _, err := LookupWithStats(ctx, t, target)
	return found, err
}

// LookupWithStats is LookupContext that also reports how much work was done.
//
// The target may sit at any column of a stored chain. For every column c,
// from the last one down, the rest of the chain is replayed as if the target
// was the digest at c. If the resulting endpoint is stored, each of its starts
// is replayed up to c and the plaintext found there is kept only if it hashes
// to the target. All columns are tried, since distinct plaintexts may share
// a digest.
func LookupWithStats(ctx context.Context, t *Table, target Digest) ([]string, LookupStats, error) {
	var stats LookupStats
	if err := checkTarget(t, target); err != nil {
		return nil, stats, err
	}

	found := []string{}
	if t.Size() == 0 {
		return found, stats, nil
	}

	before := time.Now()
	seen := make(map[string]struct{})
	for c := int64(t.engine.Iterations()) - 1; c >= 0; c-- {
		if err := ctx.Err(); err != nil {
			return found, stats, err
		}
		candidates, colStats, err := lookupColumn(t, target, uint32(c))
		if err != nil {
			return found, stats, err
		}
		stats.add(colStats)
		for _, p := range candidates {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			found = append(found, p)
		}
	}
	stats.Elapsed = time.Since(before)

	log.WithFields(log.Fields{
		"target":          target.String(),
		"found":           len(found),
		"endpoint_hits":   stats.EndpointHits,
		"false_positives": stats.FalsePositives,
		"elapsed":         stats.Elapsed,
	}).Debug("lookup finished")

	return found, stats, nil
}

// LookupParallel spreads the columns over workers goroutines. The result is
// the same set Lookup returns, ordered by the column it was found at, last
// column first.
func LookupParallel(ctx context.Context, t *Table, target Digest, workers int) ([]string, error) {
	if err := checkTarget(t, target); err != nil {
		return nil, err
	}
	if t.Size() == 0 {
		return []string{}, nil
	}
	if workers < 1 {
		workers = 1
	}

	iterations := t.engine.Iterations()
	columns := make(chan uint32)
	perColumn := make([][]string, iterations)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		errM     sync.Mutex
		firstErr error
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range columns {
				candidates, _, err := lookupColumn(t, target, c)
				if err != nil {
					errM.Lock()
					if firstErr == nil {
						firstErr = err
					}
					errM.Unlock()
					cancel()
					continue
				}
				// Each column is owned by exactly one worker.
				perColumn[c] = candidates
			}
		}()
	}

feed:
	for c := int64(iterations) - 1; c >= 0; c-- {
		select {
		case columns <- uint32(c):
		case <-ctx.Done():
			break feed
		}
	}
	close(columns)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	found := []string{}
	seen := make(map[string]struct{})
	for c := int(iterations) - 1; c >= 0; c-- {
		for _, p := range perColumn[c] {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			found = append(found, p)
		}
	}
	return found, nil
}

func checkTarget(t *Table, target Digest) error {
	if want := t.engine.HashOracle().Size(); len(target) != want {
		return configErrorf("digest", "target is %d bytes, the hash oracle produces %d", len(target), want)
	}
	return nil
}

// lookupColumn checks whether target could be the digest at column c of a
// stored chain and returns the verified plaintexts.
func lookupColumn(t *Table, target Digest, c uint32) ([]string, LookupStats, error) {
	stats := LookupStats{ColumnsTried: 1}
	e := t.engine

	value, err := e.ReductionPolicy().Reduce(target, c)
	if err != nil {
		return nil, stats, fmt.Errorf("unable to reduce target at column %d: %w", c, err)
	}
	end, err := e.Advance(value, c+1, e.Iterations())
	if err != nil {
		return nil, stats, err
	}

	starts := t.LookupEndpoint(end)
	if len(starts) == 0 {
		return nil, stats, nil
	}
	stats.EndpointHits++

	var found []string
	for _, start := range starts {
		p, err := e.Advance(start, 0, c)
		if err != nil {
			return nil, stats, err
		}
		digest, err := e.Hash(p)
		if err != nil {
			return nil, stats, err
		}
		if !digest.Equal(target) {
			stats.FalsePositives++
			log.WithFields(log.Fields{
				"column":   c,
				"start":    start,
				"endpoint": end,
			}).Debug("endpoint matched but verification failed")
			continue
		}
		stats.Verified++
		found = append(found, p)
	}
	return found, stats, nil
}

// SortedResult returns a sorted copy of a lookup result, handy for stable
// output.
func SortedResult(found []string) []string {
	out := make([]string, len(found))
	copy(out, found)
	sort.Strings(out)
	return out
}
