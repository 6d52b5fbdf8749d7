package rainbow

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// A Generator produces candidate start plaintexts.
type Generator func() string

// FillOptions configures Fill.
type FillOptions struct {
	// Parallel spreads the work over Workers goroutines.
	Parallel bool

	// Workers is the pool size in parallel mode. Zero means runtime.NumCPU().
	Workers int

	// Events receives per-candidate events. May be nil.
	Events *EventManager
}

func (o FillOptions) workers() int {
	if !o.Parallel {
		return 1
	}
	if o.Workers > 0 {
		return o.Workers
	}
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 1
}

// FillReport summarizes a fill.
type FillReport struct {
	Requested  int
	Added      int
	Merged     int
	Duplicates int
	Failed     int
	Elapsed    time.Duration

	failures error
}

// Err returns all per-candidate failures combined, or nil.
func (r *FillReport) Err() error {
	return r.failures
}

// Failures returns the individual per-candidate failures.
func (r *FillReport) Failures() []error {
	return multierr.Errors(r.failures)
}

func (r *FillReport) merge(other *FillReport) {
	r.Added += other.Added
	r.Merged += other.Merged
	r.Duplicates += other.Duplicates
	r.Failed += other.Failed
	r.failures = multierr.Append(r.failures, other.failures)
}

func (r *FillReport) record(res InsertResult) {
	switch res {
	case Added:
		r.Added++
	case Merged:
		r.Merged++
	case Duplicate:
		r.Duplicates++
	}
}

func insertEvent(res InsertResult) EventKind {
	switch res {
	case Added:
		return EventChainAdded
	case Merged:
		return EventChainMerged
	default:
		return EventChainDuplicate
	}
}

// Fill generates count candidates and inserts each as a chain.
//
// In sequential mode the first failing candidate aborts the fill. In parallel
// mode a failing candidate is reported and skipped; only configuration errors
// stop the whole batch. Cancelling ctx stops the fill early and leaves the
// table with whatever was inserted so far.
func Fill(ctx context.Context, t *Table, count int, gen Generator, opts FillOptions) (*FillReport, error) {
	if count < 0 {
		return nil, configErrorf("count", "must not be negative, got %d", count)
	}
	if gen == nil {
		return nil, configErrorf("generator", "missing plaintext generator")
	}

	report := &FillReport{Requested: count}
	before := time.Now()
	opts.Events.Emit(Event{Kind: EventFillStarted})

	var err error
	if opts.Parallel {
		err = fillParallel(ctx, t, count, gen, opts, report)
	} else {
		err = fillSequential(ctx, t, count, gen, opts, report)
	}

	report.Elapsed = time.Since(before)
	opts.Events.Emit(Event{Kind: EventFillFinished})

	log.WithFields(log.Fields{
		"requested":  report.Requested,
		"added":      report.Added,
		"merged":     report.Merged,
		"duplicates": report.Duplicates,
		"failed":     report.Failed,
		"elapsed":    report.Elapsed,
		"parallel":   opts.Parallel,
	}).Info("Finished filling rainbow table")

	return report, err
}

func fillSequential(ctx context.Context, t *Table, count int, gen Generator, opts FillOptions, report *FillReport) error {
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := gen()
		res, err := t.Insert(start)
		if err != nil {
			report.Failed++
			opts.Events.Emit(Event{Kind: EventCandidateFailed, Start: start, Err: err})
			return fmt.Errorf("unable to insert %q: %w", start, err)
		}
		report.record(res)
		opts.Events.Emit(Event{Kind: insertEvent(res), Start: start})
	}
	return nil
}

func fillParallel(ctx context.Context, t *Table, count int, gen Generator, opts FillOptions, report *FillReport) error {
	numWorkers := opts.workers()
	if numWorkers > count && count > 0 {
		numWorkers = count
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Generators need not be thread-safe.
	var genM sync.Mutex
	next := func() string {
		genM.Lock()
		defer genM.Unlock()
		return gen()
	}

	var (
		wg       sync.WaitGroup
		fatalM   sync.Mutex
		fatalErr error
	)
	reports := make([]*FillReport, numWorkers)
	share, rest := count/numWorkers, count%numWorkers

	for w := 0; w < numWorkers; w++ {
		units := share
		if w < rest {
			units++
		}
		reports[w] = &FillReport{}
		wg.Add(1)
		go func(id, units int, r *FillReport) {
			defer wg.Done()
			err := fillWorker(ctx, t, id, units, next, opts.Events, r)
			if err != nil {
				fatalM.Lock()
				if fatalErr == nil {
					fatalErr = err
				}
				fatalM.Unlock()
				cancel()
			}
		}(w, units, reports[w])
	}
	wg.Wait()

	for _, r := range reports {
		report.merge(r)
	}

	if fatalErr != nil {
		return fatalErr
	}
	// The parent context decides whether this was a cancellation.
	return ctx.Err()
}

// fillWorker processes units candidates. It returns an error only for
// configuration problems; anything else is recorded in r.
func fillWorker(ctx context.Context, t *Table, id, units int, next Generator, events *EventManager, r *FillReport) error {
	for i := 0; i < units; i++ {
		if ctx.Err() != nil {
			return nil
		}
		start := next()
		res, err := t.Insert(start)
		if err != nil {
			if IsConfigurationError(err) {
				return err
			}
			unitErr := &WorkerComputationError{Worker: id, Candidate: start, Err: err}
			log.WithError(unitErr).WithField("worker", id).Debug("skipping candidate")
			r.Failed++
			r.failures = multierr.Append(r.failures, unitErr)
			events.Emit(Event{Kind: EventCandidateFailed, Worker: id, Start: start, Err: unitErr})
			continue
		}
		r.record(res)
		events.Emit(Event{Kind: insertEvent(res), Worker: id, Start: start})
	}
	return nil
}

// IsCancelled reports whether err stems from a cancelled or expired context.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
