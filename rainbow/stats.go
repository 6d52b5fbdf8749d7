package rainbow

import (
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

// Stats counts fill events. Register it on an EventManager before a fill.
type Stats struct {
	startTime  atomic.Int64
	endTime    atomic.Int64
	added      atomic.Int64
	merged     atomic.Int64
	duplicates atomic.Int64
	failed     atomic.Int64
}

// NewStats creates zeroed statistics.
func NewStats() *Stats {
	return &Stats{}
}

// Register subscribes the counters to em.
func (st *Stats) Register(em *EventManager) {
	em.Subscribe(EventFillStarted, CallbackFunc(st.logStart))
	em.Subscribe(EventFillFinished, CallbackFunc(st.logEnd))
	em.Subscribe(EventChainAdded, CallbackFunc(func(Event) { st.added.Add(1) }))
	em.Subscribe(EventChainMerged, CallbackFunc(func(Event) { st.merged.Add(1) }))
	em.Subscribe(EventChainDuplicate, CallbackFunc(func(Event) { st.duplicates.Add(1) }))
	em.Subscribe(EventCandidateFailed, CallbackFunc(func(Event) { st.failed.Add(1) }))
}

func (st *Stats) logStart(Event) {
	st.startTime.Store(time.Now().UnixNano())
}

func (st *Stats) logEnd(Event) {
	st.endTime.Store(time.Now().UnixNano())
}

// Added returns the number of chains that created a new endpoint.
func (st *Stats) Added() int64 { return st.added.Load() }

// Merged returns the number of chains that landed on a known endpoint.
func (st *Stats) Merged() int64 { return st.merged.Load() }

// Duplicates returns the number of starts that were already stored.
func (st *Stats) Duplicates() int64 { return st.duplicates.Load() }

// Failed returns the number of candidates that could not be inserted.
func (st *Stats) Failed() int64 { return st.failed.Load() }

// Processed returns the number of candidates seen so far.
func (st *Stats) Processed() int64 {
	return st.Added() + st.Merged() + st.Duplicates() + st.Failed()
}

// Elapsed returns the time between fill start and end, or until now while
// the fill is still running.
func (st *Stats) Elapsed() time.Duration {
	start := st.startTime.Load()
	if start == 0 {
		return 0
	}
	end := st.endTime.Load()
	if end == 0 {
		end = time.Now().UnixNano()
	}
	return time.Duration(end - start)
}

// Print logs the counters.
func (st *Stats) Print() {
	log.WithFields(log.Fields{
		"added":      st.Added(),
		"merged":     st.Merged(),
		"duplicates": st.Duplicates(),
		"failed":     st.Failed(),
		"elapsed":    st.Elapsed(),
	}).Info("Fill statistics")
}
