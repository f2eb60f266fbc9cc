package watcher

import "time"

// Aggregator accumulates classified paths until activity has been quiet for
// longer than the debounce interval. It is owned by a single goroutine.
//
// Paths keep their first-observed order and duplicates are not removed;
// consumers that care must deduplicate themselves. A writer that never pauses
// for a full interval defers the flush indefinitely.
type Aggregator struct {
	interval   time.Duration
	paths      []string
	lastUpdate time.Time
}

// NewAggregator returns an empty Aggregator debouncing over interval.
func NewAggregator(interval time.Duration) *Aggregator {
	return &Aggregator{interval: interval}
}

// Record appends paths to the pending batch and stamps it with now.
func (a *Aggregator) Record(paths []string, now time.Time) {
	if len(paths) == 0 {
		return
	}
	a.paths = append(a.paths, paths...)
	a.lastUpdate = now
}

// ShouldFlush reports whether the pending batch has been quiet for longer
// than the interval.
func (a *Aggregator) ShouldFlush(now time.Time) bool {
	if a.lastUpdate.IsZero() || len(a.paths) == 0 {
		return false
	}
	return now.Sub(a.lastUpdate) > a.interval
}

// Flush returns the pending batch and resets the Aggregator.
func (a *Aggregator) Flush() []string {
	batch := a.paths
	a.paths = nil
	a.lastUpdate = time.Time{}
	return batch
}

// Pending returns the number of paths waiting to be flushed.
func (a *Aggregator) Pending() int {
	return len(a.paths)
}
