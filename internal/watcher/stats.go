package watcher

import "sync/atomic"

// Stats reports what a session has seen so far.
type Stats struct {
	EventsReceived uint64
	PathsRecorded  uint64
	PathsDropped   uint64
	BatchesFlushed uint64
	PathsDelivered uint64
	ReceiveErrors  uint64
}

type counters struct {
	events        atomic.Uint64
	recorded      atomic.Uint64
	dropped       atomic.Uint64
	batches       atomic.Uint64
	delivered     atomic.Uint64
	receiveErrors atomic.Uint64
}

// Stats returns a snapshot of the session counters. It is safe to call from
// any goroutine.
func (c *Controller) Stats() Stats {
	return Stats{
		EventsReceived: c.stats.events.Load(),
		PathsRecorded:  c.stats.recorded.Load(),
		PathsDropped:   c.stats.dropped.Load(),
		BatchesFlushed: c.stats.batches.Load(),
		PathsDelivered: c.stats.delivered.Load(),
		ReceiveErrors:  c.stats.receiveErrors.Load(),
	}
}
