package report

import (
	"log"
	"sync"
	"sync/atomic"
)

// Relay decouples the scheduler from slow consumers. Report enqueues without
// blocking and drops the event if the queue is full; a single goroutine
// delivers queued events to every sink in order.
type Relay struct {
	queue   chan Event
	sinks   []Reporter
	dropped atomic.Uint64
	wg      sync.WaitGroup
	once    sync.Once
}

// NewRelay starts a relay with the given queue capacity.
func NewRelay(capacity int, sinks ...Reporter) *Relay {
	if capacity < 1 {
		capacity = 1
	}
	r := &Relay{
		queue: make(chan Event, capacity),
		sinks: sinks,
	}
	r.wg.Add(1)
	go r.loop()
	return r
}

// Report enqueues e. It never blocks. Report must not be called after Close.
func (r *Relay) Report(e Event) {
	select {
	case r.queue <- e:
	default:
		if r.dropped.Add(1) == 1 {
			log.Printf("report: queue full (%d events), dropping", cap(r.queue))
		}
	}
}

// Dropped returns how many events were discarded because the queue was full.
func (r *Relay) Dropped() uint64 {
	return r.dropped.Load()
}

// Close delivers whatever is queued and stops the relay.
func (r *Relay) Close() {
	r.once.Do(func() {
		close(r.queue)
		r.wg.Wait()
	})
}

func (r *Relay) loop() {
	defer r.wg.Done()
	for e := range r.queue {
		for _, s := range r.sinks {
			s.Report(e)
		}
	}
}
