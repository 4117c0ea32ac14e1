package journal

import (
	"encoding/json"
	"io"
	"log"
	"sync"
	"sync/atomic"
)

// Sink is the outbound collaborator contract: anything that can durably
// persist Entry values one JSON object per line. The concrete ChannelSink
// below is the only implementation in this repository; spec.md §1 names
// the durable writer itself as an external collaborator, so ChannelSink's
// job ends at framing + non-blocking handoff, not at fsync discipline.
type Sink interface {
	Enqueue(e Entry)
	Dropped() int64
	Close() error
}

// ChannelSink is a bounded MPSC queue: producers (the coordinator, the
// orchestrator's heartbeat timer) call Enqueue from any goroutine; a single
// writer goroutine drains it to w as JSONL. A full queue drops the entry and
// logs a warning rather than blocking the caller — the same non-blocking,
// drop-on-full discipline as feed/fixadapter.Adapter's depth/trade/error
// channels (spec.md §5: "entries are best-effort, not authoritative state").
type ChannelSink struct {
	entries chan Entry
	dropped int64

	done chan struct{}
	wg   sync.WaitGroup
}

// NewChannelSink starts the writer goroutine and returns a ready sink.
// bufSize bounds the queue; w receives one JSON object per line.
func NewChannelSink(w io.Writer, bufSize int) *ChannelSink {
	s := &ChannelSink{
		entries: make(chan Entry, bufSize),
		done:    make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run(w)
	return s
}

func (s *ChannelSink) run(w io.Writer) {
	defer s.wg.Done()
	enc := json.NewEncoder(w)
	for {
		select {
		case e, ok := <-s.entries:
			if !ok {
				return
			}
			if err := enc.Encode(e); err != nil {
				log.Printf("journal: write failed for decision %s: %v", e.DecisionID, err)
			}
		case <-s.done:
			// Drain whatever is already queued before exiting (spec.md §5:
			// "on shutdown they drain pending journal entries before exiting").
			for {
				select {
				case e := <-s.entries:
					if err := enc.Encode(e); err != nil {
						log.Printf("journal: write failed for decision %s: %v", e.DecisionID, err)
					}
				default:
					return
				}
			}
		}
	}
}

// Enqueue hands e to the writer goroutine without blocking. If the queue is
// full, the entry is dropped and a warning logged.
func (s *ChannelSink) Enqueue(e Entry) {
	select {
	case s.entries <- e:
	default:
		atomic.AddInt64(&s.dropped, 1)
		log.Printf("journal: queue full, dropping %s entry for %s", e.EntryType, e.Symbol)
	}
}

// Dropped returns the cumulative count of entries dropped due to a full
// queue, for SystemMetrics.JournalEntriesDropped.
func (s *ChannelSink) Dropped() int64 {
	return atomic.LoadInt64(&s.dropped)
}

// Close signals the writer goroutine to drain and exit, then waits for it.
func (s *ChannelSink) Close() error {
	close(s.done)
	s.wg.Wait()
	return nil
}
