// Package burst turns per-packet events into discrete bursts: maximal runs
// of traffic on a flow separated by at least a configured window of silence.
//
// Wired and wireless traffic run through structurally identical trackers.
// Each tracker owns a flow table and an idle queue holding one
// (key, packet time) entry per observed packet. Closing idle flows only ever
// inspects the queue front: an entry whose flow was touched again after it
// was queued is stale and discarded, and the fresher entry further back in
// the queue closes the flow instead.
package burst

import (
	"errors"
	"fmt"
	"math"

	"NetBurst/pkg/fifo"
)

// staleTolerance bounds the comparison that decides whether an idle-queue
// entry still refers to the newest packet of its flow. Timestamps are
// float64 seconds, so exact equality is not reliable.
const staleTolerance = 1e-4

var (
	// ErrUnknownFlow reports an idle-queue entry whose flow is missing from
	// the flow table. Flows are never evicted, so this only happens when the
	// table is corrupted.
	ErrUnknownFlow = errors.New("burst: idle queue references unknown flow")

	// ErrNoOpenBurst reports an attempt to close a flow with no burst in
	// progress. The staleness check skips closed flows, so this only happens
	// when the table is corrupted.
	ErrNoOpenBurst = errors.New("burst: no open burst to close")

	// ErrOutputStalled reports a full burst channel: the downstream consumer
	// stopped keeping up, and the pipeline stops rather than block or drop.
	ErrOutputStalled = errors.New("burst: output channel full, downstream stalled")
)

// accum is an open burst being extended by successive packets.
type accum struct {
	start   float64
	end     float64
	packets uint16
	size    uint32
}

// entry pairs a flow key with the packet time that touched the flow.
type entry[K comparable] struct {
	key K
	t   float64
}

// flow is the per-key state a table tracks. Concrete flows carry their own
// touch logic; the table needs only idle inspection and finalization.
type flow interface {
	// lastTouch returns the end time of the open burst. ok is false when the
	// flow is between bursts.
	lastTouch() (t float64, ok bool)

	// take closes and returns the open burst. ok is false when there is none.
	take() (accum, bool)
}

// table owns the flow map and idle queue for one pipeline. Not safe for
// concurrent use; each pipeline drives its table from a single goroutine.
type table[K comparable, F flow] struct {
	inactive float64
	flows    map[K]F
	queue    *fifo.Queue[entry[K]]
}

func newTable[K comparable, F flow](inactive float64) *table[K, F] {
	return &table[K, F]{
		inactive: inactive,
		flows:    make(map[K]F),
		queue:    fifo.New[entry[K]](),
	}
}

// record notes that key was touched at time t. Packet times must be
// non-decreasing so the queue stays ordered.
func (tb *table[K, F]) record(key K, t float64) {
	tb.queue.Enqueue(entry[K]{key: key, t: t})
}

// sweep closes every flow that has been idle for at least the inactivity
// window as of now, calling finish once per closed burst.
func (tb *table[K, F]) sweep(now float64, finish func(K, accum) error) error {
	return tb.close(now, false, finish)
}

// drain closes every remaining open burst regardless of age.
func (tb *table[K, F]) drain(now float64, finish func(K, accum) error) error {
	return tb.close(now, true, finish)
}

func (tb *table[K, F]) close(now float64, all bool, finish func(K, accum) error) error {
	for {
		head, ok := tb.queue.Peek()
		if !ok || (!all && now-head.t < tb.inactive) {
			return nil
		}
		tb.queue.Dequeue()

		f, ok := tb.flows[head.key]
		if !ok {
			return fmt.Errorf("%w: %v", ErrUnknownFlow, head.key)
		}

		last, open := f.lastTouch()
		if !open || math.Abs(last-head.t) >= staleTolerance {
			// Stale: the flow saw a later packet after this entry was queued,
			// or an earlier in-tolerance entry already closed the burst.
			continue
		}

		a, ok := f.take()
		if !ok {
			return fmt.Errorf("%w: flow %v", ErrNoOpenBurst, head.key)
		}
		if err := finish(head.key, a); err != nil {
			return err
		}
	}
}
