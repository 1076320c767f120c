package burst

import (
	"time"

	"NetBurst/internal/model"
)

// loop is the worker shared by both pipelines: receive with a timeout of one
// inactivity window, sweep on the packet clock while traffic flows and on an
// estimated clock when it does not. The estimate never regresses because
// lastTime only moves forward.
type loop[P any] struct {
	inactive     float64
	drainOnClose bool

	in  <-chan P
	out chan<- model.Burst

	timeOf  func(P) float64
	observe func(P, func(model.Burst) error) error
	sweep   func(float64, func(model.Burst) error) error
	drain   func(float64, func(model.Burst) error) error

	lastTime float64
	done     chan struct{}
	err      error
}

func (l *loop[P]) run() {
	defer close(l.done)

	timeout := time.Duration(l.inactive * float64(time.Second))
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		timer.Reset(timeout)
		select {
		case pkt, ok := <-l.in:
			if !ok {
				// Upstream is done. Bursts still open are discarded unless
				// draining was requested.
				if l.drainOnClose {
					l.err = l.drain(l.lastTime+l.inactive, l.emit)
				}
				return
			}
			l.lastTime = l.timeOf(pkt)
			if err := l.observe(pkt, l.emit); err != nil {
				l.err = err
				return
			}
		case <-timer.C:
			// A full window passed with no packets. The capture clock has
			// moved at least one window past the last packet, so close
			// anything idle at that estimate.
			if err := l.sweep(l.lastTime+l.inactive, l.emit); err != nil {
				l.err = err
				return
			}
		}
	}
}

func (l *loop[P]) emit(b model.Burst) error {
	select {
	case l.out <- b:
		return nil
	default:
		return ErrOutputStalled
	}
}

// IPPipeline converts wired packet events into bursts on a single worker
// goroutine that has exclusive ownership of its tracker.
type IPPipeline struct {
	tracker *IPTracker
	loop    *loop[model.IPPacket]
}

// NewIPPipeline wires a wired-traffic worker between in and out. Bursts are
// emitted on out, which the pipeline never closes. With drainOnClose set,
// open bursts are flushed when in closes instead of being discarded.
func NewIPPipeline(inactive float64, ignorePorts, drainOnClose bool, in <-chan model.IPPacket, out chan<- model.Burst) *IPPipeline {
	tracker := NewIPTracker(inactive, ignorePorts)
	return &IPPipeline{
		tracker: tracker,
		loop: &loop[model.IPPacket]{
			inactive:     inactive,
			drainOnClose: drainOnClose,
			in:           in,
			out:          out,
			timeOf:       func(p model.IPPacket) float64 { return p.Time },
			observe:      tracker.Observe,
			sweep:        tracker.Sweep,
			drain:        tracker.Drain,
			done:         make(chan struct{}),
		},
	}
}

// Start launches the worker goroutine. The pipeline stops when in closes or
// on the first terminal error.
func (p *IPPipeline) Start() {
	go p.loop.run()
}

// Done is closed once the worker has stopped.
func (p *IPPipeline) Done() <-chan struct{} {
	return p.loop.done
}

// Wait blocks until the worker has stopped and returns its terminal error.
// A clean stop after the input closed returns nil.
func (p *IPPipeline) Wait() error {
	<-p.loop.done
	return p.loop.err
}

// WlanPipeline converts wireless packet events into bursts on a single
// worker goroutine that has exclusive ownership of its tracker.
type WlanPipeline struct {
	tracker *WlanTracker
	loop    *loop[model.WlanPacket]
}

// NewWlanPipeline wires a wireless-traffic worker between in and out. Bursts
// are emitted on out, which the pipeline never closes. With drainOnClose
// set, open bursts are flushed when in closes instead of being discarded.
func NewWlanPipeline(inactive float64, opts SequenceOptions, drainOnClose bool, in <-chan model.WlanPacket, out chan<- model.Burst) *WlanPipeline {
	tracker := NewWlanTracker(inactive, opts)
	return &WlanPipeline{
		tracker: tracker,
		loop: &loop[model.WlanPacket]{
			inactive:     inactive,
			drainOnClose: drainOnClose,
			in:           in,
			out:          out,
			timeOf:       func(p model.WlanPacket) float64 { return p.Time },
			observe:      tracker.Observe,
			sweep:        tracker.Sweep,
			drain:        tracker.Drain,
			done:         make(chan struct{}),
		},
	}
}

// Start launches the worker goroutine. The pipeline stops when in closes or
// on the first terminal error.
func (p *WlanPipeline) Start() {
	go p.loop.run()
}

// Done is closed once the worker has stopped.
func (p *WlanPipeline) Done() <-chan struct{} {
	return p.loop.done
}

// Wait blocks until the worker has stopped and returns its terminal error.
// A clean stop after the input closed returns nil.
func (p *WlanPipeline) Wait() error {
	<-p.loop.done
	return p.loop.err
}
