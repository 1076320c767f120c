package burst

import "NetBurst/internal/model"

// ipFlow is the per-flow state of the wired tracker.
type ipFlow struct {
	burst *accum
}

func (f *ipFlow) touch(p model.IPPacket) {
	if f.burst == nil {
		f.burst = &accum{start: p.Time, end: p.Time, packets: 1, size: p.Length}
		return
	}
	f.burst.end = p.Time
	f.burst.packets++
	f.burst.size += p.Length
}

func (f *ipFlow) lastTouch() (float64, bool) {
	if f.burst == nil {
		return 0, false
	}
	return f.burst.end, true
}

func (f *ipFlow) take() (accum, bool) {
	if f.burst == nil {
		return accum{}, false
	}
	a := *f.burst
	f.burst = nil
	return a, true
}

// IPTracker detects bursts on wired flows keyed by address pair and, unless
// port awareness is disabled, the transport port pair.
type IPTracker struct {
	tb        *table[model.IPFlowKey, *ipFlow]
	withPorts bool
}

// NewIPTracker creates a tracker that closes a burst once its flow has been
// silent for inactive seconds. With ignorePorts set, all traffic between two
// addresses counts as one flow regardless of ports.
func NewIPTracker(inactive float64, ignorePorts bool) *IPTracker {
	return &IPTracker{
		tb:        newTable[model.IPFlowKey, *ipFlow](inactive),
		withPorts: !ignorePorts,
	}
}

// Observe folds one packet into the tracker: flows idle as of the packet's
// own clock are closed first, then the packet opens or extends its flow's
// burst. emit receives every closed burst.
func (tr *IPTracker) Observe(p model.IPPacket, emit func(model.Burst) error) error {
	if err := tr.Sweep(p.Time, emit); err != nil {
		return err
	}

	key := p.FlowKey(tr.withPorts)
	f, ok := tr.tb.flows[key]
	if !ok {
		f = &ipFlow{}
		tr.tb.flows[key] = f
	}
	f.touch(p)
	tr.tb.record(key, p.Time)
	return nil
}

// Sweep closes every flow idle for at least the inactivity window as of now.
func (tr *IPTracker) Sweep(now float64, emit func(model.Burst) error) error {
	return tr.tb.sweep(now, func(k model.IPFlowKey, a accum) error {
		return emit(renderIP(k, a, now))
	})
}

// Drain closes every open burst regardless of age, with now as the
// completion time.
func (tr *IPTracker) Drain(now float64, emit func(model.Burst) error) error {
	return tr.tb.drain(now, func(k model.IPFlowKey, a accum) error {
		return emit(renderIP(k, a, now))
	})
}

// FlowCount returns the number of tracked flows, open or closed.
// Note: this is for testing/metrics purposes.
func (tr *IPTracker) FlowCount() int {
	return len(tr.tb.flows)
}

// renderIP builds the emitted record from the flow key and a closed burst.
func renderIP(k model.IPFlowKey, a accum, completion float64) model.Burst {
	b := model.Burst{
		CompletionTime: completion,
		Src:            k.Src.String(),
		Dst:            k.Dst.String(),
		Start:          a.start,
		End:            a.end,
		NumPackets:     a.packets,
		Size:           a.size,
	}
	if k.HasPorts {
		src, dst := k.SrcPort, k.DstPort
		b.SrcPort, b.DstPort = &src, &dst
	}
	return b
}
