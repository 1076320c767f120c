package burst

import (
	"errors"
	"net/netip"
	"testing"

	"NetBurst/internal/model"
)

func ipPkt(t float64, src, dst string, srcPort, dstPort uint16, length uint32) model.IPPacket {
	return model.IPPacket{
		Time:    t,
		Src:     netip.MustParseAddr(src),
		Dst:     netip.MustParseAddr(dst),
		SrcPort: srcPort,
		DstPort: dstPort,
		Length:  length,
	}
}

func collector(dst *[]model.Burst) func(model.Burst) error {
	return func(b model.Burst) error {
		*dst = append(*dst, b)
		return nil
	}
}

func TestIPTracker_SingleBurst(t *testing.T) {
	tr := NewIPTracker(2.0, true)
	var got []model.Burst
	emit := collector(&got)

	// Two packets in quick succession, then one after a 2.5s silence. The
	// arrival of the late packet is what closes the first burst.
	packets := []model.IPPacket{
		ipPkt(0.0, "10.0.0.1", "10.0.0.2", 10, 20, 100),
		ipPkt(0.5, "10.0.0.1", "10.0.0.2", 30, 40, 50),
		ipPkt(3.0, "10.0.0.1", "10.0.0.2", 10, 20, 80),
	}
	for _, p := range packets {
		if err := tr.Observe(p, emit); err != nil {
			t.Fatalf("Observe failed: %v", err)
		}
	}

	if len(got) != 1 {
		t.Fatalf("Expected 1 burst, got %d", len(got))
	}
	b := got[0]
	if b.Start != 0.0 || b.End != 0.5 {
		t.Errorf("Expected span [0.0, 0.5], got [%v, %v]", b.Start, b.End)
	}
	if b.NumPackets != 2 || b.Size != 150 {
		t.Errorf("Expected 2 packets of 150 bytes, got %d of %d", b.NumPackets, b.Size)
	}
	if b.CompletionTime != 3.0 {
		t.Errorf("Expected completion time 3.0, got %v", b.CompletionTime)
	}
	if b.SrcPort != nil || b.DstPort != nil {
		t.Errorf("Expected nil ports when ports are ignored, got %v/%v", b.SrcPort, b.DstPort)
	}
	if b.Src != "10.0.0.1" || b.Dst != "10.0.0.2" {
		t.Errorf("Unexpected endpoints %s -> %s", b.Src, b.Dst)
	}

	// The late packet is still an open burst until its own silence passes.
	if err := tr.Sweep(10.0, emit); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected a second burst after the final sweep, got %d total", len(got))
	}
	if got[1].Start != 3.0 || got[1].End != 3.0 || got[1].NumPackets != 1 || got[1].Size != 80 {
		t.Errorf("Unexpected second burst %+v", got[1])
	}
}

func TestIPTracker_StaleEntriesEmitOnce(t *testing.T) {
	tr := NewIPTracker(2.0, true)
	var got []model.Burst
	emit := collector(&got)

	// Both packets queue an idle entry; only the newest may close the flow.
	if err := tr.Observe(ipPkt(0.0, "10.0.0.1", "10.0.0.2", 0, 0, 10), emit); err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	if err := tr.Observe(ipPkt(1.0, "10.0.0.1", "10.0.0.2", 0, 0, 10), emit); err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	if err := tr.Sweep(3.5, emit); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("Expected exactly 1 burst, got %d", len(got))
	}
	if got[0].Start != 0.0 || got[0].End != 1.0 || got[0].NumPackets != 2 {
		t.Errorf("Unexpected burst %+v", got[0])
	}

	// Everything was either finalized or discarded; a later sweep is a no-op.
	if err := tr.Sweep(100.0, emit); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("Stale entries produced a duplicate burst: %d total", len(got))
	}
}

func TestIPTracker_PacketsWithinToleranceAtClockStart(t *testing.T) {
	tr := NewIPTracker(2.0, true)
	var got []model.Burst
	emit := collector(&got)

	// Two packets closer together than the staleness tolerance, right at the
	// capture clock origin. Both idle entries pass the freshness comparison;
	// the older one closes the burst and the younger one must be discarded
	// against the then-closed flow instead of failing.
	if err := tr.Observe(ipPkt(0.0, "10.0.0.1", "10.0.0.2", 0, 0, 10), emit); err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	if err := tr.Observe(ipPkt(0.00005, "10.0.0.1", "10.0.0.2", 0, 0, 20), emit); err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	if err := tr.Sweep(5.0, emit); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("Expected 1 burst, got %d", len(got))
	}
	if got[0].NumPackets != 2 || got[0].Size != 30 {
		t.Errorf("Unexpected burst %+v", got[0])
	}
}

func TestIPTracker_BoundaryEquality(t *testing.T) {
	tr := NewIPTracker(2.0, true)
	var got []model.Burst
	emit := collector(&got)

	if err := tr.Observe(ipPkt(1.0, "10.0.0.1", "10.0.0.2", 0, 0, 10), emit); err != nil {
		t.Fatalf("Observe failed: %v", err)
	}

	// Just under the window: nothing closes.
	if err := tr.Sweep(2.9, emit); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Sweep below the window closed a burst: %+v", got)
	}

	// now - touch == inactive closes the flow.
	if err := tr.Sweep(3.0, emit); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected eviction at exact window age, got %d bursts", len(got))
	}
	if got[0].CompletionTime != 3.0 {
		t.Errorf("Expected completion time 3.0, got %v", got[0].CompletionTime)
	}
}

func TestIPTracker_PortAwareFlows(t *testing.T) {
	tr := NewIPTracker(2.0, false)
	var got []model.Burst
	emit := collector(&got)

	// Same address pair, two port pairs: two flows.
	if err := tr.Observe(ipPkt(0.0, "10.0.0.1", "10.0.0.2", 1000, 80, 100), emit); err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	if err := tr.Observe(ipPkt(0.1, "10.0.0.1", "10.0.0.2", 2000, 80, 40), emit); err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	if tr.FlowCount() != 2 {
		t.Fatalf("Expected 2 flows, got %d", tr.FlowCount())
	}

	if err := tr.Sweep(5.0, emit); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 bursts, got %d", len(got))
	}

	// Finalization follows queue order, oldest touch first.
	if got[0].SrcPort == nil || *got[0].SrcPort != 1000 {
		t.Errorf("Expected first burst from port 1000, got %+v", got[0])
	}
	if got[1].SrcPort == nil || *got[1].SrcPort != 2000 {
		t.Errorf("Expected second burst from port 2000, got %+v", got[1])
	}
	for _, b := range got {
		if b.NumPackets != 1 {
			t.Errorf("Expected single-packet bursts, got %+v", b)
		}
		if b.DstPort == nil || *b.DstPort != 80 {
			t.Errorf("Expected destination port 80, got %+v", b.DstPort)
		}
	}
}

func TestIPTracker_IgnorePortsCollapsesFlows(t *testing.T) {
	tr := NewIPTracker(2.0, true)
	var got []model.Burst
	emit := collector(&got)

	if err := tr.Observe(ipPkt(0.0, "10.0.0.1", "10.0.0.2", 1000, 80, 100), emit); err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	if err := tr.Observe(ipPkt(0.1, "10.0.0.1", "10.0.0.2", 2000, 443, 40), emit); err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	if tr.FlowCount() != 1 {
		t.Fatalf("Expected 1 flow with ports ignored, got %d", tr.FlowCount())
	}

	if err := tr.Sweep(5.0, emit); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected 1 burst, got %d", len(got))
	}
	if got[0].NumPackets != 2 || got[0].Size != 140 {
		t.Errorf("Expected a merged burst of 2 packets and 140 bytes, got %+v", got[0])
	}
}

func TestIPTracker_CrossFlowIsolation(t *testing.T) {
	tr := NewIPTracker(2.0, true)
	var got []model.Burst
	emit := collector(&got)

	// Flow A goes quiet while flow B keeps talking.
	events := []model.IPPacket{
		ipPkt(0.0, "10.0.0.1", "10.0.0.2", 0, 0, 10),
		ipPkt(0.5, "10.0.0.3", "10.0.0.4", 0, 0, 20),
		ipPkt(1.5, "10.0.0.3", "10.0.0.4", 0, 0, 20),
		ipPkt(2.5, "10.0.0.3", "10.0.0.4", 0, 0, 20),
		ipPkt(3.5, "10.0.0.3", "10.0.0.4", 0, 0, 20),
	}
	for _, p := range events {
		if err := tr.Observe(p, emit); err != nil {
			t.Fatalf("Observe failed: %v", err)
		}
	}

	// A's burst closed at the 2.5 packet (2.5 - 0.0 >= 2.0); B is still open.
	if len(got) != 1 {
		t.Fatalf("Expected 1 burst, got %d", len(got))
	}
	if got[0].Src != "10.0.0.1" || got[0].NumPackets != 1 || got[0].CompletionTime != 2.5 {
		t.Errorf("Unexpected burst %+v", got[0])
	}

	if err := tr.Sweep(10.0, emit); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 bursts after the final sweep, got %d", len(got))
	}
	if got[1].Src != "10.0.0.3" || got[1].NumPackets != 4 || got[1].Size != 80 {
		t.Errorf("Unexpected burst %+v", got[1])
	}
}

func TestIPTracker_ZeroLengthPackets(t *testing.T) {
	tr := NewIPTracker(2.0, true)
	var got []model.Burst
	emit := collector(&got)

	if err := tr.Observe(ipPkt(0.0, "10.0.0.1", "10.0.0.2", 0, 0, 0), emit); err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	if err := tr.Observe(ipPkt(0.1, "10.0.0.1", "10.0.0.2", 0, 0, 0), emit); err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	if err := tr.Sweep(5.0, emit); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("Expected 1 burst, got %d", len(got))
	}
	if got[0].NumPackets != 2 || got[0].Size != 0 {
		t.Errorf("Expected 2 packets of 0 bytes, got %+v", got[0])
	}
}

func TestIPTracker_FlowReopens(t *testing.T) {
	tr := NewIPTracker(2.0, true)
	var got []model.Burst
	emit := collector(&got)

	if err := tr.Observe(ipPkt(0.0, "10.0.0.1", "10.0.0.2", 0, 0, 10), emit); err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	if err := tr.Observe(ipPkt(5.0, "10.0.0.1", "10.0.0.2", 0, 0, 30), emit); err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	if err := tr.Sweep(10.0, emit); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("Expected 2 bursts, got %d", len(got))
	}
	if got[0].Start != 0.0 || got[0].Size != 10 {
		t.Errorf("Unexpected first burst %+v", got[0])
	}
	if got[1].Start != 5.0 || got[1].Size != 30 {
		t.Errorf("Unexpected second burst %+v", got[1])
	}

	// Closed flows stay in the table waiting for their next packet.
	if tr.FlowCount() != 1 {
		t.Errorf("Expected the flow to remain tracked, count is %d", tr.FlowCount())
	}
}

func TestIPTracker_DeterministicReplay(t *testing.T) {
	events := []model.IPPacket{
		ipPkt(0.0, "10.0.0.1", "10.0.0.2", 10, 20, 100),
		ipPkt(0.3, "10.0.0.3", "10.0.0.2", 11, 20, 200),
		ipPkt(0.9, "10.0.0.1", "10.0.0.2", 10, 20, 50),
		ipPkt(4.0, "10.0.0.3", "10.0.0.2", 11, 20, 25),
		ipPkt(4.5, "10.0.0.1", "10.0.0.2", 10, 20, 75),
	}

	run := func() []model.Burst {
		tr := NewIPTracker(2.0, false)
		var got []model.Burst
		for _, p := range events {
			if err := tr.Observe(p, collector(&got)); err != nil {
				t.Fatalf("Observe failed: %v", err)
			}
		}
		if err := tr.Sweep(100.0, collector(&got)); err != nil {
			t.Fatalf("Sweep failed: %v", err)
		}
		return got
	}

	first, second := run(), run()
	if len(first) != len(second) {
		t.Fatalf("Replay produced %d bursts, then %d", len(first), len(second))
	}
	for i := range first {
		a, b := first[i], second[i]
		if a.Src != b.Src || a.Dst != b.Dst || a.Start != b.Start || a.End != b.End ||
			a.NumPackets != b.NumPackets || a.Size != b.Size || a.CompletionTime != b.CompletionTime {
			t.Errorf("Burst %d differs between replays:\n%+v\n%+v", i, a, b)
		}
	}
}

func TestIPTracker_DrainClosesEverything(t *testing.T) {
	tr := NewIPTracker(2.0, true)
	var got []model.Burst
	emit := collector(&got)

	if err := tr.Observe(ipPkt(0.0, "10.0.0.1", "10.0.0.2", 0, 0, 10), emit); err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	if err := tr.Observe(ipPkt(0.2, "10.0.0.3", "10.0.0.4", 0, 0, 20), emit); err != nil {
		t.Fatalf("Observe failed: %v", err)
	}

	// Neither flow is idle yet, but drain closes both.
	if err := tr.Drain(0.5, emit); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 bursts from drain, got %d", len(got))
	}
	for _, b := range got {
		if b.CompletionTime != 0.5 {
			t.Errorf("Expected completion time 0.5, got %+v", b)
		}
	}
}

func TestIPTracker_EmitErrorStopsSweep(t *testing.T) {
	tr := NewIPTracker(2.0, true)

	if err := tr.Observe(ipPkt(0.0, "10.0.0.1", "10.0.0.2", 0, 0, 10), nil); err != nil {
		t.Fatalf("Observe failed: %v", err)
	}

	sinkErr := errors.New("sink exploded")
	err := tr.Sweep(5.0, func(model.Burst) error { return sinkErr })
	if !errors.Is(err, sinkErr) {
		t.Fatalf("Expected the emit error to propagate, got %v", err)
	}
}
