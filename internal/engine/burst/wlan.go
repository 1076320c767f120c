package burst

import "NetBurst/internal/model"

// SequenceOptions control the 802.11 sequence-number extension of the
// wireless tracker. The zero value disables it, making wireless touches
// behave exactly like wired ones.
type SequenceOptions struct {
	// Enabled turns sequence tracking on.
	Enabled bool

	// NoGuess counts only observed frames across capture gaps instead of
	// estimating the missed ones.
	NoGuess bool

	// MaxDeviation bounds, exclusively, the sequence distance treated as a
	// retransmission or a capture gap. Larger jumps are outliers.
	MaxDeviation uint16
}

// seqMask confines sequence arithmetic to the 12-bit space of the 802.11
// header field.
const seqMask = 0x0FFF

// seqDelta returns the signed distance from expected to seq in sequence
// space, in the range (-2048, 2048].
func seqDelta(seq, expected uint16) int {
	d := int((seq - expected) & seqMask)
	if d > 2048 {
		d -= 4096
	}
	return d
}

// wlanBurst extends the shared accumulator with sequence bookkeeping that
// resets between bursts.
type wlanBurst struct {
	accum
	expected uint16
	lastLen  uint32
}

// wlanFlow is the per-flow state of the wireless tracker.
type wlanFlow struct {
	burst *wlanBurst
}

func (f *wlanFlow) lastTouch() (float64, bool) {
	if f.burst == nil {
		return 0, false
	}
	return f.burst.end, true
}

func (f *wlanFlow) take() (accum, bool) {
	if f.burst == nil {
		return accum{}, false
	}
	a := f.burst.accum
	f.burst = nil
	return a, true
}

func (f *wlanFlow) touch(p model.WlanPacket, opts SequenceOptions) {
	if f.burst == nil {
		f.burst = &wlanBurst{
			accum:    accum{start: p.Time, end: p.Time, packets: 1, size: p.Length},
			expected: (p.Seq + 1) & seqMask,
			lastLen:  p.Length,
		}
		return
	}

	b := f.burst
	if !opts.Enabled {
		b.end = p.Time
		b.packets++
		b.size += p.Length
		return
	}

	d := seqDelta(p.Seq, b.expected)
	switch {
	case d == 0:
		b.end = p.Time
		b.packets++
		b.size += p.Length
		b.expected = (p.Seq + 1) & seqMask
		b.lastLen = p.Length

	case -int(opts.MaxDeviation) < d && d < 0:
		// Retransmission of a frame already counted. The retransmission bit
		// alone is not enough: the first transmission may have been missed.
		b.end = p.Time

	case 0 < d && d < int(opts.MaxDeviation):
		// The capture missed d frames.
		if opts.NoGuess {
			b.packets++
			b.size += p.Length
		} else {
			b.packets += uint16(d)
			b.size += uint32(d) * ((b.lastLen + p.Length) / 2)
		}
		b.end = p.Time
		b.expected = (p.Seq + 1) & seqMask
		b.lastLen = p.Length

	default:
		// A jump this large is a lone outlier. Skip the frame and move the
		// window by one.
		b.expected = (b.expected + 1) & seqMask
	}
}

// WlanTracker detects bursts on wireless flows keyed by MAC pair.
type WlanTracker struct {
	tb   *table[model.WlanFlowKey, *wlanFlow]
	opts SequenceOptions
}

// NewWlanTracker creates a tracker that closes a burst once its flow has
// been silent for inactive seconds.
func NewWlanTracker(inactive float64, opts SequenceOptions) *WlanTracker {
	return &WlanTracker{
		tb:   newTable[model.WlanFlowKey, *wlanFlow](inactive),
		opts: opts,
	}
}

// Observe folds one frame into the tracker: flows idle as of the frame's own
// clock are closed first, then the frame opens or extends its flow's burst.
// emit receives every closed burst.
func (tr *WlanTracker) Observe(p model.WlanPacket, emit func(model.Burst) error) error {
	if err := tr.Sweep(p.Time, emit); err != nil {
		return err
	}

	key := p.FlowKey()
	f, ok := tr.tb.flows[key]
	if !ok {
		f = &wlanFlow{}
		tr.tb.flows[key] = f
	}
	f.touch(p, tr.opts)
	tr.tb.record(key, p.Time)
	return nil
}

// Sweep closes every flow idle for at least the inactivity window as of now.
func (tr *WlanTracker) Sweep(now float64, emit func(model.Burst) error) error {
	return tr.tb.sweep(now, func(k model.WlanFlowKey, a accum) error {
		return emit(renderWlan(k, a, now))
	})
}

// Drain closes every open burst regardless of age, with now as the
// completion time.
func (tr *WlanTracker) Drain(now float64, emit func(model.Burst) error) error {
	return tr.tb.drain(now, func(k model.WlanFlowKey, a accum) error {
		return emit(renderWlan(k, a, now))
	})
}

// FlowCount returns the number of tracked flows, open or closed.
// Note: this is for testing/metrics purposes.
func (tr *WlanTracker) FlowCount() int {
	return len(tr.tb.flows)
}

func renderWlan(k model.WlanFlowKey, a accum, completion float64) model.Burst {
	return model.Burst{
		CompletionTime: completion,
		Src:            k.Src.String(),
		Dst:            k.Dst.String(),
		Start:          a.start,
		End:            a.end,
		NumPackets:     a.packets,
		Size:           a.size,
	}
}
