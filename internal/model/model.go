package model

import (
	"fmt"
	"net"
	"net/netip"
)

// IPPacket is one captured wired packet, reduced to the fields burst
// detection needs. Time is in seconds, relative to the start of the capture.
type IPPacket struct {
	Time    float64
	Src     netip.Addr
	Dst     netip.Addr
	SrcPort uint16
	DstPort uint16
	Length  uint32
}

// FlowKey returns the key that groups this packet with its flow. With
// withPorts unset the ports are cleared, so all traffic between the two
// addresses lands in a single flow.
func (p IPPacket) FlowKey(withPorts bool) IPFlowKey {
	k := IPFlowKey{Src: p.Src, Dst: p.Dst}
	if withPorts {
		k.SrcPort = p.SrcPort
		k.DstPort = p.DstPort
		k.HasPorts = true
	}
	return k
}

// WlanPacket is one captured 802.11 frame. Seq is the 12-bit sequence number
// from the frame header.
type WlanPacket struct {
	Time   float64
	Src    MAC
	Dst    MAC
	Length uint32
	Seq    uint16
}

// FlowKey returns the MAC-pair key for this frame.
func (p WlanPacket) FlowKey() WlanFlowKey {
	return WlanFlowKey{Src: p.Src, Dst: p.Dst}
}

// MAC is a 48-bit link-layer address.
type MAC [6]byte

// ParseMAC parses the usual colon- or dash-separated notation.
func ParseMAC(s string) (MAC, error) {
	hw, err := net.ParseMAC(s)
	if err != nil {
		return MAC{}, err
	}
	if len(hw) != 6 {
		return MAC{}, fmt.Errorf("not a 48-bit address: %q", s)
	}
	var m MAC
	copy(m[:], hw)
	return m, nil
}

// MACFromBytes copies a 6-byte hardware address.
func MACFromBytes(b []byte) (MAC, error) {
	if len(b) != 6 {
		return MAC{}, fmt.Errorf("not a 48-bit address: % x", b)
	}
	var m MAC
	copy(m[:], b)
	return m, nil
}

// String formats the address as colon-separated hex.
func (m MAC) String() string {
	return net.HardwareAddr(m[:]).String()
}

// IPFlowKey identifies a unidirectional wired flow. Keys are comparable and
// are used directly as map keys.
type IPFlowKey struct {
	Src      netip.Addr
	Dst      netip.Addr
	SrcPort  uint16
	DstPort  uint16
	HasPorts bool
}

// String renders the key for logs, e.g. "10.0.0.1:443->10.0.0.2:51004".
func (k IPFlowKey) String() string {
	if k.HasPorts {
		return fmt.Sprintf("%s:%d->%s:%d", k.Src, k.SrcPort, k.Dst, k.DstPort)
	}
	return fmt.Sprintf("%s->%s", k.Src, k.Dst)
}

// WlanFlowKey identifies a unidirectional wireless flow by its MAC pair.
type WlanFlowKey struct {
	Src MAC
	Dst MAC
}

// String renders the key for logs.
func (k WlanFlowKey) String() string {
	return fmt.Sprintf("%s->%s", k.Src, k.Dst)
}
