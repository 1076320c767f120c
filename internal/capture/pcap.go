package capture

import (
	"fmt"
	"log"
	"net/netip"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"NetBurst/internal/model"
)

// Snapshot length for live captures. Headers are all burst detection needs,
// but a generous snapshot keeps decoding simple.
const snapshotLen = 1600

// PacketSource decodes packets from a live interface or a pcap file without
// going through tshark.
type PacketSource struct {
	handle *pcap.Handle
}

// OpenLive starts capturing on a network interface. filter is an optional BPF
// expression.
func OpenLive(device, filter string) (*PacketSource, error) {
	handle, err := pcap.OpenLive(device, snapshotLen, true, pcap.BlockForever)
	if err != nil {
		return nil, fmt.Errorf("failed to open device %s: %w", device, err)
	}
	if filter != "" {
		if err := handle.SetBPFFilter(filter); err != nil {
			handle.Close()
			return nil, fmt.Errorf("failed to set filter %q: %w", filter, err)
		}
	}
	return &PacketSource{handle: handle}, nil
}

// OpenFile replays a capture file.
func OpenFile(path string) (*PacketSource, error) {
	handle, err := pcap.OpenOffline(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pcap file %s: %w", path, err)
	}
	return &PacketSource{handle: handle}, nil
}

// Close stops the capture. A blocked read loop returns after Close.
func (s *PacketSource) Close() {
	s.handle.Close()
}

// ReadIPPackets decodes wired packets and sends them to out until the source
// is exhausted or closed. Packets that are not IP over TCP/UDP are skipped.
// The out channel is left open for the caller to close.
func (s *PacketSource) ReadIPPackets(out chan<- model.IPPacket) {
	dropped := 0
	source := gopacket.NewPacketSource(s.handle, s.handle.LinkType())
	for packet := range source.Packets() {
		pkt, err := ipFromPacket(packet)
		if err != nil {
			dropped++
			continue
		}
		out <- pkt
	}
	if dropped > 0 {
		log.Printf("packet source: skipped %d undecodable packets", dropped)
	}
}

// ReadWlanPackets is the 802.11 counterpart of ReadIPPackets. The source link
// type must be 802.11, with or without a RadioTap header.
func (s *PacketSource) ReadWlanPackets(out chan<- model.WlanPacket) {
	dropped := 0
	source := gopacket.NewPacketSource(s.handle, s.handle.LinkType())
	for packet := range source.Packets() {
		pkt, err := wlanFromPacket(packet)
		if err != nil {
			dropped++
			continue
		}
		out <- pkt
	}
	if dropped > 0 {
		log.Printf("packet source: skipped %d undecodable frames", dropped)
	}
}

func packetTimeAndLength(packet gopacket.Packet) (float64, uint32) {
	meta := packet.Metadata()
	length := meta.Length
	if length == 0 {
		length = len(packet.Data())
	}
	return float64(meta.Timestamp.UnixNano()) / 1e9, uint32(length)
}

func ipFromPacket(packet gopacket.Packet) (model.IPPacket, error) {
	var p model.IPPacket
	p.Time, p.Length = packetTimeAndLength(packet)

	if l := packet.Layer(layers.LayerTypeIPv4); l != nil {
		ip := l.(*layers.IPv4)
		var ok bool
		if p.Src, ok = netip.AddrFromSlice(ip.SrcIP.To4()); !ok {
			return model.IPPacket{}, fmt.Errorf("bad IPv4 src address")
		}
		if p.Dst, ok = netip.AddrFromSlice(ip.DstIP.To4()); !ok {
			return model.IPPacket{}, fmt.Errorf("bad IPv4 dst address")
		}
	} else if l := packet.Layer(layers.LayerTypeIPv6); l != nil {
		ip := l.(*layers.IPv6)
		var ok bool
		if p.Src, ok = netip.AddrFromSlice(ip.SrcIP); !ok {
			return model.IPPacket{}, fmt.Errorf("bad IPv6 src address")
		}
		if p.Dst, ok = netip.AddrFromSlice(ip.DstIP); !ok {
			return model.IPPacket{}, fmt.Errorf("bad IPv6 dst address")
		}
	} else {
		return model.IPPacket{}, fmt.Errorf("not an IP packet")
	}

	if l := packet.Layer(layers.LayerTypeTCP); l != nil {
		tcp := l.(*layers.TCP)
		p.SrcPort = uint16(tcp.SrcPort)
		p.DstPort = uint16(tcp.DstPort)
	} else if l := packet.Layer(layers.LayerTypeUDP); l != nil {
		udp := l.(*layers.UDP)
		p.SrcPort = uint16(udp.SrcPort)
		p.DstPort = uint16(udp.DstPort)
	} else {
		return model.IPPacket{}, fmt.Errorf("not a TCP or UDP packet")
	}

	return p, nil
}

func wlanFromPacket(packet gopacket.Packet) (model.WlanPacket, error) {
	var p model.WlanPacket
	p.Time, p.Length = packetTimeAndLength(packet)

	l := packet.Layer(layers.LayerTypeDot11)
	if l == nil {
		return model.WlanPacket{}, fmt.Errorf("not an 802.11 frame")
	}
	d := l.(*layers.Dot11)

	// Address2 is the transmitter; control frames without one are skipped.
	var err error
	if p.Src, err = model.MACFromBytes(d.Address2); err != nil {
		return model.WlanPacket{}, fmt.Errorf("bad transmitter address: %w", err)
	}
	if p.Dst, err = model.MACFromBytes(d.Address1); err != nil {
		return model.WlanPacket{}, fmt.Errorf("bad receiver address: %w", err)
	}
	// The sequence number field is 12 bits.
	p.Seq = d.SequenceNumber & 0x0FFF
	return p, nil
}
