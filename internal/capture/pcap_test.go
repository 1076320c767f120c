package capture

import (
	"net"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"NetBurst/internal/model"
)

func ethernetTCPPacket(t *testing.T) gopacket.Packet {
	t.Helper()
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0xaa, 0xbb, 0xcc, 0x00, 0x00, 0x01},
		DstMAC:       net.HardwareAddr{0xaa, 0xbb, 0xcc, 0x00, 0x00, 0x02},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    net.IP{10, 0, 0, 1},
		DstIP:    net.IP{10, 0, 0, 2},
	}
	tcp := &layers.TCP{SrcPort: 443, DstPort: 51004}
	if err := tcp.SetNetworkLayerForChecksum(ip); err != nil {
		t.Fatalf("Failed to set checksum layer: %v", err)
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, tcp, gopacket.Payload("hello")); err != nil {
		t.Fatalf("Failed to serialize packet: %v", err)
	}

	packet := gopacket.NewPacket(buf.Bytes(), layers.LayerTypeEthernet, gopacket.Default)
	meta := packet.Metadata()
	meta.Timestamp = time.Unix(100, 250000000)
	meta.Length = len(buf.Bytes())
	return packet
}

// dot11Frame builds a plain 802.11 data frame: frame control, duration,
// receiver, transmitter, BSSID, sequence control, payload, FCS.
func dot11Frame(seq uint16, payload []byte) []byte {
	dst := []byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66}
	src := []byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}

	frame := make([]byte, 0, 28+len(payload))
	frame = append(frame, 0x08, 0x00)
	frame = append(frame, 0x00, 0x00)
	frame = append(frame, dst...)
	frame = append(frame, src...)
	frame = append(frame, src...)
	seqCtrl := seq << 4
	frame = append(frame, byte(seqCtrl), byte(seqCtrl>>8))
	frame = append(frame, payload...)
	frame = append(frame, 0x00, 0x00, 0x00, 0x00)
	return frame
}

func TestIPFromPacket(t *testing.T) {
	packet := ethernetTCPPacket(t)

	p, err := ipFromPacket(packet)
	if err != nil {
		t.Fatalf("Failed to decode packet: %v", err)
	}
	if p.Time != 100.25 {
		t.Errorf("Expected time 100.25, got %v", p.Time)
	}
	if p.Src.String() != "10.0.0.1" || p.Dst.String() != "10.0.0.2" {
		t.Errorf("Unexpected addresses %s -> %s", p.Src, p.Dst)
	}
	if p.SrcPort != 443 || p.DstPort != 51004 {
		t.Errorf("Unexpected ports %d -> %d", p.SrcPort, p.DstPort)
	}
	if int(p.Length) != packet.Metadata().Length {
		t.Errorf("Expected length %d, got %d", packet.Metadata().Length, p.Length)
	}
}

func TestIPFromPacketRejectsNonIP(t *testing.T) {
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0xaa, 0xbb, 0xcc, 0x00, 0x00, 0x01},
		DstMAC:       net.HardwareAddr{0xaa, 0xbb, 0xcc, 0x00, 0x00, 0x02},
		EthernetType: layers.EthernetTypeARP,
	}
	arp := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPRequest,
		SourceHwAddress:   eth.SrcMAC,
		SourceProtAddress: []byte{10, 0, 0, 1},
		DstHwAddress:      make([]byte, 6),
		DstProtAddress:    []byte{10, 0, 0, 2},
	}
	buf := gopacket.NewSerializeBuffer()
	if err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{FixLengths: true}, eth, arp); err != nil {
		t.Fatalf("Failed to serialize packet: %v", err)
	}
	packet := gopacket.NewPacket(buf.Bytes(), layers.LayerTypeEthernet, gopacket.Default)

	if _, err := ipFromPacket(packet); err == nil {
		t.Error("Expected an error for a non-IP packet")
	}
}

func TestWlanFromPacket(t *testing.T) {
	frame := dot11Frame(1234, []byte("payload"))
	packet := gopacket.NewPacket(frame, layers.LayerTypeDot11, gopacket.Default)
	meta := packet.Metadata()
	meta.Timestamp = time.Unix(2, 0)
	meta.Length = len(frame)

	p, err := wlanFromPacket(packet)
	if err != nil {
		t.Fatalf("Failed to decode frame: %v", err)
	}
	if p.Src.String() != "aa:bb:cc:dd:ee:ff" {
		t.Errorf("Unexpected transmitter %s", p.Src)
	}
	if p.Dst.String() != "11:22:33:44:55:66" {
		t.Errorf("Unexpected receiver %s", p.Dst)
	}
	if p.Seq != 1234 {
		t.Errorf("Expected sequence number 1234, got %d", p.Seq)
	}
	if int(p.Length) != len(frame) {
		t.Errorf("Expected length %d, got %d", len(frame), p.Length)
	}
}

func TestWlanFromPacketSkipsControlFrames(t *testing.T) {
	// An ACK frame carries a receiver address only.
	frame := []byte{0xd4, 0x00, 0x00, 0x00}
	frame = append(frame, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66)
	frame = append(frame, 0x00, 0x00, 0x00, 0x00)
	packet := gopacket.NewPacket(frame, layers.LayerTypeDot11, gopacket.Default)

	if _, err := wlanFromPacket(packet); err == nil {
		t.Error("Expected an error for a control frame without a transmitter")
	}
}

func TestRecorderWritesReplayableLines(t *testing.T) {
	dir := t.TempDir()
	r, err := NewRecorder(dir, 16)
	if err != nil {
		t.Fatalf("Failed to create recorder: %v", err)
	}

	pkt := model.IPPacket{
		Time:    1.5,
		Src:     netip.MustParseAddr("10.0.0.1"),
		Dst:     netip.MustParseAddr("10.0.0.2"),
		SrcPort: 443,
		DstPort: 51004,
		Length:  100,
	}
	r.RecordIP(pkt)
	r.RecordIP(pkt)
	r.Stop()

	lines := readRecordedLines(t, dir)
	if len(lines) != 2 {
		t.Fatalf("Expected 2 recorded lines, got %d", len(lines))
	}
	got, err := ParseIPLine(lines[0])
	if err != nil {
		t.Fatalf("Failed to parse recorded line: %v", err)
	}
	if got != pkt {
		t.Errorf("Recorded line changed the packet: %+v != %+v", got, pkt)
	}
}

func readRecordedLines(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to list record directory: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 record file, got %d", len(entries))
	}
	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatalf("Failed to read record file: %v", err)
	}
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}
