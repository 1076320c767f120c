// Package capture turns raw packet sources into the event streams the burst
// engine consumes. Sources are tshark subprocess output, live interfaces and
// pcap files; all of them reduce packets to model.IPPacket / model.WlanPacket.
package capture

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"NetBurst/internal/model"
)

// Wired lines are "time src dst src_port dst_port length", wireless lines are
// "time src dst length seq", whitespace separated. Trailing extra fields are
// ignored, so tshark invocations may append columns without breaking parsing.

// ParseIPLine parses one wired capture line.
func ParseIPLine(line string) (model.IPPacket, error) {
	fields := strings.Fields(line)
	if len(fields) < 6 {
		return model.IPPacket{}, fmt.Errorf("expected 6 fields, got %d: %q", len(fields), line)
	}

	var p model.IPPacket
	var err error
	if p.Time, err = strconv.ParseFloat(fields[0], 64); err != nil {
		return model.IPPacket{}, fmt.Errorf("bad time %q: %w", fields[0], err)
	}
	if p.Src, err = netip.ParseAddr(fields[1]); err != nil {
		return model.IPPacket{}, fmt.Errorf("bad src address %q: %w", fields[1], err)
	}
	if p.Dst, err = netip.ParseAddr(fields[2]); err != nil {
		return model.IPPacket{}, fmt.Errorf("bad dst address %q: %w", fields[2], err)
	}
	srcPort, err := strconv.ParseUint(fields[3], 10, 16)
	if err != nil {
		return model.IPPacket{}, fmt.Errorf("bad src port %q: %w", fields[3], err)
	}
	dstPort, err := strconv.ParseUint(fields[4], 10, 16)
	if err != nil {
		return model.IPPacket{}, fmt.Errorf("bad dst port %q: %w", fields[4], err)
	}
	length, err := strconv.ParseUint(fields[5], 10, 32)
	if err != nil {
		return model.IPPacket{}, fmt.Errorf("bad length %q: %w", fields[5], err)
	}
	p.SrcPort = uint16(srcPort)
	p.DstPort = uint16(dstPort)
	p.Length = uint32(length)
	return p, nil
}

// ParseWlanLine parses one wireless capture line.
func ParseWlanLine(line string) (model.WlanPacket, error) {
	fields := strings.Fields(line)
	if len(fields) < 5 {
		return model.WlanPacket{}, fmt.Errorf("expected 5 fields, got %d: %q", len(fields), line)
	}

	var p model.WlanPacket
	var err error
	if p.Time, err = strconv.ParseFloat(fields[0], 64); err != nil {
		return model.WlanPacket{}, fmt.Errorf("bad time %q: %w", fields[0], err)
	}
	if p.Src, err = model.ParseMAC(fields[1]); err != nil {
		return model.WlanPacket{}, fmt.Errorf("bad src address %q: %w", fields[1], err)
	}
	if p.Dst, err = model.ParseMAC(fields[2]); err != nil {
		return model.WlanPacket{}, fmt.Errorf("bad dst address %q: %w", fields[2], err)
	}
	length, err := strconv.ParseUint(fields[3], 10, 32)
	if err != nil {
		return model.WlanPacket{}, fmt.Errorf("bad length %q: %w", fields[3], err)
	}
	seq, err := strconv.ParseUint(fields[4], 10, 16)
	if err != nil {
		return model.WlanPacket{}, fmt.Errorf("bad sequence number %q: %w", fields[4], err)
	}
	p.Length = uint32(length)
	p.Seq = uint16(seq)
	return p, nil
}

// FormatIPLine renders a packet in the wired line format. The output parses
// back with ParseIPLine.
func FormatIPLine(p model.IPPacket) string {
	return fmt.Sprintf("%.6f %s %s %d %d %d", p.Time, p.Src, p.Dst, p.SrcPort, p.DstPort, p.Length)
}

// FormatWlanLine renders a frame in the wireless line format.
func FormatWlanLine(p model.WlanPacket) string {
	return fmt.Sprintf("%.6f %s %s %d %d", p.Time, p.Src, p.Dst, p.Length, p.Seq)
}
