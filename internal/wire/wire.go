// Package wire implements the binary encoding used on the NATS transport.
//
// Payloads are protobuf wire format, assembled and consumed directly with
// encoding/protowire. In proto3 terms the messages are:
//
//	message IPPacket {
//	    double time     = 1;
//	    bytes  src      = 2; // 4 or 16 bytes
//	    bytes  dst      = 3;
//	    uint32 src_port = 4;
//	    uint32 dst_port = 5;
//	    uint32 length   = 6;
//	}
//
//	message WlanPacket {
//	    double time   = 1;
//	    bytes  src    = 2; // 6 bytes
//	    bytes  dst    = 3;
//	    uint32 length = 4;
//	    uint32 seq    = 5;
//	}
//
//	message Burst {
//	    double completion_time = 1;
//	    string src             = 2;
//	    string dst             = 3;
//	    uint32 src_port        = 4; // stored as port+1, 0 means absent
//	    uint32 dst_port        = 5; // stored as port+1, 0 means absent
//	    double start           = 6;
//	    double end             = 7;
//	    uint32 num_packets     = 8;
//	    uint32 size            = 9;
//	}
//
// Decoders skip unknown fields, so either side of the transport can grow
// the schema without breaking the other.
package wire

import (
	"fmt"
	"math"
	"net/netip"

	"google.golang.org/protobuf/encoding/protowire"

	"NetBurst/internal/model"
)

// MarshalIPPacket encodes a wired packet event.
func MarshalIPPacket(p model.IPPacket) []byte {
	b := make([]byte, 0, 64)
	b = appendFloat(b, 1, p.Time)
	b = appendBytes(b, 2, p.Src.AsSlice())
	b = appendBytes(b, 3, p.Dst.AsSlice())
	b = appendUint(b, 4, uint64(p.SrcPort))
	b = appendUint(b, 5, uint64(p.DstPort))
	b = appendUint(b, 6, uint64(p.Length))
	return b
}

// UnmarshalIPPacket decodes a wired packet event.
func UnmarshalIPPacket(data []byte) (model.IPPacket, error) {
	var p model.IPPacket
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return p, protowire.ParseError(n)
		}
		data = data[n:]

		switch {
		case num == 1 && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return p, protowire.ParseError(n)
			}
			p.Time = math.Float64frombits(v)
			data = data[n:]
		case num == 2 && typ == protowire.BytesType:
			addr, n, err := consumeAddr(data)
			if err != nil {
				return p, fmt.Errorf("src: %w", err)
			}
			p.Src = addr
			data = data[n:]
		case num == 3 && typ == protowire.BytesType:
			addr, n, err := consumeAddr(data)
			if err != nil {
				return p, fmt.Errorf("dst: %w", err)
			}
			p.Dst = addr
			data = data[n:]
		case num == 4 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return p, protowire.ParseError(n)
			}
			p.SrcPort = uint16(v)
			data = data[n:]
		case num == 5 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return p, protowire.ParseError(n)
			}
			p.DstPort = uint16(v)
			data = data[n:]
		case num == 6 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return p, protowire.ParseError(n)
			}
			p.Length = uint32(v)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return p, protowire.ParseError(n)
			}
			data = data[n:]
		}
	}
	return p, nil
}

// MarshalWlanPacket encodes a wireless packet event.
func MarshalWlanPacket(p model.WlanPacket) []byte {
	b := make([]byte, 0, 40)
	b = appendFloat(b, 1, p.Time)
	b = appendBytes(b, 2, p.Src[:])
	b = appendBytes(b, 3, p.Dst[:])
	b = appendUint(b, 4, uint64(p.Length))
	b = appendUint(b, 5, uint64(p.Seq))
	return b
}

// UnmarshalWlanPacket decodes a wireless packet event.
func UnmarshalWlanPacket(data []byte) (model.WlanPacket, error) {
	var p model.WlanPacket
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return p, protowire.ParseError(n)
		}
		data = data[n:]

		switch {
		case num == 1 && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return p, protowire.ParseError(n)
			}
			p.Time = math.Float64frombits(v)
			data = data[n:]
		case num == 2 && typ == protowire.BytesType:
			mac, n, err := consumeMAC(data)
			if err != nil {
				return p, fmt.Errorf("src: %w", err)
			}
			p.Src = mac
			data = data[n:]
		case num == 3 && typ == protowire.BytesType:
			mac, n, err := consumeMAC(data)
			if err != nil {
				return p, fmt.Errorf("dst: %w", err)
			}
			p.Dst = mac
			data = data[n:]
		case num == 4 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return p, protowire.ParseError(n)
			}
			p.Length = uint32(v)
			data = data[n:]
		case num == 5 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return p, protowire.ParseError(n)
			}
			p.Seq = uint16(v)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return p, protowire.ParseError(n)
			}
			data = data[n:]
		}
	}
	return p, nil
}

// MarshalBurst encodes a finished burst record.
func MarshalBurst(b model.Burst) []byte {
	buf := make([]byte, 0, 96)
	buf = appendFloat(buf, 1, b.CompletionTime)
	buf = appendString(buf, 2, b.Src)
	buf = appendString(buf, 3, b.Dst)
	if b.SrcPort != nil {
		buf = appendUint(buf, 4, uint64(*b.SrcPort)+1)
	}
	if b.DstPort != nil {
		buf = appendUint(buf, 5, uint64(*b.DstPort)+1)
	}
	buf = appendFloat(buf, 6, b.Start)
	buf = appendFloat(buf, 7, b.End)
	buf = appendUint(buf, 8, uint64(b.NumPackets))
	buf = appendUint(buf, 9, uint64(b.Size))
	return buf
}

// UnmarshalBurst decodes a burst record.
func UnmarshalBurst(data []byte) (model.Burst, error) {
	var b model.Burst
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return b, protowire.ParseError(n)
		}
		data = data[n:]

		switch {
		case num == 1 && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return b, protowire.ParseError(n)
			}
			b.CompletionTime = math.Float64frombits(v)
			data = data[n:]
		case num == 2 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return b, protowire.ParseError(n)
			}
			b.Src = v
			data = data[n:]
		case num == 3 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return b, protowire.ParseError(n)
			}
			b.Dst = v
			data = data[n:]
		case num == 4 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return b, protowire.ParseError(n)
			}
			if v > 0 {
				port := uint16(v - 1)
				b.SrcPort = &port
			}
			data = data[n:]
		case num == 5 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return b, protowire.ParseError(n)
			}
			if v > 0 {
				port := uint16(v - 1)
				b.DstPort = &port
			}
			data = data[n:]
		case num == 6 && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return b, protowire.ParseError(n)
			}
			b.Start = math.Float64frombits(v)
			data = data[n:]
		case num == 7 && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return b, protowire.ParseError(n)
			}
			b.End = math.Float64frombits(v)
			data = data[n:]
		case num == 8 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return b, protowire.ParseError(n)
			}
			b.NumPackets = uint16(v)
			data = data[n:]
		case num == 9 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return b, protowire.ParseError(n)
			}
			b.Size = uint32(v)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return b, protowire.ParseError(n)
			}
			data = data[n:]
		}
	}
	return b, nil
}

func appendFloat(b []byte, num protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendUint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func consumeAddr(data []byte) (netip.Addr, int, error) {
	raw, n := protowire.ConsumeBytes(data)
	if n < 0 {
		return netip.Addr{}, 0, protowire.ParseError(n)
	}
	addr, ok := netip.AddrFromSlice(raw)
	if !ok {
		return netip.Addr{}, 0, fmt.Errorf("invalid address length %d", len(raw))
	}
	return addr, n, nil
}

func consumeMAC(data []byte) (model.MAC, int, error) {
	raw, n := protowire.ConsumeBytes(data)
	if n < 0 {
		return model.MAC{}, 0, protowire.ParseError(n)
	}
	if len(raw) != 6 {
		return model.MAC{}, 0, fmt.Errorf("invalid MAC length %d", len(raw))
	}
	var mac model.MAC
	copy(mac[:], raw)
	return mac, n, nil
}
