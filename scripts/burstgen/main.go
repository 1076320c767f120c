package main

import (
	"bufio"
	"flag"
	"log"
	"math/rand"
	"net"
	"net/netip"
	"os"
	"sort"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"NetBurst/internal/capture"
	"NetBurst/internal/model"
)

// event is one generated packet before serialization.
type event struct {
	time float64
	flow int
	size int
}

func main() {
	outputFile := flag.String("o", "bursty.pcap", "Output file path")
	format := flag.String("format", "pcap", "Output format: pcap or text")
	flowCount := flag.Int("flows", 3, "Number of flows")
	burstCount := flag.Int("bursts", 5, "Bursts per flow")
	burstLen := flag.Int("len", 20, "Packets per burst")
	gap := flag.Float64("gap", 3.0, "Idle gap between bursts in seconds")
	rate := flag.Float64("rate", 100.0, "Packets per second within a burst")
	seed := flag.Int64("seed", 42, "Random seed")
	flag.Parse()

	if *rate <= 0 || *gap <= 0 {
		log.Fatalf("rate and gap must be positive")
	}
	rng := rand.New(rand.NewSource(*seed))

	// Lay out every flow's bursts on a shared clock, then interleave by time.
	var events []event
	interval := 1.0 / *rate
	burstSpan := float64(*burstLen) * interval
	for flow := 0; flow < *flowCount; flow++ {
		offset := float64(flow) * 0.1
		for b := 0; b < *burstCount; b++ {
			start := offset + float64(b)*(burstSpan+*gap)
			for p := 0; p < *burstLen; p++ {
				events = append(events, event{
					time: start + float64(p)*interval,
					flow: flow,
					size: rng.Intn(1400) + 50,
				})
			}
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].time < events[j].time })

	log.Printf("Generating %d events in %d flows into %s...", len(events), *flowCount, *outputFile)

	var err error
	switch *format {
	case "pcap":
		err = writePcap(*outputFile, events, rng)
	case "text":
		err = writeText(*outputFile, events)
	default:
		log.Fatalf("Unknown format %q, want pcap or text", *format)
	}
	if err != nil {
		log.Fatalf("Failed to write output: %v", err)
	}

	log.Printf("Successfully generated %d events into %s.", len(events), *outputFile)
}

// flowAddrs returns the fixed endpoints of a flow. Flow i runs from
// 10.0.0.(i+1):5000+i to 10.0.1.(i+1):80.
func flowAddrs(flow int) (src, dst net.IP, srcPort, dstPort uint16) {
	src = net.IP{10, 0, 0, byte(flow + 1)}
	dst = net.IP{10, 0, 1, byte(flow + 1)}
	return src, dst, uint16(5000 + flow), 80
}

func writePcap(path string, events []event, rng *rand.Rand) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	pcapWriter := pcapgo.NewWriter(f)
	if err := pcapWriter.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		return err
	}

	base := time.Now()
	for _, ev := range events {
		srcIP, dstIP, srcPort, dstPort := flowAddrs(ev.flow)

		ethLayer := &layers.Ethernet{
			SrcMAC:       net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
			DstMAC:       net.HardwareAddr{0x00, 0x66, 0x77, 0x88, 0x99, 0xAA},
			EthernetType: layers.EthernetTypeIPv4,
		}
		ipLayer := &layers.IPv4{
			SrcIP:    srcIP,
			DstIP:    dstIP,
			Version:  4,
			TTL:      64,
			Protocol: layers.IPProtocolTCP,
		}
		tcpLayer := &layers.TCP{
			SrcPort: layers.TCPPort(srcPort),
			DstPort: layers.TCPPort(dstPort),
			Seq:     rng.Uint32(),
			Window:  14600,
		}
		tcpLayer.SetNetworkLayerForChecksum(ipLayer)

		payload := make([]byte, ev.size)
		rng.Read(payload)

		buf := gopacket.NewSerializeBuffer()
		opts := gopacket.SerializeOptions{
			ComputeChecksums: true,
			FixLengths:       true,
		}
		if err := gopacket.SerializeLayers(buf, opts, ethLayer, ipLayer, tcpLayer, gopacket.Payload(payload)); err != nil {
			return err
		}

		ci := gopacket.CaptureInfo{
			Timestamp:     base.Add(time.Duration(ev.time * float64(time.Second))),
			CaptureLength: len(buf.Bytes()),
			Length:        len(buf.Bytes()),
		}
		if err := pcapWriter.WritePacket(ci, buf.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

func writeText(path string, events []event) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	writer := bufio.NewWriter(f)
	for _, ev := range events {
		srcIP, dstIP, srcPort, dstPort := flowAddrs(ev.flow)
		src, _ := netip.AddrFromSlice(srcIP)
		dst, _ := netip.AddrFromSlice(dstIP)
		line := capture.FormatIPLine(model.IPPacket{
			Time:    ev.time,
			Src:     src,
			Dst:     dst,
			SrcPort: srcPort,
			DstPort: dstPort,
			Length:  uint32(ev.size),
		})
		if _, err := writer.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return writer.Flush()
}
