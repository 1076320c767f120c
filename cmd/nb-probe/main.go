package main

import (
	"NetBurst/internal/capture"
	"NetBurst/internal/config"
	"NetBurst/internal/model"
	"NetBurst/internal/probe"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file")
	mode := flag.String("mode", "", "Capture mode: tshark, live, pcap or text (overrides config)")
	captureType := flag.String("capture", "", "Capture type: ip or wlan (overrides config)")
	device := flag.String("device", "", "Capture interface for live mode (overrides config)")
	file := flag.String("file", "", "Input file for pcap and text modes (overrides config)")
	flag.Parse()

	// 1. Load configuration, with flags taking precedence
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *mode != "" {
		cfg.Probe.Mode = *mode
	}
	if *captureType != "" {
		cfg.Probe.Capture = *captureType
	}
	if *device != "" {
		cfg.Probe.Device = *device
	}
	if *file != "" {
		cfg.Probe.File = *file
	}
	checkProbeConfig(cfg.Probe)

	// 2. Connect to NATS
	pub, err := probe.NewPublisher(cfg.Probe)
	if err != nil {
		log.Fatalf("Failed to create publisher: %v", err)
	}
	defer pub.Close()

	// 3. Optionally record events for later replay
	var recorder *capture.Recorder
	if cfg.Probe.Record.Enabled {
		recorder, err = capture.NewRecorder(cfg.Probe.Record.Path, cfg.Probe.Record.ChannelBufferSize)
		if err != nil {
			log.Fatalf("Failed to create recorder: %v", err)
		}
		defer recorder.Stop()
	}

	// 4. Capture until the source ends or a signal stops it
	switch cfg.Probe.Capture {
	case "wlan":
		runWlan(cfg.Probe, pub, recorder)
	default:
		runIP(cfg.Probe, pub, recorder)
	}
	log.Println("Probe finished.")
}

func checkProbeConfig(cfg config.ProbeConfig) {
	switch cfg.Mode {
	case "tshark":
		if len(cfg.TsharkArgs) == 0 {
			log.Fatalf("tshark mode needs probe.tshark_args producing one line per packet")
		}
	case "live":
		if cfg.Device == "" {
			log.Fatalf("Live capture needs a device; set probe.device or pass -device")
		}
	case "pcap", "text":
		if cfg.File == "" {
			log.Fatalf("File replay needs a path; set probe.file or pass -file")
		}
	default:
		log.Fatalf("Probe mode not configured; set probe.mode or pass -mode")
	}
}

// stopOnSignal forwards the first interrupt to the capture source. The read
// loop then drains and closes its channel.
func stopOnSignal(stop func()) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Shutdown signal received, stopping capture...")
		stop()
	}()
}

func runIP(cfg config.ProbeConfig, pub *probe.Publisher, recorder *capture.Recorder) {
	events := make(chan model.IPPacket, 4096)
	stopOnSignal(startIPSource(cfg, events))

	published := 0
	for pkt := range events {
		if recorder != nil {
			recorder.RecordIP(pkt)
		}
		if err := pub.PublishIP(pkt); err != nil {
			log.Printf("Failed to publish event: %v", err)
			continue
		}
		published++
		if published%1000 == 0 {
			log.Printf("%d events published", published)
		}
	}
	log.Printf("Capture ended after %d events.", published)
}

func runWlan(cfg config.ProbeConfig, pub *probe.Publisher, recorder *capture.Recorder) {
	events := make(chan model.WlanPacket, 4096)
	stopOnSignal(startWlanSource(cfg, events))

	published := 0
	for pkt := range events {
		if recorder != nil {
			recorder.RecordWlan(pkt)
		}
		if err := pub.PublishWlan(pkt); err != nil {
			log.Printf("Failed to publish event: %v", err)
			continue
		}
		published++
		if published%1000 == 0 {
			log.Printf("%d events published", published)
		}
	}
	log.Printf("Capture ended after %d events.", published)
}

// startIPSource opens the configured source and starts its read loop. It
// returns the function that stops the source.
func startIPSource(cfg config.ProbeConfig, events chan model.IPPacket) func() {
	switch cfg.Mode {
	case "tshark":
		src, err := capture.NewTsharkSource(cfg.TsharkArgs)
		if err != nil {
			log.Fatalf("Failed to start tshark: %v", err)
		}
		go func() {
			defer close(events)
			if err := src.ReadIPPackets(events); err != nil {
				log.Printf("tshark source failed: %v", err)
			}
		}()
		return func() {
			if err := src.Interrupt(); err != nil {
				log.Printf("Failed to interrupt tshark: %v", err)
			}
		}
	case "live":
		src, err := capture.OpenLive(cfg.Device, cfg.Filter)
		if err != nil {
			log.Fatalf("Failed to open device: %v", err)
		}
		log.Printf("Capturing on %s...", cfg.Device)
		go func() {
			defer close(events)
			src.ReadIPPackets(events)
		}()
		return src.Close
	case "pcap":
		src, err := capture.OpenFile(cfg.File)
		if err != nil {
			log.Fatalf("Failed to open pcap file: %v", err)
		}
		log.Printf("Replaying packets from '%s'...", cfg.File)
		go func() {
			defer close(events)
			src.ReadIPPackets(events)
		}()
		return src.Close
	default: // text, after checkProbeConfig
		src, err := capture.OpenText(cfg.File)
		if err != nil {
			log.Fatalf("Failed to open capture file: %v", err)
		}
		log.Printf("Replaying events from '%s'...", cfg.File)
		go func() {
			defer close(events)
			if err := src.ReadIPPackets(events); err != nil {
				log.Printf("text source failed: %v", err)
			}
		}()
		return func() {
			if err := src.Close(); err != nil {
				log.Printf("Failed to close capture file: %v", err)
			}
		}
	}
}

// startWlanSource is the 802.11 counterpart of startIPSource.
func startWlanSource(cfg config.ProbeConfig, events chan model.WlanPacket) func() {
	switch cfg.Mode {
	case "tshark":
		src, err := capture.NewTsharkSource(cfg.TsharkArgs)
		if err != nil {
			log.Fatalf("Failed to start tshark: %v", err)
		}
		go func() {
			defer close(events)
			if err := src.ReadWlanPackets(events); err != nil {
				log.Printf("tshark source failed: %v", err)
			}
		}()
		return func() {
			if err := src.Interrupt(); err != nil {
				log.Printf("Failed to interrupt tshark: %v", err)
			}
		}
	case "live":
		src, err := capture.OpenLive(cfg.Device, cfg.Filter)
		if err != nil {
			log.Fatalf("Failed to open device: %v", err)
		}
		log.Printf("Capturing on %s...", cfg.Device)
		go func() {
			defer close(events)
			src.ReadWlanPackets(events)
		}()
		return src.Close
	case "pcap":
		src, err := capture.OpenFile(cfg.File)
		if err != nil {
			log.Fatalf("Failed to open pcap file: %v", err)
		}
		log.Printf("Replaying frames from '%s'...", cfg.File)
		go func() {
			defer close(events)
			src.ReadWlanPackets(events)
		}()
		return src.Close
	default: // text, after checkProbeConfig
		src, err := capture.OpenText(cfg.File)
		if err != nil {
			log.Fatalf("Failed to open capture file: %v", err)
		}
		log.Printf("Replaying events from '%s'...", cfg.File)
		go func() {
			defer close(events)
			if err := src.ReadWlanPackets(events); err != nil {
				log.Printf("text source failed: %v", err)
			}
		}()
		return func() {
			if err := src.Close(); err != nil {
				log.Printf("Failed to close capture file: %v", err)
			}
		}
	}
}
