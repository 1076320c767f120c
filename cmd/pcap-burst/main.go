package main

import (
	"NetBurst/internal/capture"
	"NetBurst/internal/config"
	"NetBurst/internal/engine/manager"
	"NetBurst/internal/model"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file")
	captureType := flag.String("capture", "", "Capture type: ip or wlan (overrides config)")
	flag.Parse()

	// 1. Get the capture file from command-line arguments
	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: pcap-burst [flags] <capture file (.pcap/.pcapng or recorded text)>")
		flag.PrintDefaults()
		os.Exit(1)
	}
	path := flag.Arg(0)

	// 2. Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *captureType != "" {
		cfg.Probe.Capture = *captureType
	}

	// 3. Initialize the burst manager and its sinks
	mgr, err := manager.NewManager(cfg)
	if err != nil {
		log.Fatalf("Failed to create manager: %v", err)
	}

	// 4. Start the pipeline and feed it the whole file
	mgr.Start()
	log.Printf("Reading events from '%s'...", path)
	if cfg.Probe.Capture == "wlan" {
		err = feedWlan(path, mgr.InputChannelWlan())
	} else {
		err = feedIP(path, mgr.InputChannelIP())
	}
	if err != nil {
		log.Fatalf("Failed to read capture file: %v", err)
	}
	log.Println("Finished reading all events.")

	// 5. Graceful shutdown; engine.drain_on_close controls whether bursts
	// still open at end of file are emitted or dropped
	mgr.Stop()
	log.Println("Shutdown complete.")
}

// isTextFile decides replay format by extension. Anything that is not a
// packet capture is treated as a recorded line file.
func isTextFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pcap", ".pcapng", ".cap":
		return false
	}
	return true
}

func feedIP(path string, in chan<- model.IPPacket) error {
	if isTextFile(path) {
		src, err := capture.OpenText(path)
		if err != nil {
			return err
		}
		defer src.Close()
		return src.ReadIPPackets(in)
	}
	src, err := capture.OpenFile(path)
	if err != nil {
		return err
	}
	defer src.Close()
	src.ReadIPPackets(in)
	return nil
}

func feedWlan(path string, in chan<- model.WlanPacket) error {
	if isTextFile(path) {
		src, err := capture.OpenText(path)
		if err != nil {
			return err
		}
		defer src.Close()
		return src.ReadWlanPackets(in)
	}
	src, err := capture.OpenFile(path)
	if err != nil {
		return err
	}
	defer src.Close()
	src.ReadWlanPackets(in)
	return nil
}
