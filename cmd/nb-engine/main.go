package main

import (
	"NetBurst/internal/config"
	"NetBurst/internal/engine/stream"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file")
	flag.Parse()

	// 1. Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	// 2. Initialize the stream engine
	engine, err := stream.NewEngine(cfg)
	if err != nil {
		log.Fatalf("Failed to create stream engine: %v", err)
	}

	// 3. Start consuming capture events
	engine.Start()

	// 4. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("Shutdown signal received, stopping engine...")
	engine.Stop()
	log.Println("Shutdown complete.")
}
