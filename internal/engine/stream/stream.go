package stream

import (
	"log"

	"NetBurst/internal/config"
	"NetBurst/internal/engine/manager"
	"NetBurst/internal/model"
	"NetBurst/internal/probe"
)

// Engine consumes capture events from NATS and feeds them to a
// manager.Manager for burst detection.
type Engine struct {
	cfg     *config.Config
	sub     *probe.Subscriber
	manager *manager.Manager
}

// NewEngine creates a new stream-fed burst engine.
func NewEngine(cfg *config.Config) (*Engine, error) {
	mgr, err := manager.NewManager(cfg)
	if err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, manager: mgr}, nil
}

// Start connects to NATS, starts the underlying manager, and begins
// processing messages.
func (e *Engine) Start() {
	log.Println("Stream engine starting for nats:", e.cfg.Probe.NATSURL)
	sub, err := probe.NewSubscriber(e.cfg.Probe)
	if err != nil {
		log.Fatalf("Stream engine failed to connect to NATS: %v", err)
	}
	e.sub = sub

	// The manager starts its own pipelines and sink dispatcher.
	e.manager.Start()

	ipChan := e.manager.InputChannelIP()
	wlanChan := e.manager.InputChannelWlan()
	if err := e.sub.SubscribeIP(func(pkt model.IPPacket) { ipChan <- pkt }); err != nil {
		log.Fatalf("Stream engine failed to subscribe: %v", err)
	}
	if err := e.sub.SubscribeWlan(func(pkt model.WlanPacket) { wlanChan <- pkt }); err != nil {
		log.Fatalf("Stream engine failed to subscribe: %v", err)
	}
}

// Stop gracefully shuts down the engine.
func (e *Engine) Stop() {
	log.Println("Stream engine stopping...")
	if e.sub != nil {
		e.sub.Close()
	}
	// Stop the underlying manager, which closes the input channels, runs the
	// final sweep and flushes the sinks.
	e.manager.Stop()
	log.Println("Stream engine stopped.")
}
