package manager

import (
	"log"

	"NetBurst/internal/alerter"
	"NetBurst/internal/config"
	"NetBurst/internal/engine/burst"
	"NetBurst/internal/model"
	"NetBurst/internal/notification"
	"NetBurst/internal/sink"
)

const (
	defaultPacketChannelSize = 4096
	defaultBurstChannelSize  = 1024
)

// Manager owns the burst pipelines and the sink dispatcher. Feeders push
// decoded events into the input channels; finished bursts flow through the
// shared burst channel into the configured sinks.
type Manager struct {
	ipChan    chan model.IPPacket
	wlanChan  chan model.WlanPacket
	burstChan chan model.Burst

	ipPipe     *burst.IPPipeline
	wlanPipe   *burst.WlanPipeline
	dispatcher *sink.Dispatcher
}

// NewManager creates a new Manager.
func NewManager(cfg *config.Config) (*Manager, error) {
	packetBuf := cfg.Engine.SizeOfPacketChannel
	if packetBuf <= 0 {
		packetBuf = defaultPacketChannelSize
	}
	burstBuf := cfg.Engine.SizeOfBurstChannel
	if burstBuf <= 0 {
		burstBuf = defaultBurstChannelSize
	}

	ipChan := make(chan model.IPPacket, packetBuf)
	wlanChan := make(chan model.WlanPacket, packetBuf)
	burstChan := make(chan model.Burst, burstBuf)

	seqOpts := burst.SequenceOptions{
		Enabled:      cfg.Engine.Wlan.SeqTracking,
		NoGuess:      cfg.Engine.Wlan.NoGuess,
		MaxDeviation: cfg.Engine.Wlan.MaxDeviation,
	}

	sinks, err := buildSinks(cfg)
	if err != nil {
		return nil, err
	}
	dispatcher, err := sink.NewDispatcher(cfg.Sinks, burstChan, sinks)
	if err != nil {
		return nil, err
	}

	return &Manager{
		ipChan:     ipChan,
		wlanChan:   wlanChan,
		burstChan:  burstChan,
		ipPipe:     burst.NewIPPipeline(cfg.Engine.InactiveTime, cfg.Engine.IgnorePorts, cfg.Engine.DrainOnClose, ipChan, burstChan),
		wlanPipe:   burst.NewWlanPipeline(cfg.Engine.InactiveTime, seqOpts, cfg.Engine.DrainOnClose, wlanChan, burstChan),
		dispatcher: dispatcher,
	}, nil
}

// buildSinks instantiates every enabled storage backend.
func buildSinks(cfg *config.Config) ([]model.Sink, error) {
	var sinks []model.Sink

	if cfg.Sinks.Text.Enabled {
		s, err := sink.NewTextSink(cfg.Sinks.Text)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if cfg.Sinks.Gob.Enabled {
		s, err := sink.NewGobSink(cfg.Sinks.Gob)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if cfg.Sinks.ClickHouse.Enabled {
		s, err := sink.NewClickHouseSink(cfg.Sinks.ClickHouse)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if cfg.Sinks.Mongo.Enabled {
		s, err := sink.NewMongoSink(cfg.Sinks.Mongo)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if cfg.Sinks.NATS.Enabled {
		s, err := sink.NewNATSSink(cfg.Probe.NATSURL, cfg.Probe.SubjectPrefix)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}

	if cfg.Alerter.Enabled {
		// Simple check to see if email is configured.
		if cfg.SMTP.Host != "" {
			notifier := notification.NewEmailNotifier(cfg.SMTP)
			a, err := alerter.NewAlerter(cfg.Alerter, notifier)
			if err != nil {
				return nil, err
			}
			sinks = append(sinks, a)
			log.Println("Alerter enabled and initialized.")
		} else {
			log.Println("Alerter is enabled in config, but no notifiers are configured. Alerter will not run.")
		}
	}

	if len(sinks) == 0 {
		log.Println("No sinks enabled; finished bursts will be discarded.")
	}
	return sinks, nil
}

// Start launches the dispatcher and both pipelines.
func (m *Manager) Start() {
	m.dispatcher.Start()
	m.ipPipe.Start()
	m.wlanPipe.Start()

	// A pipeline error means detection state is corrupt or bursts are being
	// lost; neither is recoverable.
	go m.watch("wired", m.ipPipe.Wait)
	go m.watch("wireless", m.wlanPipe.Wait)

	log.Println("Manager started with wired and wireless burst pipelines.")
}

func (m *Manager) watch(name string, wait func() error) {
	if err := wait(); err != nil {
		log.Fatalf("The %s burst pipeline failed: %v", name, err)
	}
}

// InputChannelIP is the feed for decoded wired events.
func (m *Manager) InputChannelIP() chan<- model.IPPacket {
	return m.ipChan
}

// InputChannelWlan is the feed for decoded wireless events.
func (m *Manager) InputChannelWlan() chan<- model.WlanPacket {
	return m.wlanChan
}

// Stop gracefully shuts down the manager.
func (m *Manager) Stop() {
	log.Println("Manager stopping...")
	// 1. Stop accepting new events.
	close(m.ipChan)
	close(m.wlanChan)

	// 2. Wait for both pipelines to finish their final pass.
	m.ipPipe.Wait()
	m.wlanPipe.Wait()

	// 3. No more bursts can appear: let the dispatcher drain and close the sinks.
	close(m.burstChan)
	m.dispatcher.Stop()

	log.Println("Manager stopped.")
}
