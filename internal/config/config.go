package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RecordConfig controls the optional capture event recorder.
type RecordConfig struct {
	Enabled           bool   `yaml:"enabled"`
	Path              string `yaml:"path"`
	ChannelBufferSize int    `yaml:"channel_buffer_size"`
}

// ProbeConfig holds the configuration for the capture probe and its NATS
// transport. The engine side reuses NATSURL and SubjectPrefix to subscribe.
type ProbeConfig struct {
	Mode          string       `yaml:"mode"`    // tshark, live, pcap or text
	Capture       string       `yaml:"capture"` // ip or wlan
	Device        string       `yaml:"device"`
	Filter        string       `yaml:"filter"`
	File          string       `yaml:"file"`
	TsharkArgs    []string     `yaml:"tshark_args"`
	NATSURL       string       `yaml:"nats_url"`
	SubjectPrefix string       `yaml:"subject_prefix"`
	Record        RecordConfig `yaml:"record"`
}

// WlanConfig holds the 802.11 sequence number tracking options.
type WlanConfig struct {
	SeqTracking  bool   `yaml:"seq_tracking"`
	NoGuess      bool   `yaml:"no_guess"`
	MaxDeviation uint16 `yaml:"max_deviation"`
}

// EngineConfig holds the configuration for burst detection.
type EngineConfig struct {
	InactiveTime        float64    `yaml:"inactive_time"`
	IgnorePorts         bool       `yaml:"ignore_ports"`
	DrainOnClose        bool       `yaml:"drain_on_close"`
	SizeOfPacketChannel int        `yaml:"size_of_packet_channel"`
	SizeOfBurstChannel  int        `yaml:"size_of_burst_channel"`
	Wlan                WlanConfig `yaml:"wlan"`
}

// TextSinkConfig configures the plain text burst log.
type TextSinkConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// GobSinkConfig configures the gob burst archive.
type GobSinkConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// ClickHouseConfig holds ClickHouse connection settings. The query API reuses
// it without the Enabled flag.
type ClickHouseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MongoConfig holds MongoDB connection settings for the burst archive.
type MongoConfig struct {
	Enabled    bool   `yaml:"enabled"`
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// NATSSinkConfig enables republishing finished bursts on the probe's NATS
// server under the bursts subject.
type NATSSinkConfig struct {
	Enabled bool `yaml:"enabled"`
}

// SinkConfig holds the burst storage backends. Bursts are batched before
// being handed to the enabled sinks.
type SinkConfig struct {
	BatchSize     int              `yaml:"batch_size"`
	FlushInterval string           `yaml:"flush_interval"`
	Text          TextSinkConfig   `yaml:"text"`
	Gob           GobSinkConfig    `yaml:"gob"`
	ClickHouse    ClickHouseConfig `yaml:"clickhouse"`
	Mongo         MongoConfig      `yaml:"mongo"`
	NATS          NATSSinkConfig   `yaml:"nats"`
}

// AlerterRule describes one burst alerting rule. Src and Dst are optional
// exact matches; the thresholds trigger when any of them is exceeded.
type AlerterRule struct {
	Name        string  `yaml:"name"`
	Src         string  `yaml:"src"`
	Dst         string  `yaml:"dst"`
	MinSize     uint64  `yaml:"min_size_bytes"`
	MinPackets  uint32  `yaml:"min_packets"`
	MinDuration float64 `yaml:"min_duration"`
}

// AlerterConfig holds the configuration for the burst alerter.
type AlerterConfig struct {
	Enabled       bool          `yaml:"enabled"`
	CheckInterval string        `yaml:"check_interval"`
	Rules         []AlerterRule `yaml:"rules"`
}

// SMTPConfig holds the email notification settings. To is a comma-separated
// recipient list.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
}

// APIConfig holds the configuration for the HTTP query service.
type APIConfig struct {
	ListenAddr string           `yaml:"listen_addr"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Probe   ProbeConfig   `yaml:"probe"`
	Engine  EngineConfig  `yaml:"engine"`
	Sinks   SinkConfig    `yaml:"sinks"`
	Alerter AlerterConfig `yaml:"alerter"`
	SMTP    SMTPConfig    `yaml:"smtp"`
	API     APIConfig     `yaml:"api"`
}

// LoadConfig reads the configuration from a YAML file and returns a Config struct.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Engine.InactiveTime <= 0 {
		return fmt.Errorf("engine inactive_time must be positive, got %v", c.Engine.InactiveTime)
	}
	if c.Engine.Wlan.SeqTracking && c.Engine.Wlan.MaxDeviation == 0 {
		return fmt.Errorf("wlan max_deviation must be positive when sequence tracking is enabled")
	}
	switch c.Probe.Mode {
	case "", "tshark", "live", "pcap", "text":
	default:
		return fmt.Errorf("unknown probe mode %q", c.Probe.Mode)
	}
	switch c.Probe.Capture {
	case "", "ip", "wlan":
	default:
		return fmt.Errorf("unknown capture type %q", c.Probe.Capture)
	}
	return nil
}
