package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration shared by the edge and hub binaries.
// Each binary reads only the sections it needs.
type Config struct {
	MQTT    MQTTConfig    `yaml:"mqtt"`
	Edge    EdgeConfig    `yaml:"edge"`
	Hub     HubConfig     `yaml:"hub"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type MQTTConfig struct {
	BrokerURL string `yaml:"broker_url"`
	ClientID  string `yaml:"client_id"`
	KeepAlive uint16 `yaml:"keep_alive"`
}

type EdgeConfig struct {
	SampleInterval time.Duration `yaml:"sample_interval"`
	Window         int           `yaml:"window"`
	PublishTimeout time.Duration `yaml:"publish_timeout"`
	DrainDelay     time.Duration `yaml:"drain_delay"`
	OfflineDir     string        `yaml:"offline_dir"`
	SimulateSensor bool          `yaml:"simulate_sensor"`
}

type HubConfig struct {
	StoreDriver  string        `yaml:"store_driver"`
	StoreDSN     string        `yaml:"store_dsn"`
	DailyDir     string        `yaml:"daily_dir"`
	Timezone     string        `yaml:"timezone"`
	LiveCacheCap int           `yaml:"live_cache_cap"`
	StoreTimeout time.Duration `yaml:"store_timeout"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) ApplyDefaults() {
	if c.MQTT.BrokerURL == "" {
		c.MQTT.BrokerURL = "mqtt://localhost:1883"
	}
	if c.MQTT.KeepAlive == 0 {
		c.MQTT.KeepAlive = 60
	}
	if c.Edge.SampleInterval == 0 {
		c.Edge.SampleInterval = 30 * time.Second
	}
	if c.Edge.Window == 0 {
		c.Edge.Window = 5
	}
	if c.Edge.PublishTimeout == 0 {
		c.Edge.PublishTimeout = 5 * time.Second
	}
	if c.Edge.DrainDelay == 0 {
		c.Edge.DrainDelay = time.Second
	}
	if c.Edge.OfflineDir == "" {
		c.Edge.OfflineDir = "./offline_data"
	}
	if c.Hub.StoreDriver == "" {
		c.Hub.StoreDriver = "sqlite"
	}
	if c.Hub.StoreDSN == "" {
		c.Hub.StoreDSN = "./planterator.db"
	}
	if c.Hub.DailyDir == "" {
		c.Hub.DailyDir = "./daily_readings"
	}
	if c.Hub.LiveCacheCap == 0 {
		c.Hub.LiveCacheCap = 1024
	}
	if c.Hub.StoreTimeout == 0 {
		c.Hub.StoreTimeout = 10 * time.Second
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
}

func (c *Config) Validate() error {
	if c.MQTT.BrokerURL == "" {
		return fmt.Errorf("mqtt.broker_url is required")
	}
	if c.Edge.Window < 1 {
		return fmt.Errorf("edge.window must be >= 1")
	}
	if c.Edge.SampleInterval <= 0 {
		return fmt.Errorf("edge.sample_interval must be positive")
	}
	switch c.Hub.StoreDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("hub.store_driver must be sqlite or postgres, got %q", c.Hub.StoreDriver)
	}
	if c.Hub.Timezone != "" {
		if _, err := time.LoadLocation(c.Hub.Timezone); err != nil {
			return fmt.Errorf("hub.timezone: %w", err)
		}
	}
	return nil
}
