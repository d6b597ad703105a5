// Package config loads the daemon's JSON configuration through a
// load/sanitize/defaults/validate pipeline, covering device rate
// defaults and the protocol-side services (notify hub, MQTT telemetry,
// macro scripts).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// NotifyConfig configures the monitor-facing WebSocket hub that
// mirrors notification-channel traffic (internal/notify).
type NotifyConfig struct {
	Port           string   `json:"port"`
	AllowedOrigins []string `json:"allowed_origins"`
}

// DeviceConfig seeds defaults applied to newly attached devices before
// any per-model override.
type DeviceConfig struct {
	MaxPollRate   string `json:"max_pollrate"`
	Debug         bool   `json:"debug"`
	HeartbeatCron string `json:"heartbeat_cron"`
}

// MQTTConfig configures the reference device's telemetry publisher
// (internal/refdevice). There's no Home Assistant discovery section:
// refdevice only publishes telemetry, it doesn't accept commands over MQTT.
type MQTTConfig struct {
	Enabled     bool   `json:"enabled"`
	Broker      string `json:"broker"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	ClientID    string `json:"client_id"`
	TopicPrefix string `json:"topic_prefix"`
}

// MacrosConfig points at the Lua macro-script directory used by the
// reference device's MACRO playback.
type MacrosConfig struct {
	Dir string `json:"dir"`
}

// Config is the top-level daemon configuration.
type Config struct {
	Notify NotifyConfig `json:"notify"`
	Device DeviceConfig `json:"device"`
	MQTT   MQTTConfig   `json:"mqtt"`
	Macros MacrosConfig `json:"macros"`

	OutfifoMax int `json:"outfifo_max"`
}

// Load reads path, parses it as JSON, and applies sanitize/default/
// validate passes. A missing file is not an error: the daemon falls
// back to defaults.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := &Config{}
			cfg.setDefaults()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to open config file '%s': %w", path, err)
	}
	defer file.Close()

	cfg := &Config{}
	if err := json.NewDecoder(file).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode json: %w", err)
	}

	cfg.sanitize()
	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) sanitize() {
	c.Notify.Port = strings.TrimSpace(c.Notify.Port)
	c.Device.MaxPollRate = strings.TrimSpace(c.Device.MaxPollRate)
	c.MQTT.Broker = strings.TrimSpace(c.MQTT.Broker)
	c.Macros.Dir = strings.TrimSpace(c.Macros.Dir)
}

func (c *Config) setDefaults() {
	if c.Notify.Port == "" {
		c.Notify.Port = "8991"
	}
	if len(c.Notify.AllowedOrigins) == 0 {
		c.Notify.AllowedOrigins = nil // nil means allow-any, per notify.NewMonitorHub
	}

	if c.Device.MaxPollRate == "" {
		c.Device.MaxPollRate = "1"
	}
	if c.Device.HeartbeatCron == "" {
		c.Device.HeartbeatCron = "@every 30s"
	}

	if c.MQTT.Broker == "" {
		c.MQTT.Broker = "tcp://localhost:1883"
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "ckbcored"
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = "ckbcored"
	}

	if c.Macros.Dir == "" {
		c.Macros.Dir = "macros"
	}

	if c.OutfifoMax <= 0 {
		c.OutfifoMax = 16
	}
}

func (c *Config) validate() error {
	if c.OutfifoMax <= 0 {
		return fmt.Errorf("config error: 'outfifo_max' must be positive")
	}
	return nil
}
