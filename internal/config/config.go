package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/GSejas/health-watch-sub002/internal/domain/channel"
)

// Load reads and parses a configuration file from the given path.
//
// Params:
//   - path: filesystem path to a YAML configuration document.
//
// Returns:
//   - *Config: the loaded, defaulted, and validated configuration.
//   - error: a read, parse, or validation error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	cfg.ConfigPath = path
	return cfg, nil
}

// Parse parses configuration from YAML bytes.
//
// Params:
//   - data: raw YAML document bytes.
//
// Returns:
//   - *Config: the parsed, defaulted, and validated configuration.
//   - error: a YAML syntax or validation error.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}

	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults fills every Channel field left unset from cfg.Defaults
// and the documented built-in defaults (§1 "Channel").
func applyDefaults(cfg *Config) {
	if cfg.Version == "" {
		cfg.Version = "1"
	}
	if cfg.Defaults.IntervalSec == 0 {
		cfg.Defaults.IntervalSec = 60
	}
	if cfg.Defaults.TimeoutMs == 0 {
		cfg.Defaults.TimeoutMs = 5000
	}
	if cfg.Defaults.Threshold == 0 {
		cfg.Defaults.Threshold = channel.DefaultThreshold
	}
	if cfg.Defaults.JitterPct == 0 {
		cfg.Defaults.JitterPct = channel.DefaultJitterPct
	}

	for i := range cfg.Channels {
		applyChannelDefaults(&cfg.Channels[i], cfg.Defaults)
	}
}

func applyChannelDefaults(ch *Channel, d Defaults) {
	if ch.BaselineIntervalSec == 0 {
		ch.BaselineIntervalSec = d.IntervalSec
	}
	if ch.TimeoutMs == 0 {
		ch.TimeoutMs = d.TimeoutMs
	}
	if ch.Threshold == nil {
		threshold := d.Threshold
		ch.Threshold = &threshold
	}
	if ch.JitterPct == 0 {
		ch.JitterPct = d.JitterPct
	}
	if ch.Enabled == nil {
		enabled := true
		ch.Enabled = &enabled
	}
	if ch.Priority == "" {
		ch.Priority = string(channel.PriorityMedium)
	}
}

// ToDomain converts a validated Config into the domain Channel values
// the application layer consumes. Callers must run Validate first;
// ToDomain does not re-check invariants.
//
// Returns:
//   - []channel.Channel: one entry per configured channel, in file
//     order.
func (c *Config) ToDomain() []channel.Channel {
	out := make([]channel.Channel, 0, len(c.Channels))
	for _, ch := range c.Channels {
		enabled := ch.Enabled == nil || *ch.Enabled
		threshold := channel.DefaultThreshold
		if ch.Threshold != nil {
			threshold = *ch.Threshold
		}
		out = append(out, channel.Channel{
			ID:                  ch.ID,
			Name:                ch.Name,
			Kind:                channel.Kind(ch.Kind),
			Params:              ch.Params,
			BaselineIntervalSec: ch.BaselineIntervalSec,
			TimeoutMs:           ch.TimeoutMs,
			Threshold:           threshold,
			JitterPct:           ch.JitterPct,
			Enabled:             enabled,
			Priority:            channel.Priority(ch.Priority),
			Guards:              ch.Guards,
			Hidden:              ch.Hidden,
		})
	}
	return out
}

// FindChannel returns a channel configuration by id.
//
// Params:
//   - id: the channel identifier to look up.
//
// Returns:
//   - *Channel: nil if no channel has that id.
func (c *Config) FindChannel(id string) *Channel {
	for i := range c.Channels {
		if c.Channels[i].ID == id {
			return &c.Channels[i]
		}
	}
	return nil
}
