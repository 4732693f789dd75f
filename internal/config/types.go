// Package config provides the typed configuration structure consumed
// by the core (§6 "Configuration input (consumed)"): loaded and
// validated externally, then passed in as an in-memory value.
package config

import "time"

// Config is the root configuration structure.
type Config struct {
	Version    string             `yaml:"version"`
	Defaults   Defaults           `yaml:"defaults"`
	Guards     map[string]Guard   `yaml:"guards"`
	Channels   []Channel          `yaml:"channels"`
	ConfigPath string             `yaml:"-"`
}

// Defaults carries the workspace-wide fallback values a Channel
// inherits for any field it omits (§1 "Channel").
type Defaults struct {
	IntervalSec int `yaml:"intervalSec"`
	TimeoutMs   int `yaml:"timeoutMs"`
	Threshold   int `yaml:"threshold"`
	JitterPct   int `yaml:"jitterPct"`
}

// Guard is a named prerequisite condition definition (§4.3). Kind
// selects which built-in guard implementation runs; Params carries
// kind-specific arguments (e.g. the interface name to check).
type Guard struct {
	Kind   string            `yaml:"kind"`
	Params map[string]string `yaml:"params,omitempty"`
}

// Channel is one monitored target (§1 "Channel").
type Channel struct {
	ID                  string            `yaml:"id"`
	Name                string            `yaml:"name"`
	Kind                string            `yaml:"kind"`
	Params              map[string]string `yaml:"params,omitempty"`
	BaselineIntervalSec int               `yaml:"intervalSec,omitempty"`
	TimeoutMs           int               `yaml:"timeoutMs,omitempty"`
	// Threshold is a pointer so an explicit 0 (rejected, B2) can be
	// distinguished from "unset, inherit Defaults.Threshold".
	Threshold *int              `yaml:"threshold,omitempty"`
	JitterPct int               `yaml:"jitterPct,omitempty"`
	Enabled             *bool             `yaml:"enabled,omitempty"`
	Priority            string            `yaml:"priority,omitempty"`
	Guards              []string          `yaml:"guards,omitempty"`
	Hidden              bool              `yaml:"hidden,omitempty"`
}

// Duration is a wrapper around time.Duration that supports YAML
// unmarshaling of human-readable strings (e.g. "30s").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
