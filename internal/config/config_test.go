package config

import (
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name: "valid minimal config",
			yaml: `
version: "1"
channels:
  - id: web
    name: Web
    kind: http-like
    params:
      url: http://localhost/health
`,
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				if len(cfg.Channels) != 1 {
					t.Errorf("expected 1 channel, got %d", len(cfg.Channels))
				}
				if cfg.Channels[0].ID != "web" {
					t.Errorf("expected channel id 'web', got '%s'", cfg.Channels[0].ID)
				}
			},
		},
		{
			name: "applies defaults",
			yaml: `
defaults:
  intervalSec: 30
  threshold: 5
channels:
  - id: db
    kind: tcp
    params:
      address: localhost:5432
`,
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				ch := &cfg.Channels[0]
				if ch.BaselineIntervalSec != 30 {
					t.Errorf("expected inherited intervalSec 30, got %d", ch.BaselineIntervalSec)
				}
				if ch.Threshold == nil || *ch.Threshold != 5 {
					t.Errorf("expected inherited threshold 5, got %v", ch.Threshold)
				}
				if ch.Priority != "medium" {
					t.Errorf("expected default priority 'medium', got '%s'", ch.Priority)
				}
				if ch.Enabled == nil || !*ch.Enabled {
					t.Errorf("expected default enabled=true")
				}
			},
		},
		{
			name:    "valid - zero channels",
			yaml:    `version: "1"`,
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				if len(cfg.Channels) != 0 {
					t.Errorf("expected 0 channels, got %d", len(cfg.Channels))
				}
			},
		},
		{
			name: "invalid - missing id",
			yaml: `
channels:
  - kind: http-like
    params:
      url: http://localhost
`,
			wantErr: true,
		},
		{
			name: "invalid - unknown probe kind",
			yaml: `
channels:
  - id: web
    kind: carrier-pigeon
    params:
      url: http://localhost
`,
			wantErr: true,
		},
		{
			name: "invalid - duplicate channel ids",
			yaml: `
channels:
  - id: web
    kind: http-like
    params:
      url: http://a
  - id: web
    kind: http-like
    params:
      url: http://b
`,
			wantErr: true,
		},
		{
			name: "invalid - explicit threshold 0 rejected (B2)",
			yaml: `
channels:
  - id: web
    kind: http-like
    threshold: 0
    params:
      url: http://localhost
`,
			wantErr: true,
		},
		{
			name: "invalid - undefined guard reference",
			yaml: `
channels:
  - id: web
    kind: http-like
    guards: [interface-up]
    params:
      url: http://localhost
`,
			wantErr: true,
		},
		{
			name: "valid - guard reference resolves",
			yaml: `
guards:
  interface-up:
    kind: interface-up
channels:
  - id: web
    kind: http-like
    guards: [interface-up]
    params:
      url: http://localhost
`,
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.yaml))
			if (err != nil) != tt.wantErr {
				t.Errorf("Parse() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestDuration(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{"5s", 5 * time.Second, false},
		{"10m", 10 * time.Minute, false},
		{"1h", 1 * time.Hour, false},
		{"500ms", 500 * time.Millisecond, false},
		{"invalid", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var d Duration
			err := d.UnmarshalYAML(func(v interface{}) error {
				*(v.(*string)) = tt.input
				return nil
			})
			if (err != nil) != tt.wantErr {
				t.Errorf("UnmarshalYAML() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && d.Duration() != tt.expected {
				t.Errorf("UnmarshalYAML() = %v, want %v", d.Duration(), tt.expected)
			}
		})
	}
}

func TestConfig_ToDomain(t *testing.T) {
	cfg, err := Parse([]byte(`
channels:
  - id: web
    name: Web
    kind: http-like
    priority: critical
    params:
      url: http://localhost
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	domainChannels := cfg.ToDomain()
	if len(domainChannels) != 1 {
		t.Fatalf("expected 1 domain channel, got %d", len(domainChannels))
	}
	ch := domainChannels[0]
	if ch.ID != "web" || ch.Name != "Web" {
		t.Errorf("unexpected channel: %+v", ch)
	}
	if !ch.Enabled {
		t.Errorf("expected Enabled=true")
	}
	if string(ch.Priority) != "critical" {
		t.Errorf("expected priority critical, got %s", ch.Priority)
	}
}

func TestConfig_FindChannel(t *testing.T) {
	cfg, err := Parse([]byte(`
channels:
  - id: web
    kind: http-like
    params: {url: http://localhost}
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.FindChannel("web") == nil {
		t.Errorf("expected to find channel 'web'")
	}
	if cfg.FindChannel("missing") != nil {
		t.Errorf("expected nil for missing channel")
	}
}
