package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadConfigAppliesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
engine:
  num_queues: 8
detection:
  window_length: 10s
  attack:
    udp_pps: 7777
classifier:
  attack_cidrs:
    - 172.16.0.0/12
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Engine.NumQueues != 8 {
		t.Errorf("NumQueues = %d, want 8", cfg.Engine.NumQueues)
	}
	if cfg.Detection.WindowLength != "10s" {
		t.Errorf("WindowLength = %q, want 10s", cfg.Detection.WindowLength)
	}
	if cfg.Detection.Attack.UDPPPS != 7777 {
		t.Errorf("attack udp_pps = %v, want 7777", cfg.Detection.Attack.UDPPPS)
	}
	// Unset fields keep their defaults.
	if cfg.Engine.BurstSize != 2048 {
		t.Errorf("BurstSize = %d, want default 2048", cfg.Engine.BurstSize)
	}
	if cfg.Detection.Attack.SYNPPS != 3000 {
		t.Errorf("attack syn_pps = %v, want default 3000", cfg.Detection.Attack.SYNPPS)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("does/not/exist.yaml"); err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero queues", func(c *Config) { c.Engine.NumQueues = 0 }},
		{"zero burst", func(c *Config) { c.Engine.BurstSize = 0 }},
		{"non power-of-two cols", func(c *Config) { c.Sketch.Cols = 1000 }},
		{"zero rows", func(c *Config) { c.Sketch.Rows = 0 }},
		{"zero sample rate", func(c *Config) { c.Sketch.SampleRate = 0 }},
		{"hll precision too low", func(c *Config) { c.Sketch.HLLPrecision = 3 }},
		{"hll precision too high", func(c *Config) { c.Sketch.HLLPrecision = 32 }},
		{"zero table capacity", func(c *Config) { c.Table.Capacity = 0 }},
		{"window fraction out of range", func(c *Config) { c.Detection.MinWindowFraction = 1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
