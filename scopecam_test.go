package main

import (
	"flag"
	"testing"

	"scopecam/config"
)

// TestApplyFlags verifies only flags given on the command line override config.
func TestApplyFlags(t *testing.T) {
	cfg := config.Default()
	cfg.Input.Path = "from-config.mp4"
	cfg.Output.Path = "keep.mp4"
	cfg.Focus.Capacity = 50

	for name, value := range map[string]string{
		"input":    "from-flag.mp4",
		"buffer":   "12",
		"realtime": "true",
		"logo-x":   "7",
	} {
		if err := flag.Set(name, value); err != nil {
			t.Fatalf("flag.Set(%s) failed: %v", name, err)
		}
	}

	applyFlags(cfg)

	if cfg.Input.Path != "from-flag.mp4" {
		t.Errorf("Expected input from flag, got %s", cfg.Input.Path)
	}
	if cfg.Output.Path != "keep.mp4" {
		t.Errorf("Expected output untouched, got %s", cfg.Output.Path)
	}
	if cfg.Focus.Capacity != 12 || !cfg.Pipeline.Realtime || cfg.Logo.X != 7 {
		t.Errorf("Unexpected overrides: capacity=%d realtime=%v logo.x=%d",
			cfg.Focus.Capacity, cfg.Pipeline.Realtime, cfg.Logo.X)
	}
}
