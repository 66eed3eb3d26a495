package config

import (
	"fmt"
	"regexp"
	"strings"
)

var hexColorPattern = regexp.MustCompile(`^#?[0-9a-fA-F]{6}$`)

// Validate checks the configuration and fills in derived defaults.
func Validate(cfg *Config) error {
	if cfg.Input.Path == "" {
		return fmt.Errorf("input.path is required")
	}

	switch cfg.Output.Mode {
	case "", "file":
		cfg.Output.Mode = "file"
		if cfg.Output.Path == "" {
			return fmt.Errorf("output.path is required when output.mode is file")
		}
		if len(cfg.Output.FourCC) != 4 {
			return fmt.Errorf("output.fourcc must be 4 characters, got %q", cfg.Output.FourCC)
		}
	case "ffmpeg":
		if cfg.Output.Path == "" {
			return fmt.Errorf("output.path is required when output.mode is ffmpeg")
		}
		if cfg.Output.FFmpegPath == "" {
			cfg.Output.FFmpegPath = "ffmpeg"
		}
	case "none":
	default:
		return fmt.Errorf("output.mode must be file, ffmpeg or none, got %q", cfg.Output.Mode)
	}

	switch cfg.Detector.Backend {
	case "", "auto":
		cfg.Detector.Backend = "auto"
	case "cpu", "gpu":
	default:
		return fmt.Errorf("detector.backend must be auto, cpu or gpu, got %q", cfg.Detector.Backend)
	}
	if cfg.Detector.InputSize <= 0 {
		cfg.Detector.InputSize = 640
	}
	if cfg.Detector.ConfThreshold < 0 || cfg.Detector.ConfThreshold > 1 {
		return fmt.Errorf("detector.conf_threshold must be within [0,1], got %v", cfg.Detector.ConfThreshold)
	}

	if cfg.Focus.Capacity <= 0 {
		cfg.Focus.Capacity = 50
	}
	if cfg.Focus.SnapshotDir == "" {
		cfg.Focus.SnapshotDir = "snapshots"
	}
	if cfg.Focus.JPEGQuality <= 0 || cfg.Focus.JPEGQuality > 100 {
		cfg.Focus.JPEGQuality = 95
	}

	if cfg.Logo.X < 0 || cfg.Logo.Y < 0 {
		return fmt.Errorf("logo offset must be non-negative, got (%d,%d)", cfg.Logo.X, cfg.Logo.Y)
	}

	// Style keys arrive lowercased from viper; overlay matches categories
	// case-insensitively. An empty kind means rounded.
	for name, s := range cfg.Styles {
		switch strings.ToLower(s.Kind) {
		case "", "rounded", "dashed", "ellipse":
		default:
			return fmt.Errorf("styles.%s.kind must be rounded, dashed or ellipse, got %q", name, s.Kind)
		}
		if !hexColorPattern.MatchString(s.Color) {
			return fmt.Errorf("styles.%s.color must be #RRGGBB, got %q", name, s.Color)
		}
		if s.Thickness < 0 || s.CornerRadius < 0 || s.DashLength < 0 {
			return fmt.Errorf("styles.%s has a negative size parameter", name)
		}
	}

	return nil
}
