package config

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type Config struct {
	Log      LogConfig              `mapstructure:"log"`
	Input    InputConfig            `mapstructure:"input"`
	Output   OutputConfig           `mapstructure:"output"`
	Detector DetectorConfig         `mapstructure:"detector"`
	Taxonomy TaxonomyConfig         `mapstructure:"taxonomy"`
	Logo     LogoConfig             `mapstructure:"logo"`
	Focus    FocusConfig            `mapstructure:"focus"`
	Styles   map[string]StyleConfig `mapstructure:"styles"`
	Control  ControlConfig          `mapstructure:"control"`
	Pipeline PipelineConfig         `mapstructure:"pipeline"`
}

type LogConfig struct {
	Mode  string `mapstructure:"mode"` // release or debug
	Debug bool   `mapstructure:"debug"`
}

type InputConfig struct {
	Path string `mapstructure:"path"` // file, URL, or capture device index
}

type OutputConfig struct {
	Path       string   `mapstructure:"path"`
	Mode       string   `mapstructure:"mode"` // file, ffmpeg, none
	FourCC     string   `mapstructure:"fourcc"`
	FFmpegPath string   `mapstructure:"ffmpeg_path"`
	FFmpegArgs []string `mapstructure:"ffmpeg_args"` // encoder args placed between the stdin input and the output path
}

type DetectorConfig struct {
	Model         string  `mapstructure:"model"`
	ModelConfig   string  `mapstructure:"model_config"`
	Backend       string  `mapstructure:"backend"` // auto, cpu, gpu
	InputSize     int     `mapstructure:"input_size"`
	ConfThreshold float64 `mapstructure:"conf_threshold"`
}

type TaxonomyConfig struct {
	Path string `mapstructure:"path"`
}

type LogoConfig struct {
	Path string `mapstructure:"path"`
	X    int    `mapstructure:"x"`
	Y    int    `mapstructure:"y"`
}

type FocusConfig struct {
	Capacity    int    `mapstructure:"capacity"`
	SnapshotDir string `mapstructure:"snapshot_dir"`
	JPEGQuality int    `mapstructure:"jpeg_quality"`
}

// StyleConfig describes one category style. Kind is rounded, dashed or ellipse.
type StyleConfig struct {
	Kind         string `mapstructure:"kind"`
	Color        string `mapstructure:"color"` // #RRGGBB
	Thickness    int    `mapstructure:"thickness"`
	CornerRadius int    `mapstructure:"corner_radius"`
	DashLength   int    `mapstructure:"dash_length"`
}

type ControlConfig struct {
	Listen string `mapstructure:"listen"` // empty disables the HTTP API
}

type PipelineConfig struct {
	Realtime      bool          `mapstructure:"realtime"`
	StatsInterval time.Duration `mapstructure:"stats_interval"`
	StdinTrigger  bool          `mapstructure:"stdin_trigger"`
}

// Load reads a YAML config file on top of the defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("log.mode", d.Log.Mode)
	v.SetDefault("log.debug", d.Log.Debug)

	v.SetDefault("output.mode", d.Output.Mode)
	v.SetDefault("output.fourcc", d.Output.FourCC)
	v.SetDefault("output.ffmpeg_path", d.Output.FFmpegPath)
	v.SetDefault("output.ffmpeg_args", d.Output.FFmpegArgs)

	v.SetDefault("detector.backend", d.Detector.Backend)
	v.SetDefault("detector.input_size", d.Detector.InputSize)
	v.SetDefault("detector.conf_threshold", d.Detector.ConfThreshold)

	v.SetDefault("focus.capacity", d.Focus.Capacity)
	v.SetDefault("focus.snapshot_dir", d.Focus.SnapshotDir)
	v.SetDefault("focus.jpeg_quality", d.Focus.JPEGQuality)

	v.SetDefault("pipeline.realtime", d.Pipeline.Realtime)
	v.SetDefault("pipeline.stats_interval", d.Pipeline.StatsInterval)
	v.SetDefault("pipeline.stdin_trigger", d.Pipeline.StdinTrigger)
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Mode: "debug",
		},
		Output: OutputConfig{
			Mode:       "file",
			FourCC:     "mp4v",
			FFmpegPath: "ffmpeg",
			FFmpegArgs: []string{"-c:v", "libx264", "-preset", "veryfast", "-pix_fmt", "yuv420p"},
		},
		Detector: DetectorConfig{
			Backend:       "auto",
			InputSize:     640,
			ConfThreshold: 0.25,
		},
		Focus: FocusConfig{
			Capacity:    50,
			SnapshotDir: "snapshots",
			JPEGQuality: 95,
		},
		Pipeline: PipelineConfig{
			StatsInterval: 15 * time.Second,
		},
	}
}
