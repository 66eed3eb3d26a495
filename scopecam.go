package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"scopecam/config"
	"scopecam/control"
	"scopecam/detection"
	"scopecam/logging"
	"scopecam/overlay"
	"scopecam/pipeline"
	"scopecam/pkg/ffmpeg"
	"scopecam/taxonomy"
	"scopecam/video"
)

// Command-line flags override the matching config values when given.
var (
	configPath  = flag.String("config", "", "YAML configuration file")
	inputPath   = flag.String("input", "", "Input video file, URL or capture device index\n\t\tExample: -input=procedure.mp4 or -input=0")
	outputPath  = flag.String("output", "", "Annotated output file or URL")
	modelPath   = flag.String("model", "", "Detector weights (.onnx, .weights, ...)")
	modelConfig = flag.String("model-config", "", "Detector network config (darknet .cfg)")
	classesPath = flag.String("classes", "", "Class taxonomy JSON or YAML (defaults to <model stem>.json)")
	logoPath    = flag.String("logo", "", "Logo image composited on every frame")
	logoX       = flag.Int("logo-x", 0, "Logo left offset in pixels")
	logoY       = flag.Int("logo-y", 0, "Logo top offset in pixels")
	snapshotDir = flag.String("snapshot-dir", "", "Directory for sharpest-frame snapshots")
	bufferSize  = flag.Int("buffer", 0, "Number of recent frames considered for a snapshot")
	realtime    = flag.Bool("realtime", false, "Pace processing at the source frame rate")
	listenAddr  = flag.String("listen", "", "Control API address, e.g. :8080 (empty disables)")
	debugMode   = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration Error: %v\n", err)
		os.Exit(1)
	}
	applyFlags(cfg)
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration Error: %v\n", err)
		flag.Usage()
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log.Mode, cfg.Log.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, logger)
	stop()

	if err != nil {
		logger.Error("scopecam failed", zap.Error(err))
		logging.Sync(logger)
		os.Exit(1)
	}
	logging.Sync(logger)
}

// applyFlags copies every flag that was set on the command line into cfg.
func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input":
			cfg.Input.Path = *inputPath
		case "output":
			cfg.Output.Path = *outputPath
		case "model":
			cfg.Detector.Model = *modelPath
		case "model-config":
			cfg.Detector.ModelConfig = *modelConfig
		case "classes":
			cfg.Taxonomy.Path = *classesPath
		case "logo":
			cfg.Logo.Path = *logoPath
		case "logo-x":
			cfg.Logo.X = *logoX
		case "logo-y":
			cfg.Logo.Y = *logoY
		case "snapshot-dir":
			cfg.Focus.SnapshotDir = *snapshotDir
		case "buffer":
			cfg.Focus.Capacity = *bufferSize
		case "realtime":
			cfg.Pipeline.Realtime = *realtime
		case "listen":
			cfg.Control.Listen = *listenAddr
		case "debug":
			cfg.Log.Debug = *debugMode
		}
	})
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	lookup := loadTaxonomy(cfg, logger)

	registry, err := overlay.RegistryFromConfig(cfg.Styles)
	if err != nil {
		return err
	}
	logger.Info("category styles ready", zap.Int("categories", registry.Len()))
	annotator := overlay.NewAnnotator(lookup, registry, logger)

	detector, err := openDetector(cfg, logger)
	if err != nil {
		return err
	}

	source, err := video.OpenSource(cfg.Input.Path)
	if err != nil {
		detector.Close()
		return err
	}
	logger.Info("input opened",
		zap.String("input", cfg.Input.Path),
		zap.Float64("fps", source.FPS()),
		zap.Int("width", source.Size().X),
		zap.Int("height", source.Size().Y))

	sink, err := openSink(cfg, source, logger)
	if err != nil {
		source.Close()
		detector.Close()
		return err
	}

	opts := pipeline.Options{
		Source:         source,
		Sink:           sink,
		Detector:       detector,
		Annotator:      annotator,
		LogoX:          cfg.Logo.X,
		LogoY:          cfg.Logo.Y,
		BufferCapacity: cfg.Focus.Capacity,
		SnapshotDir:    cfg.Focus.SnapshotDir,
		JPEGQuality:    cfg.Focus.JPEGQuality,
		Realtime:       cfg.Pipeline.Realtime,
		StatsInterval:  cfg.Pipeline.StatsInterval,
		Logger:         logger,
	}
	if cfg.Logo.Path != "" {
		logo, err := overlay.LoadLogo(cfg.Logo.Path)
		if err != nil {
			logger.Warn("logo disabled", zap.Error(err))
		} else {
			opts.Logo = &logo
		}
	}

	session, err := pipeline.NewSession(opts)
	if err != nil {
		return err
	}
	logger.Info("session started", zap.String("session_id", session.ID()))
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("release failed", zap.Error(err))
		}
	}()

	if cfg.Control.Listen != "" {
		server := control.NewServer(cfg.Control.Listen, session, logger)
		if err := server.Start(); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Warn("control API shutdown failed", zap.Error(err))
			}
		}()
	}

	if cfg.Pipeline.StdinTrigger {
		go watchStdin(os.Stdin, session, logger)
	}

	err = session.Run(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info("interrupted, shutting down")
		return nil
	}
	return err
}

// loadTaxonomy never fails: without a taxonomy every class resolves to
// Unknown.
func loadTaxonomy(cfg *config.Config, logger *zap.Logger) *taxonomy.Lookup {
	path := cfg.Taxonomy.Path
	if path == "" && cfg.Detector.Model != "" {
		if sidecar, ok := taxonomy.SidecarPath(cfg.Detector.Model); ok {
			path = sidecar
		}
	}
	if path == "" {
		logger.Warn("no class taxonomy; all detections will be labelled Unknown")
		return taxonomy.NewLookup(nil)
	}

	tax, err := taxonomy.Load(path)
	if err != nil {
		logger.Warn("class taxonomy unavailable", zap.String("path", path), zap.Error(err))
		return taxonomy.NewLookup(nil)
	}

	lookup := taxonomy.NewLookup(tax)
	for _, c := range lookup.Collisions() {
		logger.Warn("class id listed in more than one category",
			zap.Int("class_id", c.ID),
			zap.String("previous", c.Previous.Category),
			zap.String("current", c.Current.Category))
	}
	logger.Info("class taxonomy loaded", zap.String("path", path), zap.Int("classes", lookup.Len()))
	return lookup
}

func openDetector(cfg *config.Config, logger *zap.Logger) (detection.Detector, error) {
	if cfg.Detector.Model == "" {
		logger.Warn("no detector model configured; frames pass through unannotated")
		return detection.Nop{}, nil
	}

	pm := detection.NewProviderManager(logger)
	err := pm.Initialize(detection.ModelConfig{
		Weights:       cfg.Detector.Model,
		Config:        cfg.Detector.ModelConfig,
		InputSize:     cfg.Detector.InputSize,
		ConfThreshold: cfg.Detector.ConfThreshold,
	}, cfg.Detector.Backend)
	if err != nil {
		return nil, err
	}
	return pm, nil
}

func openSink(cfg *config.Config, source video.Source, logger *zap.Logger) (video.Sink, error) {
	switch cfg.Output.Mode {
	case "ffmpeg":
		return ffmpeg.NewSink(ffmpeg.Options{
			Binary: cfg.Output.FFmpegPath,
			Args:   cfg.Output.FFmpegArgs,
			Output: cfg.Output.Path,
			FPS:    source.FPS(),
			Size:   source.Size(),
		}, logger)
	case "none":
		return video.Discard{}, nil
	default:
		return video.NewFileSink(cfg.Output.Path, cfg.Output.FourCC, source.FPS(), source.Size())
	}
}

// watchStdin takes a snapshot for every empty line read from r.
func watchStdin(r io.Reader, session *pipeline.Session, logger *zap.Logger) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if scanner.Text() != "" {
			continue
		}
		if _, err := session.Snapshot(); err != nil {
			logger.Warn("snapshot not taken", zap.Error(err))
		}
	}
}
