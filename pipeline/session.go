package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"scopecam/detection"
	"scopecam/focus"
	"scopecam/logging"
	"scopecam/overlay"
	"scopecam/video"
)

const (
	defaultSnapshotDir = "snapshots"
	defaultJPEGQuality = 95
)

// Options wires a Session. Source, Sink and Annotator are required.
type Options struct {
	Source    video.Source
	Sink      video.Sink
	Detector  detection.Detector // nil means no detections
	Annotator *overlay.Annotator

	// Logo is composited on every frame when non-nil. The session takes
	// ownership and closes it.
	Logo  *gocv.Mat
	LogoX int
	LogoY int

	BufferCapacity int
	SnapshotDir    string
	JPEGQuality    int

	Realtime      bool
	StatsInterval time.Duration

	Logger *zap.Logger
}

// SnapshotResult describes one saved sharpest frame.
type SnapshotResult struct {
	Path           string  `json:"path"`
	Score          float64 `json:"score"`
	FramesBuffered int     `json:"frames_buffered"`
}

// Status is what the control API reports.
type Status struct {
	SessionID      string        `json:"session_id"`
	Stats          StatsSnapshot `json:"stats"`
	FramesBuffered int           `json:"frames_buffered"`
	BufferCapacity int           `json:"buffer_capacity"`
	FPS            float64       `json:"source_fps"`
}

// Session runs the read, detect, annotate, write loop for one input.
type Session struct {
	source    video.Source
	sink      video.Sink
	detector  detection.Detector
	annotator *overlay.Annotator
	logo      *gocv.Mat
	logoAt    [2]int

	buffer      *focus.FrameBuffer
	snapshotDir string
	jpegQuality int

	realtime      bool
	statsInterval time.Duration

	id     string
	stats  *Stats
	logger *zap.Logger
	frame  gocv.Mat

	logoWarned bool
	snapMu     sync.Mutex
	closeOnce  sync.Once
	now        func() time.Time
}

type skipCounter interface {
	Skipped() int
}

func NewSession(opts Options) (*Session, error) {
	if opts.Source == nil {
		return nil, errors.New("pipeline: source is required")
	}
	if opts.Sink == nil {
		return nil, errors.New("pipeline: sink is required")
	}
	if opts.Annotator == nil {
		return nil, errors.New("pipeline: annotator is required")
	}
	if opts.Detector == nil {
		opts.Detector = detection.Nop{}
	}
	if opts.SnapshotDir == "" {
		opts.SnapshotDir = defaultSnapshotDir
	}
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = defaultJPEGQuality
	}

	id := uuid.New().String()
	return &Session{
		id:            id,
		source:        opts.Source,
		sink:          opts.Sink,
		detector:      opts.Detector,
		annotator:     opts.Annotator,
		logo:          opts.Logo,
		logoAt:        [2]int{opts.LogoX, opts.LogoY},
		buffer:        focus.NewFrameBuffer(opts.BufferCapacity),
		snapshotDir:   opts.SnapshotDir,
		jpegQuality:   opts.JPEGQuality,
		realtime:      opts.Realtime,
		statsInterval: opts.StatsInterval,
		stats:         NewStats(),
		logger:        logging.OrNop(opts.Logger).Named("pipeline").With(zap.String("session", id[:8])),
		frame:         gocv.NewMat(),
		now:           time.Now,
	}, nil
}

// Step processes exactly one frame. It returns video.ErrStreamEnded once
// the source is exhausted.
func (s *Session) Step() error {
	if err := s.source.Next(&s.frame); err != nil {
		return err
	}
	s.stats.UpdateRead()
	if sc, ok := s.source.(skipCounter); ok {
		s.stats.SetSkipped(int64(sc.Skipped()))
	}

	start := time.Now()
	dets, err := s.detector.Detect(s.frame)
	s.stats.UpdateDetect(time.Since(start), err != nil)
	if err != nil {
		s.logger.Warn("detection failed, passing frame through", zap.Error(err))
	} else {
		start = time.Now()
		_, res := s.annotator.Annotate(&s.frame, dets)
		s.stats.UpdateAnnotate(time.Since(start), res.Unknown)
	}

	if s.logo != nil {
		if _, err := overlay.Overlay(&s.frame, *s.logo, s.logoAt[0], s.logoAt[1]); err != nil {
			s.stats.UpdateLogoSkip()
			if !s.logoWarned {
				s.logger.Warn("logo skipped",
					zap.Error(err),
					zap.Int("x", s.logoAt[0]),
					zap.Int("y", s.logoAt[1]),
					zap.Int("frame_w", s.frame.Cols()),
					zap.Int("frame_h", s.frame.Rows()))
				s.logoWarned = true
			}
		}
	}

	start = time.Now()
	if err := s.sink.Write(s.frame); err != nil {
		return errors.Wrap(err, "write frame")
	}
	s.stats.UpdateWrite(time.Since(start))

	s.buffer.Push(s.frame)
	return nil
}

// Run steps until the stream ends (nil) or ctx is cancelled (ctx.Err()).
// Cancellation is only observed between frames.
func (s *Session) Run(ctx context.Context) error {
	var pace <-chan time.Time
	if s.realtime {
		interval := FrameInterval(s.source.FPS())
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		pace = ticker.C
		s.logger.Info("realtime pacing enabled", zap.Duration("interval", interval))
	}

	var report <-chan time.Time
	if s.statsInterval > 0 {
		ticker := time.NewTicker(s.statsInterval)
		defer ticker.Stop()
		report = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			s.logStats()
			return ctx.Err()
		default:
		}

		if pace != nil {
			select {
			case <-ctx.Done():
				s.logStats()
				return ctx.Err()
			case <-pace:
			}
		}

		select {
		case <-report:
			s.logStats()
			s.stats.Reset()
		default:
		}

		err := s.Step()
		if errors.Is(err, video.ErrStreamEnded) {
			s.logger.Info("stream ended")
			s.logStats()
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// FrameInterval is 1000ms / fps, falling back to video.DefaultFPS.
func FrameInterval(fps float64) time.Duration {
	if fps <= 0 {
		fps = video.DefaultFPS
	}
	return time.Duration(float64(time.Second) / fps)
}

// Snapshot saves the sharpest buffered frame as a JPEG. It may be called
// from any goroutine and returns focus.ErrEmptyBuffer when nothing has been
// buffered yet.
func (s *Session) Snapshot() (SnapshotResult, error) {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()

	best, score, err := s.buffer.Sharpest()
	if err != nil {
		return SnapshotResult{}, err
	}
	defer best.Close()

	if err := os.MkdirAll(s.snapshotDir, 0o755); err != nil {
		return SnapshotResult{}, errors.Wrapf(err, "create snapshot dir %s", s.snapshotDir)
	}

	name := fmt.Sprintf("sharpest_%s_%s.jpg", s.now().Format("20060102_150405"), uuid.New().String()[:8])
	path := filepath.Join(s.snapshotDir, name)
	if !gocv.IMWriteWithParams(path, best, []int{int(gocv.IMWriteJpegQuality), s.jpegQuality}) {
		return SnapshotResult{}, errors.Errorf("failed to write snapshot %s", path)
	}

	s.stats.UpdateSnapshot()
	res := SnapshotResult{Path: path, Score: score, FramesBuffered: s.buffer.Len()}
	s.logger.Info("saved sharpest frame",
		zap.String("path", res.Path),
		zap.Float64("score", res.Score),
		zap.Int("frames_buffered", res.FramesBuffered))
	return res, nil
}

func (s *Session) Status() Status {
	return Status{
		SessionID:      s.id,
		Stats:          s.stats.Snapshot(),
		FramesBuffered: s.buffer.Len(),
		BufferCapacity: s.buffer.Cap(),
		FPS:            s.source.FPS(),
	}
}

// ID is the random identifier the session logs under.
func (s *Session) ID() string {
	return s.id
}

// Close releases every resource the session owns. It is safe to call more
// than once; the first error is returned.
func (s *Session) Close() error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}

	s.closeOnce.Do(func() {
		keep(s.source.Close())
		keep(s.sink.Close())
		keep(s.detector.Close())
		if s.logo != nil {
			keep(s.logo.Close())
		}
		s.buffer.Close()
		keep(s.frame.Close())
	})
	return first
}

func (s *Session) logStats() {
	st := s.stats.Snapshot()
	s.logger.Info("pipeline stats",
		zap.Int64("read", st.FramesRead),
		zap.Int64("annotated", st.FramesAnnotated),
		zap.Int64("written", st.FramesWritten),
		zap.Int64("skipped", st.FramesSkipped),
		zap.Int64("detect_failures", st.DetectFailures),
		zap.Int64("logo_skips", st.LogoSkips),
		zap.Int64("unknown_labels", st.UnknownLabels),
		zap.Int64("snapshots", st.Snapshots),
		zap.Duration("avg_detect", st.AvgDetect),
		zap.Duration("avg_annotate", st.AvgAnnotate),
		zap.Duration("avg_write", st.AvgWrite),
		zap.Float64("fps", st.ProcessFPS),
		zap.Int("buffered", s.buffer.Len()))
}
