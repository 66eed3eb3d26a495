package ffmpeg

import (
	"fmt"
	"image"
	"io"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

const crashDumpLines = 100

// Options describes one ffmpeg encoding process fed with raw BGR frames.
type Options struct {
	Binary string   // defaults to "ffmpeg"
	Args   []string // encoder args between the stdin input and Output
	Output string   // file path or URL
	FPS    float64
	Size   image.Point
}

// Sink pipes raw bgr24 frames into ffmpeg's stdin.
type Sink struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	monitor *Monitor
	size    image.Point
	logger  *zap.Logger
	closed  bool
}

// BuildArgs returns the ffmpeg command line for opts, without the binary.
func BuildArgs(opts Options) []string {
	args := []string{
		"-hide_banner",
		"-loglevel", "info",
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "bgr24",
		"-s", fmt.Sprintf("%dx%d", opts.Size.X, opts.Size.Y),
		"-r", fmt.Sprintf("%g", opts.FPS),
		"-i", "-",
	}
	args = append(args, opts.Args...)

	if strings.HasPrefix(opts.Output, "rtmp://") && !hasFlag(opts.Args, "-f") {
		args = append(args, "-f", "flv")
	}
	return append(args, opts.Output)
}

// NewSink starts ffmpeg. Its stderr is followed by a Monitor.
func NewSink(opts Options, logger *zap.Logger) (*Sink, error) {
	if opts.Output == "" {
		return nil, errors.New("ffmpeg output is empty")
	}
	if opts.Size.X <= 0 || opts.Size.Y <= 0 {
		return nil, errors.Errorf("invalid frame size %dx%d", opts.Size.X, opts.Size.Y)
	}
	if opts.Binary == "" {
		opts.Binary = "ffmpeg"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("ffmpeg")

	cmd := exec.Command(opts.Binary, BuildArgs(opts)...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create stdin pipe")
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create stderr pipe")
	}

	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "failed to start %s", opts.Binary)
	}
	logger.Info("ffmpeg started",
		zap.Int("pid", cmd.Process.Pid),
		zap.String("output", opts.Output))

	monitor := NewMonitor(logger, crashDumpLines)
	go monitor.Follow(stderr)

	return &Sink{
		cmd:     cmd,
		stdin:   stdin,
		monitor: monitor,
		size:    opts.Size,
		logger:  logger,
	}, nil
}

// Write sends one frame. Frames must match the size the sink was opened with.
func (s *Sink) Write(frame gocv.Mat) error {
	if s.closed {
		return errors.New("ffmpeg sink is closed")
	}
	if frame.Cols() != s.size.X || frame.Rows() != s.size.Y || frame.Type() != gocv.MatTypeCV8UC3 {
		return errors.Errorf("frame %dx%d does not match sink %dx%d bgr24",
			frame.Cols(), frame.Rows(), s.size.X, s.size.Y)
	}
	if !s.monitor.Healthy() {
		s.monitor.DumpCrashInfo("repeated timestamp errors")
		return errors.New("ffmpeg reported repeated timestamp errors")
	}

	if _, err := s.stdin.Write(frame.ToBytes()); err != nil {
		s.monitor.DumpCrashInfo(err.Error())
		return errors.Wrap(err, "write frame to ffmpeg")
	}
	return nil
}

// Close flushes stdin and waits for ffmpeg to finish encoding.
func (s *Sink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.stdin.Close(); err != nil {
		s.logger.Warn("closing ffmpeg stdin failed", zap.Error(err))
	}
	s.monitor.Wait()

	if err := s.cmd.Wait(); err != nil {
		s.monitor.DumpCrashInfo(err.Error())
		return errors.Wrap(err, "ffmpeg exited with error")
	}

	frame, _ := s.monitor.Progress()
	s.logger.Info("ffmpeg finished", zap.Int("frames", frame))
	return nil
}

func hasFlag(args []string, flag string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}
