package video

import (
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// DefaultFourCC is the codec used for file output.
const DefaultFourCC = "mp4v"

// Sink consumes annotated frames.
type Sink interface {
	Write(frame gocv.Mat) error
	Close() error
}

var (
	_ Sink = (*FileSink)(nil)
	_ Sink = Discard{}
)

// FileSink encodes frames to a local video file.
type FileSink struct {
	writer *gocv.VideoWriter
	path   string
}

// NewFileSink opens path for writing at the given frame rate and size.
func NewFileSink(path, fourcc string, fps float64, size image.Point) (*FileSink, error) {
	if fourcc == "" {
		fourcc = DefaultFourCC
	}
	if size.X <= 0 || size.Y <= 0 {
		return nil, errors.Errorf("invalid output size %dx%d", size.X, size.Y)
	}

	w, err := gocv.VideoWriterFile(path, fourcc, fps, size.X, size.Y, true)
	if err != nil {
		return nil, errors.Wrapf(err, "open output %s", path)
	}
	if !w.IsOpened() {
		w.Close()
		return nil, errors.Errorf("output %s could not be opened with codec %s", path, fourcc)
	}
	return &FileSink{writer: w, path: path}, nil
}

func (s *FileSink) Write(frame gocv.Mat) error {
	if err := s.writer.Write(frame); err != nil {
		return errors.Wrapf(err, "write %s", s.path)
	}
	return nil
}

func (s *FileSink) Close() error {
	return s.writer.Close()
}

// Discard drops every frame.
type Discard struct{}

func (Discard) Write(gocv.Mat) error { return nil }
func (Discard) Close() error         { return nil }
