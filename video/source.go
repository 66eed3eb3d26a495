package video

import (
	"image"
	"strconv"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// DefaultFPS is used when the container does not report a frame rate.
const DefaultFPS = 25.0

// maxConsecutiveSkips bounds how many unusable frames in a row are tolerated
// before the stream is treated as ended.
const maxConsecutiveSkips = 300

// ErrStreamEnded is returned by Next once the input is exhausted.
var ErrStreamEnded = errors.New("video stream ended")

// Source yields decoded BGR frames.
type Source interface {
	// Next reads the next usable frame into dst.
	Next(dst *gocv.Mat) error
	FPS() float64
	Size() image.Point
	Close() error
}

var _ Source = (*CaptureSource)(nil)

// CaptureSource reads from an OpenCV capture device, file or URL.
type CaptureSource struct {
	capture *gocv.VideoCapture
	fps     float64
	size    image.Point
	skipped int
}

// OpenSource opens input as a device index when it is an integer and as a
// file path or URL otherwise.
func OpenSource(input string) (*CaptureSource, error) {
	if input == "" {
		return nil, errors.New("no input given")
	}

	var (
		capture *gocv.VideoCapture
		err     error
	)
	if id, convErr := strconv.Atoi(input); convErr == nil {
		capture, err = gocv.VideoCaptureDevice(id)
	} else {
		capture, err = gocv.VideoCaptureFile(input)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "open input %s", input)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, errors.Errorf("input %s could not be opened", input)
	}

	fps := capture.Get(gocv.VideoCaptureFPS)
	if fps <= 0 {
		fps = DefaultFPS
	}

	return &CaptureSource{
		capture: capture,
		fps:     fps,
		size: image.Pt(
			int(capture.Get(gocv.VideoCaptureFrameWidth)),
			int(capture.Get(gocv.VideoCaptureFrameHeight)),
		),
	}, nil
}

// Next skips empty and non-CV_8UC3 frames.
func (s *CaptureSource) Next(dst *gocv.Mat) error {
	for run := 0; run < maxConsecutiveSkips; run++ {
		if ok := s.capture.Read(dst); !ok {
			return ErrStreamEnded
		}
		if dst.Empty() || dst.Type() != gocv.MatTypeCV8UC3 || dst.Channels() != 3 {
			s.skipped++
			continue
		}
		if s.size.X == 0 || s.size.Y == 0 {
			s.size = image.Pt(dst.Cols(), dst.Rows())
		}
		return nil
	}
	return errors.Wrapf(ErrStreamEnded, "%d unusable frames in a row", maxConsecutiveSkips)
}

func (s *CaptureSource) FPS() float64 { return s.fps }

func (s *CaptureSource) Size() image.Point { return s.size }

// Skipped returns how many frames were dropped as unusable.
func (s *CaptureSource) Skipped() int { return s.skipped }

func (s *CaptureSource) Close() error {
	return s.capture.Close()
}
