package detection

import (
	"image"

	"gocv.io/x/gocv"
)

// Detection is one object instance reported by a detector.
type Detection struct {
	Box        image.Rectangle
	ClassID    int
	Confidence float64 // 0.0-1.0
}

// Detector produces the detections for a single frame. Implementations do
// not retain the frame.
type Detector interface {
	Detect(frame gocv.Mat) ([]Detection, error)
	Close() error
}

// Nop is a Detector that never reports anything. Used when no model is configured.
type Nop struct{}

func (Nop) Detect(gocv.Mat) ([]Detection, error) { return nil, nil }
func (Nop) Close() error                         { return nil }
