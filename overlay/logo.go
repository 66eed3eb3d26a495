package overlay

import (
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// ErrLogoOutOfBounds is returned when the logo does not fit the frame at the
// requested offset. The frame is left untouched.
var ErrLogoOutOfBounds = errors.New("logo does not fit inside the frame")

// Overlay copies logo onto frame with its top-left corner at (x, y). Pixels
// are replaced outright; there is no alpha blending.
func Overlay(frame *gocv.Mat, logo gocv.Mat, x, y int) (*gocv.Mat, error) {
	if logo.Empty() {
		return frame, errors.New("empty logo")
	}

	w, h := logo.Cols(), logo.Rows()
	if x < 0 || y < 0 || x+w > frame.Cols() || y+h > frame.Rows() {
		return frame, ErrLogoOutOfBounds
	}
	if logo.Channels() != frame.Channels() {
		return frame, errors.Wrapf(ErrLogoOutOfBounds, "logo has %d channels, frame has %d",
			logo.Channels(), frame.Channels())
	}

	roi := frame.Region(image.Rect(x, y, x+w, y+h))
	defer roi.Close()
	logo.CopyTo(&roi)

	return frame, nil
}

// LoadLogo reads a logo as 3-channel BGR.
func LoadLogo(path string) (gocv.Mat, error) {
	logo := gocv.IMRead(path, gocv.IMReadColor)
	if logo.Empty() {
		logo.Close()
		return gocv.NewMat(), errors.Errorf("could not read logo %s", path)
	}
	return logo, nil
}
