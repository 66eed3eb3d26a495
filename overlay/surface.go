package overlay

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

const (
	labelFont  = gocv.FontHersheySimplex
	labelScale = 0.5
)

// surface is the set of primitives the styles draw with. matSurface is the
// real one; tests substitute a recorder.
type surface interface {
	line(pt1, pt2 image.Point, c color.RGBA, thickness int)
	arc(center, axes image.Point, angle, startAngle, endAngle float64, c color.RGBA, thickness int)
	text(s string, org image.Point, c color.RGBA, thickness int)
}

type matSurface struct {
	m *gocv.Mat
}

func (s matSurface) line(pt1, pt2 image.Point, c color.RGBA, thickness int) {
	gocv.Line(s.m, pt1, pt2, c, thickness)
}

func (s matSurface) arc(center, axes image.Point, angle, startAngle, endAngle float64, c color.RGBA, thickness int) {
	// OpenCV asserts on negative axes
	if axes.X < 0 || axes.Y < 0 {
		return
	}
	gocv.EllipseWithParams(s.m, center, axes, angle, startAngle, endAngle, c, thickness, gocv.LineAA, 0)
}

func (s matSurface) text(str string, org image.Point, c color.RGBA, thickness int) {
	gocv.PutTextWithParams(s.m, str, org, labelFont, labelScale, c, thickness, gocv.LineAA, false)
}
