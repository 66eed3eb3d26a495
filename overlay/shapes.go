package overlay

import (
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"
)

const (
	DefaultThickness    = 1
	DefaultCornerRadius = 10
	DefaultDashLength   = 10

	labelOffsetX = 5
	labelOffsetY = 10
)

// Style is one of RoundedBox, DashedBox or Ellipse. Draw mutates frame in
// place; coordinates outside the canvas are clipped by OpenCV.
type Style interface {
	Draw(frame *gocv.Mat, box image.Rectangle, label string)
	draw(s surface, x1, y1, x2, y2 int, label string)
}

// RoundedBox is a rectangle with quarter-circle corners.
type RoundedBox struct {
	Color        color.RGBA
	Thickness    int
	CornerRadius int
}

// DashedBox is a RoundedBox whose straight edges are dashed.
type DashedBox struct {
	Color        color.RGBA
	Thickness    int
	CornerRadius int
	DashLength   int
}

// Ellipse is an ellipse inscribed in the box.
type Ellipse struct {
	Color     color.RGBA
	Thickness int
}

func NewRoundedBox(c color.RGBA) RoundedBox {
	return RoundedBox{Color: c, Thickness: DefaultThickness, CornerRadius: DefaultCornerRadius}
}

func NewDashedBox(c color.RGBA) DashedBox {
	return DashedBox{Color: c, Thickness: DefaultThickness, CornerRadius: DefaultCornerRadius, DashLength: DefaultDashLength}
}

func NewEllipse(c color.RGBA) Ellipse {
	return Ellipse{Color: c, Thickness: DefaultThickness}
}

func (b RoundedBox) Draw(frame *gocv.Mat, box image.Rectangle, label string) {
	b.draw(matSurface{frame}, box.Min.X, box.Min.Y, box.Max.X, box.Max.Y, label)
}

func (b RoundedBox) draw(s surface, x1, y1, x2, y2 int, label string) {
	r := b.CornerRadius
	t := stroke(b.Thickness)

	s.line(image.Pt(x1+r, y1), image.Pt(x2-r, y1), b.Color, t)
	s.line(image.Pt(x1+r, y2), image.Pt(x2-r, y2), b.Color, t)
	s.line(image.Pt(x1, y1+r), image.Pt(x1, y2-r), b.Color, t)
	s.line(image.Pt(x2, y1+r), image.Pt(x2, y2-r), b.Color, t)

	drawCorners(s, x1, y1, x2, y2, r, b.Color, t)
	drawLabel(s, label, x1+labelOffsetX, y1-labelOffsetY, b.Color, t)
}

func (b DashedBox) Draw(frame *gocv.Mat, box image.Rectangle, label string) {
	b.draw(matSurface{frame}, box.Min.X, box.Min.Y, box.Max.X, box.Max.Y, label)
}

func (b DashedBox) draw(s surface, x1, y1, x2, y2 int, label string) {
	r := b.CornerRadius
	t := stroke(b.Thickness)

	for _, edge := range dashedEdges(x1, y1, x2, y2, r) {
		for _, seg := range dashSegments(edge[0], edge[1], b.DashLength) {
			s.line(seg[0], seg[1], b.Color, t)
		}
	}

	drawCorners(s, x1, y1, x2, y2, r, b.Color, t)
	drawLabel(s, label, x1+labelOffsetX, y1-labelOffsetY, b.Color, t)
}

func (e Ellipse) Draw(frame *gocv.Mat, box image.Rectangle, label string) {
	e.draw(matSurface{frame}, box.Min.X, box.Min.Y, box.Max.X, box.Max.Y, label)
}

func (e Ellipse) draw(s surface, x1, y1, x2, y2 int, label string) {
	center := image.Pt((x1+x2)/2, (y1+y2)/2)
	axes := image.Pt((x2-x1)/2, (y2-y1)/2)
	s.arc(center, axes, 0, 0, 360, e.Color, stroke(e.Thickness))

	// ellipse labels sit flush with x1 and always use the base thickness
	drawLabel(s, label, x1, y1-labelOffsetY, e.Color, DefaultThickness)
}

// corner is one quarter arc: its center and the rotation that points the
// 0-90 degree sweep into the right quadrant.
type corner struct {
	center image.Point
	angle  float64
}

// cornerArcs returns top-left, top-right, bottom-left, bottom-right.
func cornerArcs(x1, y1, x2, y2, r int) [4]corner {
	return [4]corner{
		{image.Pt(x1+r, y1+r), 180},
		{image.Pt(x2-r, y1+r), 270},
		{image.Pt(x1+r, y2-r), 90},
		{image.Pt(x2-r, y2-r), 0},
	}
}

// drawCorners is shared by RoundedBox and DashedBox so both variants place
// identical arcs for the same box and radius.
func drawCorners(s surface, x1, y1, x2, y2, r int, c color.RGBA, thickness int) {
	axes := image.Pt(r, r)
	for _, k := range cornerArcs(x1, y1, x2, y2, r) {
		s.arc(k.center, axes, k.angle, 0, 90, c, thickness)
	}
}

func drawLabel(s surface, label string, x, y int, c color.RGBA, thickness int) {
	if label == "" {
		return
	}
	s.text(label, image.Pt(x, y), c, thickness)
}

// dashedEdges walks the box clockwise: top, right, bottom, left.
func dashedEdges(x1, y1, x2, y2, r int) [4][2]image.Point {
	return [4][2]image.Point{
		{image.Pt(x1+r, y1), image.Pt(x2-r, y1)},
		{image.Pt(x2, y1+r), image.Pt(x2, y2-r)},
		{image.Pt(x2-r, y2), image.Pt(x1+r, y2)},
		{image.Pt(x1, y2-r), image.Pt(x1, y1+r)},
	}
}

// dashSegments splits p1->p2 into dash-on / dash-off runs of d pixels and
// returns the "on" runs. The edge length is truncated to whole pixels and a
// dash that would reach or pass the endpoint is dropped, which leaves a gap
// of up to d pixels before the corner.
func dashSegments(p1, p2 image.Point, d int) [][2]image.Point {
	dx := float64(p2.X - p1.X)
	dy := float64(p2.Y - p1.Y)
	length := int(math.Hypot(dx, dy))
	if length <= 0 || d <= 0 {
		return nil
	}

	at := func(pos int) image.Point {
		f := float64(pos) / float64(length)
		return image.Pt(int(float64(p1.X)+f*dx), int(float64(p1.Y)+f*dy))
	}

	segs := make([][2]image.Point, 0, length/(2*d)+1)
	for i := 0; i+d < length; i += 2 * d {
		segs = append(segs, [2]image.Point{at(i), at(i + d)})
	}
	return segs
}

func stroke(t int) int {
	if t < 1 {
		return DefaultThickness
	}
	return t
}
