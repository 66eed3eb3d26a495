package overlay

import (
	"fmt"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"scopecam/detection"
	"scopecam/logging"
	"scopecam/taxonomy"
)

// AnnotateResult counts what one Annotate call drew.
type AnnotateResult struct {
	Drawn   int
	Unknown int
}

// Annotator draws detections with the style registered for their category.
type Annotator struct {
	lookup   *taxonomy.Lookup
	registry *Registry
	logger   *zap.Logger
}

// NewAnnotator builds an annotator. A nil lookup labels everything Unknown,
// a nil registry uses DefaultRegistry.
func NewAnnotator(lookup *taxonomy.Lookup, registry *Registry, logger *zap.Logger) *Annotator {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Annotator{
		lookup:   lookup,
		registry: registry,
		logger:   logging.OrNop(logger).Named("annotator"),
	}
}

// Annotate draws every detection onto frame in the order given and returns
// the same frame.
func (a *Annotator) Annotate(frame *gocv.Mat, dets []detection.Detection) (*gocv.Mat, AnnotateResult) {
	res := a.annotate(matSurface{frame}, dets)
	return frame, res
}

func (a *Annotator) annotate(s surface, dets []detection.Detection) AnnotateResult {
	var res AnnotateResult
	for _, d := range dets {
		category, name := a.lookup.Resolve(d.ClassID)
		if name == taxonomy.Unknown {
			res.Unknown++
			a.logger.Debug("unknown class id", zap.Int("class_id", d.ClassID))
		}

		style := a.registry.Resolve(category)
		style.draw(s, d.Box.Min.X, d.Box.Min.Y, d.Box.Max.X, d.Box.Max.Y, Label(name, d.Confidence))
		res.Drawn++
	}
	return res
}

// Label formats "<name> <pct>%" with the percentage truncated, never rounded.
func Label(name string, confidence float64) string {
	return fmt.Sprintf("%s %d%%", name, int(confidence*100))
}
