package detection

import (
	"image"
	"sync"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// ModelConfig describes the network files and decode parameters.
type ModelConfig struct {
	Weights       string  // .weights, .onnx, .pb ...
	Config        string  // darknet .cfg, empty for single-file formats
	InputSize     int     // square blob size fed to the network
	ConfThreshold float64 // minimum class score to keep a row
}

// yoloNet holds the state shared by the CPU and GPU providers. It only
// differs in the backend/target pair chosen at load time.
type yoloNet struct {
	net gocv.Net
	cfg ModelConfig
	mu  sync.Mutex
}

func (y *yoloNet) load(cfg ModelConfig, backend gocv.NetBackendType, target gocv.NetTargetType) error {
	if cfg.InputSize <= 0 {
		cfg.InputSize = 640
	}

	y.net = gocv.ReadNet(cfg.Weights, cfg.Config)
	if y.net.Empty() {
		return errors.Errorf("failed to load network from %q / %q", cfg.Weights, cfg.Config)
	}

	y.net.SetPreferableBackend(backend)
	y.net.SetPreferableTarget(target)
	y.cfg = cfg

	return nil
}

func (y *yoloNet) detect(frame gocv.Mat) ([]Detection, error) {
	if frame.Empty() {
		return nil, errors.New("empty frame")
	}

	y.mu.Lock()
	defer y.mu.Unlock()

	size := y.cfg.InputSize
	blob := gocv.BlobFromImage(frame, 1.0/255.0, image.Pt(size, size), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	y.net.SetInput(blob, "")

	output := y.net.Forward("")
	defer output.Close()

	return decodeRows(output, frame.Cols(), frame.Rows(), y.cfg.ConfThreshold), nil
}

func (y *yoloNet) close() error {
	return y.net.Close()
}

// decodeRows turns a [N x (5+classes)] YOLO output into detections in frame
// pixel space. Each row is cx, cy, w, h (normalized), objectness, then one
// score per class; the best class score is the confidence.
func decodeRows(output gocv.Mat, frameW, frameH int, threshold float64) []Detection {
	if output.Cols() <= 5 {
		return nil
	}

	var dets []Detection
	for i := 0; i < output.Rows(); i++ {
		row := output.RowRange(i, i+1)
		scores := row.ColRange(5, row.Cols())
		_, maxVal, _, maxLoc := gocv.MinMaxLoc(scores)
		scores.Close()

		confidence := float64(maxVal)
		if confidence <= threshold {
			row.Close()
			continue
		}

		cx := float64(row.GetFloatAt(0, 0)) * float64(frameW)
		cy := float64(row.GetFloatAt(0, 1)) * float64(frameH)
		w := float64(row.GetFloatAt(0, 2)) * float64(frameW)
		h := float64(row.GetFloatAt(0, 3)) * float64(frameH)
		row.Close()

		left := int(cx - w/2)
		top := int(cy - h/2)
		dets = append(dets, Detection{
			Box:        image.Rect(left, top, left+int(w), top+int(h)),
			ClassID:    maxLoc.X,
			Confidence: confidence,
		})
	}

	return dets
}
