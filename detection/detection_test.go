package detection

import (
	"errors"
	"image"
	"testing"

	"gocv.io/x/gocv"
)

type fakeProvider struct {
	kind      string
	initErr   error
	detectErr error
	closed    bool
	dets      []Detection
}

func (f *fakeProvider) Initialize(ModelConfig) error { return f.initErr }
func (f *fakeProvider) Detect(gocv.Mat) ([]Detection, error) {
	return f.dets, f.detectErr
}
func (f *fakeProvider) Close() error { f.closed = true; return nil }
func (f *fakeProvider) GetProviderInfo() ProviderInfo {
	return ProviderInfo{Type: f.kind}
}

func newTestManager(gpu, cpu *fakeProvider, capable bool) *ProviderManager {
	pm := NewProviderManager(nil)
	pm.gpuCapable = func() bool { return capable }
	pm.newGPU = func() InferenceProvider { return gpu }
	pm.newCPU = func() InferenceProvider { return cpu }
	return pm
}

// TestDecodeRows verifies normalized YOLO rows map to frame pixels.
func TestDecodeRows(t *testing.T) {
	out := gocv.NewMatWithSize(2, 8, gocv.MatTypeCV32F)
	defer out.Close()

	// row 0: centered box 0.5x0.5, class 1 scores 0.9
	vals := [][]float32{
		{0.5, 0.5, 0.5, 0.5, 0.95, 0.1, 0.9, 0.0},
		{0.1, 0.1, 0.1, 0.1, 0.20, 0.1, 0.1, 0.2},
	}
	for r, row := range vals {
		for c, v := range row {
			out.SetFloatAt(r, c, v)
		}
	}

	dets := decodeRows(out, 200, 100, 0.25)
	if len(dets) != 1 {
		t.Fatalf("Expected 1 detection, got %d", len(dets))
	}
	d := dets[0]
	if d.ClassID != 1 {
		t.Errorf("Expected class 1, got %d", d.ClassID)
	}
	if want := image.Rect(50, 25, 150, 75); d.Box != want {
		t.Errorf("Expected box %v, got %v", want, d.Box)
	}
	if d.Confidence < 0.89 || d.Confidence > 0.91 {
		t.Errorf("Expected confidence ~0.9, got %v", d.Confidence)
	}
}

// TestDecodeRowsNarrowOutput verifies outputs without class columns are ignored.
func TestDecodeRowsNarrowOutput(t *testing.T) {
	out := gocv.NewMatWithSize(3, 5, gocv.MatTypeCV32F)
	defer out.Close()
	if dets := decodeRows(out, 10, 10, 0); dets != nil {
		t.Errorf("Expected no detections, got %v", dets)
	}
}

// TestManagerFallsBackToCPU verifies a failing GPU provider hands over to CPU.
func TestManagerFallsBackToCPU(t *testing.T) {
	gpu := &fakeProvider{kind: "GPU", detectErr: errors.New("no CUDA")}
	cpu := &fakeProvider{kind: "CPU", dets: []Detection{{ClassID: 3}}}
	pm := newTestManager(gpu, cpu, true)

	if err := pm.Initialize(ModelConfig{InputSize: 32}, "auto"); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if !gpu.closed {
		t.Error("Expected failed GPU provider to be closed")
	}
	if pm.GetProviderInfo().Type != "CPU" {
		t.Errorf("Expected CPU provider, got %s", pm.GetProviderInfo().Type)
	}

	frame := gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8UC3)
	defer frame.Close()
	dets, err := pm.Detect(frame)
	if err != nil || len(dets) != 1 || dets[0].ClassID != 3 {
		t.Errorf("Unexpected detect result %v, %v", dets, err)
	}
}

// TestManagerPrefersGPU verifies a working GPU provider is kept.
func TestManagerPrefersGPU(t *testing.T) {
	gpu := &fakeProvider{kind: "GPU"}
	cpu := &fakeProvider{kind: "CPU"}
	pm := newTestManager(gpu, cpu, true)

	if err := pm.Initialize(ModelConfig{InputSize: 32}, "auto"); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if pm.GetProvider() != InferenceProvider(gpu) {
		t.Error("Expected GPU provider to be active")
	}
}

// TestManagerForcedGPU verifies "gpu" does not silently fall back.
func TestManagerForcedGPU(t *testing.T) {
	gpu := &fakeProvider{kind: "GPU", initErr: errors.New("no device")}
	pm := newTestManager(gpu, &fakeProvider{kind: "CPU"}, false)

	if err := pm.Initialize(ModelConfig{}, "gpu"); err == nil {
		t.Fatal("Expected error when GPU is forced and unavailable")
	}
}

// TestManagerForcedCPU verifies "cpu" skips the GPU probe.
func TestManagerForcedCPU(t *testing.T) {
	pm := newTestManager(nil, &fakeProvider{kind: "CPU"}, true)
	pm.newGPU = func() InferenceProvider {
		t.Fatal("GPU provider should not be constructed")
		return nil
	}
	if err := pm.Initialize(ModelConfig{}, "cpu"); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
}

// TestManagerWithoutProvider verifies Detect fails before Initialize.
func TestManagerWithoutProvider(t *testing.T) {
	pm := NewProviderManager(nil)
	frame := gocv.NewMat()
	defer frame.Close()
	if _, err := pm.Detect(frame); err == nil {
		t.Error("Expected error without provider")
	}
	if err := pm.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

// TestNop verifies the no-op detector.
func TestNop(t *testing.T) {
	var d Detector = Nop{}
	frame := gocv.NewMat()
	defer frame.Close()
	dets, err := d.Detect(frame)
	if err != nil || len(dets) != 0 {
		t.Errorf("Expected nothing, got %v, %v", dets, err)
	}
}
