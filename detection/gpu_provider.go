package detection

import (
	"gocv.io/x/gocv"
)

// GPUProvider implements YOLO inference using the OpenCV CUDA backend
type GPUProvider struct {
	yoloNet
}

// Initialize loads the network and asks for the CUDA backend. OpenCV only
// reports a missing CUDA build at the first forward pass, so the manager
// runs a test inference before trusting this provider.
func (gp *GPUProvider) Initialize(cfg ModelConfig) error {
	return gp.load(cfg, gocv.NetBackendCUDA, gocv.NetTargetCUDA)
}

// Detect performs object detection on a frame using GPU
func (gp *GPUProvider) Detect(frame gocv.Mat) ([]Detection, error) {
	return gp.detect(frame)
}

// Close releases resources used by the GPU provider
func (gp *GPUProvider) Close() error {
	return gp.close()
}

// GetProviderInfo returns information about the GPU provider
func (gp *GPUProvider) GetProviderInfo() ProviderInfo {
	return ProviderInfo{
		Type:         "GPU",
		Backend:      "OpenCV CUDA",
		Device:       "NVIDIA GPU",
		EstimatedFPS: 200,
		MemoryUsage:  "~2GB VRAM",
	}
}
