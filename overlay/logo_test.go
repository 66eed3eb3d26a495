package overlay

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"gocv.io/x/gocv"
)

func blank(rows, cols int) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), rows, cols, gocv.MatTypeCV8UC3)
}

func nonZeroBytes(m gocv.Mat) int {
	n := 0
	for r := 0; r < m.Rows(); r++ {
		for c := 0; c < m.Cols()*m.Channels(); c++ {
			if m.GetUCharAt(r, c) != 0 {
				n++
			}
		}
	}
	return n
}

// TestOverlayCopiesBlock verifies the logo replaces exactly its footprint.
func TestOverlayCopiesBlock(t *testing.T) {
	frame := blank(10, 10)
	defer frame.Close()
	logo := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 128, 7, 0), 3, 4, gocv.MatTypeCV8UC3)
	defer logo.Close()

	if _, err := Overlay(&frame, logo, 2, 5); err != nil {
		t.Fatalf("Overlay failed: %v", err)
	}

	px := frame.GetVecbAt(5, 2)
	if px[0] != 255 || px[1] != 128 || px[2] != 7 {
		t.Errorf("Expected logo pixel at (2,5), got %v", px)
	}
	if n := nonZeroBytes(frame); n != 3*4*3 {
		t.Errorf("Expected %d changed bytes, got %d", 3*4*3, n)
	}
}

// TestOverlayExactFit verifies a logo touching the bottom-right edge fits.
func TestOverlayExactFit(t *testing.T) {
	frame := blank(10, 10)
	defer frame.Close()
	logo := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(1, 1, 1, 0), 3, 3, gocv.MatTypeCV8UC3)
	defer logo.Close()

	if _, err := Overlay(&frame, logo, 7, 7); err != nil {
		t.Errorf("Expected exact fit to succeed, got %v", err)
	}
}

// TestOverlayOutOfBounds verifies a logo that does not fit leaves the frame
// untouched.
func TestOverlayOutOfBounds(t *testing.T) {
	logo := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(9, 9, 9, 0), 3, 3, gocv.MatTypeCV8UC3)
	defer logo.Close()

	offsets := [][2]int{{8, 0}, {0, 8}, {-1, 0}, {0, -1}, {100, 100}}
	for _, o := range offsets {
		frame := blank(10, 10)
		_, err := Overlay(&frame, logo, o[0], o[1])
		if !errors.Is(err, ErrLogoOutOfBounds) {
			t.Errorf("Offset %v: expected ErrLogoOutOfBounds, got %v", o, err)
		}
		if n := nonZeroBytes(frame); n != 0 {
			t.Errorf("Offset %v: expected untouched frame, got %d changed bytes", o, n)
		}
		frame.Close()
	}
}

// TestOverlayChannelMismatch verifies a gray logo is rejected on a color frame.
func TestOverlayChannelMismatch(t *testing.T) {
	frame := blank(10, 10)
	defer frame.Close()
	logo := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(9, 0, 0, 0), 2, 2, gocv.MatTypeCV8U)
	defer logo.Close()

	if _, err := Overlay(&frame, logo, 0, 0); !errors.Is(err, ErrLogoOutOfBounds) {
		t.Errorf("Expected ErrLogoOutOfBounds, got %v", err)
	}
}

// TestLoadLogo verifies a written image reads back and a missing one errors.
func TestLoadLogo(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logo.png")

	src := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 255, 0), 4, 6, gocv.MatTypeCV8UC3)
	defer src.Close()
	if !gocv.IMWrite(path, src) {
		t.Fatal("IMWrite failed")
	}

	logo, err := LoadLogo(path)
	if err != nil {
		t.Fatalf("LoadLogo failed: %v", err)
	}
	defer logo.Close()
	if logo.Cols() != 6 || logo.Rows() != 4 {
		t.Errorf("Expected 6x4 logo, got %dx%d", logo.Cols(), logo.Rows())
	}

	if _, err := os.Stat(filepath.Join(dir, "missing.png")); err == nil {
		t.Fatal("missing.png should not exist")
	}
	if _, err := LoadLogo(filepath.Join(dir, "missing.png")); err == nil {
		t.Error("Expected error for missing logo")
	}
}
