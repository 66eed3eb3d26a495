package overlay

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"gocv.io/x/gocv"

	"scopecam/config"
	"scopecam/detection"
	"scopecam/taxonomy"
)

func testLookup() *taxonomy.Lookup {
	return taxonomy.NewLookup(taxonomy.Taxonomy{
		{Name: "anatomy", Classes: []taxonomy.Class{{ID: 0, Name: "femur"}}},
		{Name: "findings", Classes: []taxonomy.Class{{ID: 1, Name: "lesion"}}},
	})
}

// TestLabel verifies the confidence is truncated, not rounded.
func TestLabel(t *testing.T) {
	tests := []struct {
		conf float64
		want string
	}{
		{0.876, "femur 87%"},
		{0.999, "femur 99%"},
		{1.0, "femur 100%"},
		{0.0, "femur 0%"},
	}
	for _, tt := range tests {
		if got := Label("femur", tt.conf); got != tt.want {
			t.Errorf("Expected %q, got %q", tt.want, got)
		}
	}
}

// TestAnnotateOrderAndFallback verifies detections are drawn in order with
// their category style, and unknown ids use the fallback style.
func TestAnnotateOrderAndFallback(t *testing.T) {
	a := NewAnnotator(testLookup(), DefaultRegistry(), nil)
	dets := []detection.Detection{
		{Box: image.Rect(10, 30, 60, 80), ClassID: 1, Confidence: 0.5},
		{Box: image.Rect(10, 30, 60, 80), ClassID: 42, Confidence: 0.75},
		{Box: image.Rect(10, 30, 60, 80), ClassID: 0, Confidence: 0.876},
		{Box: image.Rect(10, 30, 60, 80), ClassID: 0, Confidence: 0.876},
	}

	rec := &recorder{}
	res := a.annotate(rec, dets)
	if res.Drawn != 4 || res.Unknown != 1 {
		t.Errorf("Expected 4 drawn and 1 unknown, got %+v", res)
	}

	texts := rec.only("text")
	want := []string{"lesion 50%", "Unknown 75%", "femur 87%", "femur 87%"}
	if len(texts) != len(want) {
		t.Fatalf("Expected %d labels, got %d", len(want), len(texts))
	}
	for i, w := range want {
		if texts[i].text != w {
			t.Errorf("Label %d: expected %q, got %q", i, w, texts[i].text)
		}
	}
	if texts[0].color != Red || texts[1].color != White || texts[2].color != Green {
		t.Errorf("Unexpected label colors %v %v %v", texts[0].color, texts[1].color, texts[2].color)
	}
}

// TestAnnotateNilLookup verifies a missing taxonomy labels everything Unknown.
func TestAnnotateNilLookup(t *testing.T) {
	a := NewAnnotator(nil, nil, nil)
	frame := gocv.NewMatWithSize(100, 100, gocv.MatTypeCV8UC3)
	defer frame.Close()

	out, res := a.Annotate(&frame, []detection.Detection{{Box: image.Rect(5, 20, 50, 60), Confidence: 0.3}})
	if out != &frame {
		t.Error("Expected the same frame back")
	}
	if res.Unknown != 1 {
		t.Errorf("Expected 1 unknown, got %d", res.Unknown)
	}
}

// TestRegistryFromConfig verifies configured styles override the defaults.
func TestRegistryFromConfig(t *testing.T) {
	reg, err := RegistryFromConfig(map[string]config.StyleConfig{
		"anatomy": {Kind: "dashed", Color: "#FF00FF", DashLength: 4},
		"devices": {Kind: "ellipse", Color: "00ff00", Thickness: 2},
		"default": {Color: "#101010"},
	})
	if err != nil {
		t.Fatalf("RegistryFromConfig failed: %v", err)
	}

	d, ok := reg.Resolve("anatomy").(DashedBox)
	if !ok {
		t.Fatalf("Expected DashedBox for anatomy, got %T", reg.Resolve("anatomy"))
	}
	if d.DashLength != 4 || d.CornerRadius != DefaultCornerRadius || d.Color.R != 0xFF || d.Color.B != 0xFF {
		t.Errorf("Unexpected anatomy style %+v", d)
	}
	if e, ok := reg.Resolve("devices").(Ellipse); !ok || e.Thickness != 2 {
		t.Errorf("Unexpected devices style %+v", reg.Resolve("devices"))
	}
	if _, ok := reg.Resolve("findings").(Ellipse); !ok {
		t.Error("Expected built-in findings style to survive")
	}
	if fb, ok := reg.Resolve("nope").(RoundedBox); !ok || fb.Color.R != 0x10 {
		t.Errorf("Unexpected fallback %+v", reg.Resolve("nope"))
	}
}

// TestRegistryFromYAML verifies styles loaded and validated from a config
// file resolve for taxonomy categories regardless of case.
func TestRegistryFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scopecam.yaml")
	content := `
input:
  path: clip.mp4
output:
  path: out.mp4
styles:
  default:
    color: "#101010"
  Findings:
    kind: dashed
    color: "#00ff00"
    dash_length: 3
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	reg, err := RegistryFromConfig(cfg.Styles)
	if err != nil {
		t.Fatalf("RegistryFromConfig failed: %v", err)
	}

	for _, category := range []string{"Findings", "findings", "FINDINGS"} {
		if d, ok := reg.Resolve(category).(DashedBox); !ok || d.DashLength != 3 {
			t.Errorf("Expected configured DashedBox for %q, got %+v", category, reg.Resolve(category))
		}
	}
	if _, ok := reg.Resolve("Anatomy").(RoundedBox); !ok {
		t.Errorf("Expected built-in anatomy style for Anatomy, got %T", reg.Resolve("Anatomy"))
	}
	if fb, ok := reg.Fallback().(RoundedBox); !ok || fb.Color.R != 0x10 {
		t.Errorf("Expected configured fallback, got %+v", reg.Fallback())
	}
	if reg.Len() != 4 {
		t.Errorf("Expected 4 categories, got %d", reg.Len())
	}
}

// TestRegistryFromConfigErrors verifies bad kinds and colours are rejected.
func TestRegistryFromConfigErrors(t *testing.T) {
	bad := []config.StyleConfig{
		{Kind: "circle", Color: "#FFFFFF"},
		{Kind: "rounded", Color: "#FFF"},
		{Kind: "rounded", Color: "#GGGGGG"},
	}
	for _, sc := range bad {
		if _, err := RegistryFromConfig(map[string]config.StyleConfig{"x": sc}); err == nil {
			t.Errorf("Expected error for %+v", sc)
		}
	}
}

// TestNewRegistryCopies verifies the registry does not alias its input map.
func TestNewRegistryCopies(t *testing.T) {
	in := map[string]Style{"a": NewEllipse(Red)}
	reg := NewRegistry(in, nil)
	in["a"] = NewEllipse(Blue)
	delete(in, "a")

	if e, ok := reg.Resolve("a").(Ellipse); !ok || e.Color != Red {
		t.Errorf("Expected registry to keep its own copy, got %+v", reg.Resolve("a"))
	}
	if _, ok := reg.Fallback().(RoundedBox); !ok {
		t.Errorf("Expected RoundedBox fallback, got %T", reg.Fallback())
	}
}
