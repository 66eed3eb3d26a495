package overlay

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"scopecam/config"
)

// FallbackCategory is the styles key that replaces the registry fallback.
const FallbackCategory = "default"

// Colors as seen on screen; gocv hands them to OpenCV in BGR order.
var (
	Green  = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	Red    = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	Yellow = color.RGBA{R: 255, G: 255, B: 0, A: 255}
	Blue   = color.RGBA{R: 0, G: 0, B: 255, A: 255}
	White  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// Registry maps a category name to the style its detections are drawn with.
type Registry struct {
	styles   map[string]Style
	fallback Style
}

// NewRegistry copies styles; later changes to the map do not affect it.
// Category names are matched case-insensitively.
func NewRegistry(styles map[string]Style, fallback Style) *Registry {
	m := make(map[string]Style, len(styles))
	for k, v := range styles {
		m[strings.ToLower(k)] = v
	}
	if fallback == nil {
		fallback = NewRoundedBox(White)
	}
	return &Registry{styles: m, fallback: fallback}
}

// DefaultRegistry returns the built-in category styles.
func DefaultRegistry() *Registry {
	return NewRegistry(map[string]Style{
		"anatomy":   NewRoundedBox(Green),
		"findings":  NewEllipse(Red),
		"quality":   NewDashedBox(Yellow),
		"artifacts": NewEllipse(Blue),
	}, NewRoundedBox(White))
}

// Resolve returns the style for category, or the fallback.
func (r *Registry) Resolve(category string) Style {
	if s, ok := r.styles[strings.ToLower(category)]; ok {
		return s
	}
	return r.fallback
}

// Fallback returns the style used for unregistered categories.
func (r *Registry) Fallback() Style {
	return r.fallback
}

// Len returns the number of registered categories.
func (r *Registry) Len() int {
	return len(r.styles)
}

// RegistryFromConfig starts from DefaultRegistry and overrides or extends it
// with the configured styles. The "default" key replaces the fallback.
func RegistryFromConfig(styles map[string]config.StyleConfig) (*Registry, error) {
	base := DefaultRegistry()
	m := make(map[string]Style, len(base.styles)+len(styles))
	for k, v := range base.styles {
		m[k] = v
	}
	fallback := base.fallback

	for name, sc := range styles {
		s, err := StyleFromConfig(sc)
		if err != nil {
			return nil, fmt.Errorf("style %q: %w", name, err)
		}
		if strings.EqualFold(name, FallbackCategory) {
			fallback = s
			continue
		}
		m[strings.ToLower(name)] = s
	}
	return NewRegistry(m, fallback), nil
}

// StyleFromConfig builds one style. Zero numeric fields take the defaults.
func StyleFromConfig(sc config.StyleConfig) (Style, error) {
	c, err := parseHexColor(sc.Color)
	if err != nil {
		return nil, err
	}

	thickness := orDefault(sc.Thickness, DefaultThickness)
	radius := orDefault(sc.CornerRadius, DefaultCornerRadius)

	switch strings.ToLower(sc.Kind) {
	case "", "rounded":
		return RoundedBox{Color: c, Thickness: thickness, CornerRadius: radius}, nil
	case "dashed":
		return DashedBox{
			Color:        c,
			Thickness:    thickness,
			CornerRadius: radius,
			DashLength:   orDefault(sc.DashLength, DefaultDashLength),
		}, nil
	case "ellipse":
		return Ellipse{Color: c, Thickness: thickness}, nil
	default:
		return nil, fmt.Errorf("unknown style kind %q", sc.Kind)
	}
}

// parseHexColor parses "#RRGGBB" (the "#" is optional).
func parseHexColor(hexColor string) (color.RGBA, error) {
	hexColor = strings.TrimPrefix(strings.TrimSpace(hexColor), "#")
	if len(hexColor) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid hex color format: %q", hexColor)
	}

	rgb, err := strconv.ParseUint(hexColor, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("failed to parse hex color %s: %v", hexColor, err)
	}

	return color.RGBA{
		R: uint8((rgb >> 16) & 0xFF),
		G: uint8((rgb >> 8) & 0xFF),
		B: uint8(rgb & 0xFF),
		A: 255,
	}, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
