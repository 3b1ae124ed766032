package anim

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is an interpolation-friendly RGBA value with channels in [0,1].
type Color struct {
	R, G, B, A float64
}

// ParseHexColor accepts #rgb, #rrggbb and #rrggbbaa notations.
func ParseHexColor(s string) (Color, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(h) {
	case 3:
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	case 6, 8:
	default:
		return Color{}, fmt.Errorf("not a hex color: %q", s)
	}
	v, err := strconv.ParseUint(h[:6], 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("not a hex color: %q", s)
	}
	c := Color{
		R: float64(v>>16&0xff) / 255,
		G: float64(v>>8&0xff) / 255,
		B: float64(v&0xff) / 255,
		A: 1,
	}
	if len(h) == 8 {
		a, err := strconv.ParseUint(h[6:], 16, 16)
		if err != nil {
			return Color{}, fmt.Errorf("not a hex color: %q", s)
		}
		c.A = float64(a) / 255
	}
	return c, nil
}

// Hex renders the color as #rrggbb, dropping alpha - SVG carries opacity in a
// separate attribute.
func (c Color) Hex() string {
	clamp := func(v float64) int {
		if v < 0 {
			return 0
		}
		if v > 1 {
			return 255
		}
		return int(v*255 + 0.5)
	}
	return fmt.Sprintf("#%02x%02x%02x", clamp(c.R), clamp(c.G), clamp(c.B))
}

// LerpColor interpolates per channel; t is expected in [0,1].
func LerpColor(a, b Color, t float64) Color {
	return Color{
		R: a.R + (b.R-a.R)*t,
		G: a.G + (b.G-a.G)*t,
		B: a.B + (b.B-a.B)*t,
		A: a.A + (b.A-a.A)*t,
	}
}
