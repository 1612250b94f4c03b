// Package color turns uploaded images into a dominant color and classifies
// that color into the exhibition palette.
package color

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RGB is an 8-bit color triple.
type RGB struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// HSL holds hue in degrees [0,360) and saturation/lightness in percent.
type HSL struct {
	H int `json:"h"`
	S int `json:"s"`
	L int `json:"l"`
}

// RGBToHSL converts with integer rounding on every component.
func RGBToHSL(c RGB) HSL {
	r := float64(clampChannel(c.R)) / 255.0
	g := float64(clampChannel(c.G)) / 255.0
	b := float64(clampChannel(c.B)) / 255.0

	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	l := (maxC + minC) / 2

	if maxC == minC {
		return HSL{H: 0, S: 0, L: int(math.Round(l * 100))}
	}

	delta := maxC - minC
	var s float64
	if l > 0.5 {
		s = delta / (2 - maxC - minC)
	} else {
		s = delta / (maxC + minC)
	}

	var h float64
	switch maxC {
	case r:
		h = (g - b) / delta
		if g < b {
			h += 6
		}
	case g:
		h = (b-r)/delta + 2
	default:
		h = (r-g)/delta + 4
	}
	h /= 6

	hue := int(math.Round(h*360)) % 360
	if hue < 0 {
		hue += 360
	}
	return HSL{
		H: hue,
		S: int(math.Round(s * 100)),
		L: int(math.Round(l * 100)),
	}
}

// RGBToHex renders #RRGGBB in upper case.
func RGBToHex(c RGB) string {
	return fmt.Sprintf("#%02X%02X%02X", clampChannel(c.R), clampChannel(c.G), clampChannel(c.B))
}

// ParseHex accepts #RGB and #RRGGBB, with or without the leading '#'.
func ParseHex(raw string) (RGB, error) {
	value := strings.TrimPrefix(strings.TrimSpace(raw), "#")
	if len(value) == 3 {
		value = string([]byte{value[0], value[0], value[1], value[1], value[2], value[2]})
	}
	if len(value) != 6 {
		return RGB{}, wrap(ErrInvalidHex, "parse hex", fmt.Errorf("unexpected length in %q", raw))
	}
	n, err := strconv.ParseUint(value, 16, 32)
	if err != nil {
		return RGB{}, wrap(ErrInvalidHex, "parse hex", err)
	}
	return RGB{
		R: int(n>>16) & 0xFF,
		G: int(n>>8) & 0xFF,
		B: int(n) & 0xFF,
	}, nil
}

func clampChannel(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return v
	}
}
