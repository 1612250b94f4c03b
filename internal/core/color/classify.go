package color

const (
	achromaticMaxSaturation = 20
	lightMinLightness       = 66
	midMinLightness         = 33
)

// IsAchromatic reports whether the color is classified by lightness only.
func IsAchromatic(c HSL) bool {
	return c.S <= achromaticMaxSaturation
}

// Classify maps an HSL color to its refined catalog entry.
func Classify(c HSL) NamedColor {
	if IsAchromatic(c) {
		switch {
		case c.L >= lightMinLightness:
			return achromaticColors[achromaticLight]
		case c.L >= midMinLightness:
			return achromaticColors[achromaticMid]
		default:
			return achromaticColors[achromaticDark]
		}
	}

	for _, candidate := range chromaticColors {
		if candidate.HueRange.Contains(c.H) {
			return detach(candidate)
		}
	}
	return detach(chromaticColors[0])
}

func detach(c NamedColor) NamedColor {
	if c.HueRange != nil {
		band := *c.HueRange
		c.HueRange = &band
	}
	return c
}

// Analysis is the complete outcome of classifying one image.
type Analysis struct {
	Primary      RGB        `json:"primary_color"`
	Refined      NamedColor `json:"refined_color"`
	Brand        BrandColor `json:"brand_color"`
	ExtractedHex string     `json:"extracted_hex"`
	Hue          int        `json:"hue"`
	Saturation   int        `json:"saturation"`
	Lightness    int        `json:"lightness"`
	IsAchromatic bool       `json:"is_achromatic"`
}

// Analyze classifies a dominant color and keeps every intermediate value.
func Analyze(c RGB) Analysis {
	hsl := RGBToHSL(c)
	refined := Classify(hsl)
	return Analysis{
		Primary:      c,
		Refined:      refined,
		Brand:        BrandOf(refined),
		ExtractedHex: RGBToHex(c),
		Hue:          hsl.H,
		Saturation:   hsl.S,
		Lightness:    hsl.L,
		IsAchromatic: IsAchromatic(hsl),
	}
}
