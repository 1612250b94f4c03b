package color

// BrandName identifies one of the three exhibition brand colors.
type BrandName string

const (
	BrandPink   BrandName = "pink"
	BrandYellow BrandName = "yellow"
	BrandOrange BrandName = "orange"
)

// BrandColor is the hex triple a brand color is rendered with.
type BrandColor struct {
	Name  BrandName `json:"name"`
	Hex   string    `json:"hex"`
	Light string    `json:"light"`
	Dark  string    `json:"dark"`
}

// HueRange is an inclusive band in degrees. Min > Max wraps through 0.
type HueRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Contains reports whether h falls in the band. 360 is treated as 0.
func (r HueRange) Contains(h int) bool {
	if h == 360 {
		h = 0
	}
	if r.Min <= r.Max {
		return h >= r.Min && h <= r.Max
	}
	return h >= r.Min || h <= r.Max
}

// Wraps reports whether the band crosses the 0/360 boundary.
func (r HueRange) Wraps() bool {
	return r.Min > r.Max
}

// NamedColor is a refined, human-readable color label.
type NamedColor struct {
	Name     string    `json:"name"`
	Hex      string    `json:"hex"`
	HueRange *HueRange `json:"hue_range,omitempty"`
	Brand    BrandName `json:"brand"`
}

var brandColors = map[BrandName]BrandColor{
	BrandPink:   {Name: BrandPink, Hex: "#FF7EB6", Light: "#FFD1E6", Dark: "#D9478A"},
	BrandYellow: {Name: BrandYellow, Hex: "#FFD23F", Light: "#FFF0B8", Dark: "#D9A600"},
	BrandOrange: {Name: BrandOrange, Hex: "#FF5E1F", Light: "#FFBFA3", Dark: "#CC3F0A"},
}

var brandOrder = []BrandName{BrandPink, BrandYellow, BrandOrange}

// Declaration order matters: a hue on a shared boundary resolves to the
// earlier entry.
var chromaticColors = []NamedColor{
	{Name: "Vermilion Red", Hex: "#E8352B", HueRange: &HueRange{Min: 345, Max: 15}, Brand: BrandOrange},
	{Name: "Tangerine", Hex: "#F5892A", HueRange: &HueRange{Min: 15, Max: 45}, Brand: BrandOrange},
	{Name: "Marigold", Hex: "#F2C230", HueRange: &HueRange{Min: 45, Max: 75}, Brand: BrandYellow},
	{Name: "Chartreuse", Hex: "#B4D335", HueRange: &HueRange{Min: 75, Max: 105}, Brand: BrandYellow},
	{Name: "Leaf Green", Hex: "#4CB944", HueRange: &HueRange{Min: 105, Max: 135}, Brand: BrandYellow},
	{Name: "Jade", Hex: "#2FB383", HueRange: &HueRange{Min: 135, Max: 165}, Brand: BrandYellow},
	{Name: "Aqua", Hex: "#2BBFC4", HueRange: &HueRange{Min: 165, Max: 195}, Brand: BrandOrange},
	{Name: "Sky Blue", Hex: "#3A9BE0", HueRange: &HueRange{Min: 195, Max: 225}, Brand: BrandOrange},
	{Name: "Cobalt", Hex: "#2F5BD6", HueRange: &HueRange{Min: 225, Max: 255}, Brand: BrandPink},
	{Name: "Violet", Hex: "#6A3FD1", HueRange: &HueRange{Min: 255, Max: 285}, Brand: BrandPink},
	{Name: "Orchid", Hex: "#B23FCF", HueRange: &HueRange{Min: 285, Max: 315}, Brand: BrandPink},
	{Name: "Fuchsia", Hex: "#E03A9C", HueRange: &HueRange{Min: 315, Max: 345}, Brand: BrandPink},
}

const (
	achromaticLight = iota
	achromaticMid
	achromaticDark
)

var achromaticColors = []NamedColor{
	achromaticLight: {Name: "Cloud White", Hex: "#EDEDED", Brand: BrandYellow},
	achromaticMid:   {Name: "Stone Gray", Hex: "#8C8C8C", Brand: BrandPink},
	achromaticDark:  {Name: "Ink Black", Hex: "#262626", Brand: BrandOrange},
}

// Palette is a read-only view of every catalog.
type Palette struct {
	Brands     []BrandColor `json:"brands"`
	Chromatic  []NamedColor `json:"chromatic"`
	Achromatic []NamedColor `json:"achromatic"`
}

// Catalog returns copies of the fixed catalogs.
func Catalog() Palette {
	brands := make([]BrandColor, 0, len(brandOrder))
	for _, name := range brandOrder {
		brands = append(brands, brandColors[name])
	}
	return Palette{
		Brands:     brands,
		Chromatic:  copyColors(chromaticColors),
		Achromatic: copyColors(achromaticColors),
	}
}

// BrandOf returns the brand color a named color maps to.
func BrandOf(c NamedColor) BrandColor {
	if brand, ok := brandColors[c.Brand]; ok {
		return brand
	}
	return brandColors[brandOrder[0]]
}

func copyColors(in []NamedColor) []NamedColor {
	out := make([]NamedColor, len(in))
	for i, c := range in {
		out[i] = detach(c)
	}
	return out
}
