package color

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const bucketStep = 10

// DefaultMaxPixels is 40 megapixels, above any phone camera upload.
const DefaultMaxPixels = 40_000_000

// ExtractOptions tunes dominant color sampling. Zero values fall back to
// DefaultExtractOptions.
type ExtractOptions struct {
	MaxDimension   int
	AlphaThreshold int
	MinBrightness  int
	MaxBrightness  int
	// MaxPixels caps width*height checked from the image header before the
	// bitmap is decoded.
	MaxPixels int
}

func DefaultExtractOptions() ExtractOptions {
	return ExtractOptions{
		MaxDimension:   100,
		AlphaThreshold: 125,
		MinBrightness:  20,
		MaxBrightness:  235,
		MaxPixels:      DefaultMaxPixels,
	}
}

func (o ExtractOptions) normalize() ExtractOptions {
	out := o
	def := DefaultExtractOptions()

	if out.MaxDimension <= 0 {
		out.MaxDimension = def.MaxDimension
	}
	if out.AlphaThreshold <= 0 || out.AlphaThreshold > 255 {
		out.AlphaThreshold = def.AlphaThreshold
	}
	if out.MinBrightness <= 0 {
		out.MinBrightness = def.MinBrightness
	}
	if out.MaxBrightness <= 0 || out.MaxBrightness > 255 {
		out.MaxBrightness = def.MaxBrightness
	}
	if out.MaxPixels <= 0 {
		out.MaxPixels = def.MaxPixels
	}
	if out.MaxBrightness < out.MinBrightness {
		out.MinBrightness, out.MaxBrightness = def.MinBrightness, def.MaxBrightness
	}
	return out
}

// Decode reads JPEG, PNG, GIF, BMP or WebP data. The header is checked
// first and images above maxPixels are rejected without allocating the
// bitmap. maxPixels <= 0 means DefaultMaxPixels.
func Decode(r io.Reader, maxPixels int) (image.Image, string, error) {
	if r == nil {
		return nil, "", wrap(ErrImageLoad, "decode image", errors.New("nil reader"))
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}

	var head bytes.Buffer
	cfg, _, err := image.DecodeConfig(io.TeeReader(r, &head))
	if err != nil {
		return nil, "", wrap(ErrImageLoad, "decode image", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return nil, "", wrap(ErrImageLoad, "decode image",
			fmt.Errorf("image is %dx%d, limit is %d pixels", cfg.Width, cfg.Height, maxPixels))
	}

	img, format, err := image.Decode(io.MultiReader(&head, r))
	if err != nil {
		return nil, "", wrap(ErrImageLoad, "decode image", err)
	}
	return img, format, nil
}

// ExtractDominantColor returns the most frequent quantized color after
// dropping transparent, near-black and near-white pixels.
func ExtractDominantColor(img image.Image, opts ExtractOptions) (RGB, error) {
	if img == nil {
		return RGB{}, wrap(ErrNoColorData, "extract dominant color", errors.New("nil image"))
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return RGB{}, wrap(ErrNoColorData, "extract dominant color", errors.New("image has no pixels"))
	}

	cfg := opts.normalize()
	sampled := downsample(img, cfg.MaxDimension)

	counts := make(map[RGB]int)
	order := make([]RGB, 0, 64)
	sb := sampled.Bounds()
	for y := sb.Min.Y; y < sb.Max.Y; y++ {
		for x := sb.Min.X; x < sb.Max.X; x++ {
			px := sampled.NRGBAAt(x, y)
			if int(px.A) < cfg.AlphaThreshold {
				continue
			}
			brightness := (int(px.R) + int(px.G) + int(px.B)) / 3
			if brightness < cfg.MinBrightness || brightness > cfg.MaxBrightness {
				continue
			}
			key := RGB{R: quantize(px.R), G: quantize(px.G), B: quantize(px.B)}
			if _, seen := counts[key]; !seen {
				order = append(order, key)
			}
			counts[key]++
		}
	}

	if len(order) == 0 {
		return centerPixel(img), nil
	}

	best := order[0]
	for _, key := range order[1:] {
		if counts[key] > counts[best] {
			best = key
		}
	}
	return best, nil
}

// Analyzer decodes uploads and classifies their dominant color.
type Analyzer struct {
	options ExtractOptions
}

func NewAnalyzer(options ExtractOptions) *Analyzer {
	return &Analyzer{options: options.normalize()}
}

func (a *Analyzer) AnalyzeImage(ctx context.Context, r io.Reader) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	img, _, err := Decode(r, a.options.MaxPixels)
	if err != nil {
		return Analysis{}, err
	}
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	dominant, err := ExtractDominantColor(img, a.options)
	if err != nil {
		return Analysis{}, err
	}
	return Analyze(dominant), nil
}

// AnalyzeBytes is AnalyzeImage over an in-memory upload.
func (a *Analyzer) AnalyzeBytes(ctx context.Context, data []byte) (Analysis, error) {
	if len(data) == 0 {
		return Analysis{}, wrap(ErrImageLoad, "analyze image", fmt.Errorf("empty image"))
	}
	return a.AnalyzeImage(ctx, bytes.NewReader(data))
}

func downsample(img image.Image, maxDim int) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > maxDim || h > maxDim {
		if w >= h {
			h = max(1, h*maxDim/w)
			w = maxDim
		} else {
			w = max(1, w*maxDim/h)
			h = maxDim
		}
	}

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
		return dst
	}
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

func centerPixel(img image.Image) RGB {
	b := img.Bounds()
	cx := b.Min.X + b.Dx()/2
	cy := b.Min.Y + b.Dy()/2
	px := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	draw.Draw(px, px.Bounds(), img, image.Pt(cx, cy), draw.Src)
	c := px.NRGBAAt(0, 0)
	return RGB{R: int(c.R), G: int(c.G), B: int(c.B)}
}

func quantize(v uint8) int {
	q := (int(v) + bucketStep/2) / bucketStep * bucketStep
	if q > 255 {
		return 255
	}
	return q
}
