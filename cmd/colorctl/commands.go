package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/kirillkom/movement-studio/internal/core/color"
)

// CLI is the colorctl command tree.
type CLI struct {
	Format string `help:"Output format: table or json" enum:"table,json" default:"table" short:"f"`

	Analyze  AnalyzeCmd  `cmd:"" help:"Extract and classify the dominant color of an image"`
	Classify ClassifyCmd `cmd:"" help:"Classify a hex or HSL color"`
	Catalog  CatalogCmd  `cmd:"" help:"Print the brand and refined color catalogs"`

	out io.Writer `kong:"-"`
}

func (c *CLI) writer() io.Writer {
	if c.out == nil {
		return os.Stdout
	}
	return c.out
}

func (c *CLI) printJSON(v any) error {
	enc := json.NewEncoder(c.writer())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

type AnalyzeCmd struct {
	Path           string `arg:"" help:"Image file (png, jpeg, gif, webp, bmp)" type:"existingfile"`
	MaxDimension   int    `help:"Downsample bound in pixels" default:"100"`
	AlphaThreshold int    `help:"Pixels at or below this alpha are skipped" default:"125"`
	MinBrightness  int    `help:"Skip pixels darker than this average" default:"20"`
	MaxBrightness  int    `help:"Skip pixels brighter than this average" default:"235"`
	MaxPixels      int    `help:"Refuse images whose header declares more pixels" default:"40000000"`
}

func (a *AnalyzeCmd) Run(cli *CLI) error {
	f, err := os.Open(a.Path)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	analyzer := color.NewAnalyzer(color.ExtractOptions{
		MaxDimension:   a.MaxDimension,
		AlphaThreshold: a.AlphaThreshold,
		MinBrightness:  a.MinBrightness,
		MaxBrightness:  a.MaxBrightness,
		MaxPixels:      a.MaxPixels,
	})
	analysis, err := analyzer.AnalyzeImage(context.Background(), f)
	if err != nil {
		return err
	}
	if cli.Format == "json" {
		return cli.printJSON(analysis)
	}
	return printAnalysis(cli.writer(), analysis)
}

type ClassifyCmd struct {
	Hex string `help:"Color as #RRGGBB or #RGB" xor:"input"`
	H   int    `help:"Hue in degrees (0-360)" name:"h" xor:"input" default:"-1"`
	S   int    `help:"Saturation in percent (0-100)" name:"s"`
	L   int    `help:"Lightness in percent (0-100)" name:"l"`
}

func (c *ClassifyCmd) Validate() error {
	if c.Hex == "" && c.H < 0 {
		return errors.New("either --hex or --h/--s/--l is required")
	}
	if c.Hex == "" {
		if c.H > 360 {
			return errors.New("--h must be within 0..360")
		}
		if c.S < 0 || c.S > 100 || c.L < 0 || c.L > 100 {
			return errors.New("--s and --l must be within 0..100")
		}
	}
	return nil
}

func (c *ClassifyCmd) Run(cli *CLI) error {
	if c.Hex != "" {
		rgb, err := color.ParseHex(c.Hex)
		if err != nil {
			return err
		}
		analysis := color.Analyze(rgb)
		if cli.Format == "json" {
			return cli.printJSON(analysis)
		}
		return printAnalysis(cli.writer(), analysis)
	}

	hsl := color.HSL{H: c.H % 360, S: c.S, L: c.L}
	refined := color.Classify(hsl)
	brand := color.BrandOf(refined)
	if cli.Format == "json" {
		return cli.printJSON(map[string]any{
			"hsl":           hsl,
			"refined_color": refined,
			"brand_color":   brand,
			"is_achromatic": color.IsAchromatic(hsl),
		})
	}
	w := tabwriter.NewWriter(cli.writer(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "HSL\t%d, %d%%, %d%%\n", hsl.H, hsl.S, hsl.L)
	fmt.Fprintf(w, "REFINED\t%s (%s)\t%s\n", refined.Name, refined.Hex, swatch(refined.Hex))
	fmt.Fprintf(w, "BRAND\t%s (%s)\t%s\n", brand.Name, brand.Hex, swatch(brand.Hex))
	fmt.Fprintf(w, "ACHROMATIC\t%t\n", color.IsAchromatic(hsl))
	return w.Flush()
}

type CatalogCmd struct{}

func (c *CatalogCmd) Run(cli *CLI) error {
	palette := color.Catalog()
	if cli.Format == "json" {
		return cli.printJSON(palette)
	}

	w := tabwriter.NewWriter(cli.writer(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BRAND\tHEX\tLIGHT\tDARK\t")
	for _, b := range palette.Brands {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s%s%s\n", b.Name, b.Hex, b.Light, b.Dark, swatch(b.Light), swatch(b.Hex), swatch(b.Dark))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "REFINED\tHEX\tHUE\tBRAND\t")
	for _, nc := range palette.Chromatic {
		fmt.Fprintf(w, "%s\t%s\t%d-%d\t%s\t%s\n", nc.Name, nc.Hex, nc.HueRange.Min, nc.HueRange.Max, nc.Brand, swatch(nc.Hex))
	}
	for _, nc := range palette.Achromatic {
		fmt.Fprintf(w, "%s\t%s\t-\t%s\t%s\n", nc.Name, nc.Hex, nc.Brand, swatch(nc.Hex))
	}
	return w.Flush()
}

func printAnalysis(out io.Writer, a color.Analysis) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "EXTRACTED\t%s\t%s\n", a.ExtractedHex, swatch(a.ExtractedHex))
	fmt.Fprintf(w, "HSL\t%d, %d%%, %d%%\n", a.Hue, a.Saturation, a.Lightness)
	fmt.Fprintf(w, "REFINED\t%s (%s)\t%s\n", a.Refined.Name, a.Refined.Hex, swatch(a.Refined.Hex))
	fmt.Fprintf(w, "BRAND\t%s (%s)\t%s\n", a.Brand.Name, a.Brand.Hex, swatch(a.Brand.Hex))
	fmt.Fprintf(w, "ACHROMATIC\t%t\n", a.IsAchromatic)
	return w.Flush()
}
