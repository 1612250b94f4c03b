package httpadapter

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/kirillkom/movement-studio/internal/core/color"
	"github.com/kirillkom/movement-studio/internal/core/domain"
)

type classifyResponse struct {
	HSL          color.HSL        `json:"hsl"`
	Refined      color.NamedColor `json:"refined_color"`
	Brand        color.BrandColor `json:"brand_color"`
	IsAchromatic bool             `json:"is_achromatic"`
}

func (rt *Router) colorCatalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, color.Catalog())
}

// classifyColor accepts either ?hex=#RRGGBB, answered with a full analysis,
// or ?h=&s=&l=, answered with the classification only.
func (rt *Router) classifyColor(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if hex := strings.TrimSpace(q.Get("hex")); hex != "" {
		rgb, err := color.ParseHex(hex)
		if err != nil {
			rt.writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "classify color", err))
			return
		}
		writeJSON(w, http.StatusOK, color.Analyze(rgb))
		return
	}

	hsl, err := parseHSLQuery(q.Get("h"), q.Get("s"), q.Get("l"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	refined := color.Classify(hsl)
	writeJSON(w, http.StatusOK, classifyResponse{
		HSL:          hsl,
		Refined:      refined,
		Brand:        color.BrandOf(refined),
		IsAchromatic: color.IsAchromatic(hsl),
	})
}

func parseHSLQuery(h, s, l string) (color.HSL, error) {
	if h == "" && s == "" && l == "" {
		return color.HSL{}, domain.WrapError(domain.ErrInvalidInput, "classify color", errors.New("hex or h, s and l are required"))
	}
	hue, err := parseBounded("h", h, 0, 360)
	if err != nil {
		return color.HSL{}, err
	}
	sat, err := parseBounded("s", s, 0, 100)
	if err != nil {
		return color.HSL{}, err
	}
	light, err := parseBounded("l", l, 0, 100)
	if err != nil {
		return color.HSL{}, err
	}
	return color.HSL{H: hue % 360, S: sat, L: light}, nil
}

func parseBounded(name, raw string, lo, hi int) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, domain.WrapError(domain.ErrInvalidInput, "classify color", fmt.Errorf("%s must be an integer", name))
	}
	if v < lo || v > hi {
		return 0, domain.WrapError(domain.ErrInvalidInput, "classify color", fmt.Errorf("%s must be within %d..%d", name, lo, hi))
	}
	return v, nil
}

func (rt *Router) analyzeImage(w http.ResponseWriter, r *http.Request) {
	file, _, err := rt.formFile(w, r)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	defer file.Close()

	analysis, err := rt.analyzer.AnalyzeImage(r.Context(), file)
	if err != nil {
		if rt.metrics != nil && domain.IsKind(err, domain.ErrImageLoad) {
			rt.metrics.RecordColorAnalysisFailure(serviceName, "analyze")
		}
		rt.writeError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordColorAnalysis(serviceName, string(analysis.Brand.Name), analysis.Refined.Name)
	}
	writeJSON(w, http.StatusOK, analysis)
}

// describeImage always answers 200; failures come back as success=false.
func (rt *Router) describeImage(w http.ResponseWriter, r *http.Request) {
	file, header, err := rt.formFile(w, r)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	defer file.Close()

	lang, err := domain.ParseLanguage(r.FormValue("lang"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		rt.writeError(w, r, fmt.Errorf("read upload: %w", err))
		return
	}

	result := rt.movements.Describe(r.Context(), data, header.Header.Get("Content-Type"), lang)
	if rt.metrics != nil {
		rt.metrics.RecordCaption(serviceName, "describe", result.Success)
	}
	writeJSON(w, http.StatusOK, result)
}
