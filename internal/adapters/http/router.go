package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/getkin/kin-openapi/routers"

	"github.com/kirillkom/movement-studio/internal/config"
	"github.com/kirillkom/movement-studio/internal/core/domain"
	"github.com/kirillkom/movement-studio/internal/core/ports"
	"github.com/kirillkom/movement-studio/internal/observability/metrics"
)

const (
	serviceName        = "movement-api"
	multipartMaxMemory = 8 << 20
	maxJSONBodyBytes   = 64 << 10
)

type Router struct {
	cfg       config.Config
	movements ports.MovementService
	analyzer  ports.ColorAnalyzer
	surveys   ports.SurveyService
	palette   ports.PaletteStatsService
	tokens    *SessionTokens

	logger        *slog.Logger
	metrics       *metrics.HTTPServerMetrics
	breakerStates func() map[string]string
	exportTZ      *time.Location
	openapi       routers.Router
}

type RouterOption func(*Router)

func WithLogger(logger *slog.Logger) RouterOption {
	return func(rt *Router) {
		if logger != nil {
			rt.logger = logger
		}
	}
}

func WithMetrics(m *metrics.HTTPServerMetrics) RouterOption {
	return func(rt *Router) {
		rt.metrics = m
	}
}

// WithBreakerStates exposes circuit breaker states on /healthz.
func WithBreakerStates(fn func() map[string]string) RouterOption {
	return func(rt *Router) {
		rt.breakerStates = fn
	}
}

func NewRouter(
	cfg config.Config,
	movements ports.MovementService,
	analyzer ports.ColorAnalyzer,
	surveys ports.SurveyService,
	palette ports.PaletteStatsService,
	opts ...RouterOption,
) *Router {
	rt := &Router{
		cfg:       cfg,
		movements: movements,
		analyzer:  analyzer,
		surveys:   surveys,
		palette:   palette,
		tokens:    NewSessionTokens(cfg.SessionSecret, time.Duration(cfg.SessionTTLHours)*time.Hour),
		logger:    slog.Default(),
		exportTZ:  time.UTC,
	}
	if loc, err := time.LoadLocation(cfg.ExportTimezone); err == nil && cfg.ExportTimezone != "" {
		rt.exportTZ = loc
	}
	for _, opt := range opts {
		opt(rt)
	}
	if router, err := loadOpenAPI(context.Background()); err != nil {
		rt.logger.Error("openapi_disabled", "error", err)
	} else {
		rt.openapi = router
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("GET /openapi.yaml", rt.serveOpenAPI)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	mux.HandleFunc("GET /v1/colors/catalog", rt.colorCatalog)
	mux.HandleFunc("GET /v1/colors/classify", rt.classifyColor)
	mux.HandleFunc("POST /v1/colors/analyze", rt.analyzeImage)
	mux.HandleFunc("POST /v1/captions", rt.describeImage)

	mux.HandleFunc("POST /v1/movements", rt.startMovement)
	mux.HandleFunc("GET /v1/movements/{id}", rt.getMovement)
	mux.HandleFunc("POST /v1/movements/{id}/image", rt.uploadMovementImage)
	mux.HandleFunc("POST /v1/movements/{id}/complete", rt.completeMovementEdit)
	mux.HandleFunc("PUT /v1/movements/{id}/caption", rt.updateMovementCaption)
	mux.HandleFunc("POST /v1/movements/{id}/interact", rt.interactMovement)
	mux.HandleFunc("POST /v1/movements/{id}/back", rt.backMovement)
	mux.HandleFunc("POST /v1/movements/{id}/reset", rt.resetMovement)

	mux.HandleFunc("POST /v1/surveys", rt.submitSurvey)
	mux.HandleFunc("GET /v1/surveys/export", rt.exportSurveys)
	mux.HandleFunc("GET /v1/palette/stats", rt.paletteStats)

	h := rt.openAPIValidationMiddleware(mux)
	h = backpressureMiddleware(h, rt.cfg.APIBackpressureMax, time.Duration(rt.cfg.APIBackpressureWaitMS)*time.Millisecond)
	h = rateLimitMiddleware(h, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	h = robotsTagMiddleware(h, rt.cfg.InvitationHostPrefix)
	if rt.metrics != nil {
		h = rt.metrics.Middleware(serviceName, h)
	}
	h = accessLogMiddleware(rt.logger, h)
	h = requestIDMiddleware(h)
	return h
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	payload := map[string]any{"status": "ok"}
	if rt.breakerStates != nil {
		payload["breakers"] = rt.breakerStates()
	}
	writeJSON(w, http.StatusOK, payload)
}

func (rt *Router) siteFromRequest(r *http.Request) domain.Site {
	if isInvitationHost(r.Host, rt.cfg.InvitationHostPrefix) {
		return domain.SiteInvitation
	}
	return domain.SiteMain
}

// decodeJSONBody decodes an optional JSON body; an empty body leaves dst
// untouched.
func decodeJSONBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBodyBytes)).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return domain.WrapError(domain.ErrInvalidInput, "decode request", errors.New("invalid json"))
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		rt.logger.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeJSON(w, status, map[string]string{"error": publicErrorMessage(status, err)})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
