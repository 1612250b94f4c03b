package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "movement"

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	colorAnalysesTotal  *prometheus.CounterVec
	colorAnalysisFailed *prometheus.CounterVec
	captionsTotal       *prometheus.CounterVec
	flowTransitions     *prometheus.CounterVec
	breakerState        *prometheus.GaugeVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	colorAnalysesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "color",
			Name:      "analyses_total",
			Help:      "Successful color analyses by brand and refined color.",
		},
		[]string{"service", "brand", "refined"},
	)
	colorAnalysisFailed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "color",
			Name:      "analysis_failures_total",
			Help:      "Color analyses that could not decode the image.",
		},
		[]string{"service", "endpoint"},
	)
	captionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "caption",
			Name:      "requests_total",
			Help:      "Caption requests by outcome.",
		},
		[]string{"service", "endpoint", "status"},
	)
	flowTransitions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "flow",
			Name:      "transitions_total",
			Help:      "Movement flow transitions by resulting step.",
		},
		[]string{"service", "action", "step"},
	)
	breakerState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "resilience",
			Name:      "breaker_state",
			Help:      "Circuit breaker state per operation: 0 closed, 1 half-open, 2 open.",
		},
		[]string{"service", "operation"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		colorAnalysesTotal,
		colorAnalysisFailed,
		captionsTotal,
		flowTransitions,
		breakerState,
	)

	return &HTTPServerMetrics{
		registry:            registry,
		requestTotal:        requestTotal,
		requestDuration:     requestDuration,
		requestInFlight:     requestInFlight,
		colorAnalysesTotal:  colorAnalysesTotal,
		colorAnalysisFailed: colorAnalysisFailed,
		captionsTotal:       captionsTotal,
		flowTransitions:     flowTransitions,
		breakerState:        breakerState,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath folds session ids so label cardinality stays bounded.
func normalizePath(path string) string {
	const prefix = "/v1/movements/"
	if !strings.HasPrefix(path, prefix) {
		return path
	}
	rest := strings.TrimPrefix(path, prefix)
	if rest == "" {
		return path
	}
	if idx := strings.Index(rest, "/"); idx >= 0 {
		return prefix + "{id}" + rest[idx:]
	}
	return prefix + "{id}"
}

func (m *HTTPServerMetrics) RecordColorAnalysis(service, brand, refined string) {
	if brand == "" {
		brand = "unknown"
	}
	if refined == "" {
		refined = "unknown"
	}
	m.colorAnalysesTotal.WithLabelValues(service, brand, refined).Inc()
}

func (m *HTTPServerMetrics) RecordColorAnalysisFailure(service, endpoint string) {
	m.colorAnalysisFailed.WithLabelValues(service, endpoint).Inc()
}

func (m *HTTPServerMetrics) RecordCaption(service, endpoint string, success bool) {
	status := "success"
	if !success {
		status = "failed"
	}
	m.captionsTotal.WithLabelValues(service, endpoint, status).Inc()
}

func (m *HTTPServerMetrics) RecordFlowTransition(service, action, step string) {
	if step == "" {
		step = "unknown"
	}
	m.flowTransitions.WithLabelValues(service, action, step).Inc()
}

// SetBreakerState records a breaker state as 0 closed, 1 half-open, 2 open.
func (m *HTTPServerMetrics) SetBreakerState(service, operation string, state float64) {
	m.breakerState.WithLabelValues(service, operation).Set(state)
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
