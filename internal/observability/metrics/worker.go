package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	eventTotal    *prometheus.CounterVec
	eventDuration *prometheus.HistogramVec
	eventInFlight prometheus.Gauge
	eventLag      *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	eventTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "events_processed_total",
			Help:      "Total movement events tallied by status.",
		},
		[]string{"service", "status"},
	)
	eventDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "event_process_duration_seconds",
			Help:      "Movement event processing duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	eventInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "events_in_flight",
			Help:      "Number of movement events being processed.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	eventLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "event_lag_seconds",
			Help:      "Delay between movement creation and tallying.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"service"},
	)

	registry.MustRegister(eventTotal, eventDuration, eventInFlight, eventLag)

	return &WorkerMetrics{
		registry:      registry,
		eventTotal:    eventTotal,
		eventDuration: eventDuration,
		eventInFlight: eventInFlight,
		eventLag:      eventLag,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartEvent() {
	m.eventInFlight.Inc()
}

func (m *WorkerMetrics) FinishEvent(service string, duration time.Duration, err error) {
	m.eventInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.eventTotal.WithLabelValues(service, status).Inc()
	m.eventDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveEventLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.eventLag.WithLabelValues(service).Observe(lag.Seconds())
}
