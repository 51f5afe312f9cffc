package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry
	service  string

	auditEventsTotal *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	auditEventsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bookqa",
			Subsystem: "worker",
			Name:      "audit_events_total",
			Help:      "Total drained audit events by type and status.",
		},
		[]string{"service", "type", "status"},
	)
	registry.MustRegister(auditEventsTotal)

	return &WorkerMetrics{
		registry:         registry,
		service:          service,
		auditEventsTotal: auditEventsTotal,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) ObserveAuditEvent(eventType string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.auditEventsTotal.WithLabelValues(m.service, eventType, status).Inc()
}
