// Package metrics exposes preview handling counters to Prometheus.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	e "nuclight.org/drive-preview-bot/pkg/entities"
)

const namespace = "drive_preview"

type Metrics struct {
	registry *prometheus.Registry

	outcomes       *prometheus.CounterVec
	metadataErrors *prometheus.CounterVec
	deleted        prometheus.Counter
	handleSeconds  *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outcomes_total",
			Help:      "Handled messages by final reconciliation state, fetching when file metadata failed.",
		}, []string{"state"}),
		metadataErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "metadata_errors_total",
			Help:      "Failed Drive metadata requests by kind.",
		}, []string{"kind"}),
		deleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deleted_total",
			Help:      "Preview messages deleted after their source message was deleted.",
		}),
		handleSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handle_seconds",
			Help:      "Time spent handling one chat event.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 20},
		}, []string{"event"}),
	}

	m.registry.MustRegister(
		m.outcomes,
		m.metadataErrors,
		m.deleted,
		m.handleSeconds,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) ObserveOutcome(state e.State) {
	m.outcomes.WithLabelValues(string(state)).Inc()
}

func (m *Metrics) ObserveMetadataError(kind string) {
	m.metadataErrors.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveDeleted() {
	m.deleted.Inc()
}

func (m *Metrics) ObserveHandle(event string, took time.Duration) {
	m.handleSeconds.WithLabelValues(event).Observe(took.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	err := srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving metrics: %w", err)
	}

	return nil
}
