package renderserver

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/r9s-ai/render-interceptor/pkg/renderadapter"
)

// RenderBuckets covers template renders from sub-millisecond to one second.
var RenderBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

type renderMetrics struct {
	registry *prometheus.Registry

	dispatchTotal    *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	interceptorsRun  *prometheus.CounterVec
	viewReloads      *prometheus.CounterVec
}

func newRenderMetrics() *renderMetrics {
	m := &renderMetrics{
		registry: prometheus.NewRegistry(),
		dispatchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "renderd_render_dispatch_total",
				Help: "Render dispatches by strategy and outcome",
			},
			[]string{"strategy", "outcome"},
		),
		dispatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "renderd_render_duration_seconds",
				Help:    "Render dispatch duration",
				Buckets: RenderBuckets,
			},
			[]string{"strategy"},
		),
		interceptorsRun: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "renderd_interceptors_registered_total",
				Help: "Interceptors registered on rendered responses",
			},
			[]string{"role"},
		),
		viewReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "renderd_view_reloads_total",
				Help: "View template reloads by trigger and outcome",
			},
			[]string{"trigger", "outcome"},
		),
	}
	m.registry.MustRegister(
		m.dispatchTotal,
		m.dispatchDuration,
		m.interceptorsRun,
		m.viewReloads,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *renderMetrics) observeDispatch(d renderadapter.Dispatch) {
	if m == nil {
		return
	}
	strategy := string(d.Strategy)
	if strategy == "" {
		strategy = "none"
	}
	outcome := "ok"
	if d.Err != nil {
		outcome = "error"
	}
	m.dispatchTotal.WithLabelValues(strategy, outcome).Inc()
	m.dispatchDuration.WithLabelValues(strategy).Observe(d.Duration.Seconds())
	m.interceptorsRun.WithLabelValues("template").Add(float64(d.TemplateInterceptors))
	m.interceptorsRun.WithLabelValues("render").Add(float64(d.RenderInterceptors))
}

func (m *renderMetrics) observeReload(trigger string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.viewReloads.WithLabelValues(trigger, outcome).Inc()
}

func (m *renderMetrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
