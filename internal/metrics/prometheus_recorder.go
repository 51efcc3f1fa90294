package metrics

import (
	"net/http"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once            sync.Once
	renderDuration  *prom.HistogramVec
	packageDuration *prom.HistogramVec
	uploadDuration  prom.Histogram
	uploadBytes     prom.Counter
	cacheResults    *prom.CounterVec
	buildOutcome    *prom.CounterVec
	buildsInFlight  prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.renderDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "happo",
			Name:      "render_duration_seconds",
			Help:      "Duration of example rendering per target",
			Buckets:   prom.DefBuckets,
		}, []string{"target"})
		pr.packageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "happo",
			Name:      "package_duration_seconds",
			Help:      "Duration of asset packaging per target",
			Buckets:   prom.DefBuckets,
		}, []string{"target"})
		pr.uploadDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "happo",
			Name:      "upload_duration_seconds",
			Help:      "Duration of asset package uploads",
			Buckets:   prom.DefBuckets,
		})
		pr.uploadBytes = prom.NewCounter(prom.CounterOpts{
			Namespace: "happo",
			Name:      "upload_bytes_total",
			Help:      "Total bytes uploaded as asset packages",
		})
		pr.cacheResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "happo",
			Name:      "asset_cache_results_total",
			Help:      "Asset package cache lookups by result",
		}, []string{"result"})
		pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "happo",
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"})
		pr.buildsInFlight = prom.NewGauge(prom.GaugeOpts{
			Namespace: "happo",
			Name:      "builds_in_flight",
			Help:      "Number of orchestration runs currently in progress",
		})
		reg.MustRegister(pr.renderDuration, pr.packageDuration, pr.uploadDuration,
			pr.uploadBytes, pr.cacheResults, pr.buildOutcome, pr.buildsInFlight)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveRenderDuration(target string, d time.Duration) {
	if p == nil || p.renderDuration == nil {
		return
	}
	p.renderDuration.WithLabelValues(target).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObservePackageDuration(target string, d time.Duration) {
	if p == nil || p.packageDuration == nil {
		return
	}
	p.packageDuration.WithLabelValues(target).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveUploadDuration(d time.Duration) {
	if p == nil || p.uploadDuration == nil {
		return
	}
	p.uploadDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveUploadBytes(n int) {
	if p == nil || p.uploadBytes == nil {
		return
	}
	p.uploadBytes.Add(float64(n))
}

func (p *PrometheusRecorder) IncCacheHit() {
	if p == nil || p.cacheResults == nil {
		return
	}
	p.cacheResults.WithLabelValues("hit").Inc()
}

func (p *PrometheusRecorder) IncCacheMiss() {
	if p == nil || p.cacheResults == nil {
		return
	}
	p.cacheResults.WithLabelValues("miss").Inc()
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome string) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) SetBuildsInFlight(n int) {
	if p == nil || p.buildsInFlight == nil {
		return
	}
	p.buildsInFlight.Set(float64(n))
}

// HTTPHandler returns an http.Handler that serves Prometheus metrics for the provided registry.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
