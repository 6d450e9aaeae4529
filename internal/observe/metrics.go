// Package observe exposes HTTP request metrics through an OpenTelemetry
// meter backed by a Prometheus registry.
package observe

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "smartbin/portal"

// Metrics records request counts and latencies. It is safe for concurrent use.
type Metrics struct {
	provider *sdkmetric.MeterProvider
	registry *prometheus.Registry

	requests metric.Int64Counter
	errors   metric.Int64Counter
	duration metric.Float64Histogram
}

// NewMetrics builds a meter provider with its own registry, so several
// instances never collide on registration.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter(meterName)

	requests, err := meter.Int64Counter(
		"http.server.requests",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	errors, err := meter.Int64Counter(
		"http.server.errors",
		metric.WithDescription("Requests answered with a 5xx status"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"http.server.duration_ms",
		metric.WithDescription("Request handling time in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		provider: provider,
		registry: registry,
		requests: requests,
		errors:   errors,
		duration: duration,
	}, nil
}

// RecordRequest records one finished request. route is the matched route
// template, not the raw path.
func (m *Metrics) RecordRequest(ctx context.Context, method, route string, status int, d time.Duration) {
	opt := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.String("http.status_code", strconv.Itoa(status)),
	)

	m.requests.Add(ctx, 1, opt)
	if status >= http.StatusInternalServerError {
		m.errors.Add(ctx, 1, opt)
	}
	m.duration.Record(ctx, float64(d.Microseconds())/1000, opt)
}

// Handler serves the Prometheus text exposition.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes and stops the meter provider.
func (m *Metrics) Shutdown(ctx context.Context) error {
	return m.provider.Shutdown(ctx)
}
