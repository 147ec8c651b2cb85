// Package observability provides OpenTelemetry instrumentation for tracing and metrics.
package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/melih/lighthouse-executor/internal/core/domain"
)

// InitMetrics initializes the OpenTelemetry metrics provider with a Prometheus exporter.
// It returns the HTTP handler for the /metrics endpoint and a shutdown function.
// Each call uses its own registry, so it is safe to call more than once.
func InitMetrics() (http.Handler, func(context.Context) error, error) {
	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), provider.Shutdown, nil
}

// RegisterStatsGauges publishes the runtime call statistics as observable
// gauges. stats is only invoked when metrics are collected.
func RegisterStatsGauges(meter metric.Meter, stats func() domain.Stats) error {
	requests, err := meter.Int64ObservableGauge("lighthouse.runtime.requests",
		metric.WithDescription("Runtime calls by outcome since start"))
	if err != nil {
		return fmt.Errorf("failed to register requests gauge: %w", err)
	}
	concurrent, err := meter.Int64ObservableGauge("lighthouse.runtime.requests.concurrent",
		metric.WithDescription("Runtime calls currently in flight"))
	if err != nil {
		return fmt.Errorf("failed to register concurrent gauge: %w", err)
	}
	latency, err := meter.Float64ObservableGauge("lighthouse.runtime.latency.average",
		metric.WithDescription("Average latency of successful runtime calls"),
		metric.WithUnit("ms"))
	if err != nil {
		return fmt.Errorf("failed to register latency gauge: %w", err)
	}
	closed, err := meter.Int64ObservableGauge("lighthouse.breaker.closed",
		metric.WithDescription("1 when the circuit breaker is closed, 0 otherwise"))
	if err != nil {
		return fmt.Errorf("failed to register breaker gauge: %w", err)
	}

	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := stats()
		o.ObserveInt64(requests, int64(s.Requests.Total), metric.WithAttributes(outcomeAttr("total")))
		o.ObserveInt64(requests, int64(s.Requests.Success), metric.WithAttributes(outcomeAttr("success")))
		o.ObserveInt64(requests, int64(s.Requests.Failure), metric.WithAttributes(outcomeAttr("failure")))
		o.ObserveInt64(requests, int64(s.Requests.Timeouts), metric.WithAttributes(outcomeAttr("timeout")))
		o.ObserveInt64(concurrent, s.Requests.Concurrent)
		o.ObserveFloat64(latency, s.Requests.AverageTime)

		var c int64
		if s.Breaker.IsClosed {
			c = 1
		}
		o.ObserveInt64(closed, c)
		return nil
	}, requests, concurrent, latency, closed)
	if err != nil {
		return fmt.Errorf("failed to register stats callback: %w", err)
	}
	return nil
}

func outcomeAttr(outcome string) attribute.KeyValue {
	return attribute.String("outcome", outcome)
}
