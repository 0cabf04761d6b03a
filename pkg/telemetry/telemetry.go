// Package telemetry bootstraps the metrics export for the page cache
// binaries: a Prometheus-backed OpenTelemetry meter provider and a
// /metrics endpoint. The cache is metrics-only territory: no cache
// operation suspends or crosses a process boundary, so there are no
// spans to record. The export surface is the instrument bundle in
// core/pagecache.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"

	"github.com/quokkadb/pagecache/core/pagecache"
)

// Config holds all the configuration for the telemetry system.
type Config struct {
	// Enabled toggles metrics export on or off. Disabled telemetry
	// hands out no-op instruments, so engines can record
	// unconditionally.
	Enabled bool `yaml:"enabled"`
	// ServiceName is the name that appears on exported metrics.
	ServiceName string `yaml:"service_name"`
	// PrometheusPort is the port on which to expose the /metrics endpoint.
	PrometheusPort int `yaml:"prometheus_port"`
}

// Telemetry represents the active telemetry components.
type Telemetry struct {
	MeterProvider *sdkmetric.MeterProvider
	Meter         metric.Meter
}

// ShutdownFunc gracefully stops the metrics endpoint and flushes the
// meter provider.
type ShutdownFunc func(ctx context.Context) error

// New initializes metrics export: a Prometheus exporter feeding the
// meter provider, and an HTTP server for the /metrics endpoint. The
// server is owned here and stopped by the returned shutdown function,
// so a bench run exits cleanly after its replay.
func New(config Config) (*Telemetry, ShutdownFunc, error) {
	if !config.Enabled {
		return &Telemetry{
			Meter: noop.NewMeterProvider().Meter(""),
		}, func(ctx context.Context) error { return nil }, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(config.ServiceName),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(meterProvider)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", config.PrometheusPort),
		Handler: mux,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			otel.Handle(fmt.Errorf("prometheus http server failed: %w", err))
		}
	}()

	tel := &Telemetry{
		MeterProvider: meterProvider,
		Meter:         meterProvider.Meter(config.ServiceName),
	}

	// The shutdown function stops the endpoint first so no scrape races
	// the provider flush.
	shutdown := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown metrics endpoint: %w", err)
		}
		if err := meterProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown meter provider: %w", err)
		}
		return nil
	}

	return tel, shutdown, nil
}

// CacheMetrics builds the page cache instrument bundle on this
// telemetry's meter. With telemetry disabled the bundle is backed by
// no-op instruments.
func (t *Telemetry) CacheMetrics() (*pagecache.Metrics, error) {
	return pagecache.NewMetrics(t.Meter)
}
