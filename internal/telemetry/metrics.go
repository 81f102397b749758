package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/umdpack"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Build metrics
	BuildsTotal      metric.Int64Counter
	BuildErrorsTotal metric.Int64Counter
	BuildDuration    metric.Float64Histogram

	// Asset metrics
	AssetsEmittedTotal metric.Int64Counter
	AssetsSkippedTotal metric.Int64Counter

	// Watch metrics
	RebuildsTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.BuildsTotal, _ = meter.Int64Counter(
		"umdpack.builds.total",
		metric.WithDescription("Total number of builds run"),
		metric.WithUnit("{build}"),
	)

	m.BuildErrorsTotal, _ = meter.Int64Counter(
		"umdpack.builds.errors.total",
		metric.WithDescription("Total number of failed builds"),
		metric.WithUnit("{build}"),
	)

	m.BuildDuration, _ = meter.Float64Histogram(
		"umdpack.builds.duration",
		metric.WithDescription("Duration of a build from bundling to the last written asset"),
		metric.WithUnit("ms"),
	)

	m.AssetsEmittedTotal, _ = meter.Int64Counter(
		"umdpack.assets.emitted.total",
		metric.WithDescription("Total number of assets written to the output directory"),
		metric.WithUnit("{asset}"),
	)

	m.AssetsSkippedTotal, _ = meter.Int64Counter(
		"umdpack.assets.skipped.total",
		metric.WithDescription("Total number of assets removed before being written"),
		metric.WithUnit("{asset}"),
	)

	m.RebuildsTotal, _ = meter.Int64Counter(
		"umdpack.watch.rebuilds.total",
		metric.WithDescription("Total number of rebuilds triggered by file changes"),
		metric.WithUnit("{build}"),
	)

	return m
}
