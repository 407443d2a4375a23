//go:build !nometrics

package obs

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

var (
	setupOnce sync.Once
	shutdown  = func(context.Context) error { return nil }
)

var (
	fuseRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rank_fusion_requests_total",
		Help: "Total fusion requests by return code.",
	}, []string{"code"})
	fuseDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rank_fusion_request_duration_ms",
		Help:    "Histogram of fusion request latency in ms.",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 12),
	})
	listSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rank_fusion_list_items",
		Help:    "Number of items per input list.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"source"})
	degenerateLists = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rank_fusion_degenerate_lists_total",
		Help: "Input lists whose weights were all identical, by degenerate policy.",
	}, []string{"source", "policy"})
	fusedItems = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rank_fusion_fused_items",
		Help:    "Number of items in the fused output.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
)

// ObserveFuseRequest records request-level metrics.
func ObserveFuseRequest(code string, duration time.Duration, traceID string) {
	fuseRequests.WithLabelValues(code).Inc()
	ms := float64(duration.Microseconds()) / 1000
	if eo, ok := fuseDuration.(prometheus.ExemplarObserver); ok && traceID != "" {
		eo.ObserveWithExemplar(ms, prometheus.Labels{"trace_id": traceID})
		return
	}
	fuseDuration.Observe(ms)
}

// RecordListSize observes the size of one input list.
func RecordListSize(source string, items int) {
	listSize.WithLabelValues(source).Observe(float64(items))
}

// IncDegenerate counts a list whose range collapsed.
func IncDegenerate(source, policy string) {
	degenerateLists.WithLabelValues(source, policy).Inc()
}

// RecordFusedItems observes the size of the fused output.
func RecordFusedItems(items int) {
	fusedItems.Observe(float64(items))
}

const defaultSampleRatio = 0.3

// sampleRatio resolves the configured ratio. Negative values select the
// default; 0 disables root sampling.
func sampleRatio(ratio float64) float64 {
	if ratio < 0 {
		return defaultSampleRatio
	}
	return ratio
}

// InitTracer sets up the OpenTelemetry tracer provider with parent-based ratio
// sampling. A negative ratio falls back to 0.3 and 0 samples no new traces.
func InitTracer(serviceName string, ratio float64) (func(context.Context) error, error) {
	var initErr error
	setupOnce.Do(func() {
		ratio = sampleRatio(ratio)
		res, err := resource.New(context.Background(),
			resource.WithAttributes(
				semconv.ServiceName(serviceName),
			),
		)
		if err != nil {
			initErr = err
			return
		}

		provider := sdktrace.NewTracerProvider(
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(provider)
		shutdown = provider.Shutdown
	})
	return shutdown, initErr
}
