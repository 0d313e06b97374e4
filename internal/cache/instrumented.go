package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"psl-dashboard/internal/metrics"
	"psl-dashboard/pkg/logging"
)

// Instrumented wraps a ResponseCache with request-scoped logging and metrics.
type Instrumented struct {
	inner ResponseCache
}

// NewInstrumented returns a cache that logs and records metrics.
func NewInstrumented(inner ResponseCache) *Instrumented {
	return &Instrumented{inner: inner}
}

func (c *Instrumented) Get(ctx context.Context, endpoint string, params Params) ([]byte, bool) {
	start := time.Now()
	value, ok := c.inner.Get(ctx, endpoint, params)
	latencyMs := float64(time.Since(start).Microseconds()) / 1000.0

	result := "miss"
	if ok {
		result = "hit"
	}
	metrics.CacheLookupsTotal.WithLabelValues(endpoint, result).Inc()

	logging.L(ctx).Debug("response_cache_get",
		zap.String("endpoint", endpoint),
		zap.String("cache_key", BuildKey(endpoint, params)),
		zap.String("cache_result", result),
		zap.Int("bytes", len(value)),
		zap.Float64("latency_ms", latencyMs),
	)

	return value, ok
}

func (c *Instrumented) Set(ctx context.Context, endpoint string, value []byte, params Params) {
	start := time.Now()
	c.inner.Set(ctx, endpoint, value, params)

	logging.L(ctx).Debug("response_cache_set",
		zap.String("endpoint", endpoint),
		zap.String("cache_key", BuildKey(endpoint, params)),
		zap.Int("bytes", len(value)),
		zap.Float64("latency_ms", float64(time.Since(start).Microseconds())/1000.0),
	)
}

func (c *Instrumented) Clear(ctx context.Context, endpoint string, params Params) bool {
	removed := c.inner.Clear(ctx, endpoint, params)
	logging.L(ctx).Info("response_cache_clear",
		zap.String("cache_key", BuildKey(endpoint, params)),
		zap.Bool("removed", removed),
	)
	return removed
}

func (c *Instrumented) ClearEndpoint(ctx context.Context, endpoint string) int {
	removed := c.inner.ClearEndpoint(ctx, endpoint)
	logging.L(ctx).Info("response_cache_clear_endpoint",
		zap.String("endpoint", endpoint),
		zap.Int("removed", removed),
	)
	return removed
}

func (c *Instrumented) ClearAll(ctx context.Context) int {
	removed := c.inner.ClearAll(ctx)
	logging.L(ctx).Info("response_cache_clear_all", zap.Int("removed", removed))
	return removed
}

func (c *Instrumented) Stats(ctx context.Context) Stats {
	return c.inner.Stats(ctx)
}

func recordEviction(reason EvictReason, n int) {
	metrics.CacheEvictionsTotal.WithLabelValues(string(reason)).Add(float64(n))
}
