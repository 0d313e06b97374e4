package cache

import (
	"time"

	"go.uber.org/zap"
)

// Config sizes the process cache. Single-flight is a Fetcher concern, see
// NewFetcher.
type Config struct {
	TTL           TTLConfig
	SweepInterval time.Duration
	MaxEntries    int
}

// New builds the process-wide cache from cfg. Evictions are recorded in the
// prometheus collectors.
func New(cfg Config, logger *zap.Logger) *Memory {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TTL.Endpoints == nil {
		cfg.TTL = DefaultTTLConfig().Merge(cfg.TTL)
	}

	return NewMemory(cfg.TTL,
		WithSweepInterval(cfg.SweepInterval),
		WithMaxEntries(cfg.MaxEntries),
		WithLogger(logger.Named("cache")),
		WithEvictHook(recordEviction),
	)
}
