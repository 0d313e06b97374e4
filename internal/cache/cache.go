package cache

import "context"

// Params are the request parameters an entry is keyed by. Values are
// stringified with fmt.Sprint when the key is built.
type Params map[string]any

// Stats is a raw snapshot of the cache. Keys may include entries that have
// expired but were not looked up or swept yet.
type Stats struct {
	Size int      `json:"size"`
	Keys []string `json:"keys"`
}

// ResponseCache is the contract the HTTP handlers depend on.
// Implemented by Memory and decorated by Instrumented.
type ResponseCache interface {
	Get(ctx context.Context, endpoint string, params Params) ([]byte, bool)
	Set(ctx context.Context, endpoint string, value []byte, params Params)
	Clear(ctx context.Context, endpoint string, params Params) bool
	ClearEndpoint(ctx context.Context, endpoint string) int
	ClearAll(ctx context.Context) int
	Stats(ctx context.Context) Stats
}

// EvictReason labels why entries left the cache.
type EvictReason string

const (
	EvictExpired  EvictReason = "expired"
	EvictSwept    EvictReason = "swept"
	EvictCapacity EvictReason = "capacity"
	EvictCleared  EvictReason = "cleared"
)
