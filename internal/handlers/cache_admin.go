package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"psl-dashboard/internal/cache"
	"psl-dashboard/pkg/logging"
)

// CacheAdmin exposes the response cache for inspection and manual clearing.
type CacheAdmin struct {
	cache cache.ResponseCache
}

func NewCacheAdmin(c cache.ResponseCache) *CacheAdmin {
	return &CacheAdmin{cache: c}
}

type cacheStatsResponse struct {
	Success bool        `json:"success"`
	Stats   cache.Stats `json:"stats"`
	Message string      `json:"message"`
}

type cacheClearResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Removed int    `json:"removed"`
}

// Stats handles GET /api/cache.
func (h *CacheAdmin) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, cacheStatsResponse{
		Success: true,
		Stats:   h.cache.Stats(r.Context()),
		Message: "Cache statistics retrieved successfully",
	})
}

// Clear handles DELETE /api/cache. Without ?endpoint everything goes; with
// only ?endpoint that endpoint goes; any further query parameters select the
// single entry cached under them.
func (h *CacheAdmin) Clear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	values := r.URL.Query()
	endpoint := values.Get("endpoint")

	var resp cacheClearResponse
	switch {
	case endpoint == "":
		resp.Removed = h.cache.ClearAll(ctx)
		resp.Message = "All cache cleared successfully"

	case len(values) == 1:
		resp.Removed = h.cache.ClearEndpoint(ctx, endpoint)
		resp.Message = fmt.Sprintf("Cache cleared for endpoint: %s", endpoint)

	default:
		// trimmed like the read routes trim them, or the key never matches
		params := cache.Params{}
		for name := range values {
			if name == "endpoint" {
				continue
			}
			if v := strings.TrimSpace(values.Get(name)); v != "" {
				params[name] = v
			}
		}

		if h.cache.Clear(ctx, endpoint, params) {
			resp.Removed = 1
		}
		resp.Message = fmt.Sprintf("Cache cleared for key: %s", cache.BuildKey(endpoint, params))
	}
	resp.Success = true

	logging.L(ctx).Info("cache cleared via admin",
		zap.String("endpoint", endpoint),
		zap.Int("removed", resp.Removed),
	)
	writeJSON(w, http.StatusOK, resp)
}
