package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
)

// SharedLoadTimeout bounds a single-flighted load. It runs detached from the
// caller that started it, so no request deadline applies.
const SharedLoadTimeout = 15 * time.Second

// LoadFunc produces a fresh result on a cache miss. The result is stored as
// JSON.
type LoadFunc func(ctx context.Context) (any, error)

// FetchOptions tune a single Fetch call.
type FetchOptions struct {
	// ForceRefresh skips the lookup; the fresh result still replaces the entry.
	ForceRefresh bool
}

// Fetcher implements read-through caching on top of a ResponseCache.
type Fetcher struct {
	cache ResponseCache
	// nil unless single-flight was enabled
	group *singleflight.Group
}

// NewFetcher returns a Fetcher. With singleFlight set, concurrent misses on
// the same key share one load instead of each hitting the store.
func NewFetcher(c ResponseCache, singleFlight bool) *Fetcher {
	f := &Fetcher{cache: c}
	if singleFlight {
		f.group = &singleflight.Group{}
	}
	return f
}

// Fetch returns the JSON for endpoint and params and whether it was served
// from cache. A load error is returned as is and nothing is stored.
func (f *Fetcher) Fetch(
	ctx context.Context,
	endpoint string,
	params Params,
	opts FetchOptions,
	load LoadFunc,
) ([]byte, bool, error) {
	if !opts.ForceRefresh {
		if cached, ok := f.cache.Get(ctx, endpoint, params); ok {
			return cached, true, nil
		}
	}

	if f.group == nil {
		body, err := f.loadAndStore(ctx, endpoint, params, load)
		return body, false, err
	}

	// the shared load must outlive whichever caller started it; each caller
	// still stops waiting when its own ctx is done
	ch := f.group.DoChan(BuildKey(endpoint, params), func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), SharedLoadTimeout)
		defer cancel()
		return f.loadAndStore(loadCtx, endpoint, params, load)
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.([]byte), false, nil
	}
}

func (f *Fetcher) loadAndStore(ctx context.Context, endpoint string, params Params, load LoadFunc) ([]byte, error) {
	result, err := load(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal %s response: %w", endpoint, err)
	}

	f.cache.Set(ctx, endpoint, body, params)
	return body, nil
}
