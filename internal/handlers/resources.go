package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"psl-dashboard/internal/cache"
	"psl-dashboard/internal/dashboard"
	"psl-dashboard/internal/football"
	"psl-dashboard/internal/store"
	"psl-dashboard/pkg/logging"
)

// DefaultSeason is used when a request names none.
const DefaultSeason = 2023

// CacheHeader reports whether a response came from the cache.
const CacheHeader = "X-Cache"

// Dashboard is the read service behind the resource routes.
type Dashboard interface {
	Standings(ctx context.Context, q dashboard.Query) ([]football.Standing, error)
	Players(ctx context.Context, q dashboard.Query) ([]football.PlayerRecord, error)
	Fixtures(ctx context.Context, q dashboard.Query) ([]football.FixtureRecord, error)
	Teams(ctx context.Context, season int) ([]string, error)
	Overview(ctx context.Context, q dashboard.Query) (*dashboard.Overview, error)
}

// ResourceHandler serves the cached read routes.
type ResourceHandler struct {
	fetcher       *cache.Fetcher
	dash          Dashboard
	defaultSeason int
}

func NewResourceHandler(f *cache.Fetcher, d Dashboard, defaultSeason int) *ResourceHandler {
	if defaultSeason <= 0 {
		defaultSeason = DefaultSeason
	}
	return &ResourceHandler{
		fetcher:       f,
		dash:          d,
		defaultSeason: defaultSeason,
	}
}

// Standings handles GET /api/standings.
func (h *ResourceHandler) Standings(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, cache.EndpointStandings, false, func(ctx context.Context, q dashboard.Query) (any, error) {
		return h.dash.Standings(ctx, q)
	})
}

// Players handles GET /api/players.
func (h *ResourceHandler) Players(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, cache.EndpointPlayers, false, func(ctx context.Context, q dashboard.Query) (any, error) {
		return h.dash.Players(ctx, q)
	})
}

// Fixtures handles GET /api/fixtures.
func (h *ResourceHandler) Fixtures(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, cache.EndpointFixtures, false, func(ctx context.Context, q dashboard.Query) (any, error) {
		return h.dash.Fixtures(ctx, q)
	})
}

// Teams handles GET /api/teams. Without ?season it lists every season.
func (h *ResourceHandler) Teams(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, cache.EndpointTeams, true, func(ctx context.Context, q dashboard.Query) (any, error) {
		return h.dash.Teams(ctx, q.Season)
	})
}

// Overview handles GET /api/overview.
func (h *ResourceHandler) Overview(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, cache.EndpointOverview, false, func(ctx context.Context, q dashboard.Query) (any, error) {
		return h.dash.Overview(ctx, q)
	})
}

type loader func(ctx context.Context, q dashboard.Query) (any, error)

func (h *ResourceHandler) serve(w http.ResponseWriter, r *http.Request, endpoint string, seasonOptional bool, load loader) {
	ctx := r.Context()
	logger := logging.L(ctx)
	start := time.Now()

	q, params, refresh, err := h.parse(r, endpoint, seasonOptional)
	if err != nil {
		logger.Warn("invalid request", zap.String("endpoint", endpoint), zap.Error(err))
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	body, hit, err := h.fetcher.Fetch(ctx, endpoint, params, cache.FetchOptions{ForceRefresh: refresh},
		func(ctx context.Context) (any, error) { return load(ctx, q) })
	if err != nil {
		writeFailure(ctx, w, "load "+endpoint, err)
		return
	}

	result := "MISS"
	if hit {
		result = "HIT"
	}

	logger.Info("cache_decision",
		zap.String("endpoint", endpoint),
		zap.String("cache_key", cache.BuildKey(endpoint, params)),
		zap.Bool("cache_hit", hit),
		zap.Bool("force_refresh", refresh),
		zap.Int("bytes", len(body)),
		zap.Duration("total_latency", time.Since(start)),
	)

	w.Header().Set(CacheHeader, result)
	writeRaw(w, http.StatusOK, body)
}

// parse reads season, team and refresh. The cache params are the season plus
// the team when one was given; an optional season that is absent adds nothing.
func (h *ResourceHandler) parse(r *http.Request, endpoint string, seasonOptional bool) (dashboard.Query, cache.Params, bool, error) {
	values := r.URL.Query()
	q := dashboard.Query{Season: h.defaultSeason}
	params := cache.Params{}

	raw := strings.TrimSpace(values.Get("season"))
	switch {
	case raw != "":
		season, err := strconv.Atoi(raw)
		if err != nil || season <= 0 {
			return q, nil, false, errInvalidSeason(raw)
		}
		q.Season = season
		params["season"] = season
	case seasonOptional:
		q.Season = store.AllSeasons
	default:
		params["season"] = q.Season
	}

	// teams lists names, a team filter means nothing there
	if endpoint != cache.EndpointTeams {
		if team := strings.TrimSpace(values.Get("team")); team != "" {
			q.Team = team
			params["team"] = team
		}
	}

	refresh := false
	if v := values.Get("refresh"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return q, nil, false, &queryError{msg: "invalid refresh flag " + strconv.Quote(v)}
		}
		refresh = b
	}

	return q, params, refresh, nil
}

type queryError struct{ msg string }

func (e *queryError) Error() string { return e.msg }

func errInvalidSeason(raw string) error {
	return &queryError{msg: "invalid season " + strconv.Quote(raw) + ": must be a positive integer"}
}
