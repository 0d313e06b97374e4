package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"psl-dashboard/internal/quota"
	"psl-dashboard/internal/seed"
)

// Seeder refreshes stored records from the upstream API.
type Seeder interface {
	Seed(ctx context.Context, res seed.Resource, seasons []int) (seed.Result, error)
}

// QuotaReporter reports the shared upstream quota.
type QuotaReporter interface {
	State(ctx context.Context) (quota.State, error)
}

// SeedHandler serves the seeding routes. A nil seeder or quota reporter
// disables the matching route with 503.
type SeedHandler struct {
	seeder Seeder
	quota  QuotaReporter
}

func NewSeedHandler(s Seeder, q QuotaReporter) *SeedHandler {
	return &SeedHandler{seeder: s, quota: q}
}

type seedResponse struct {
	Message string `json:"message"`
	seed.Result
}

type quotaResponse struct {
	Success bool        `json:"success"`
	Quota   quota.State `json:"quota"`
}

// Seed handles POST /api/seed/{resource}?season=Y[&season=Y2].
func (h *SeedHandler) Seed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.seeder == nil {
		writeError(w, http.StatusServiceUnavailable, "seeding disabled: no upstream api key configured")
		return
	}

	res, err := seed.ParseResource(chi.URLParam(r, "resource"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	seasons, err := parseSeasons(r.URL.Query()["season"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.seeder.Seed(ctx, res, seasons)
	if err != nil {
		writeFailure(ctx, w, "seed "+string(res), err)
		return
	}

	writeJSON(w, http.StatusOK, seedResponse{
		Message: strings.ToUpper(string(res[:1])) + string(res[1:]) + " seeded successfully",
		Result:  result,
	})
}

// Quota handles GET /api/seed/quota.
func (h *SeedHandler) Quota(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.quota == nil {
		writeError(w, http.StatusServiceUnavailable, "quota tracking disabled: no redis configured")
		return
	}

	state, err := h.quota.State(ctx)
	if err != nil {
		writeFailure(ctx, w, "read quota", err)
		return
	}
	writeJSON(w, http.StatusOK, quotaResponse{Success: true, Quota: state})
}

// parseSeasons accepts repeated and comma separated values. None means the
// seeder's defaults.
func parseSeasons(raw []string) ([]int, error) {
	var seasons []int
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			season, err := strconv.Atoi(part)
			if err != nil || season <= 0 {
				return nil, errInvalidSeason(part)
			}
			seasons = append(seasons, season)
		}
	}
	return seasons, nil
}
