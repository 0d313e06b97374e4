package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/go-chi/chi/v5"

	"psl-dashboard/internal/football"
	"psl-dashboard/internal/quota"
	"psl-dashboard/internal/seed"
)

type fakeSeeder struct {
	err         error
	gotResource seed.Resource
	gotSeasons  []int
}

func (f *fakeSeeder) Seed(_ context.Context, res seed.Resource, seasons []int) (seed.Result, error) {
	f.gotResource, f.gotSeasons = res, seasons
	if f.err != nil {
		return seed.Result{}, f.err
	}
	return seed.Result{Resource: res, Seasons: seasons, Count: 16, Invalidated: 2}, nil
}

type fakeQuota struct {
	state quota.State
	err   error
}

func (f *fakeQuota) State(context.Context) (quota.State, error) { return f.state, f.err }

func newSeedRouter(h *SeedHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/api/seed/{resource}", h.Seed)
	r.Get("/api/seed/quota", h.Quota)
	return r
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestSeed_Success(t *testing.T) {
	s := &fakeSeeder{}
	r := newSeedRouter(NewSeedHandler(s, nil))

	rec := serve(r, http.MethodPost, "/api/seed/standings?season=2022,2023&season=2024")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if s.gotResource != seed.ResourceStandings || !slices.Equal(s.gotSeasons, []int{2022, 2023, 2024}) {
		t.Fatalf("unexpected call %s %v", s.gotResource, s.gotSeasons)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["message"] != "Standings seeded successfully" || body["count"] != float64(16) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestSeed_DefaultSeasons(t *testing.T) {
	s := &fakeSeeder{}
	r := newSeedRouter(NewSeedHandler(s, nil))

	if rec := serve(r, http.MethodPost, "/api/seed/players"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if s.gotSeasons != nil {
		t.Fatalf("expected no seasons so the seeder uses its defaults, got %v", s.gotSeasons)
	}
}

func TestSeed_Errors(t *testing.T) {
	tests := []struct {
		name       string
		seeder     Seeder
		target     string
		wantStatus int
	}{
		{"disabled", nil, "/api/seed/standings", http.StatusServiceUnavailable},
		{"unknown resource", &fakeSeeder{}, "/api/seed/teams", http.StatusNotFound},
		{"bad season", &fakeSeeder{}, "/api/seed/fixtures?season=twenty", http.StatusBadRequest},
		{
			"upstream failure",
			&fakeSeeder{err: errors.Join(seed.ErrUpstream, &football.APIError{StatusCode: 500})},
			"/api/seed/fixtures",
			http.StatusBadGateway,
		},
		{
			"quota exhausted",
			&fakeSeeder{err: errors.Join(seed.ErrUpstream, football.ErrQuotaExhausted)},
			"/api/seed/players",
			http.StatusTooManyRequests,
		},
		{"store failure", &fakeSeeder{err: errors.New("write conflict")}, "/api/seed/players", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(newSeedRouter(NewSeedHandler(tt.seeder, nil)), http.MethodPost, tt.target)
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			var body errorBody
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Error == "" {
				t.Fatalf("expected error body, got %s", rec.Body.String())
			}
		})
	}
}

func TestSeed_Quota(t *testing.T) {
	q := &fakeQuota{state: quota.State{
		Reserve: quota.DefaultReserve,
		Daily:   quota.Window{Known: true, Limit: 100, Remaining: 61},
	}}
	r := newSeedRouter(NewSeedHandler(nil, q))

	rec := serve(r, http.MethodGet, "/api/seed/quota")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body quotaResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || body.Quota.Daily.Remaining != 61 || body.Quota.Minute.Known {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}

	if rec := serve(newSeedRouter(NewSeedHandler(nil, nil)), http.MethodGet, "/api/seed/quota"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without a tracker, got %d", rec.Code)
	}
}
