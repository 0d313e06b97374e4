// Package seed refreshes stored football records from the upstream API.
package seed

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"psl-dashboard/internal/cache"
	"psl-dashboard/internal/football"
	"psl-dashboard/internal/metrics"
)

// ErrUpstream wraps every failure that came from the football API.
var ErrUpstream = errors.New("upstream fetch failed")

// DefaultLeague is the South African Premiership in api-football.
const DefaultLeague = 288

type Resource string

const (
	ResourceStandings Resource = "standings"
	ResourcePlayers   Resource = "players"
	ResourceFixtures  Resource = "fixtures"
)

// ParseResource validates a resource name.
func ParseResource(s string) (Resource, error) {
	switch r := Resource(s); r {
	case ResourceStandings, ResourcePlayers, ResourceFixtures:
		return r, nil
	default:
		return "", fmt.Errorf("unknown seed resource %q", s)
	}
}

// dependents lists the cache endpoints whose responses derive from a resource.
var dependents = map[Resource][]string{
	ResourceStandings: {cache.EndpointStandings, cache.EndpointOverview},
	ResourcePlayers:   {cache.EndpointPlayers, cache.EndpointTeams, cache.EndpointOverview},
	ResourceFixtures:  {cache.EndpointFixtures, cache.EndpointOverview},
}

// Writer is the write side of the store.
type Writer interface {
	ReplaceStandings(ctx context.Context, season int, rows []football.Standing) (int, error)
	ReplacePlayers(ctx context.Context, season int, recs []football.PlayerRecord) (int, error)
	ReplaceFixtures(ctx context.Context, season int, recs []football.FixtureRecord) (int, error)
}

// Invalidator drops cached responses of an endpoint.
type Invalidator interface {
	ClearEndpoint(ctx context.Context, endpoint string) int
}

type Config struct {
	League  int   // default: DefaultLeague
	Seasons []int // seasons seeded when a request names none
}

// Result summarizes one seeding run.
type Result struct {
	Resource Resource `json:"resource"`
	Seasons  []int    `json:"seasons"`
	Count    int      `json:"count"`
	// Invalidated is the number of cache entries dropped.
	Invalidated int `json:"invalidated"`
}

type Seeder struct {
	source football.Source
	store  Writer
	cache  Invalidator
	cfg    Config
	logger *zap.Logger
}

func NewSeeder(source football.Source, store Writer, inv Invalidator, cfg Config, logger *zap.Logger) *Seeder {
	if cfg.League == 0 {
		cfg.League = DefaultLeague
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{
		source: source,
		store:  store,
		cache:  inv,
		cfg:    cfg,
		logger: logger.Named("seed"),
	}
}

// DefaultSeasons returns the seasons seeded when a request names none.
func (s *Seeder) DefaultSeasons() []int {
	return slices.Clone(s.cfg.Seasons)
}

// Seed replaces the stored documents of res for every season, one season at
// a time. Dependent cache endpoints are cleared once the store was touched,
// even if a later season fails.
func (s *Seeder) Seed(ctx context.Context, res Resource, seasons []int) (result Result, err error) {
	if len(seasons) == 0 {
		seasons = s.cfg.Seasons
	}
	result = Result{Resource: res, Seasons: slices.Clone(seasons)}
	if len(seasons) == 0 {
		return result, errors.New("no seasons to seed")
	}

	start := time.Now()
	touched := false
	defer func() {
		if touched {
			result.Invalidated = s.invalidate(ctx, res)
		}
	}()

	for _, season := range seasons {
		n, err := s.seedSeason(ctx, res, season)
		// an upstream failure happens before the store is touched
		if err == nil || !errors.Is(err, ErrUpstream) {
			touched = true
		}
		result.Count += n
		metrics.SeededDocumentsTotal.WithLabelValues(string(res)).Add(float64(n))
		if err != nil {
			s.logger.Error("seeding failed",
				zap.String("resource", string(res)),
				zap.Int("season", season),
				zap.Error(err),
			)
			return result, fmt.Errorf("seed %s season %d: %w", res, season, err)
		}
	}

	s.logger.Info("seeding complete",
		zap.String("resource", string(res)),
		zap.Ints("seasons", seasons),
		zap.Int("count", result.Count),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

func (s *Seeder) seedSeason(ctx context.Context, res Resource, season int) (int, error) {
	switch res {
	case ResourceStandings:
		rows, err := s.source.Standings(ctx, s.cfg.League, season)
		if err != nil {
			return 0, upstream(err)
		}
		return s.store.ReplaceStandings(ctx, season, rows)

	case ResourcePlayers:
		recs, err := s.fetchPlayers(ctx, season)
		if err != nil {
			return 0, err
		}
		return s.store.ReplacePlayers(ctx, season, recs)

	case ResourceFixtures:
		recs, err := s.source.Fixtures(ctx, s.cfg.League, season)
		if err != nil {
			return 0, upstream(err)
		}
		return s.store.ReplaceFixtures(ctx, season, recs)

	default:
		return 0, fmt.Errorf("unknown seed resource %q", res)
	}
}

// fetchPlayers walks every team of the season and stamps each record with
// the team it was listed under.
func (s *Seeder) fetchPlayers(ctx context.Context, season int) ([]football.PlayerRecord, error) {
	teams, err := s.source.Teams(ctx, s.cfg.League, season)
	if err != nil {
		return nil, upstream(err)
	}

	var all []football.PlayerRecord
	for _, t := range teams {
		recs, err := s.source.Players(ctx, s.cfg.League, season, t.Team.ID)
		if err != nil {
			return nil, upstream(fmt.Errorf("team %s: %w", t.Team.Name, err))
		}
		for i := range recs {
			recs[i].TeamID = t.Team.ID
			recs[i].TeamName = t.Team.Name
			recs[i].Season = season
		}
		all = append(all, recs...)

		s.logger.Debug("fetched team players",
			zap.Int("season", season),
			zap.String("team", t.Team.Name),
			zap.Int("players", len(recs)),
		)
	}
	return all, nil
}

func (s *Seeder) invalidate(ctx context.Context, res Resource) int {
	if s.cache == nil {
		return 0
	}
	removed := 0
	for _, endpoint := range dependents[res] {
		removed += s.cache.ClearEndpoint(ctx, endpoint)
	}
	s.logger.Info("invalidated cached responses",
		zap.String("resource", string(res)),
		zap.Strings("endpoints", dependents[res]),
		zap.Int("removed", removed),
	)
	return removed
}

func upstream(err error) error {
	return fmt.Errorf("%w: %w", ErrUpstream, err)
}
