// Package dashboard shapes stored football records into the dashboard's read
// models.
package dashboard

import (
	"context"

	"golang.org/x/sync/errgroup"

	"psl-dashboard/internal/football"
	"psl-dashboard/internal/store"
)

// Overview limits.
const (
	TopScorersLimit     = 5
	TopRatedLimit       = 10
	LatestFixturesLimit = 5
)

// Repository is the read side of the store.
type Repository interface {
	Standings(ctx context.Context, season int, team string) ([]football.Standing, error)
	Players(ctx context.Context, season int, team string) ([]football.PlayerRecord, error)
	Fixtures(ctx context.Context, season int, team string) ([]football.FixtureRecord, error)
	Teams(ctx context.Context, season int) ([]string, error)
}

// Query selects what a read returns. An empty Team means every team.
type Query struct {
	Season int
	Team   string
}

// Overview is the landing page summary of a season.
type Overview struct {
	Standings []football.Standing      `json:"standings"`
	Scorers   []football.PlayerRecord  `json:"scorers"`
	TopRated  []RatedPlayer            `json:"topRated"`
	Fixtures  []football.FixtureRecord `json:"fixtures"`
}

// RatedPlayer is a player record with its parsed rating.
type RatedPlayer struct {
	football.PlayerRecord
	AvgRating float64 `json:"avgRating"`
}

type Service struct {
	repo Repository
}

// NewService returns a Service. With a nil repo every read fails with
// store.ErrNotConfigured.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Standings(ctx context.Context, q Query) ([]football.Standing, error) {
	if s.repo == nil {
		return nil, store.ErrNotConfigured
	}
	rows, err := s.repo.Standings(ctx, q.Season, q.Team)
	return nonNil(rows), err
}

func (s *Service) Players(ctx context.Context, q Query) ([]football.PlayerRecord, error) {
	if s.repo == nil {
		return nil, store.ErrNotConfigured
	}
	recs, err := s.repo.Players(ctx, q.Season, q.Team)
	return nonNil(recs), err
}

func (s *Service) Fixtures(ctx context.Context, q Query) ([]football.FixtureRecord, error) {
	if s.repo == nil {
		return nil, store.ErrNotConfigured
	}
	recs, err := s.repo.Fixtures(ctx, q.Season, q.Team)
	return nonNil(recs), err
}

// Teams lists team names; season store.AllSeasons spans every season.
func (s *Service) Teams(ctx context.Context, season int) ([]string, error) {
	if s.repo == nil {
		return nil, store.ErrNotConfigured
	}
	teams, err := s.repo.Teams(ctx, season)
	return nonNil(teams), err
}

// Overview loads standings, players and fixtures concurrently and shapes
// them. Any failed load fails the whole overview.
func (s *Service) Overview(ctx context.Context, q Query) (*Overview, error) {
	if s.repo == nil {
		return nil, store.ErrNotConfigured
	}

	var (
		standings []football.Standing
		players   []football.PlayerRecord
		fixtures  []football.FixtureRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		standings, err = s.repo.Standings(gctx, q.Season, q.Team)
		return err
	})
	g.Go(func() (err error) {
		players, err = s.repo.Players(gctx, q.Season, q.Team)
		return err
	})
	g.Go(func() (err error) {
		fixtures, err = s.repo.Fixtures(gctx, q.Season, q.Team)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Overview{
		Standings: nonNil(standings),
		Scorers:   TopScorers(players, TopScorersLimit),
		TopRated:  TopRated(players, TopRatedLimit),
		Fixtures:  LatestFixtures(fixtures, LatestFixturesLimit),
	}, nil
}

// nonNil keeps empty results encoding as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
