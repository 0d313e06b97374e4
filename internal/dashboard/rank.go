package dashboard

import (
	"cmp"
	"slices"

	"psl-dashboard/internal/football"
)

// TopScorers returns at most n players with at least one goal, most goals
// first. Ties keep store order.
func TopScorers(players []football.PlayerRecord, n int) []football.PlayerRecord {
	out := make([]football.PlayerRecord, 0, min(n, len(players)))
	for _, p := range players {
		if p.GoalsTotal() != 0 {
			out = append(out, p)
		}
	}

	slices.SortStableFunc(out, func(a, b football.PlayerRecord) int {
		return cmp.Compare(b.GoalsTotal(), a.GoalsTotal())
	})
	return head(out, n)
}

// TopRated returns at most n players with a parseable rating, best first.
func TopRated(players []football.PlayerRecord, n int) []RatedPlayer {
	out := make([]RatedPlayer, 0, min(n, len(players)))
	for _, p := range players {
		if rating, ok := p.Rating(); ok {
			out = append(out, RatedPlayer{PlayerRecord: p, AvgRating: rating})
		}
	}

	slices.SortStableFunc(out, func(a, b RatedPlayer) int {
		return cmp.Compare(b.AvgRating, a.AvgRating)
	})
	return head(out, n)
}

// LatestFixtures returns the n most recent fixtures, newest first.
func LatestFixtures(fixtures []football.FixtureRecord, n int) []football.FixtureRecord {
	out := slices.Clone(fixtures)
	if out == nil {
		out = []football.FixtureRecord{}
	}

	slices.SortStableFunc(out, func(a, b football.FixtureRecord) int {
		return cmp.Compare(b.Fixture.Date, a.Fixture.Date)
	})
	return head(out, n)
}

func head[T any](s []T, n int) []T {
	if n >= 0 && len(s) > n {
		return s[:n]
	}
	return s
}
