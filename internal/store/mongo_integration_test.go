//go:build integration

package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"

	"psl-dashboard/internal/football"
)

// setupMongo starts a MongoDB container and returns a connected store.
func setupMongo(t *testing.T) *Mongo {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForLog("Waiting for connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start mongo container: %v", err)
	}

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("mongo endpoint: %v", err)
	}

	m, err := Connect(ctx, Config{
		URI:      fmt.Sprintf("mongodb://%s", endpoint),
		Database: "psl_test",
	}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := m.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes: %v", err)
	}

	t.Cleanup(func() {
		m.Close(ctx)
		container.Terminate(ctx)
	})
	return m
}

func TestMongo_Integration_Standings(t *testing.T) {
	m := setupMongo(t)
	ctx := context.Background()

	rows := []football.Standing{
		{Rank: 2, Team: football.TeamRef{ID: 2, Name: "Pirates"}, Points: 54},
		{Rank: 1, Team: football.TeamRef{ID: 1, Name: "Sundowns"}, Points: 73},
	}
	if n, err := m.ReplaceStandings(ctx, 2023, rows); err != nil || n != 2 {
		t.Fatalf("ReplaceStandings() = %d, %v", n, err)
	}
	if _, err := m.ReplaceStandings(ctx, 2022, rows[:1]); err != nil {
		t.Fatalf("ReplaceStandings(2022): %v", err)
	}

	got, err := m.Standings(ctx, 2023, "")
	if err != nil {
		t.Fatalf("Standings: %v", err)
	}
	if len(got) != 2 || got[0].Team.Name != "Sundowns" || got[1].Rank != 2 {
		t.Fatalf("expected 2023 table sorted by rank, got %+v", got)
	}

	got, err = m.Standings(ctx, 2023, "Pirates")
	if err != nil || len(got) != 1 || got[0].Points != 54 {
		t.Fatalf("team filter: %+v, %v", got, err)
	}

	// replacing one season leaves the others alone
	if _, err := m.ReplaceStandings(ctx, 2023, rows[1:]); err != nil {
		t.Fatalf("ReplaceStandings again: %v", err)
	}
	if got, _ := m.Standings(ctx, 2023, ""); len(got) != 1 {
		t.Fatalf("expected 1 row after replace, got %d", len(got))
	}
	if got, _ := m.Standings(ctx, 2022, ""); len(got) != 1 {
		t.Fatalf("2022 should be untouched, got %d rows", len(got))
	}
}

func TestMongo_Integration_PlayersAndTeams(t *testing.T) {
	m := setupMongo(t)
	ctx := context.Background()

	goals := 12
	players := []football.PlayerRecord{
		{Player: football.Player{ID: 1, Name: "Shalulile"}, TeamName: "Sundowns",
			Statistics: []football.Statistic{{Goals: football.Goals{Total: &goals}}}},
		{Player: football.Player{ID: 2, Name: "Mofokeng"}, TeamName: "Pirates"},
	}
	if _, err := m.ReplacePlayers(ctx, 2023, players); err != nil {
		t.Fatalf("ReplacePlayers: %v", err)
	}
	if _, err := m.ReplacePlayers(ctx, 2022, []football.PlayerRecord{
		{Player: football.Player{ID: 3, Name: "Old"}, TeamName: "Arrows"},
	}); err != nil {
		t.Fatalf("ReplacePlayers(2022): %v", err)
	}

	got, err := m.Players(ctx, 2023, "Sundowns")
	if err != nil || len(got) != 1 || got[0].GoalsTotal() != 12 || got[0].Season != 2023 {
		t.Fatalf("Players: %+v, %v", got, err)
	}

	teams, err := m.Teams(ctx, 2023)
	if err != nil {
		t.Fatalf("Teams: %v", err)
	}
	if fmt.Sprint(teams) != "[Pirates Sundowns]" {
		t.Fatalf("Teams(2023) = %v", teams)
	}

	all, err := m.Teams(ctx, AllSeasons)
	if err != nil || fmt.Sprint(all) != "[Arrows Pirates Sundowns]" {
		t.Fatalf("Teams(all) = %v, %v", all, err)
	}
}

func TestMongo_Integration_Fixtures(t *testing.T) {
	m := setupMongo(t)
	ctx := context.Background()

	fixtures := []football.FixtureRecord{
		{Fixture: football.FixtureInfo{ID: 2, Date: "2023-09-02T15:00:00+00:00"},
			Teams: football.FixtureTeams{Home: football.TeamRef{Name: "Pirates"}, Away: football.TeamRef{Name: "Chiefs"}}},
		{Fixture: football.FixtureInfo{ID: 1, Date: "2023-08-05T15:00:00+00:00"},
			Teams: football.FixtureTeams{Home: football.TeamRef{Name: "Sundowns"}, Away: football.TeamRef{Name: "Pirates"}}},
		{Fixture: football.FixtureInfo{ID: 3, Date: "2023-10-01T15:00:00+00:00"},
			Teams: football.FixtureTeams{Home: football.TeamRef{Name: "Chiefs"}, Away: football.TeamRef{Name: "Sundowns"}}},
	}
	if _, err := m.ReplaceFixtures(ctx, 2023, fixtures); err != nil {
		t.Fatalf("ReplaceFixtures: %v", err)
	}

	got, err := m.Fixtures(ctx, 2023, "")
	if err != nil || len(got) != 3 {
		t.Fatalf("Fixtures: %+v, %v", got, err)
	}
	if got[0].Fixture.ID != 1 || got[2].Fixture.ID != 3 {
		t.Fatalf("expected date order 1,2,3, got %d,%d,%d", got[0].Fixture.ID, got[1].Fixture.ID, got[2].Fixture.ID)
	}

	got, err = m.Fixtures(ctx, 2023, "Pirates")
	if err != nil || len(got) != 2 {
		t.Fatalf("expected 2 Pirates fixtures home or away, got %+v, %v", got, err)
	}

	if err := m.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
