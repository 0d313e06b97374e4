// Package store is the MongoDB repository behind the dashboard. All records
// live in one collection and are told apart by their type and season fields.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"psl-dashboard/internal/football"
)

// ErrNotConfigured is returned when no database URI was provided.
var ErrNotConfigured = errors.New("store: database not configured")

// AllSeasons disables the season filter where it is optional.
const AllSeasons = 0

type Config struct {
	URI            string
	Database       string        // default: psl
	Collection     string        // default: psl
	ConnectTimeout time.Duration // default: 10s
}

// WithDefaults returns a copy of Config with defaults applied.
func (c Config) WithDefaults() Config {
	if c.Database == "" {
		c.Database = "psl"
	}
	if c.Collection == "" {
		c.Collection = "psl"
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	return c
}

// Mongo reads and writes football records.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
	logger *zap.Logger
}

// Connect opens a client and verifies it with a ping.
func Connect(ctx context.Context, cfg Config, logger *zap.Logger) (*Mongo, error) {
	if cfg.URI == "" {
		return nil, ErrNotConfigured
	}
	cfg = cfg.WithDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(cfg.URI).
		SetServerSelectionTimeout(cfg.ConnectTimeout))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	m := &Mongo{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
		logger: logger.Named("store"),
	}
	m.logger.Info("connected to mongo",
		zap.String("database", cfg.Database),
		zap.String("collection", cfg.Collection),
	)
	return m, nil
}

// EnsureIndexes creates the type+season index every query relies on.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	_, err := m.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "type", Value: 1}, {Key: "season", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create type_season index: %w", err)
	}
	return nil
}

// Ping checks the primary is reachable.
func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// Standings returns the table of season sorted by rank. A non-empty team
// keeps only that club's row.
func (m *Mongo) Standings(ctx context.Context, season int, team string) ([]football.Standing, error) {
	filter := bson.D{{Key: "type", Value: football.TypeStandings}, {Key: "season", Value: season}}
	if team != "" {
		filter = append(filter, bson.E{Key: "team.name", Value: team})
	}

	var out []football.Standing
	if err := m.find(ctx, filter, bson.D{{Key: "rank", Value: 1}}, &out); err != nil {
		return nil, fmt.Errorf("find standings: %w", err)
	}
	return out, nil
}

// Players returns the player records of season, optionally of one team.
func (m *Mongo) Players(ctx context.Context, season int, team string) ([]football.PlayerRecord, error) {
	filter := bson.D{{Key: "type", Value: football.TypePlayer}, {Key: "season", Value: season}}
	if team != "" {
		filter = append(filter, bson.E{Key: "teamName", Value: team})
	}

	var out []football.PlayerRecord
	if err := m.find(ctx, filter, nil, &out); err != nil {
		return nil, fmt.Errorf("find players: %w", err)
	}
	return out, nil
}

// Fixtures returns the matches of season by kickoff date, oldest first. A
// non-empty team keeps matches where it played home or away.
func (m *Mongo) Fixtures(ctx context.Context, season int, team string) ([]football.FixtureRecord, error) {
	filter := bson.D{{Key: "type", Value: football.TypeFixture}, {Key: "season", Value: season}}
	if team != "" {
		filter = append(filter, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "teams.home.name", Value: team}},
			bson.D{{Key: "teams.away.name", Value: team}},
		}})
	}

	var out []football.FixtureRecord
	if err := m.find(ctx, filter, bson.D{{Key: "fixture.date", Value: 1}}, &out); err != nil {
		return nil, fmt.Errorf("find fixtures: %w", err)
	}
	return out, nil
}

// Teams returns the sorted distinct team names of stored players. season
// AllSeasons spans every season.
func (m *Mongo) Teams(ctx context.Context, season int) ([]string, error) {
	filter := bson.D{{Key: "type", Value: football.TypePlayer}}
	if season != AllSeasons {
		filter = append(filter, bson.E{Key: "season", Value: season})
	}

	values, err := m.coll.Distinct(ctx, "teamName", filter)
	if err != nil {
		return nil, fmt.Errorf("distinct team names: %w", err)
	}

	teams := make([]string, 0, len(values))
	for _, v := range values {
		if name, ok := v.(string); ok && name != "" {
			teams = append(teams, name)
		}
	}
	sort.Strings(teams)
	return teams, nil
}

// ReplaceStandings swaps the stored table of season for rows.
func (m *Mongo) ReplaceStandings(ctx context.Context, season int, rows []football.Standing) (int, error) {
	docs := make([]any, len(rows))
	for i := range rows {
		row := rows[i]
		row.Type, row.Season = football.TypeStandings, season
		docs[i] = row
	}
	return m.replace(ctx, football.TypeStandings, season, docs)
}

// ReplacePlayers swaps the stored player records of season for recs.
func (m *Mongo) ReplacePlayers(ctx context.Context, season int, recs []football.PlayerRecord) (int, error) {
	docs := make([]any, len(recs))
	for i := range recs {
		rec := recs[i]
		rec.Type, rec.Season = football.TypePlayer, season
		docs[i] = rec
	}
	return m.replace(ctx, football.TypePlayer, season, docs)
}

// ReplaceFixtures swaps the stored fixtures of season for recs.
func (m *Mongo) ReplaceFixtures(ctx context.Context, season int, recs []football.FixtureRecord) (int, error) {
	docs := make([]any, len(recs))
	for i := range recs {
		rec := recs[i]
		rec.Type, rec.Season = football.TypeFixture, season
		docs[i] = rec
	}
	return m.replace(ctx, football.TypeFixture, season, docs)
}

func (m *Mongo) find(ctx context.Context, filter, sortBy bson.D, out any) error {
	opts := options.Find()
	if sortBy != nil {
		opts.SetSort(sortBy)
	}

	cur, err := m.coll.Find(ctx, filter, opts)
	if err != nil {
		return err
	}
	return cur.All(ctx, out)
}

// replace deletes every document of typ in season and inserts docs. It is not
// atomic: a reader between the two steps sees an empty season.
func (m *Mongo) replace(ctx context.Context, typ string, season int, docs []any) (int, error) {
	del, err := m.coll.DeleteMany(ctx, bson.D{{Key: "type", Value: typ}, {Key: "season", Value: season}})
	if err != nil {
		return 0, fmt.Errorf("delete %s season %d: %w", typ, season, err)
	}

	inserted := 0
	if len(docs) > 0 {
		res, err := m.coll.InsertMany(ctx, docs)
		if err != nil {
			return 0, fmt.Errorf("insert %s season %d: %w", typ, season, err)
		}
		inserted = len(res.InsertedIDs)
	}

	m.logger.Info("replaced documents",
		zap.String("type", typ),
		zap.Int("season", season),
		zap.Int64("deleted", del.DeletedCount),
		zap.Int("inserted", inserted),
	)
	return inserted, nil
}
