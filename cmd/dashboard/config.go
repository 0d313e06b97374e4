package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"psl-dashboard/internal/cache"
	"psl-dashboard/internal/football"
	"psl-dashboard/internal/handlers"
	"psl-dashboard/internal/seed"
)

type Config struct {
	Port string

	MongoURI        string
	MongoDB         string
	MongoCollection string

	DefaultSeason int

	CacheTTLFile       string
	CacheSweepInterval time.Duration
	CacheMaxEntries    int
	CacheSingleFlight  bool

	RapidAPIKey     string
	RapidAPIHost    string
	FootballBaseURL string
	LeagueID        int
	SeedSeasons     []int

	RedisAddr string
}

func LoadConfig() (Config, error) {
	cfg := Config{
		Port:            getenv("PORT", "8080"),
		MongoURI:        os.Getenv("MONGO_URI"),
		MongoDB:         getenv("MONGO_DB", "psl"),
		MongoCollection: getenv("MONGO_COLLECTION", "psl"),
		CacheTTLFile:    os.Getenv("CACHE_TTL_FILE"),
		RapidAPIKey:     os.Getenv("RAPIDAPI_KEY"),
		RapidAPIHost:    getenv("RAPIDAPI_HOST", football.DefaultHost),
		FootballBaseURL: getenv("FOOTBALL_BASE_URL", football.DefaultBaseURL),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
	}

	var err error
	if cfg.DefaultSeason, err = getenvInt("DEFAULT_SEASON", handlers.DefaultSeason); err != nil {
		return Config{}, err
	}
	if cfg.CacheSweepInterval, err = getenvDuration("CACHE_SWEEP_INTERVAL", cache.DefaultSweepInterval); err != nil {
		return Config{}, err
	}
	if cfg.CacheMaxEntries, err = getenvInt("CACHE_MAX_ENTRIES", 0); err != nil {
		return Config{}, err
	}
	if cfg.CacheSingleFlight, err = getenvBool("CACHE_SINGLEFLIGHT", false); err != nil {
		return Config{}, err
	}
	if cfg.LeagueID, err = getenvInt("LEAGUE_ID", seed.DefaultLeague); err != nil {
		return Config{}, err
	}
	if cfg.SeedSeasons, err = parseIntList(getenv("SEED_SEASONS", "2020,2021,2022,2023,2024")); err != nil {
		return Config{}, fmt.Errorf("SEED_SEASONS: %w", err)
	}

	if cfg.DefaultSeason <= 0 {
		return Config{}, fmt.Errorf("DEFAULT_SEASON must be positive, got %d", cfg.DefaultSeason)
	}
	if cfg.CacheMaxEntries < 0 {
		return Config{}, fmt.Errorf("CACHE_MAX_ENTRIES must not be negative, got %d", cfg.CacheMaxEntries)
	}
	return cfg, nil
}

// getenv returns the value of the environment variable key or def if not set.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getenvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func parseIntList(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
