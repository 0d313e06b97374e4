package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 8, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testTTLs() TTLConfig {
	return TTLConfig{
		Default: 2 * time.Second,
		Endpoints: map[string]time.Duration{
			EndpointStandings: 1000 * time.Millisecond,
			EndpointPlayers:   10 * time.Minute,
			EndpointTeams:     time.Hour,
			"short":           100 * time.Millisecond,
		},
	}
}

func newTestMemory(t *testing.T, opts ...Option) (*Memory, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	opts = append([]Option{WithClock(clock.Now), WithSweepInterval(-1)}, opts...)
	m := NewMemory(testTTLs(), opts...)
	t.Cleanup(func() { m.Close() })
	return m, clock
}

func TestMemory_SetAndGet(t *testing.T) {
	m, _ := newTestMemory(t)
	ctx := context.Background()

	m.Set(ctx, EndpointPlayers, []byte(`[1]`), Params{"season": 2023, "team": "Sundowns"})

	got, ok := m.Get(ctx, EndpointPlayers, Params{"team": "Sundowns", "season": 2023})
	if !ok {
		t.Fatalf("expected hit with params in a different order")
	}
	if string(got) != `[1]` {
		t.Fatalf("expected [1], got %q", got)
	}
}

func TestMemory_ParameterSensitivity(t *testing.T) {
	m, _ := newTestMemory(t)
	ctx := context.Background()

	m.Set(ctx, EndpointStandings, []byte("v1"), Params{"season": 2023})

	if _, ok := m.Get(ctx, EndpointStandings, Params{"season": 2024}); ok {
		t.Fatalf("different season must not hit")
	}
	if _, ok := m.Get(ctx, EndpointPlayers, Params{"season": 2023}); ok {
		t.Fatalf("different endpoint must not hit")
	}
	if _, ok := m.Get(ctx, EndpointStandings, nil); ok {
		t.Fatalf("missing params must not hit")
	}
}

func TestMemory_TTLBoundary(t *testing.T) {
	m, clock := newTestMemory(t)
	ctx := context.Background()
	params := Params{"season": 2023}

	m.Set(ctx, EndpointStandings, []byte("table"), params)

	clock.Advance(999 * time.Millisecond)
	if _, ok := m.Get(ctx, EndpointStandings, params); !ok {
		t.Fatalf("expected hit at 999ms")
	}

	clock.Advance(time.Millisecond)
	if _, ok := m.Get(ctx, EndpointStandings, params); ok {
		t.Fatalf("expected miss at exactly the ttl")
	}

	if n := m.Len(); n != 0 {
		t.Fatalf("expired entry should be removed by Get, %d left", n)
	}
}

func TestMemory_DefaultTTLFallback(t *testing.T) {
	m, clock := newTestMemory(t)
	ctx := context.Background()

	m.Set(ctx, "unknown", []byte("x"), nil)

	clock.Advance(2*time.Second - time.Millisecond)
	if _, ok := m.Get(ctx, "unknown", nil); !ok {
		t.Fatalf("expected hit before the default ttl")
	}
	clock.Advance(time.Millisecond)
	if _, ok := m.Get(ctx, "unknown", nil); ok {
		t.Fatalf("expected miss once the default ttl elapsed")
	}
}

func TestMemory_OverwriteRestartsTTL(t *testing.T) {
	m, clock := newTestMemory(t)
	ctx := context.Background()
	params := Params{"season": 2023}

	m.Set(ctx, EndpointStandings, []byte("first"), params)
	clock.Advance(800 * time.Millisecond)
	m.Set(ctx, EndpointStandings, []byte("second"), params)
	clock.Advance(800 * time.Millisecond)

	got, ok := m.Get(ctx, EndpointStandings, params)
	if !ok {
		t.Fatalf("expected hit: ttl window should restart on overwrite")
	}
	if string(got) != "second" {
		t.Fatalf("expected second value, got %q", got)
	}
	if n := m.Len(); n != 1 {
		t.Fatalf("overwrite must not add an entry, got %d", n)
	}
}

func TestMemory_ClearEndpoint(t *testing.T) {
	m, _ := newTestMemory(t)
	ctx := context.Background()

	m.Set(ctx, EndpointPlayers, []byte("p23"), Params{"season": 2023})
	m.Set(ctx, EndpointPlayers, []byte("p24"), Params{"season": 2024})
	m.Set(ctx, EndpointPlayers, []byte("all"), nil)
	m.Set(ctx, EndpointTeams, []byte("teams"), nil)
	m.Set(ctx, "players-archive", []byte("archive"), nil)

	if removed := m.ClearEndpoint(ctx, EndpointPlayers); removed != 3 {
		t.Fatalf("expected 3 removed, got %d", removed)
	}

	for _, season := range []int{2023, 2024} {
		if _, ok := m.Get(ctx, EndpointPlayers, Params{"season": season}); ok {
			t.Fatalf("players %d should be cleared", season)
		}
	}
	if _, ok := m.Get(ctx, EndpointTeams, nil); !ok {
		t.Fatalf("teams entry should survive")
	}
	if _, ok := m.Get(ctx, "players-archive", nil); !ok {
		t.Fatalf("an endpoint sharing the name prefix should survive")
	}

	if removed := m.ClearEndpoint(ctx, EndpointFixtures); removed != 0 {
		t.Fatalf("clearing an uncached endpoint should remove nothing, got %d", removed)
	}
}

func TestMemory_ClearSingleKey(t *testing.T) {
	m, _ := newTestMemory(t)
	ctx := context.Background()

	m.Set(ctx, EndpointPlayers, []byte("p23"), Params{"season": 2023})
	m.Set(ctx, EndpointPlayers, []byte("p24"), Params{"season": 2024})

	if !m.Clear(ctx, EndpointPlayers, Params{"season": 2023}) {
		t.Fatalf("expected Clear to report a removal")
	}
	if m.Clear(ctx, EndpointPlayers, Params{"season": 2023}) {
		t.Fatalf("second Clear should be a no-op")
	}
	if _, ok := m.Get(ctx, EndpointPlayers, Params{"season": 2024}); !ok {
		t.Fatalf("other variant should survive")
	}
}

func TestMemory_ClearAll(t *testing.T) {
	m, _ := newTestMemory(t)
	ctx := context.Background()

	m.Set(ctx, EndpointStandings, []byte("s"), Params{"season": 2023})
	m.Set(ctx, EndpointTeams, []byte("t"), nil)

	if removed := m.ClearAll(ctx); removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if stats := m.Stats(ctx); stats.Size != 0 || len(stats.Keys) != 0 {
		t.Fatalf("expected empty stats, got %+v", stats)
	}
	if _, ok := m.Get(ctx, EndpointStandings, Params{"season": 2023}); ok {
		t.Fatalf("expected miss after ClearAll")
	}
	if _, ok := m.Get(ctx, EndpointTeams, nil); ok {
		t.Fatalf("expected miss after ClearAll")
	}
}

func TestMemory_IdempotentMiss(t *testing.T) {
	var mu sync.Mutex
	evictions := map[EvictReason]int{}
	m, _ := newTestMemory(t, WithEvictHook(func(reason EvictReason, n int) {
		mu.Lock()
		evictions[reason] += n
		mu.Unlock()
	}))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, ok := m.Get(ctx, EndpointFixtures, Params{"season": 2023}); ok {
			t.Fatalf("never-set key must miss")
		}
	}

	m.Set(ctx, EndpointFixtures, []byte("f"), Params{"season": 2023})
	m.Clear(ctx, EndpointFixtures, Params{"season": 2023})
	for i := 0; i < 3; i++ {
		if _, ok := m.Get(ctx, EndpointFixtures, Params{"season": 2023}); ok {
			t.Fatalf("cleared key must miss")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if evictions[EvictExpired] != 0 {
		t.Fatalf("misses on absent keys must not evict, got %d", evictions[EvictExpired])
	}
	if evictions[EvictCleared] != 1 {
		t.Fatalf("expected exactly one cleared entry, got %d", evictions[EvictCleared])
	}
}

func TestMemory_Sweep(t *testing.T) {
	m, clock := newTestMemory(t)
	ctx := context.Background()

	// 2 short-lived, 3 long-lived
	m.Set(ctx, "short", []byte("a"), Params{"n": 1})
	m.Set(ctx, "short", []byte("b"), Params{"n": 2})
	m.Set(ctx, EndpointPlayers, []byte("c"), Params{"season": 2023})
	m.Set(ctx, EndpointTeams, []byte("d"), nil)
	m.Set(ctx, EndpointPlayers, []byte("e"), Params{"season": 2024})

	clock.Advance(100 * time.Millisecond)

	if removed := m.Sweep(); removed != 2 {
		t.Fatalf("expected 2 swept, got %d", removed)
	}

	want := []string{"players|season:2023", "players|season:2024", "teams"}
	stats := m.Stats(ctx)
	if stats.Size != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), stats.Size)
	}
	for i, key := range want {
		if stats.Keys[i] != key {
			t.Fatalf("keys[%d] = %q, want %q", i, stats.Keys[i], key)
		}
	}
}

func TestMemory_StatsIncludesExpired(t *testing.T) {
	m, clock := newTestMemory(t)
	ctx := context.Background()

	m.Set(ctx, "short", []byte("a"), nil)
	clock.Advance(time.Second)

	if stats := m.Stats(ctx); stats.Size != 1 {
		t.Fatalf("stats is a raw snapshot, expected 1 entry, got %d", stats.Size)
	}
}

func TestMemory_BackgroundSweep(t *testing.T) {
	clock := newFakeClock()
	m := NewMemory(testTTLs(), WithClock(clock.Now), WithSweepInterval(5*time.Millisecond))
	defer m.Close()
	ctx := context.Background()

	m.Set(ctx, "short", []byte("a"), nil)
	clock.Advance(time.Second)

	deadline := time.Now().Add(time.Second)
	for m.Len() > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("background sweep did not remove the expired entry")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestMemory_MaxEntriesEvictsLeastRecentlyUsed(t *testing.T) {
	m, _ := newTestMemory(t, WithMaxEntries(2))
	ctx := context.Background()

	m.Set(ctx, "a", []byte("A"), nil)
	m.Set(ctx, "b", []byte("B"), nil)

	// touch a so b becomes least recently used
	if _, ok := m.Get(ctx, "a", nil); !ok {
		t.Fatalf("expected a to exist")
	}

	m.Set(ctx, "c", []byte("C"), nil)

	if _, ok := m.Get(ctx, "b", nil); ok {
		t.Fatalf("expected b to be evicted")
	}
	if _, ok := m.Get(ctx, "a", nil); !ok {
		t.Fatalf("expected a to remain")
	}
	if _, ok := m.Get(ctx, "c", nil); !ok {
		t.Fatalf("expected c to exist")
	}
}

func TestMemory_ValuesAreCopied(t *testing.T) {
	m, _ := newTestMemory(t)
	ctx := context.Background()

	in := []byte("hello")
	m.Set(ctx, "k", in, nil)
	in[0] = 'j'

	out, _ := m.Get(ctx, "k", nil)
	out[1] = 'a'

	again, _ := m.Get(ctx, "k", nil)
	if string(again) != "hello" {
		t.Fatalf("stored value was mutated through a caller slice: %q", again)
	}
}

func TestMemory_CloseIsIdempotent(t *testing.T) {
	m := NewMemory(testTTLs(), WithSweepInterval(time.Millisecond))
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestMemory_Concurrency(t *testing.T) {
	m := NewMemory(testTTLs(), WithSweepInterval(time.Millisecond), WithMaxEntries(8))
	defer m.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for g := 0; g < 20; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				params := Params{"season": 2020 + i%10}
				switch i % 6 {
				case 0, 1:
					m.Get(ctx, EndpointPlayers, params)
				case 2:
					m.Set(ctx, EndpointPlayers, []byte(fmt.Sprintf("g%d", g)), params)
				case 3:
					m.Clear(ctx, EndpointPlayers, params)
				case 4:
					m.Stats(ctx)
				case 5:
					if i%50 == 5 {
						m.ClearEndpoint(ctx, EndpointPlayers)
					}
				}
			}
		}(g)
	}
	wg.Wait()

	if n := m.Len(); n > 8 {
		t.Fatalf("max entries exceeded: %d", n)
	}
}
