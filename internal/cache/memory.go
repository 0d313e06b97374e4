package cache

import (
	"container/list"
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultSweepInterval is how often expired entries are purged.
const DefaultSweepInterval = 5 * time.Minute

type memoryEntry struct {
	key      string
	value    []byte
	storedAt time.Time
	ttl      time.Duration
}

// expired: an entry is valid only while now-storedAt < ttl.
func (e *memoryEntry) expired(now time.Time) bool {
	return now.Sub(e.storedAt) >= e.ttl
}

// Memory is the in-process response cache. Entries expire after the TTL of
// their endpoint; a background sweep reclaims entries nobody looked up again.
//
// Memory is safe for concurrent use. Concurrent Sets on one key are last
// write wins.
type Memory struct {
	mu    sync.RWMutex
	items map[string]*list.Element
	// recency order, front = most recently used. Only consulted for eviction
	// when maxEntries > 0.
	order *list.List

	ttls       TTLConfig
	maxEntries int
	now        func() time.Time
	onEvict    func(reason EvictReason, n int)
	logger     *zap.Logger

	sweepInterval time.Duration
	stopSweep     chan struct{}
	sweepDone     chan struct{}
	closeOnce     sync.Once
}

// Option configures a Memory cache.
type Option func(*Memory)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Memory) { m.now = now }
}

// WithMaxEntries bounds the entry count with LRU eviction. n <= 0 means
// unbounded.
func WithMaxEntries(n int) Option {
	return func(m *Memory) { m.maxEntries = n }
}

// WithSweepInterval sets the background sweep period. Zero keeps the default,
// a negative value disables the sweep goroutine.
func WithSweepInterval(d time.Duration) Option {
	return func(m *Memory) { m.sweepInterval = d }
}

// WithEvictHook is called, outside the lock, whenever entries are removed.
func WithEvictHook(fn func(reason EvictReason, n int)) Option {
	return func(m *Memory) { m.onEvict = fn }
}

// WithLogger sets the logger used by the sweep goroutine.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Memory) { m.logger = logger }
}

// NewMemory creates an empty cache and starts the sweep goroutine unless it
// was disabled. Call Close to stop it.
func NewMemory(ttls TTLConfig, opts ...Option) *Memory {
	m := &Memory{
		items:         make(map[string]*list.Element),
		order:         list.New(),
		ttls:          ttls,
		now:           time.Now,
		logger:        zap.NewNop(),
		sweepInterval: DefaultSweepInterval,
		stopSweep:     make(chan struct{}),
		sweepDone:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.sweepInterval > 0 {
		go m.sweepLoop()
	} else {
		close(m.sweepDone)
	}

	return m
}

// Get returns the value stored for endpoint and params if it is still valid.
// An expired entry is deleted as a side effect.
func (m *Memory) Get(_ context.Context, endpoint string, params Params) ([]byte, bool) {
	key := BuildKey(endpoint, params)
	now := m.now()

	m.mu.RLock()
	el, ok := m.items[key]
	if !ok {
		m.mu.RUnlock()
		return nil, false
	}
	e := el.Value.(*memoryEntry)
	if !e.expired(now) && m.maxEntries <= 0 {
		value := cloneBytes(e.value)
		m.mu.RUnlock()
		return value, true
	}
	m.mu.RUnlock()

	// Either expired or the recency list must move: both need the write lock.
	m.mu.Lock()
	el, ok = m.items[key]
	if !ok {
		m.mu.Unlock()
		return nil, false
	}
	e = el.Value.(*memoryEntry)
	if e.expired(now) {
		m.removeLocked(el)
		m.mu.Unlock()
		m.evicted(EvictExpired, 1)
		return nil, false
	}
	m.order.MoveToFront(el)
	value := cloneBytes(e.value)
	m.mu.Unlock()

	return value, true
}

// Set stores value for endpoint and params, replacing any previous entry and
// restarting its TTL window.
func (m *Memory) Set(_ context.Context, endpoint string, value []byte, params Params) {
	key := BuildKey(endpoint, params)
	e := &memoryEntry{
		key:      key,
		value:    cloneBytes(value),
		storedAt: m.now(),
		ttl:      m.ttls.For(endpoint),
	}

	m.mu.Lock()
	if el, ok := m.items[key]; ok {
		el.Value = e
		m.order.MoveToFront(el)
		m.mu.Unlock()
		return
	}
	m.items[key] = m.order.PushFront(e)

	evicted := 0
	for m.maxEntries > 0 && len(m.items) > m.maxEntries {
		m.removeLocked(m.order.Back())
		evicted++
	}
	m.mu.Unlock()

	m.evicted(EvictCapacity, evicted)
}

// Clear removes the single entry for endpoint and params.
func (m *Memory) Clear(_ context.Context, endpoint string, params Params) bool {
	key := BuildKey(endpoint, params)

	m.mu.Lock()
	el, ok := m.items[key]
	if ok {
		m.removeLocked(el)
	}
	m.mu.Unlock()

	if ok {
		m.evicted(EvictCleared, 1)
	}
	return ok
}

// ClearEndpoint removes every parameter variant cached for endpoint.
func (m *Memory) ClearEndpoint(_ context.Context, endpoint string) int {
	m.mu.Lock()
	removed := 0
	for key, el := range m.items {
		if belongsTo(key, endpoint) {
			m.removeLocked(el)
			removed++
		}
	}
	m.mu.Unlock()

	m.evicted(EvictCleared, removed)
	return removed
}

// ClearAll empties the cache.
func (m *Memory) ClearAll(_ context.Context) int {
	m.mu.Lock()
	removed := len(m.items)
	m.items = make(map[string]*list.Element)
	m.order.Init()
	m.mu.Unlock()

	m.evicted(EvictCleared, removed)
	return removed
}

// Stats returns the entry count and the sorted list of stored keys.
func (m *Memory) Stats(_ context.Context) Stats {
	m.mu.RLock()
	keys := make([]string, 0, len(m.items))
	for key := range m.items {
		keys = append(keys, key)
	}
	m.mu.RUnlock()

	sort.Strings(keys)
	return Stats{Size: len(keys), Keys: keys}
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Sweep deletes every expired entry and returns how many were removed.
func (m *Memory) Sweep() int {
	now := m.now()

	m.mu.Lock()
	removed := 0
	for _, el := range m.items {
		if el.Value.(*memoryEntry).expired(now) {
			m.removeLocked(el)
			removed++
		}
	}
	m.mu.Unlock()

	m.evicted(EvictSwept, removed)
	return removed
}

// Close stops the sweep goroutine. Safe to call more than once.
func (m *Memory) Close() error {
	m.closeOnce.Do(func() {
		close(m.stopSweep)
	})
	<-m.sweepDone
	return nil
}

func (m *Memory) sweepLoop() {
	defer close(m.sweepDone)

	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.logger.Debug("cache sweep",
					zap.Int("removed", n),
					zap.Int("remaining", m.Len()),
				)
			}
		case <-m.stopSweep:
			return
		}
	}
}

func (m *Memory) removeLocked(el *list.Element) {
	e := el.Value.(*memoryEntry)
	delete(m.items, e.key)
	m.order.Remove(el)
}

func (m *Memory) evicted(reason EvictReason, n int) {
	if n > 0 && m.onEvict != nil {
		m.onEvict(reason, n)
	}
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
