package quota

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"psl-dashboard/internal/football"
	"psl-dashboard/internal/metrics"
)

// Tracker records upstream quota headers and gates requests on them.
type Tracker struct {
	redis   *redis.Client
	reserve int
	logger  *zap.Logger
	now     func() time.Time
}

// NewTracker creates a tracker. A reserve below zero means DefaultReserve.
func NewTracker(rdb *redis.Client, reserve int, logger *zap.Logger) *Tracker {
	if reserve < 0 {
		reserve = DefaultReserve
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		redis:   rdb,
		reserve: reserve,
		logger:  logger.Named("quota"),
		now:     time.Now,
	}
}

// State reads the shared quota view. Windows never reported are left unknown.
func (t *Tracker) State(ctx context.Context) (State, error) {
	state := State{Reserve: t.reserve}

	pipe := t.redis.Pipeline()
	dailyLimit := pipe.Get(ctx, KeyDailyLimit)
	dailyRemaining := pipe.Get(ctx, KeyDailyRemaining)
	minuteLimit := pipe.Get(ctx, KeyMinuteLimit)
	minuteRemaining := pipe.Get(ctx, KeyMinuteRemaining)
	minuteTTL := pipe.PTTL(ctx, KeyMinuteRemaining)
	lastUpdate := pipe.Get(ctx, KeyLastUpdate)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return State{}, fmt.Errorf("read quota state: %w", err)
	}

	var err error
	if state.Daily, err = readWindow(dailyLimit, dailyRemaining); err != nil {
		return State{}, err
	}
	if state.Minute, err = readWindow(minuteLimit, minuteRemaining); err != nil {
		return State{}, err
	}
	if ttl := minuteTTL.Val(); ttl > 0 {
		state.MinuteResetIn = ttl
	}
	if ts, err := lastUpdate.Int64(); err == nil {
		state.LastUpdate = time.Unix(ts, 0).UTC()
	}

	return state, nil
}

func readWindow(limit, remaining *redis.StringCmd) (Window, error) {
	n, err := remaining.Int()
	if errors.Is(err, redis.Nil) {
		return Window{}, nil
	}
	if err != nil {
		return Window{}, fmt.Errorf("parse remaining: %w", err)
	}

	w := Window{Known: true, Remaining: n}
	if l, err := limit.Int(); err == nil {
		w.Limit = l
	}
	return w, nil
}

// Observe stores the quota reported by an upstream response. Responses
// without quota headers are ignored.
func (t *Tracker) Observe(ctx context.Context, header http.Header) error {
	r, err := parseHeaders(header)
	if err != nil {
		return err
	}
	if r.empty() {
		return nil
	}

	pipe := t.redis.TxPipeline()
	if r.daily.Known {
		pipe.Set(ctx, KeyDailyRemaining, r.daily.Remaining, DailyWindow)
		if r.daily.Limit > 0 {
			pipe.Set(ctx, KeyDailyLimit, r.daily.Limit, DailyWindow)
		}
		metrics.UpstreamQuotaRemaining.WithLabelValues("daily").Set(float64(r.daily.Remaining))
	}
	if r.minute.Known {
		pipe.Set(ctx, KeyMinuteRemaining, r.minute.Remaining, MinuteWindow)
		if r.minute.Limit > 0 {
			pipe.Set(ctx, KeyMinuteLimit, r.minute.Limit, MinuteWindow)
		}
		metrics.UpstreamQuotaRemaining.WithLabelValues("minute").Set(float64(r.minute.Remaining))
	}
	pipe.Set(ctx, KeyLastUpdate, t.now().Unix(), DailyWindow)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store quota state in redis: %w", err)
	}

	t.logger.Debug("upstream quota updated",
		zap.Bool("daily_known", r.daily.Known),
		zap.Int("daily_remaining", r.daily.Remaining),
		zap.Bool("minute_known", r.minute.Known),
		zap.Int("minute_remaining", r.minute.Remaining),
	)
	return nil
}

// Allow returns football.ErrQuotaExhausted once the daily budget is down to
// the reserve and waits out an exhausted per-minute window. When Redis is
// unreachable the request is let through.
func (t *Tracker) Allow(ctx context.Context) error {
	state, err := t.State(ctx)
	if err != nil {
		t.logger.Warn("quota state unavailable, allowing request", zap.Error(err))
		return nil
	}

	wait, err := decide(state)
	if err != nil {
		t.logger.Error("upstream daily quota exhausted",
			zap.Int("daily_remaining", state.Daily.Remaining),
			zap.Int("reserve", state.Reserve),
		)
		return err
	}
	if wait <= 0 {
		return nil
	}

	t.logger.Warn("upstream minute quota exhausted, waiting",
		zap.Duration("wait", wait),
	)
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// decide maps a state to a wait before the next request or a hard stop.
func decide(s State) (time.Duration, error) {
	if s.DailyExhausted() {
		return 0, fmt.Errorf("%w: %d requests left today, %d reserved",
			football.ErrQuotaExhausted, s.Daily.Remaining, s.Reserve)
	}
	if !s.MinuteExhausted() {
		return 0, nil
	}

	wait := s.MinuteResetIn
	if wait <= 0 || wait > MinuteWindow {
		wait = MinuteWindow
	}
	return wait, nil
}

var _ football.QuotaGate = (*Tracker)(nil)
