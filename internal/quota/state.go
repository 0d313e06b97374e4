// Package quota tracks the upstream api-football request quota in Redis so
// every dashboard instance sees the same remaining budget.
package quota

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Redis keys for quota state.
const (
	KeyDailyLimit      = "psl:quota:daily_limit"
	KeyDailyRemaining  = "psl:quota:daily_remaining"
	KeyMinuteLimit     = "psl:quota:minute_limit"
	KeyMinuteRemaining = "psl:quota:minute_remaining"
	KeyLastUpdate      = "psl:quota:last_update"
)

// Key lifetimes follow the upstream windows.
const (
	DailyWindow  = 24 * time.Hour
	MinuteWindow = time.Minute
)

// DefaultReserve is the number of daily requests kept back for manual use.
const DefaultReserve = 5

// Response headers set by RapidAPI.
const (
	headerDailyLimit      = "x-ratelimit-requests-limit"
	headerDailyRemaining  = "x-ratelimit-requests-remaining"
	headerMinuteLimit     = "X-RateLimit-Limit"
	headerMinuteRemaining = "X-RateLimit-Remaining"
)

// Window is the last reported state of one quota window. Known is false until
// a response carried its headers.
type Window struct {
	Known     bool `json:"known"`
	Limit     int  `json:"limit,omitempty"`
	Remaining int  `json:"remaining,omitempty"`
}

// State is the shared quota view.
type State struct {
	Daily      Window    `json:"daily"`
	Minute     Window    `json:"minute"`
	Reserve    int       `json:"reserve"`
	LastUpdate time.Time `json:"lastUpdate,omitzero"`
	// MinuteResetIn is how long until the per-minute window state expires.
	MinuteResetIn time.Duration `json:"-"`
}

// DailyExhausted reports whether the daily budget is down to the reserve.
func (s State) DailyExhausted() bool {
	return s.Daily.Known && s.Daily.Remaining <= s.Reserve
}

// MinuteExhausted reports whether the per-minute window has no requests left.
func (s State) MinuteExhausted() bool {
	return s.Minute.Known && s.Minute.Remaining <= 0
}

// reading is what one response said about the quota.
type reading struct {
	daily  Window
	minute Window
}

func (r reading) empty() bool {
	return !r.daily.Known && !r.minute.Known
}

// parseHeaders extracts both windows from a response. Absent headers leave the
// window unknown; malformed ones are an error.
func parseHeaders(h http.Header) (reading, error) {
	var r reading
	var err error

	if r.daily, err = parseWindow(h, headerDailyLimit, headerDailyRemaining); err != nil {
		return reading{}, err
	}
	if r.minute, err = parseWindow(h, headerMinuteLimit, headerMinuteRemaining); err != nil {
		return reading{}, err
	}
	return r, nil
}

func parseWindow(h http.Header, limitHeader, remainingHeader string) (Window, error) {
	remainingStr := strings.TrimSpace(h.Get(remainingHeader))
	if remainingStr == "" {
		return Window{}, nil
	}

	remaining, err := strconv.Atoi(remainingStr)
	if err != nil {
		return Window{}, fmt.Errorf("parse %s header: %w", remainingHeader, err)
	}

	w := Window{Known: true, Remaining: remaining}
	if limitStr := strings.TrimSpace(h.Get(limitHeader)); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return Window{}, fmt.Errorf("parse %s header: %w", limitHeader, err)
		}
		w.Limit = limit
	}
	return w, nil
}
