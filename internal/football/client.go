package football

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"psl-dashboard/internal/metrics"
)

const maxErrorBody = 4 << 10

// Standings returns every table row of league in season, all groups flattened
// in upstream order.
func (c *Client) Standings(ctx context.Context, league, season int) ([]Standing, error) {
	env, err := get[standingsLeague](ctx, c, "/v3/standings", url.Values{
		"league": {strconv.Itoa(league)},
		"season": {strconv.Itoa(season)},
	})
	if err != nil {
		return nil, err
	}

	var out []Standing
	for _, entry := range env.Response {
		for _, group := range entry.League.Standings {
			out = append(out, group...)
		}
	}
	return out, nil
}

// Teams lists the clubs of league in season.
func (c *Client) Teams(ctx context.Context, league, season int) ([]TeamInfo, error) {
	env, err := get[TeamInfo](ctx, c, "/v3/teams", url.Values{
		"league": {strconv.Itoa(league)},
		"season": {strconv.Itoa(season)},
	})
	if err != nil {
		return nil, err
	}
	return env.Response, nil
}

// Players returns the season statistics of every player of teamID, following
// pagination up to MaxPages.
func (c *Client) Players(ctx context.Context, league, season, teamID int) ([]PlayerRecord, error) {
	var out []PlayerRecord

	for page := 1; page <= c.cfg.MaxPages; page++ {
		env, err := get[PlayerRecord](ctx, c, "/v3/players", url.Values{
			"league": {strconv.Itoa(league)},
			"season": {strconv.Itoa(season)},
			"team":   {strconv.Itoa(teamID)},
			"page":   {strconv.Itoa(page)},
		})
		if err != nil {
			return nil, fmt.Errorf("players page %d: %w", page, err)
		}

		for _, rec := range env.Response {
			rec.TeamID = teamID
			rec.Season = season
			if len(rec.Statistics) > 0 {
				rec.TeamName = rec.Statistics[0].Team.Name
			}
			out = append(out, rec)
		}

		if env.Paging.Total <= page {
			return out, nil
		}
	}

	c.logger.Warn("players pagination stopped at page limit",
		zap.Int("team_id", teamID),
		zap.Int("season", season),
		zap.Int("max_pages", c.cfg.MaxPages),
	)
	return out, nil
}

// Fixtures returns every match of league in season.
func (c *Client) Fixtures(ctx context.Context, league, season int) ([]FixtureRecord, error) {
	env, err := get[FixtureRecord](ctx, c, "/v3/fixtures", url.Values{
		"league": {strconv.Itoa(league)},
		"season": {strconv.Itoa(season)},
	})
	if err != nil {
		return nil, err
	}
	return env.Response, nil
}

// get performs one quota-gated, retried GET and decodes the envelope.
func get[T any](ctx context.Context, c *Client, path string, query url.Values) (*envelope[T], error) {
	if c.cfg.Quota != nil {
		if err := c.cfg.Quota.Allow(ctx); err != nil {
			return nil, err
		}
	}

	endpoint := c.cfg.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	resp, err := c.doWithRetry(ctx, path, func(ctx context.Context) (*http.Response, error) {
		reqCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)

		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-RapidAPI-Key", c.cfg.APIKey)
		req.Header.Set("X-RapidAPI-Host", c.cfg.Host)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			cancel()
			metrics.UpstreamRequestsTotal.WithLabelValues(path, "error").Inc()
			return nil, err
		}
		metrics.UpstreamRequestsTotal.WithLabelValues(path, strconv.Itoa(resp.StatusCode)).Inc()

		if c.cfg.Quota != nil {
			if err := c.cfg.Quota.Observe(ctx, resp.Header); err != nil {
				c.logger.Warn("record upstream quota", zap.Error(err))
			}
		}

		resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &APIError{Path: path, StatusCode: resp.StatusCode}
		if len(body) > 0 {
			apiErr.Messages = []string{string(body)}
		}
		return nil, apiErr
	}

	var env envelope[T]
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", path, err)
	}

	if len(env.Errors) > 0 {
		apiErr := &APIError{
			Path:       path,
			StatusCode: resp.StatusCode,
			Messages:   errorMessages(env.Errors),
		}
		if quotaError(env.Errors) {
			return nil, errors.Join(ErrQuotaExhausted, apiErr)
		}
		return nil, apiErr
	}

	return &env, nil
}

// cancelOnClose ties the per-request timeout to the body lifetime.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

var _ Source = (*Client)(nil)
