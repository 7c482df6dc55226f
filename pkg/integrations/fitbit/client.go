// Package fitbit fetches one day of activity, sleep, heart, body and HRV metrics
// from the Fitbit Web API.
package fitbit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/healthsync/server/pkg/domain/health"
	httputil "github.com/healthsync/server/pkg/infrastructure/http"
	"github.com/healthsync/server/pkg/infrastructure/oauth"
	"github.com/healthsync/server/pkg/pacing"
)

const (
	DefaultBaseURL = "https://api.fitbit.com"

	// DefaultCategoryDelay spaces out the six per-day requests.
	DefaultCategoryDelay = 2 * time.Second
)

// Category names, in request order.
const (
	CategoryActivity = "activity"
	CategorySleep    = "sleep"
	CategoryHeart    = "heart"
	CategoryWeight   = "weight"
	CategoryBodyFat  = "body_fat"
	CategoryHRV      = "hrv"
)

// Client is a Fitbit Web API client bound to one user's token.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	policy        httputil.RetryPolicy
	categoryDelay time.Duration
	sleep         pacing.SleepFunc
	logger        *slog.Logger
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithCategoryDelay(d time.Duration) Option {
	return func(c *Client) { c.categoryDelay = d }
}

// WithRetryPolicy sets the 429 backoff; its Sleep also paces the categories.
func WithRetryPolicy(p httputil.RetryPolicy) Option {
	return func(c *Client) {
		c.policy = p
		if p.Sleep != nil {
			c.sleep = p.Sleep
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTransport replaces the base round tripper under the auth and retry layers.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.httpClient = &http.Client{Transport: rt} }
}

// NewClient builds a client authenticating with source.
func NewClient(source oauth.TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL:       DefaultBaseURL,
		policy:        httputil.DefaultRetryPolicy(),
		categoryDelay: DefaultCategoryDelay,
		sleep:         pacing.Sleep,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "fitbit")

	var base http.RoundTripper
	if c.httpClient != nil {
		base = c.httpClient.Transport
	}
	c.httpClient = oauth.NewClient(source, c.policy, base, c.logger)
	return c
}

type categoryFetch struct {
	name  string
	fetch func(ctx context.Context, date string, m *health.DailyMetrics) error
}

// Fetch collects every metric category for date (YYYY-MM-DD).
//
// A category that answers with a non-success status, stays rate limited or
// returns an undecodable body is logged and left absent. Transport failures
// abort the date with a *health.TransportError; auth failures are returned as is.
func (c *Client) Fetch(ctx context.Context, date string) (*health.DailyMetrics, error) {
	if _, err := time.Parse(health.DateLayout, date); err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}

	categories := []categoryFetch{
		{CategoryActivity, c.fetchActivity},
		{CategorySleep, c.fetchSleep},
		{CategoryHeart, c.fetchHeart},
		{CategoryWeight, c.fetchWeight},
		{CategoryBodyFat, c.fetchBodyFat},
		{CategoryHRV, c.fetchHRV},
	}

	metrics := &health.DailyMetrics{Date: date}
	for i, cat := range categories {
		if i > 0 && c.categoryDelay > 0 {
			if err := c.sleep(ctx, c.categoryDelay); err != nil {
				return nil, err
			}
		}

		err := cat.fetch(ctx, date, metrics)
		if err == nil {
			continue
		}

		var catErr *health.CategoryFetchError
		if errors.As(err, &catErr) {
			var rateErr *health.RateLimitError
			c.logger.Warn("Category unavailable, leaving it absent",
				"date", date,
				"category", cat.name,
				"rate_limited", errors.As(err, &rateErr),
				"error", err,
			)
			continue
		}
		return nil, err
	}

	c.logger.Info("Fetched Fitbit metrics", "date", date)
	return metrics, nil
}

// getJSON performs a GET and decodes a 2xx body into out.
func (c *Client) getJSON(ctx context.Context, category, path string, header http.Header, out interface{}) error {
	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if health.IsFatal(err) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &health.TransportError{Op: "fitbit " + category, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &health.CategoryFetchError{
			Category: category,
			Err:      &health.RateLimitError{URL: url, Attempts: c.policy.MaxAttempts},
		}
	}
	if err := httputil.CheckResponse(resp); err != nil {
		return &health.CategoryFetchError{Category: category, Err: err}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &health.CategoryFetchError{Category: category, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) fetchActivity(ctx context.Context, date string, m *health.DailyMetrics) error {
	var out activityResponse
	if err := c.getJSON(ctx, CategoryActivity, fmt.Sprintf("/1/user/-/activities/date/%s.json", date), nil, &out); err != nil {
		return err
	}

	s := out.Summary
	activity := &health.Activity{
		Steps:         s.Steps,
		Calories:      s.CaloriesOut,
		ActiveMinutes: s.FairlyActiveMinutes + s.VeryActiveMinutes,
	}
	for i, d := range s.Distances {
		if i == 0 || d.Activity == "total" {
			activity.DistanceKm = d.Distance
		}
		if d.Activity == "total" {
			break
		}
	}
	m.Activity = activity
	return nil
}

func (c *Client) fetchSleep(ctx context.Context, date string, m *health.DailyMetrics) error {
	day, _ := time.Parse(health.DateLayout, date)
	next := day.AddDate(0, 0, 1).Format(health.DateLayout)

	// The v1.2 list endpoint is the only one that carries stage levels.
	path := fmt.Sprintf("/1.2/user/-/sleep/list.json?beforeDate=%s&sort=desc&limit=5&offset=0", next)
	header := http.Header{"Accept-Language": []string{"en_US"}}

	var out sleepListResponse
	if err := c.getJSON(ctx, CategorySleep, path, header, &out); err != nil {
		return err
	}

	session := selectMainSleep(out.Sleep, date)
	if session == nil {
		c.logger.Debug("No sleep session for date", "date", date, "sessions", len(out.Sleep))
		return nil
	}
	m.Sleep = toSleep(session)
	return nil
}

func (c *Client) fetchHeart(ctx context.Context, date string, m *health.DailyMetrics) error {
	var out heartResponse
	if err := c.getJSON(ctx, CategoryHeart, fmt.Sprintf("/1/user/-/activities/heart/date/%s/1d.json", date), nil, &out); err != nil {
		return err
	}
	if len(out.ActivitiesHeart) == 0 {
		return nil
	}

	value := out.ActivitiesHeart[0].Value
	m.Heart = &health.Heart{
		RestingBPM: value.RestingHeartRate,
		Zones:      mapZones(value.HeartRateZones),
	}
	return nil
}

// mapZones matches zone names by substring; zones outside the three named ones are ignored.
func mapZones(zones []heartZone) health.ZoneMinutes {
	var z health.ZoneMinutes
	for _, zone := range zones {
		name := strings.ReplaceAll(strings.ToLower(zone.Name), " ", "_")
		switch {
		case strings.Contains(name, "fat_burn"):
			z.FatBurn = zone.Minutes
		case strings.Contains(name, "cardio"):
			z.Cardio = zone.Minutes
		case strings.Contains(name, "peak"):
			z.Peak = zone.Minutes
		}
	}
	return z
}

func (c *Client) fetchWeight(ctx context.Context, date string, m *health.DailyMetrics) error {
	var out weightResponse
	if err := c.getJSON(ctx, CategoryWeight, fmt.Sprintf("/1/user/-/body/log/weight/date/%s.json", date), nil, &out); err != nil {
		return err
	}
	if len(out.Weight) > 0 {
		m.Body.WeightKg = out.Weight[0].Weight
		m.Body.BMI = out.Weight[0].BMI
	}
	return nil
}

func (c *Client) fetchBodyFat(ctx context.Context, date string, m *health.DailyMetrics) error {
	var out fatResponse
	if err := c.getJSON(ctx, CategoryBodyFat, fmt.Sprintf("/1/user/-/body/log/fat/date/%s.json", date), nil, &out); err != nil {
		return err
	}
	if len(out.Fat) > 0 {
		m.Body.BodyFatPct = out.Fat[0].Fat
	}
	return nil
}

func (c *Client) fetchHRV(ctx context.Context, date string, m *health.DailyMetrics) error {
	var out hrvResponse
	if err := c.getJSON(ctx, CategoryHRV, fmt.Sprintf("/1/user/-/hrv/date/%s.json", date), nil, &out); err != nil {
		return err
	}
	if n := len(out.HRV); n > 0 {
		// Most recent reading of the day.
		latest := out.HRV[n-1].Value
		m.HRV.DailyRMSSD = latest.DailyRmssd
		m.HRV.DeepRMSSD = latest.DeepRmssd
	}
	return nil
}
