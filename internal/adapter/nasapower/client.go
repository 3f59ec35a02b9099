// Package nasapower fetches daily point data from the NASA POWER API.
package nasapower

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	envdomain "satfarm/internal/domain/environment"
	"satfarm/internal/domain/farm"
)

const (
	DefaultBaseURL   = "https://power.larc.nasa.gov"
	DefaultCommunity = "AG"
	dailyPointPath   = "/api/temporal/daily/point"
	dateLayout       = "20060102"
)

var ErrBackoff = errors.New("nasa power backoff active")

type Config struct {
	BaseURL   string
	Community string
	Timeout   time.Duration
	CacheTTL  time.Duration
}

type cacheEntry struct {
	series envdomain.Series
	at     time.Time
}

// Client fetches daily samples. Successful responses are cached per location
// and repeated failures back off exponentially up to ten minutes.
type Client struct {
	baseURL   string
	community string
	http      *http.Client
	now       func() time.Time

	mu          sync.Mutex
	cache       map[string]cacheEntry
	cacheTTL    time.Duration
	lastFailAt  time.Time
	failBackoff time.Duration
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Community == "" {
		cfg.Community = DefaultCommunity
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		community: cfg.Community,
		http:      &http.Client{Timeout: cfg.Timeout},
		now:       time.Now,
		cache:     map[string]cacheEntry{},
		cacheTTL:  cfg.CacheTTL,
	}
}

func (c *Client) DailySeries(ctx context.Context, loc farm.Location, start, end time.Time) (envdomain.Series, error) {
	key := fmt.Sprintf("%.4f,%.4f,%s", loc.Latitude, loc.Longitude, end.Format(dateLayout))

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	cached, hasCache := c.cache[key]
	if hasCache && now.Sub(cached.at) < c.cacheTTL {
		return cached.series, nil
	}
	if c.failBackoff > 0 && now.Sub(c.lastFailAt) < c.failBackoff {
		if hasCache {
			return cached.series, nil
		}
		return nil, fmt.Errorf("%w (%s remaining)", ErrBackoff, c.failBackoff-now.Sub(c.lastFailAt))
	}

	series, err := c.fetch(ctx, loc, start, end)
	if err != nil {
		c.lastFailAt = now
		if c.failBackoff == 0 {
			c.failBackoff = time.Minute
		} else if c.failBackoff < 10*time.Minute {
			c.failBackoff *= 2
		}
		return nil, err
	}
	c.cache[key] = cacheEntry{series: series, at: now}
	c.failBackoff = 0
	return series, nil
}

func (c *Client) fetch(ctx context.Context, loc farm.Location, start, end time.Time) (envdomain.Series, error) {
	q := url.Values{}
	q.Set("parameters", strings.Join(envdomain.Parameters(), ","))
	q.Set("community", c.community)
	q.Set("latitude", fmt.Sprintf("%.4f", loc.Latitude))
	q.Set("longitude", fmt.Sprintf("%.4f", loc.Longitude))
	q.Set("start", start.UTC().Format(dateLayout))
	q.Set("end", end.UTC().Format(dateLayout))
	q.Set("format", "JSON")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+dailyPointPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build nasa power request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nasa power call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read nasa power response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nasa power error %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	return ParseDaily(body)
}

// ParseDaily extracts properties.parameter from a POWER daily point response.
func ParseDaily(body []byte) (envdomain.Series, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("parse nasa power: invalid json")
	}
	params := gjson.GetBytes(body, "properties.parameter")
	if !params.IsObject() {
		return nil, errors.New("parse nasa power: missing properties.parameter")
	}
	out := envdomain.Series{}
	params.ForEach(func(name, samples gjson.Result) bool {
		values := map[string]float64{}
		samples.ForEach(func(date, v gjson.Result) bool {
			if v.Type == gjson.Number {
				values[date.String()] = v.Float()
			}
			return true
		})
		out[name.String()] = values
		return true
	})
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
