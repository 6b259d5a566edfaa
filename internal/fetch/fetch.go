// Package fetch is the only place that talks to the education data API. It
// follows pagination cursors, retries transient failures with exponential
// backoff, and paces requests to the configured rate limit.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ipedsetl/internal/platform/config"
	"ipedsetl/internal/platform/metrics"
)

// ErrExhausted marks a fetch that failed on every retry attempt. The wrapped
// message carries the attempt count and URL for the operator.
var ErrExhausted = errors.New("fetch retries exhausted")

// Client issues API requests over one shared connection pool. It holds no
// other state between calls.
type Client struct {
	http       *http.Client
	base       *url.URL
	maxRetries int
	backoff    time.Duration
	rps        float64
	userAgent  string
	log        *log.Logger
	metrics    *metrics.Metrics
}

// New builds a Client from settings. The metrics argument may be nil in tests.
func New(cfg config.Settings, logger *log.Logger, m *metrics.Metrics) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Client{
		http:       &http.Client{Timeout: cfg.RequestTimeout},
		base:       base,
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.Backoff,
		rps:        cfg.RateLimitRPS,
		userAgent:  cfg.UserAgent,
		log:        logger,
		metrics:    m,
	}, nil
}

// pageEnvelope is the API's page shape. Results stays raw so a missing key can
// be told apart from an empty array.
type pageEnvelope struct {
	Results json.RawMessage `json:"results"`
	Next    *string         `json:"next"`
}

// FetchYear downloads every page for one dataset path and year and returns the
// flattened record sequence. The path template is either a bare collection
// path ("ipeds/directory/") or carries a {year} segment. On failure the caller
// receives no partial data.
func (c *Client) FetchYear(ctx context.Context, pathTemplate string, year int) ([]map[string]any, error) {
	var path string
	if strings.Contains(pathTemplate, "{year}") {
		path = strings.ReplaceAll(pathTemplate, "{year}", fmt.Sprintf("%d", year))
		path = strings.Trim(path, "/") + "/"
	} else {
		path = fmt.Sprintf("%s/%d/", strings.Trim(pathTemplate, "/"), year)
	}

	pageURL, err := c.base.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("build page URL for %q: %w", path, err)
	}

	var all []map[string]any
	for {
		body, err := c.getWithRetries(ctx, pageURL.String())
		if err != nil {
			return nil, err
		}

		var envelope pageEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, fmt.Errorf("decode page %s: %w", pageURL, err)
		}
		// A literal null results is as malformed as a missing key.
		if envelope.Results == nil || string(envelope.Results) == "null" {
			return nil, fmt.Errorf("malformed page %s: missing results", pageURL)
		}
		var results []map[string]any
		if err := json.Unmarshal(envelope.Results, &results); err != nil {
			return nil, fmt.Errorf("malformed page %s: results is not an object array: %w", pageURL, err)
		}
		all = append(all, results...)

		if envelope.Next == nil || *envelope.Next == "" {
			break
		}
		next := *envelope.Next
		if strings.HasPrefix(next, "http") {
			pageURL, err = url.Parse(next)
		} else {
			pageURL, err = c.base.Parse(strings.TrimLeft(next, "/"))
		}
		if err != nil {
			return nil, fmt.Errorf("resolve next cursor %q: %w", next, err)
		}

		// Gentle pacing between pages; not adaptive to server hints.
		if err := sleepCtx(ctx, time.Duration(float64(time.Second)/c.rps)); err != nil {
			return nil, err
		}
	}

	c.log.Printf("fetched %d records from %s (year=%d)", len(all), path, year)
	return all, nil
}

// getWithRetries issues one GET with bounded retries. Network errors and
// non-2xx statuses are transient; response parsing happens in the caller so a
// malformed body is never retried.
func (c *Client) getWithRetries(ctx context.Context, rawURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			if c.metrics != nil {
				c.metrics.FetchRetries.Inc()
			}
			// Exponential backoff: backoff, 2*backoff, 4*backoff, ...
			if err := sleepCtx(ctx, c.backoff<<(attempt-1)); err != nil {
				return nil, err
			}
		}

		body, err := c.get(ctx, rawURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
		c.log.Printf("attempt %d failed for %s: %v", attempt+1, rawURL, err)
	}
	return nil, fmt.Errorf("%w: giving up after %d attempts: GET %s: %w", ErrExhausted, c.maxRetries, rawURL, lastErr)
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("http %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
