package stats

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Togather-Foundation/ewm/internal/metrics"
	"github.com/Togather-Foundation/ewm/internal/timestamp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout = 5 * time.Second
	// QueryAttempts bounds GET /stats calls; hits are retried by the job queue
	// instead.
	QueryAttempts  = 3
	RetryBaseDelay = 200 * time.Millisecond

	maxErrorBody = 1024
)

var _ Gateway = (*Client)(nil)

// StatusError is a stats service answer with an unexpected status code.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("stats service answered %d: %s", e.Code, e.Body)
}

// Retryable reports answers worth asking again: overload and server faults.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= http.StatusInternalServerError
}

// Client talks to the stats service over HTTP. Calls are traced and share a
// token bucket so bursts of views cannot flood the service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	retryDelay time.Duration
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.httpClient = client }
}

// WithRateLimit caps outgoing calls per second; zero disables the limit.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), int(rps)+1)
	}
}

// WithRetryDelay sets the wait before the second query attempt; it doubles
// for each further attempt.
func WithRetryDelay(delay time.Duration) Option {
	return func(c *Client) { c.retryDelay = delay }
}

// NewClient builds a client for baseURL, e.g. "http://stats:9090".
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL:    strings.TrimRight(baseURL, "/"),
		limiter:    rate.NewLimiter(rate.Inf, 1),
		retryDelay: RetryBaseDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RecordHit posts one hit, once.
func (c *Client) RecordHit(ctx context.Context, hit Hit) (err error) {
	defer observe("hit", time.Now(), &err)

	body, err := json.Marshal(hit)
	if err != nil {
		return fmt.Errorf("encode hit: %w", err)
	}
	if _, err := c.exchange(ctx, http.MethodPost, "/hit", body); err != nil {
		return fmt.Errorf("post hit: %w", err)
	}
	return nil
}

// QueryHits fetches view counts for query, retrying transient failures.
func (c *Client) QueryHits(ctx context.Context, query Query) (result []ViewStats, err error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	defer observe("stats", time.Now(), &err)

	path := "/stats?" + encodeQuery(query).Encode()
	delay := c.retryDelay
	for attempt := 1; ; attempt++ {
		payload, err := c.exchange(ctx, http.MethodGet, path, nil)
		if err == nil {
			var stats []ViewStats
			if err := json.Unmarshal(payload, &stats); err != nil {
				return nil, fmt.Errorf("query stats: decode: %w", err)
			}
			return stats, nil
		}
		if attempt >= QueryAttempts || !retryable(err) {
			return nil, fmt.Errorf("query stats: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}

func encodeQuery(query Query) url.Values {
	params := url.Values{
		"start":  {timestamp.New(query.Start).String()},
		"end":    {timestamp.New(query.End).String()},
		"unique": {strconv.FormatBool(query.Unique)},
	}
	for _, uri := range query.URIs {
		params.Add("uris", uri)
	}
	return params
}

// exchange performs one rate limited call and returns the body of a 2xx
// answer. Anything else is a *StatusError or a transport error.
func (c *Client) exchange(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return payload, nil
}

// retryable treats transport failures and overload answers as transient.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var status *StatusError
	if errors.As(err, &status) {
		return status.Retryable()
	}
	return true
}

func observe(operation string, start time.Time, err *error) {
	result := "success"
	if *err != nil {
		result = "error"
	}
	metrics.StatsRequestDuration.WithLabelValues(operation, result).Observe(time.Since(start).Seconds())
}
