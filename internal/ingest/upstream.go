package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"

	"github.com/lox/coastscore/internal/httputil"
	"github.com/lox/coastscore/internal/metrics"
	"github.com/lox/coastscore/internal/models"
)

const scoresPath = "/v1/public/scores"

// errRetryable marks upstream responses worth another attempt.
var errRetryable = errors.New("retryable upstream status")

// Upstream fetches scored forecasts from the scoring service over HTTP.
// Rate limits and 5xx responses are retried with exponential backoff, and a
// circuit breaker stops hammering the service once it is clearly down.
type Upstream struct {
	baseURL    string
	days       int
	client     *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
	maxElapsed time.Duration
}

// UpstreamOption configures an Upstream.
type UpstreamOption func(*Upstream)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) UpstreamOption {
	return func(u *Upstream) { u.client = c }
}

// WithMaxElapsed bounds total retry time for one fetch.
func WithMaxElapsed(d time.Duration) UpstreamOption {
	return func(u *Upstream) { u.maxElapsed = d }
}

func NewUpstream(baseURL string, days int, opts ...UpstreamOption) *Upstream {
	u := &Upstream{
		baseURL:    baseURL,
		days:       days,
		client:     httputil.NewClient(),
		maxElapsed: 2 * time.Minute,
	}
	u.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "upstream-scores",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *Upstream) Name() string     { return "http" }
func (u *Upstream) Endpoint() string { return scoresPath }

// BreakerState reports the circuit breaker state for health output.
func (u *Upstream) BreakerState() string {
	return u.breaker.State().String()
}

func (u *Upstream) scoresURL(areaID string) string {
	q := url.Values{}
	q.Set("area_id", areaID)
	q.Set("days", strconv.Itoa(u.days))
	return u.baseURL + scoresPath + "?" + q.Encode()
}

// Fetch returns the parsed forecast and the raw body.
func (u *Upstream) Fetch(ctx context.Context, areaID string) (*models.ScoredForecast, []byte, *FetchResult, error) {
	target := u.scoresURL(areaID)
	result := &FetchResult{}
	start := time.Now()

	var body []byte
	operation := func() error {
		b, err := u.breaker.Execute(func() ([]byte, error) {
			return u.get(ctx, target, result)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(fmt.Errorf("fetch scores: %w", err))
		}
		if err != nil {
			if errors.Is(err, errRetryable) {
				return err
			}
			return backoff.Permanent(err)
		}
		body = b
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = u.maxElapsed
	err := backoff.Retry(operation, backoff.WithContext(bo, ctx))
	metrics.UpstreamLatency.WithLabelValues(u.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamCallsTotal.WithLabelValues(u.Name(), areaID, "error").Inc()
		result.Error = err
		return nil, body, result, err
	}
	metrics.UpstreamCallsTotal.WithLabelValues(u.Name(), areaID, "ok").Inc()

	f, err := decodeForecast(body)
	if err != nil {
		result.Error = err
		return nil, body, result, err
	}
	result.RecordCount = len(f.Hours)
	return f, body, result, nil
}

func (u *Upstream) get(ctx context.Context, target string, result *FetchResult) ([]byte, error) {
	req, err := httputil.NewGet(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := u.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("fetch scores: %w: %w", errRetryable, err)
	}
	defer resp.Body.Close()

	result.HTTPStatus = resp.StatusCode
	body, err := io.ReadAll(resp.Body)
	result.ResponseSize = len(body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("fetch scores: %w: status %d", errRetryable, resp.StatusCode)
	default:
		return nil, fmt.Errorf("fetch scores: status %d: %s", resp.StatusCode, truncateBody(body))
	}
}
