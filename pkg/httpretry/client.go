// Package httpretry wraps outbound provider calls with exponential backoff,
// an optional rate limit and per-provider metrics.
package httpretry

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/ninjamovesonly/bulk-notifications-prototype/pkg/logx"
	"github.com/ninjamovesonly/bulk-notifications-prototype/pkg/metrics"
)

// Doer is satisfied by *http.Client and *Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	name    string
	doer    Doer
	retries int
	initial time.Duration
	limiter *rate.Limiter
}

type Option func(*Client)

// WithRetries sets how many times a request is re-sent after the first try.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retries = n
		}
	}
}

func WithInitialInterval(d time.Duration) Option {
	return func(c *Client) { c.initial = d }
}

// WithRateLimit caps outbound requests per second. Zero means unlimited.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// NewHTTPClient returns the base client used for provider traffic: bounded
// by timeout and traced through otelhttp.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

func New(name string, doer Doer, opts ...Option) *Client {
	if doer == nil {
		doer = NewHTTPClient(30 * time.Second)
	}
	c := &Client{name: name, doer: doer, retries: 2, initial: 500 * time.Millisecond}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Do sends req, retrying transport errors and 429/5xx answers. The last
// response is returned as-is when retries run out so callers can read the
// provider's error body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	retries := c.retries
	if req.Body != nil && req.GetBody == nil {
		retries = 0
	}

	var resp *http.Response
	attempt := 0
	op := func() error {
		if resp != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			resp = nil
		}
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return backoff.Permanent(fmt.Errorf("reset request body: %w", err))
			}
			req.Body = body
		}
		attempt++

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}

		start := time.Now()
		r, err := c.doer.Do(req)
		metrics.ProviderRequestDuration.WithLabelValues(c.name).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.ProviderRequestsTotal.WithLabelValues(c.name, "transport_error").Inc()
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		resp = r

		switch {
		case retryableStatus(r.StatusCode):
			metrics.ProviderRequestsTotal.WithLabelValues(c.name, "retryable_status").Inc()
			return fmt.Errorf("%s returned retryable status %d", c.name, r.StatusCode)
		case r.StatusCode >= 300:
			metrics.ProviderRequestsTotal.WithLabelValues(c.name, "rejected").Inc()
		default:
			metrics.ProviderRequestsTotal.WithLabelValues(c.name, "ok").Inc()
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initial
	bo := backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)

	err := backoff.RetryNotify(op, bo, func(err error, wait time.Duration) {
		metrics.ProviderRetriesTotal.Inc()
		logx.L().Infow("provider_retry",
			"provider", c.name,
			"attempt", attempt,
			"wait", wait.String(),
			"error", err,
		)
	})
	if resp != nil {
		return resp, nil
	}
	return nil, err
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
