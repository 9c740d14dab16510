// Package upstream is the HTTP client shared by every JSON provider
// (geocoding, routing, forecast, chat completions).
//
// It adds bounded retry with exponential backoff for transient failures
// (network errors, 429, 5xx) and one circuit breaker per provider. A single
// attempt (MaxAttempts=1) reproduces a plain request.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"bikeplan/internal/metrics"
)

// StatusError is returned for responses with status >= 400.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

// Temporary reports whether the status is worth retrying.
func (e *StatusError) Temporary() bool {
	switch e.Code {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

type Options struct {
	// Provider names the upstream in logs, metrics and the breaker.
	Provider       string
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	Logger         *zap.Logger
	HTTPClient     *http.Client
}

type Client struct {
	provider       string
	session        *http.Client
	maxAttempts    int
	initialBackoff time.Duration
	breaker        *gobreaker.CircuitBreaker
	log            *zap.Logger
}

func New(opts Options) *Client {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = 200 * time.Millisecond
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("provider", opts.Provider))

	session := opts.HTTPClient
	if session == nil {
		session = &http.Client{Timeout: opts.Timeout}
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        opts.Provider,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("from", from.String()), zap.String("to", to.String()))
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !isTransient(err)
		},
	})

	return &Client{
		provider:       opts.Provider,
		session:        session,
		maxAttempts:    opts.MaxAttempts,
		initialBackoff: opts.InitialBackoff,
		breaker:        breaker,
		log:            log,
	}
}

// Provider returns the provider name the client was built for.
func (c *Client) Provider() string { return c.provider }

// Do sends the request produced by makeReq, rebuilding it for every attempt.
// The caller owns the returned body.
func (c *Client) Do(ctx context.Context, makeReq func(ctx context.Context) (*http.Request, error)) (_ *http.Response, err error) {
	ctx, span := otel.Tracer("bikeplan/upstream").Start(ctx, "upstream."+c.provider)
	start := time.Now()
	defer func() {
		metrics.UpstreamDuration.WithLabelValues(c.provider).Observe(time.Since(start).Seconds())
		outcome := "ok"
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			outcome = "breaker_open"
		case err != nil:
			outcome = "error"
		}
		metrics.UpstreamRequests.WithLabelValues(c.provider, outcome).Inc()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	attempt := 0
	operation := func() (*http.Response, error) {
		attempt++
		span.SetAttributes(attribute.Int("upstream.attempts", attempt))

		req, err := makeReq(ctx)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("make request: %w", err))
		}

		res, err := c.breaker.Execute(func() (interface{}, error) {
			return c.do(req)
		})
		if err != nil {
			if isTransient(err) {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		return res.(*http.Response), nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.initialBackoff

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(c.maxAttempts)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			c.log.Warn("retrying upstream request", zap.Error(err), zap.Duration("wait", wait))
		}),
	)
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.session.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		resp.Body.Close()
		return nil, &StatusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(b)),
		}
	}
	return resp, nil
}

// DoJSON sends body (if non-nil) as JSON and decodes the response into out.
func (c *Client) DoJSON(ctx context.Context, method, url string, header http.Header, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", c.provider, err)
		}
	}

	resp, err := c.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		var r io.Reader
		if payload != nil {
			r = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, r)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		return req, nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", c.provider, err)
	}
	defer resp.Body.Close()

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", c.provider, err)
	}
	return nil
}

func isTransient(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
