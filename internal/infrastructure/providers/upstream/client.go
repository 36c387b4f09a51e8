package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/core/domain/property"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/observability"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const maxBodyBytes = 16 << 20

// Config holds the transport settings shared by every provider client.
type Config struct {
	Name             string
	Timeout          time.Duration
	RequestsPerSec   float64
	Burst            int
	BreakerFailures  uint32
	BreakerOpenAfter time.Duration
}

// StatusError is returned for non-2xx responses other than 404.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Body)
}

// Client performs paced, circuit-broken GET requests against one upstream.
type Client struct {
	name    string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	logger  *logrus.Logger
	metrics *observability.ProviderMetrics
	tracer  trace.Tracer
}

// New creates a client. Zero config values fall back to conservative defaults.
func New(cfg Config, logger *logrus.Logger, metrics *observability.ProviderMetrics) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RequestsPerSec <= 0 {
		cfg.RequestsPerSec = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerOpenAfter <= 0 {
		cfg.BreakerOpenAfter = 30 * time.Second
	}
	if metrics == nil {
		metrics = observability.NewProviderMetrics(nil)
	}

	c := &Client{
		name:    cfg.Name,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), cfg.Burst),
		logger:  logger,
		metrics: metrics,
		tracer:  observability.Tracer(),
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenAfter,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if c.logger != nil {
				c.logger.WithFields(logrus.Fields{
					"provider": name,
					"from":     from.String(),
					"to":       to.String(),
				}).Warn("provider circuit breaker state changed")
			}
		},
		IsSuccessful: isSuccessful,
	})
	return c
}

// isSuccessful keeps client-side outcomes (404, other 4xx) from tripping the breaker.
func isSuccessful(err error) bool {
	if err == nil || errors.Is(err, property.ErrNotFound) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode < http.StatusInternalServerError
	}
	return false
}

func (c *Client) Name() string { return c.name }

// BreakerState reports the circuit state for health checks.
func (c *Client) BreakerState() gobreaker.State { return c.breaker.State() }

// Get issues a GET to url and returns the body of a 2xx response. A 404 yields property.ErrNotFound.
func (c *Client) Get(ctx context.Context, op, url string, header http.Header) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "provider."+op, trace.WithAttributes(
		attribute.String("provider.name", c.name),
	))
	defer span.End()

	start := time.Now()
	body, err := c.get(ctx, url, header)
	c.metrics.RequestLatency.WithLabelValues(c.name, op).Observe(time.Since(start).Seconds())
	c.metrics.Requests.WithLabelValues(c.name, op, outcome(err)).Inc()

	if err != nil && !errors.Is(err, property.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider request failed")
		if c.logger != nil {
			c.logger.WithFields(logrus.Fields{
				"provider": c.name,
				"op":       op,
			}).WithError(err).Warn("provider request failed")
		}
	}
	return body, err
}

func (c *Client) get(ctx context.Context, url string, header http.Header) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	res, err := c.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}
		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, property.ErrNotFound
		case resp.StatusCode < 200 || resp.StatusCode > 299:
			return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 256)}
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	return res.([]byte), nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, property.ErrNotFound):
		return "not_found"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "rejected"
	default:
		return "error"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
