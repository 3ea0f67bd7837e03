// Package supabase implements port.Store on top of the Supabase PostgREST API.
// Every call goes through a bulkhead, a circuit breaker and (for reads) a
// retry loop; PostgREST failures are translated into domain errors.
package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jengatrack/jengatrack-api/internal/domain"
	"github.com/jengatrack/jengatrack-api/internal/infra/observability"
	"github.com/jengatrack/jengatrack-api/internal/infra/resilience"
	"github.com/jengatrack/jengatrack-api/internal/port"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("supabase")

const backendName = "supabase"

var _ port.Store = (*Client)(nil)

// Client wraps HTTP calls to Supabase PostgREST API.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	serviceRoleKey string
	cb             *gobreaker.CircuitBreaker
	cfg            resilience.Config
	bulkhead       *resilience.Bulkhead
	metrics        *observability.Metrics
	logger         *zap.Logger
}

// NewClient creates a Supabase client.
func NewClient(httpClient *http.Client, baseURL, apiKey, serviceRoleKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, metrics *observability.Metrics, logger *zap.Logger) *Client {
	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         apiKey,
		serviceRoleKey: serviceRoleKey,
		cb:             cb,
		cfg:            cfg,
		bulkhead:       resilience.NewBulkhead(cfg.MaxConcurrency),
		metrics:        metrics,
		logger:         logger,
	}
}

// statusError is a non-2xx PostgREST response.
type statusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("supabase %s %s returned %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// classify marks errors that retrying cannot fix. 408 and 429 stay retryable,
// as do 5xx and transport errors.
func classify(err error) error {
	if err == nil || resilience.IsPermanent(err) {
		return err
	}

	var nf *domain.ErrNotFound
	var dup *domain.ErrDuplicate
	var ve *domain.ErrValidation
	if errors.As(err, &nf) || errors.As(err, &dup) || errors.As(err, &ve) {
		return resilience.Permanent(err)
	}

	var se *statusError
	if errors.As(err, &se) {
		switch {
		case se.Status == http.StatusConflict:
			return resilience.Permanent(&domain.ErrDuplicate{Key: se.Path})
		case se.Status == http.StatusRequestTimeout, se.Status == http.StatusTooManyRequests:
			return err
		case se.Status >= 400 && se.Status < 500:
			return resilience.Permanent(err)
		}
	}
	return err
}

// read runs a retried, breaker-guarded read.
func (c *Client) read(ctx context.Context, op string, fn func() error) error {
	return c.run(ctx, op, c.cfg, fn)
}

// write runs a breaker-guarded mutation exactly once.
func (c *Client) write(ctx context.Context, op string, fn func() error) error {
	once := c.cfg
	once.MaxRetries = 0
	return c.run(ctx, op, once, fn)
}

func (c *Client) run(ctx context.Context, op string, cfg resilience.Config, fn func() error) error {
	ctx, span := tracer.Start(ctx, "Supabase."+op)
	defer span.End()

	if err := c.bulkhead.Acquire(ctx); err != nil {
		return err
	}
	defer c.bulkhead.Release()

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, cfg, func() error {
			return classify(fn())
		})
	})
	if err == nil {
		return nil
	}
	span.SetAttributes(attribute.String("error", err.Error()))

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.metrics.IncrStoreError(backendName)
		return &domain.ErrCircuitOpen{Service: backendName}
	}

	var nf *domain.ErrNotFound
	var dup *domain.ErrDuplicate
	var ve *domain.ErrValidation
	switch {
	case errors.As(err, &nf):
		return nf
	case errors.As(err, &dup):
		return dup
	case errors.As(err, &ve):
		return ve
	case errors.Is(err, context.Canceled):
		return err
	}

	c.metrics.IncrStoreError(backendName)
	c.logger.Error("supabase: operation failed", zap.String("op", op), zap.Error(err))
	return &domain.ErrExternalService{Service: backendName + "/" + op, Err: err}
}

// eq builds a PostgREST equality filter value.
func eq(v string) string {
	return "eq." + url.QueryEscape(v)
}

// Ping checks PostgREST reachability with a one-row read.
func (c *Client) Ping(ctx context.Context) error {
	return c.read(ctx, "Ping", func() error {
		_, err := c.doRequest(ctx, http.MethodGet, "projects?select=id&limit=1")
		return err
	})
}
