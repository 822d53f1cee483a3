package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"csgclient/application/ports"
	"csgclient/domain/graph"
	"csgclient/infrastructure/config"
	"csgclient/pkg/errors"
	"csgclient/pkg/observability"
)

const maxResponseBytes = 64 << 20

// Client calls the upstream analysis service. The base URL is read from the
// shared setting on every call, so reconfiguration takes effect immediately.
type Client struct {
	setting    ports.UpstreamConfig
	httpClient *http.Client
	breakerCfg config.BreakerConfig
	metrics    *observability.Collector
	tracer     trace.Tracer
	logger     *zap.Logger

	mu          sync.Mutex
	breaker     *gobreaker.CircuitBreaker
	breakerBase string
}

var _ ports.UpstreamGateway = (*Client)(nil)

// NewClient builds a client with the configured timeout and breaker
func NewClient(cfg *config.Config, setting ports.UpstreamConfig, metrics *observability.Collector, logger *zap.Logger) *Client {
	return &Client{
		setting:    setting,
		httpClient: &http.Client{Timeout: cfg.UpstreamTimeout},
		breakerCfg: cfg.Breaker,
		metrics:    metrics,
		tracer:     otel.Tracer("csgclient/upstream"),
		logger:     logger,
	}
}

func newBreaker(bc config.BreakerConfig, logger *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "upstream",
		MaxRequests: bc.MaxRequests,
		Interval:    bc.Interval,
		Timeout:     bc.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < bc.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= bc.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// upstream 4xx answers mean the service is up
		IsSuccessful: func(err error) bool {
			var se *statusError
			if stderrors.As(err, &se) {
				return se.status < http.StatusInternalServerError
			}
			return err == nil
		},
	})
}

// breakerFor returns the breaker for base. A new upstream URL starts with a
// closed breaker; failures against the old one do not carry over.
func (c *Client) breakerFor(base string) *gobreaker.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.breaker == nil || c.breakerBase != base {
		if c.breaker != nil {
			c.logger.Info("Upstream changed, resetting circuit breaker",
				zap.String("from", c.breakerBase),
				zap.String("to", base),
			)
		}
		c.breaker = newBreaker(c.breakerCfg, c.logger)
		c.breakerBase = base
	}
	return c.breaker
}

// Analyze forwards an analysis request to {base}/analyze/
func (c *Client) Analyze(ctx context.Context, body map[string]interface{}) (interface{}, error) {
	return c.do(ctx, "analyze", http.MethodPost, "/analyze/", body)
}

// Schema fetches {base}/schema
func (c *Client) Schema(ctx context.Context) (interface{}, error) {
	return c.do(ctx, "schema", http.MethodGet, "/schema", nil)
}

// SaveData forwards to {base}/data
func (c *Client) SaveData(ctx context.Context, body interface{}) (interface{}, error) {
	return c.do(ctx, "data", http.MethodPost, "/data", body)
}

// MockAnalysis forwards to {base}/analysis/mock
func (c *Client) MockAnalysis(ctx context.Context, body interface{}) (interface{}, error) {
	return c.do(ctx, "mock_analysis", http.MethodPost, "/analysis/mock", body)
}

type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.status, e.body)
}

func (c *Client) do(ctx context.Context, op, method, path string, body interface{}) (interface{}, error) {
	base, ok := c.setting.Get()
	if !ok {
		return nil, errors.NewUpstreamNotConfiguredError()
	}

	ctx, span := c.tracer.Start(ctx, "upstream."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.full", base+path),
		),
	)
	defer span.End()

	start := time.Now()
	result, err := c.breakerFor(base).Execute(func() (interface{}, error) {
		return c.roundTrip(ctx, method, base+path, body)
	})
	c.metrics.RecordUpstreamCall(op, err, time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warn("Upstream call failed",
			zap.String("operation", op),
			zap.String("url", base+path),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return nil, c.translate(op, err)
	}
	return result, nil
}

func (c *Client) roundTrip(ctx context.Context, method, url string, body interface{}) (interface{}, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", requestID(ctx))
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &statusError{status: resp.StatusCode, body: truncate(string(data), 512)}
	}

	doc, err := graph.DecodeJSON(data)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (c *Client) translate(op string, err error) error {
	var se *statusError
	if stderrors.As(err, &se) {
		return errors.NewUpstreamStatusError(op, se.status, se.body)
	}
	if isTimeout(err) {
		return errors.NewUpstreamTimeoutError(op, err)
	}
	return errors.NewUpstreamError(op, err)
}

func isTimeout(err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return stderrors.As(err, &ne) && ne.Timeout()
}

func requestID(ctx context.Context) string {
	if id := middleware.GetReqID(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
