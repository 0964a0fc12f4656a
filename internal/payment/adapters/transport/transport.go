// Package transport carries adapter requests to a provider REST API and
// turns transport-level failures into domain integration errors.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/smallbiznis/givebridge/internal/payment/domain"
	"github.com/smallbiznis/givebridge/pkg/httpclient"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// Reads are replayed on 5xx answers and dropped connections. Writes never
// are; their idempotency keys let the service retry them instead.
const (
	defaultReadRetries = 2
	readRetryWait      = 100 * time.Millisecond
	readRetryWaitMax   = time.Second
)

// Authorizer decorates an outbound request with credentials.
type Authorizer func(ctx context.Context, req *http.Request) error

// Bearer authorizes with a static token.
func Bearer(token string) Authorizer {
	return func(_ context.Context, req *http.Request) error {
		req.Header.Set("Authorization", "Bearer "+token)
		return nil
	}
}

type Options struct {
	Provider          string
	BaseURL           string
	Timeout           time.Duration
	IdempotencyHeader string
	Headers           map[string]string
	Authorize         Authorizer
	Logger            *zap.Logger

	// ReadRetries bounds replays of GET requests. Zero means the default;
	// negative disables them.
	ReadRetries int
}

// Caller is safe for concurrent use.
type Caller struct {
	provider          string
	baseURL           string
	idempotencyHeader string
	headers           map[string]string
	authorize         Authorizer
	client            *httpclient.CircuitBreakerClient
	log               *zap.Logger
}

func New(opts Options) *Caller {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	cfg := httpclient.DefaultConfig()
	if opts.Timeout > 0 {
		cfg.Timeout = opts.Timeout
	}
	cfg.MaxRetries = defaultReadRetries
	if opts.ReadRetries != 0 {
		cfg.MaxRetries = max(opts.ReadRetries, 0)
	}
	cfg.RetryWaitMin = readRetryWait
	cfg.RetryWaitMax = readRetryWaitMax
	client := httpclient.NewCircuitBreakerClient(
		httpclient.New(cfg),
		httpclient.DefaultCircuitBreakerConfig("payment."+opts.Provider),
		log,
	)
	return &Caller{
		provider:          opts.Provider,
		baseURL:           strings.TrimRight(opts.BaseURL, "/"),
		idempotencyHeader: opts.IdempotencyHeader,
		headers:           opts.Headers,
		authorize:         opts.Authorize,
		client:            client,
		log:               log,
	}
}

// HTTPClient is the plain pooled client, for token endpoints that sit outside
// the breaker.
func (c *Caller) HTTPClient() *http.Client {
	return c.client.HTTPClient()
}

type Request struct {
	Op             string
	Method         string
	Path           string
	Query          url.Values
	Form           url.Values
	JSON           any
	IdempotencyKey string
	Headers        map[string]string
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Do sends req. Any answered request comes back as a Response, including
// 4xx business rejections. Errors are always *domain.IntegrationError.
func (c *Caller) Do(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := c.build(ctx, req)
	if err != nil {
		return nil, c.fail(req.Op, domain.CategoryTransport, err)
	}
	if c.authorize != nil {
		if err := c.authorize(ctx, httpReq); err != nil {
			return nil, c.fail(req.Op, authCategory(err), err)
		}
	}

	start := time.Now()
	resp, err := c.client.Do(ctx, httpReq)
	if err != nil {
		c.log.Warn("provider call failed",
			zap.String("provider", c.provider),
			zap.String("op", req.Op),
			zap.String("path", req.Path),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return nil, c.fail(req.Op, classify(err), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, c.fail(req.Op, domain.TransportCategory(err), err)
	}

	c.log.Debug("provider call",
		zap.String("provider", c.provider),
		zap.String("op", req.Op),
		zap.String("method", httpReq.Method),
		zap.String("path", req.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, c.fail(req.Op, domain.CategoryConfig, errors.New(http.StatusText(resp.StatusCode)))
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

// Decode unmarshals a 2xx body. Undecodable bodies are decode failures.
func (c *Caller) Decode(op string, resp *Response, out any) error {
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return c.fail(op, domain.CategoryDecode, err)
	}
	return nil
}

// InvalidPayload marks a verified webhook whose business data cannot be
// mapped, such as a malformed amount.
func InvalidPayload(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
}

func (c *Caller) Fail(op string, category domain.Category, err error) error {
	return c.fail(op, category, err)
}

func (c *Caller) fail(op string, category domain.Category, err error) error {
	return domain.NewIntegrationError(c.provider, op, category, err)
}

func (c *Caller) build(ctx context.Context, req Request) (*http.Request, error) {
	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader = http.NoBody
	contentType := ""
	switch {
	case req.Form != nil:
		body = strings.NewReader(req.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case req.JSON != nil:
		raw, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(raw)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	for key, value := range c.headers {
		httpReq.Header.Set(key, value)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if req.IdempotencyKey != "" && c.idempotencyHeader != "" {
		httpReq.Header.Set(c.idempotencyHeader, req.IdempotencyKey)
	}
	return httpReq, nil
}

func classify(err error) domain.Category {
	var serverErr *httpclient.ServerError
	switch {
	case errors.As(err, &serverErr):
		return domain.CategoryUnavailable
	case errors.Is(err, httpclient.ErrCircuitOpen), errors.Is(err, httpclient.ErrTooManyRequests):
		return domain.CategoryUnavailable
	default:
		return domain.TransportCategory(err)
	}
}

// authCategory classifies token acquisition failures. A rejected credential
// is a configuration problem; anything else is the network.
func authCategory(err error) domain.Category {
	if errors.Is(err, domain.ErrInvalidConfig) {
		return domain.CategoryConfig
	}
	return domain.TransportCategory(err)
}

// FlattenMetadata renders caller metadata as provider string pairs. Nested
// values are JSON encoded.
func FlattenMetadata(metadata map[string]any) map[string]string {
	out := make(map[string]string, len(metadata))
	for key, value := range metadata {
		switch cast := value.(type) {
		case nil:
		case string:
			out[key] = cast
		case fmt.Stringer:
			out[key] = cast.String()
		case bool, int, int32, int64, float32, float64:
			out[key] = fmt.Sprint(cast)
		default:
			raw, err := json.Marshal(cast)
			if err != nil {
				continue
			}
			out[key] = string(raw)
		}
	}
	return out
}
