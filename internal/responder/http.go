package responder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"lucy/internal/domains"
	"lucy/pkg/platform/circuit"
)

const (
	defaultConfidence = 0.5
	defaultCooldown   = 30 * time.Second
	maxResponseBytes  = 4 << 20
)

// client is the shared HTTP plumbing of responders and the evaluator.
type client struct {
	domain   domains.Domain
	baseURL  string
	http     *http.Client
	breaker  *circuit.Breaker
	cooldown time.Duration
	now      func() time.Time

	mu       sync.Mutex
	openedAt time.Time
}

type Option func(*client)

// WithHTTPClient overrides the transport. Deadlines come from the caller's
// context, so the client should not set its own Timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *client) {
		cl.http = c
	}
}

// WithBreaker guards the endpoint with b. While b is open calls fail fast
// until cooldown elapses, after which one trial call is let through.
func WithBreaker(b *circuit.Breaker, cooldown time.Duration) Option {
	return func(cl *client) {
		cl.breaker = b
		if cooldown > 0 {
			cl.cooldown = cooldown
		}
	}
}

func newClient(domain domains.Domain, baseURL string, opts ...Option) *client {
	cl := &client{
		domain:   domain,
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{},
		cooldown: defaultCooldown,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(cl)
	}
	return cl
}

func (c *client) allow() error {
	if c.breaker == nil || !c.breaker.IsOpen() {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.now().Sub(c.openedAt) < c.cooldown {
		return NewError(CategoryCircuitOpen, c.domain, "circuit open", nil)
	}
	// let one trial call through per cooldown window
	c.openedAt = c.now()
	return nil
}

func (c *client) record(err error) {
	if c.breaker == nil {
		return
	}
	if err == nil {
		c.breaker.RecordSuccess()
		return
	}
	if CategoryOf(err) == CategoryCanceled {
		return
	}
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.mu.Lock()
		c.openedAt = c.now()
		c.mu.Unlock()
	}
}

// do posts body to path and returns the raw response body.
func (c *client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	if err := c.allow(); err != nil {
		return nil, err
	}
	data, err := c.roundTrip(ctx, method, path, body)
	c.record(err)
	return data, err
}

func (c *client) roundTrip(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, NewError(CategoryInternal, c.domain, "encode request", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, NewError(CategoryInternal, c.domain, "build request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, Classify(c.domain, ctxErr)
		}
		return nil, NewError(CategoryUnavailable, c.domain, "request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, NewError(CategoryUnavailable, c.domain, "read response", err)
	}
	if err := statusError(c.domain, resp.StatusCode); err != nil {
		return nil, err
	}
	return data, nil
}

func statusError(domain domains.Domain, status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusGatewayTimeout || status == http.StatusRequestTimeout:
		return NewError(CategoryTimeout, domain, fmt.Sprintf("status %d", status), nil)
	case status >= 500 || status == http.StatusTooManyRequests:
		return NewError(CategoryUnavailable, domain, fmt.Sprintf("status %d", status), nil)
	default:
		return NewError(CategoryBadResponse, domain, fmt.Sprintf("status %d", status), nil)
	}
}

func (c *client) health(ctx context.Context) error {
	_, err := c.roundTrip(ctx, http.MethodGet, "/health", nil)
	return err
}

// HTTPResponder calls a remote domain responder over HTTP.
type HTTPResponder struct {
	*client
}

func NewHTTPResponder(domain domains.Domain, baseURL string, opts ...Option) *HTTPResponder {
	return &HTTPResponder{client: newClient(domain, baseURL, opts...)}
}

func (r *HTTPResponder) Domain() domains.Domain {
	return r.domain
}

func (r *HTTPResponder) Query(ctx context.Context, query string, qctx map[string]any) (*Result, error) {
	if qctx == nil {
		qctx = map[string]any{}
	}
	data, err := r.do(ctx, http.MethodPost, "/query", queryRequest{Query: query, Context: qctx})
	if err != nil {
		return nil, err
	}
	return parseQueryResponse(r.domain, data)
}

func (r *HTTPResponder) Health(ctx context.Context) error {
	return r.health(ctx)
}

func parseQueryResponse(domain domains.Domain, data []byte) (*Result, error) {
	var body queryResponse
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, NewError(CategoryBadResponse, domain, "decode response", err)
	}
	if body.Response == nil {
		return nil, NewError(CategoryBadResponse, domain, "response field missing", nil)
	}
	confidence := defaultConfidence
	if body.Confidence != nil {
		confidence = *body.Confidence
	}
	if confidence < 0 || confidence > 1 {
		return nil, NewError(CategoryBadResponse, domain, fmt.Sprintf("confidence %.2f outside [0,1]", confidence), nil)
	}
	return &Result{
		Domain:     domain,
		Response:   *body.Response,
		Confidence: confidence,
		Sources:    body.Sources,
		Reasoning:  body.Reasoning,
		Metadata:   body.Metadata,
	}, nil
}

// HTTPEvaluator calls the evaluator responder over HTTP.
type HTTPEvaluator struct {
	*client
}

func NewHTTPEvaluator(baseURL string, opts ...Option) *HTTPEvaluator {
	return &HTTPEvaluator{client: newClient(domains.Evaluator, baseURL, opts...)}
}

func (e *HTTPEvaluator) Evaluate(ctx context.Context, req EvaluationRequest) (*Verdict, error) {
	if req.Sources == nil {
		req.Sources = []Source{}
	}
	data, err := e.do(ctx, http.MethodPost, "/evaluate", req)
	if err != nil {
		return nil, err
	}
	var v Verdict
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, NewError(CategoryBadResponse, domains.Evaluator, "decode verdict", err)
	}
	if v.QualityScore < 0 || v.QualityScore > 1 {
		return nil, NewError(CategoryBadResponse, domains.Evaluator, "quality score outside [0,1]", nil)
	}
	return &v, nil
}

func (e *HTTPEvaluator) Health(ctx context.Context) error {
	return e.health(ctx)
}
