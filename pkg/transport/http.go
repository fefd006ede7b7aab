package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/indexkit/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/indexkit/pkg/resilience"
)

// HTTPTransport sends requests to <url>/_db/<database><path>.
type HTTPTransport struct {
	client   *http.Client
	prefix   string
	username string
	password string
	retry    resilience.RetryConfig
	breaker  *resilience.CircuitBreaker
	onState  func(name string, from, to resilience.State)
	logger   *slog.Logger
}

// HTTPOption customizes an HTTPTransport.
type HTTPOption func(*HTTPTransport)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(t *HTTPTransport) {
		t.client = c
	}
}

// WithBreakerObserver is notified of circuit breaker transitions.
func WithBreakerObserver(fn func(name string, from, to resilience.State)) HTTPOption {
	return func(t *HTTPTransport) {
		t.onState = fn
	}
}

// NewHTTP builds the shim from store and transport settings.
func NewHTTP(store config.StoreConfig, cfg config.TransportConfig, opts ...HTTPOption) (*HTTPTransport, error) {
	base, err := url.Parse(strings.TrimRight(store.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing store url %q: %w", store.URL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("store url %q: unsupported scheme %q", store.URL, base.Scheme)
	}
	t := &HTTPTransport{
		client:   &http.Client{Timeout: cfg.Timeout},
		prefix:   base.String() + "/_db/" + url.PathEscape(store.Database),
		username: store.Username,
		password: store.Password,
		retry: resilience.RetryConfig{
			MaxAttempts:  cfg.Retry.MaxAttempts,
			InitialDelay: cfg.Retry.InitialDelay,
			MaxDelay:     cfg.Retry.MaxDelay,
			Retryable:    retryable,
		},
		logger: slog.Default().With("component", "http-transport", "database", store.Database),
	}
	if t.retry.MaxAttempts <= 0 {
		t.retry.MaxAttempts = 1
	}
	for _, opt := range opts {
		opt(t)
	}
	if cfg.CircuitBreaker.Enabled {
		t.breaker = resilience.NewCircuitBreaker("store", resilience.CircuitBreakerConfig{
			FailureThreshold: cfg.CircuitBreaker.FailureThreshold,
			ResetTimeout:     cfg.CircuitBreaker.ResetTimeout,
			Counts:           countsAsFailure,
			OnStateChange:    t.onState,
		})
	}
	return t, nil
}

// Send performs the call. Only connection failures of idempotent requests are
// retried; status codes are returned as data.
func (t *HTTPTransport) Send(ctx context.Context, req Request) (*Response, error) {
	var body []byte
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, &Error{Method: req.Method, Path: req.Target(), Failure: FailureEncode, Err: err}
		}
		body = b
	}

	retryCfg := t.retry
	if !req.Method.Idempotent() {
		retryCfg.MaxAttempts = 1
	}

	var resp *Response
	attempt := func(ctx context.Context) error {
		r, err := t.do(ctx, req, body)
		if err != nil {
			return err
		}
		resp = r
		return nil
	}
	call := func(ctx context.Context) error {
		return resilience.Retry(ctx, string(req.Method)+" "+req.Path, retryCfg, attempt)
	}

	var err error
	if t.breaker != nil {
		err = t.breaker.Execute(ctx, call)
		if errors.Is(err, resilience.ErrCircuitOpen) {
			return nil, &Error{Method: req.Method, Path: req.Target(), Failure: FailureCircuitOpen, Err: err}
		}
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (t *HTTPTransport) do(ctx context.Context, req Request, body []byte) (*Response, error) {
	target := t.prefix + req.Target()
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, string(req.Method), target, reader)
	if err != nil {
		return nil, &Error{Method: req.Method, Path: req.Target(), Failure: FailureEncode, Err: err}
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if t.username != "" {
		httpReq.SetBasicAuth(t.username, t.password)
	}

	start := time.Now()
	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, &Error{Method: req.Method, Path: req.Target(), Failure: classify(ctx, err), Err: err}
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &Error{Method: req.Method, Path: req.Target(), Failure: classify(ctx, err), Err: err}
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && !json.Valid(raw) {
		return nil, Malformed(req, fmt.Errorf("response body is not JSON (status %d, %d bytes)", httpResp.StatusCode, len(raw)))
	}
	t.logger.Debug("round trip",
		"method", req.Method,
		"path", req.Path,
		"status", httpResp.StatusCode,
		"elapsed", time.Since(start),
	)
	return &Response{StatusCode: httpResp.StatusCode, Body: json.RawMessage(raw)}, nil
}

func classify(ctx context.Context, err error) FailureKind {
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return FailureCanceled
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return FailureTimeout
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTimeout
	}
	return FailureConnection
}

func retryable(err error) bool {
	return FailureOf(err) == FailureConnection
}

// countsAsFailure keeps caller cancellations and malformed bodies from
// tripping the breaker: neither says anything about store availability.
func countsAsFailure(err error) bool {
	switch FailureOf(err) {
	case FailureCanceled, FailureMalformed, FailureEncode:
		return false
	}
	return true
}
