// Package client is the caller-facing entry point. It wires the HTTP
// transport, the call interceptor, the index manager and the audit sinks
// enabled in config.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/indexkit/pkg/audit"
	"github.com/Adithya-Monish-Kumar-K/indexkit/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/indexkit/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/indexkit/pkg/index"
	"github.com/Adithya-Monish-Kumar-K/indexkit/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/indexkit/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/indexkit/pkg/transport"
)

type closer struct {
	name  string
	close func() error
}

// Client manages indexes on one database and audits every call it makes.
type Client struct {
	cfg         *config.Config
	interceptor *audit.Interceptor
	manager     *index.Manager
	metrics     *metrics.Metrics
	gatherer    prometheus.Gatherer
	logger      *slog.Logger
	closers     []closer
}

// New builds a client from cfg. A nil cfg uses config.Default().
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Client{
		cfg:    cfg,
		logger: o.logger,
	}
	if c.logger == nil {
		c.logger = slog.Default().With("component", "client")
	}

	reg := o.registerer
	if reg == nil {
		r := prometheus.NewRegistry()
		reg, c.gatherer = r, r
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		c.gatherer = g
	}
	c.metrics = metrics.New(reg)

	tr := o.transport
	if tr == nil {
		ht, err := transport.NewHTTP(cfg.Store, cfg.Transport,
			transport.WithBreakerObserver(func(name string, _, to resilience.State) {
				c.metrics.SetBreakerState(name, int(to))
			}),
		)
		if err != nil {
			return nil, err
		}
		tr = ht
	}

	metricsSink := audit.NewMetricsSink(c.metrics)
	c.interceptor = audit.NewInterceptor(tr, audit.WithErrorSink(audit.ErrorSinkFunc(func(f audit.SinkFailure) {
		metricsSink.SinkFailed(f)
		if o.errorSink != nil {
			o.errorSink.SinkFailed(f)
			return
		}
		c.logger.Warn("audit sink failed", "sink", f.Sink, "path", f.Record.Path, "error", f.Err)
	})))

	registry, err := index.NewRegistry(cfg.Registry.Capacity, c.metrics)
	if err != nil {
		return nil, err
	}
	c.manager = index.NewManager(c.interceptor,
		index.WithRegistry(registry),
		index.WithMetrics(c.metrics),
	)

	sinks, err := c.configuredSinks(ctx, cfg.Audit)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.interceptor.AddSink(metricsSink)
	for _, s := range append(sinks, o.sinks...) {
		c.interceptor.AddSink(s)
	}

	if cfg.Metrics.Enabled && c.gatherer != nil {
		shutdown := metrics.StartServer(cfg.Metrics.Port, c.gatherer)
		c.closers = append(c.closers, closer{"metrics server", func() error {
			return shutdown(context.Background())
		}})
	}

	c.logger.Debug("client ready",
		"store", cfg.Store.URL,
		"database", cfg.Store.Database,
		"sinks", c.interceptor.Sinks(),
	)
	return c, nil
}

func (c *Client) ListIndexes(ctx context.Context, collection string) ([]index.Descriptor, error) {
	return c.manager.List(ctx, collection)
}

func (c *Client) CreateIndex(ctx context.Context, collection string, spec index.Spec) (index.Descriptor, error) {
	return c.manager.Create(ctx, collection, spec)
}

func (c *Client) DeleteIndex(ctx context.Context, collection, idOrName string) (bool, error) {
	return c.manager.Delete(ctx, collection, idOrName)
}

// LoadIndexes asks the store to page the collection's indexes into memory.
func (c *Client) LoadIndexes(ctx context.Context, collection string) (bool, error) {
	return c.manager.Load(ctx, collection)
}

// Snapshot returns the cached index set, listing on a miss.
func (c *Client) Snapshot(ctx context.Context, collection string) ([]index.Descriptor, error) {
	return c.manager.Snapshot(ctx, collection)
}

func (c *Client) AddSink(s audit.Sink) audit.SinkID {
	return c.interceptor.AddSink(s)
}

func (c *Client) RemoveSink(id audit.SinkID) bool {
	return c.interceptor.RemoveSink(id)
}

// Manager exposes the underlying index manager.
func (c *Client) Manager() *index.Manager {
	return c.manager
}

// Gatherer returns the registry the client's collectors are registered
// with, or nil when the registerer supplied via WithRegisterer cannot gather.
func (c *Client) Gatherer() prometheus.Gatherer {
	return c.gatherer
}

// ServerVersion describes the store answering /_api/version.
type ServerVersion struct {
	Server  string `json:"server"`
	Version string `json:"version"`
}

// Ping asks the store for its version.
func (c *Client) Ping(ctx context.Context) (ServerVersion, error) {
	req := transport.Request{Method: transport.MethodGet, Path: "/_api/version"}
	resp, err := c.interceptor.Dispatch(ctx, req)
	if err != nil {
		return ServerVersion{}, err
	}
	if !resp.OK() {
		return ServerVersion{}, fmt.Errorf("version check: %w: [HTTP %d] %s",
			apperrors.ErrUnexpectedStatus, resp.StatusCode, resp.ErrorMessage())
	}
	var v ServerVersion
	if err := resp.Decode(&v); err != nil {
		return ServerVersion{}, transport.Malformed(req, err)
	}
	return v, nil
}

// Close flushes and closes the sinks and connections the client opened, in
// reverse order of creation.
func (c *Client) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		cl := c.closers[i]
		if err := cl.close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", cl.name, err))
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
