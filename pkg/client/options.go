package client

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/indexkit/pkg/audit"
	"github.com/Adithya-Monish-Kumar-K/indexkit/pkg/transport"
)

type options struct {
	transport  transport.Transport
	sinks      []audit.Sink
	errorSink  audit.ErrorSink
	registerer prometheus.Registerer
	logger     *slog.Logger
}

// Option customizes a Client.
type Option func(*options)

// WithTransport replaces the HTTP transport built from config.
func WithTransport(t transport.Transport) Option {
	return func(o *options) {
		o.transport = t
	}
}

// WithSink registers s after the sinks enabled in config.
func WithSink(s audit.Sink) Option {
	return func(o *options) {
		o.sinks = append(o.sinks, s)
	}
}

// WithErrorSink receives sink failures in addition to the failure counter.
func WithErrorSink(es audit.ErrorSink) Option {
	return func(o *options) {
		o.errorSink = es
	}
}

// WithRegisterer registers the client's collectors with reg instead of a
// private registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
