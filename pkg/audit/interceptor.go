package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/indexkit/pkg/transport"
)

// SinkID identifies a registration returned by AddSink.
type SinkID uint64

type registration struct {
	id   SinkID
	name string
	sink Sink
}

// Interceptor wraps a Transport and reports every call to its sinks. The
// sink list is copy-on-write: registration never blocks in-flight calls and
// each call delivers to the list that was current when it completed.
type Interceptor struct {
	transport transport.Transport
	errorSink ErrorSink
	now       func() time.Time
	logger    *slog.Logger

	mu     sync.Mutex
	nextID SinkID
	sinks  atomic.Pointer[[]registration]
}

// InterceptorOption customizes an Interceptor.
type InterceptorOption func(*Interceptor)

// WithErrorSink routes sink failures to es instead of the log.
func WithErrorSink(es ErrorSink) InterceptorOption {
	return func(i *Interceptor) {
		i.errorSink = es
	}
}

func WithClock(now func() time.Time) InterceptorOption {
	return func(i *Interceptor) {
		i.now = now
	}
}

func WithLogger(l *slog.Logger) InterceptorOption {
	return func(i *Interceptor) {
		i.logger = l
	}
}

func NewInterceptor(t transport.Transport, opts ...InterceptorOption) *Interceptor {
	i := &Interceptor{
		transport: t,
		now:       time.Now,
		logger:    slog.Default().With("component", "call-interceptor"),
	}
	for _, opt := range opts {
		opt(i)
	}
	empty := []registration{}
	i.sinks.Store(&empty)
	return i
}

// AddSink registers s after all current sinks. A nil sink is ignored and
// yields the zero SinkID.
func (i *Interceptor) AddSink(s Sink) SinkID {
	if s == nil {
		return 0
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.nextID++
	cur := *i.sinks.Load()
	next := make([]registration, len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, registration{id: i.nextID, name: sinkName(s), sink: s})
	i.sinks.Store(&next)
	return i.nextID
}

// RemoveSink unregisters id. It reports whether id was registered.
func (i *Interceptor) RemoveSink(id SinkID) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	cur := *i.sinks.Load()
	next := make([]registration, 0, len(cur))
	found := false
	for _, r := range cur {
		if r.id == id {
			found = true
			continue
		}
		next = append(next, r)
	}
	if found {
		i.sinks.Store(&next)
	}
	return found
}

// Sinks returns the number of registered sinks.
func (i *Interceptor) Sinks() int {
	return len(*i.sinks.Load())
}

// Dispatch sends req through the transport exactly once and returns its
// result unchanged, after every sink has seen the call.
func (i *Interceptor) Dispatch(ctx context.Context, req transport.Request) (*transport.Response, error) {
	start := i.now()
	resp, err := i.transport.Send(ctx, req)
	elapsed := i.now().Sub(start)
	if err == nil && resp == nil {
		err = transport.Malformed(req, errors.New("transport returned no response"))
	}

	rec := CallRecord{
		Method:    string(req.Method),
		Path:      req.Target(),
		Duration:  elapsed,
		Timestamp: start.UTC(),
	}
	if err != nil {
		rec.Failure = transport.FailureOf(err)
		rec.Error = err.Error()
	} else {
		rec.StatusCode = resp.StatusCode
	}

	sinkCtx := context.WithoutCancel(ctx)
	for _, r := range *i.sinks.Load() {
		i.deliver(sinkCtx, r, rec)
	}
	return resp, err
}

func (i *Interceptor) deliver(ctx context.Context, r registration, rec CallRecord) {
	defer func() {
		if p := recover(); p != nil {
			i.report(SinkFailure{ID: r.id, Sink: r.name, Record: rec, Err: fmt.Errorf("sink panicked: %v", p), Panic: p})
		}
	}()
	if err := r.sink.Accept(ctx, rec); err != nil {
		i.report(SinkFailure{ID: r.id, Sink: r.name, Record: rec, Err: err})
	}
}

func (i *Interceptor) report(f SinkFailure) {
	if i.errorSink == nil {
		i.logger.Warn("audit sink failed", "sink", f.Sink, "method", f.Record.Method, "path", f.Record.Path, "error", f.Err)
		return
	}
	defer func() {
		if p := recover(); p != nil {
			i.logger.Error("error sink panicked", "sink", f.Sink, "panic", p)
		}
	}()
	i.errorSink.SinkFailed(f)
}
