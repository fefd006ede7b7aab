package audit

import (
	"context"
	"fmt"
)

// Sink consumes call records. Accept runs on the caller's goroutine before
// Dispatch returns, so slow sinks slow every call.
type Sink interface {
	Accept(ctx context.Context, rec CallRecord) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, rec CallRecord) error

func (f SinkFunc) Accept(ctx context.Context, rec CallRecord) error {
	return f(ctx, rec)
}

// SinkFailure reports a sink that returned an error or panicked.
type SinkFailure struct {
	ID     SinkID
	Sink   string
	Record CallRecord
	Err    error
	Panic  any
}

// ErrorSink is told about sink failures. It must not block.
type ErrorSink interface {
	SinkFailed(f SinkFailure)
}

// ErrorSinkFunc adapts a function to ErrorSink.
type ErrorSinkFunc func(f SinkFailure)

func (f ErrorSinkFunc) SinkFailed(fail SinkFailure) {
	f(fail)
}

// sinkName labels a sink in logs and metrics.
func sinkName(s Sink) string {
	if n, ok := s.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", s)
}
