package audit

import (
	"context"
	"log/slog"
)

// LogSink writes one structured line per call. Calls that produced no
// response are logged at warn regardless of the configured level.
type LogSink struct {
	logger *slog.Logger
	level  slog.Level
}

func NewLogSink(logger *slog.Logger, level slog.Level) *LogSink {
	if logger == nil {
		logger = slog.Default().With("component", "audit-log")
	}
	return &LogSink{logger: logger, level: level}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Accept(ctx context.Context, rec CallRecord) error {
	attrs := []any{
		"method", rec.Method,
		"path", rec.Path,
		"duration_ms", float64(rec.Duration.Microseconds()) / 1000,
	}
	if !rec.OK() {
		s.logger.WarnContext(ctx, "store call failed", append(attrs, "failure", string(rec.Failure), "error", rec.Error)...)
		return nil
	}
	s.logger.Log(ctx, s.level, "store call", append(attrs, "status", rec.StatusCode)...)
	return nil
}
