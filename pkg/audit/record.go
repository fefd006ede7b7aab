// Package audit observes every store call. An Interceptor wraps a transport,
// times each round-trip and hands one CallRecord per call to the registered
// sinks, synchronously and in registration order. Sinks cannot affect the
// outcome of the call they observe.
package audit

import (
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/indexkit/pkg/transport"
)

// CallRecord describes one completed round-trip. Exactly one of StatusCode
// and Failure is set.
type CallRecord struct {
	Method     string                `json:"method" msgpack:"method"`
	Path       string                `json:"path" msgpack:"path"`
	StatusCode int                   `json:"status_code,omitempty" msgpack:"status_code,omitempty"`
	Failure    transport.FailureKind `json:"failure,omitempty" msgpack:"failure,omitempty"`
	Error      string                `json:"error,omitempty" msgpack:"error,omitempty"`
	Duration   time.Duration         `json:"duration_ns" msgpack:"duration_ns"`
	Timestamp  time.Time             `json:"timestamp" msgpack:"timestamp"`
}

// OK reports whether a response arrived, whatever its status.
func (r CallRecord) OK() bool {
	return r.Failure == transport.FailureNone
}

// Outcome is the status code, or the failure kind when no response arrived.
func (r CallRecord) Outcome() string {
	if r.OK() {
		return strconv.Itoa(r.StatusCode)
	}
	return string(r.Failure)
}
