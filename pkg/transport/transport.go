// Package transport defines the transport shim the index manager and the
// call interceptor depend on, together with an HTTP implementation. Paths are
// relative to a database root configured outside the core; status codes are
// returned as data, never as errors.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	apperrors "github.com/Adithya-Monish-Kumar-K/indexkit/pkg/errors"
)

// Method is one of the HTTP verbs the shim accepts.
type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodDelete Method = "DELETE"
)

// Idempotent reports whether repeating the request cannot change server
// state beyond the first attempt.
func (m Method) Idempotent() bool {
	return m == MethodGet || m == MethodPut || m == MethodDelete
}

// Request is a single call against the store.
type Request struct {
	Method Method
	Path   string
	Query  url.Values
	Body   any
}

// Target renders the path and encoded query, as recorded in audit records.
func (r Request) Target() string {
	if len(r.Query) == 0 {
		return r.Path
	}
	return r.Path + "?" + r.Query.Encode()
}

// Response is the raw status/body pair returned by the store.
type Response struct {
	StatusCode int
	Body       json.RawMessage
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode unmarshals the body into v.
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return fmt.Errorf("empty response body")
	}
	return json.Unmarshal(r.Body, v)
}

type errorBody struct {
	Error        bool   `json:"error"`
	ErrorNum     int    `json:"errorNum"`
	ErrorMessage string `json:"errorMessage"`
}

func (r *Response) errorBody() errorBody {
	var eb errorBody
	if len(r.Body) > 0 {
		_ = json.Unmarshal(r.Body, &eb)
	}
	return eb
}

// ErrorNum returns the store's errorNum field, or 0 when absent.
func (r *Response) ErrorNum() int {
	return r.errorBody().ErrorNum
}

// ErrorMessage returns the store's errorMessage field, or "" when absent.
func (r *Response) ErrorMessage() string {
	return r.errorBody().ErrorMessage
}

// Transport performs one network round-trip. Implementations must be safe
// for concurrent use.
type Transport interface {
	Send(ctx context.Context, req Request) (*Response, error)
}

// FailureKind classifies why a call produced no response.
type FailureKind string

const (
	FailureNone        FailureKind = ""
	FailureConnection  FailureKind = "connection"
	FailureTimeout     FailureKind = "timeout"
	FailureCanceled    FailureKind = "canceled"
	FailureMalformed   FailureKind = "malformed_response"
	FailureCircuitOpen FailureKind = "circuit_open"
	FailureEncode      FailureKind = "encode"
)

// Error is a transport failure. It matches apperrors.ErrTransport and its
// cause under errors.Is.
type Error struct {
	Method  Method
	Path    string
	Failure FailureKind
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %s: %v", e.Method, e.Path, e.Failure, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{apperrors.ErrTransport, e.Err}
}

// FailureOf extracts the failure kind of err, or FailureConnection for errors
// that did not originate in a transport.
func FailureOf(err error) FailureKind {
	if err == nil {
		return FailureNone
	}
	var te *Error
	if errors.As(err, &te) {
		return te.Failure
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return FailureTimeout
	case errors.Is(err, context.Canceled):
		return FailureCanceled
	}
	return FailureConnection
}

// Malformed wraps a decode failure of a response that arrived intact at the
// transport but cannot be interpreted by the caller.
func Malformed(req Request, err error) *Error {
	return &Error{
		Method:  req.Method,
		Path:    req.Target(),
		Failure: FailureMalformed,
		Err:     err,
	}
}
