package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/indexkit/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/indexkit/pkg/errors"
)

func newTestTransport(t *testing.T, url string, mutate func(*config.TransportConfig), opts ...HTTPOption) *HTTPTransport {
	t.Helper()
	cfg := config.Default()
	cfg.Store.URL = url
	cfg.Store.Database = "shop"
	cfg.Store.Username = "root"
	cfg.Store.Password = "secret"
	cfg.Transport.Retry.InitialDelay = time.Millisecond
	cfg.Transport.Retry.MaxDelay = time.Millisecond
	if mutate != nil {
		mutate(&cfg.Transport)
	}
	tr, err := NewHTTP(cfg.Store, cfg.Transport, opts...)
	require.NoError(t, err)
	return tr
}

func TestHTTPTransport_SendBuildsRequest(t *testing.T) {
	var gotPath, gotQuery, gotUser, gotPass, gotType string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotUser, gotPass, _ = r.BasicAuth()
		gotType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"cities/1","isNewlyCreated":true}`)
	}))
	defer srv.Close()

	tr := newTestTransport(t, srv.URL, nil)
	resp, err := tr.Send(context.Background(), Request{
		Method: MethodPost,
		Path:   "/_api/index",
		Query:  url.Values{"collection": {"cities"}},
		Body:   map[string]any{"type": "hash"},
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.True(t, resp.OK())
	assert.Equal(t, "/_db/shop/_api/index", gotPath)
	assert.Equal(t, "collection=cities", gotQuery)
	assert.Equal(t, "root", gotUser)
	assert.Equal(t, "secret", gotPass)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, "hash", gotBody["type"])
}

func TestHTTPTransport_ErrorStatusIsData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":true,"code":404,"errorNum":1212,"errorMessage":"index not found"}`)
	}))
	defer srv.Close()

	tr := newTestTransport(t, srv.URL, nil)
	resp, err := tr.Send(context.Background(), Request{Method: MethodDelete, Path: "/_api/index/cities/9"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.False(t, resp.OK())
	assert.Equal(t, 1212, resp.ErrorNum())
	assert.Equal(t, "index not found", resp.ErrorMessage())
}

func TestHTTPTransport_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>proxy error</html>")
	}))
	defer srv.Close()

	tr := newTestTransport(t, srv.URL, nil)
	_, err := tr.Send(context.Background(), Request{Method: MethodGet, Path: "/_api/index"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrTransport)
	assert.Equal(t, FailureMalformed, FailureOf(err))
}

func TestHTTPTransport_ConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	tr := newTestTransport(t, addr, nil)
	_, err := tr.Send(context.Background(), Request{Method: MethodGet, Path: "/_api/index"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrTransport)
	assert.Equal(t, FailureConnection, FailureOf(err))

	var te *Error
	require.True(t, errors.As(err, &te))
	assert.Equal(t, MethodGet, te.Method)
	assert.Equal(t, "/_api/index", te.Path)
}

func TestHTTPTransport_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	tr := newTestTransport(t, srv.URL, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := tr.Send(ctx, Request{Method: MethodGet, Path: "/_api/index"})
	require.Error(t, err)
	assert.Equal(t, FailureTimeout, FailureOf(err))
}

type flakyRoundTripper struct {
	failures int32
	calls    atomic.Int32
	next     http.RoundTripper
}

func (f *flakyRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	if f.calls.Add(1) <= f.failures {
		return nil, errors.New("connection reset by peer")
	}
	return f.next.RoundTrip(r)
}

func TestHTTPTransport_RetriesIdempotentConnectionFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"indexes":[]}`)
	}))
	defer srv.Close()

	tests := []struct {
		name      string
		method    Method
		wantErr   bool
		wantCalls int32
	}{
		{name: "get is retried", method: MethodGet, wantErr: false, wantCalls: 3},
		{name: "post is not retried", method: MethodPost, wantErr: true, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := &flakyRoundTripper{failures: 2, next: http.DefaultTransport}
			tr := newTestTransport(t, srv.URL, func(c *config.TransportConfig) {
				c.Retry.MaxAttempts = 3
			}, WithHTTPClient(&http.Client{Transport: rt}))

			_, err := tr.Send(context.Background(), Request{Method: tt.method, Path: "/_api/index"})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, rt.calls.Load())
		})
	}
}

func TestHTTPTransport_CircuitOpens(t *testing.T) {
	rt := &flakyRoundTripper{failures: 100, next: http.DefaultTransport}
	tr := newTestTransport(t, "http://store.invalid:8529", func(c *config.TransportConfig) {
		c.CircuitBreaker.Enabled = true
		c.CircuitBreaker.FailureThreshold = 2
		c.CircuitBreaker.ResetTimeout = time.Hour
	}, WithHTTPClient(&http.Client{Transport: rt}))

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := tr.Send(ctx, Request{Method: MethodGet, Path: "/_api/index"})
		assert.Equal(t, FailureConnection, FailureOf(err))
	}
	_, err := tr.Send(ctx, Request{Method: MethodGet, Path: "/_api/index"})
	assert.Equal(t, FailureCircuitOpen, FailureOf(err))
	assert.Equal(t, int32(2), rt.calls.Load())
}

func TestNewHTTP_RejectsBadURL(t *testing.T) {
	cfg := config.Default()
	cfg.Store.URL = "ftp://example.com"
	_, err := NewHTTP(cfg.Store, cfg.Transport)
	assert.Error(t, err)
}

func TestRequestTarget(t *testing.T) {
	r := Request{Path: "/_api/index", Query: url.Values{"collection": {"a b"}}}
	assert.Equal(t, "/_api/index?collection=a+b", r.Target())
	assert.Equal(t, "/_api/version", Request{Path: "/_api/version"}.Target())
}
