// Package index manages secondary indexes on remote store collections. It
// validates index specs against per-kind option rules, issues list, create,
// delete and load calls through a Dispatcher, reconciles server responses into
// Descriptors and keeps a best-effort Registry of the last observed sets.
package index

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/sync/singleflight"

	apperrors "github.com/Adithya-Monish-Kumar-K/indexkit/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/indexkit/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/indexkit/pkg/transport"
)

// Store error numbers carried in error bodies.
const (
	ErrNumCollectionNotFound = 1203
	ErrNumUniqueConstraint   = 1210
	ErrNumIndexNotFound      = 1212
)

const (
	indexPath      = "/_api/index"
	collectionPath = "/_api/collection"

	opList   = "list"
	opCreate = "create"
	opDelete = "delete"
	opLoad   = "load"
)

// Dispatcher performs one store call. audit.Interceptor satisfies it, so
// every manager call is observed by the registered sinks.
type Dispatcher interface {
	Dispatch(ctx context.Context, req transport.Request) (*transport.Response, error)
}

// Manager lists, creates and deletes indexes. It is safe for concurrent use;
// concurrent creates are not serialized and the store arbitrates.
type Manager struct {
	dispatcher Dispatcher
	registry   *Registry
	metrics    *metrics.Metrics
	logger     *slog.Logger
	group      singleflight.Group
}

// ManagerOption customizes a Manager.
type ManagerOption func(*Manager)

// WithRegistry shares a registry between managers.
func WithRegistry(r *Registry) ManagerOption {
	return func(m *Manager) {
		m.registry = r
	}
}

func WithMetrics(mt *metrics.Metrics) ManagerOption {
	return func(m *Manager) {
		m.metrics = mt
	}
}

func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = l
	}
}

// DefaultRegistryCapacity is the number of collections cached when no
// registry is supplied.
const DefaultRegistryCapacity = 256

func NewManager(d Dispatcher, opts ...ManagerOption) *Manager {
	m := &Manager{
		dispatcher: d,
		logger:     slog.Default().With("component", "index-manager"),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		// Only a non-positive capacity fails.
		m.registry, _ = NewRegistry(DefaultRegistryCapacity, m.metrics)
	}
	return m
}

// Registry returns the manager's cache.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// List returns every index on collection in server order, implicit primary
// and edge indexes included, and refreshes the registry entry.
func (m *Manager) List(ctx context.Context, collection string) ([]Descriptor, error) {
	req := transport.Request{
		Method: transport.MethodGet,
		Path:   indexPath,
		Query:  url.Values{"collection": {collection}},
	}
	resp, err := m.dispatcher.Dispatch(ctx, req)
	if err != nil {
		m.observe(opList, err)
		return nil, &apperrors.IndexError{Op: opList, Collection: collection, Err: err}
	}
	if !resp.OK() {
		err := m.statusError(opList, collection, resp)
		m.observe(opList, err)
		return nil, err
	}

	var body listResponse
	if err := resp.Decode(&body); err != nil {
		err := &apperrors.IndexError{Op: opList, Collection: collection, Err: transport.Malformed(req, err)}
		m.observe(opList, err)
		return nil, err
	}
	ds := make([]Descriptor, 0, len(body.Indexes))
	for _, w := range body.Indexes {
		ds = append(ds, w.descriptor(collection))
	}
	m.registry.Replace(collection, ds)
	m.observe(opList, nil)
	m.logger.Debug("indexes listed", "collection", collection, "count", len(ds))
	return ds, nil
}

// Create validates spec and asks the store to create the index. Creating an
// index equivalent to an existing one succeeds with IsNew false.
func (m *Manager) Create(ctx context.Context, collection string, spec Spec) (Descriptor, error) {
	opts, err := Validate(spec)
	if err != nil {
		m.observe(opCreate, err)
		return Descriptor{}, err
	}

	req := transport.Request{
		Method: transport.MethodPost,
		Path:   indexPath,
		Query:  url.Values{"collection": {collection}},
		Body:   opts.Body(),
	}
	resp, err := m.dispatcher.Dispatch(ctx, req)
	if err != nil {
		m.observe(opCreate, err)
		return Descriptor{}, &apperrors.IndexError{
			Op:         opCreate,
			Collection: collection,
			Kind:       opts.Kind.String(),
			Fields:     opts.Fields,
			Err:        err,
		}
	}
	if !resp.OK() {
		ie := m.statusError(opCreate, collection, resp)
		ie.Kind = opts.Kind.String()
		ie.Fields = opts.Fields
		m.observe(opCreate, ie)
		return Descriptor{}, ie
	}

	var w wireIndex
	if err := resp.Decode(&w); err != nil {
		ie := &apperrors.IndexError{
			Op:         opCreate,
			Collection: collection,
			Kind:       opts.Kind.String(),
			Fields:     opts.Fields,
			Err:        transport.Malformed(req, err),
		}
		m.observe(opCreate, ie)
		return Descriptor{}, ie
	}
	d := w.descriptor(collection)
	if resp.StatusCode == http.StatusCreated {
		d.IsNew = true
	}
	if !d.IsNew && !d.Matches(opts) {
		m.logger.Warn("store returned an existing index that differs from the request",
			"collection", collection, "id", d.ID, "kind", d.Kind.String(), "fields", d.Fields)
	}
	m.registry.Upsert(collection, d)
	m.observe(opCreate, nil)
	if d.IsNew {
		m.logger.Info("index created", "collection", collection, "id", d.ID, "kind", d.Kind.String(), "fields", d.Fields)
	} else {
		m.logger.Debug("index already exists", "collection", collection, "id", d.ID)
	}
	return d.Clone(), nil
}

// Delete removes the index identified by idOrName, which may be a handle, a
// "<collection>/<handle>" id or an index name known to the registry. It
// returns false when the index did not exist.
func (m *Manager) Delete(ctx context.Context, collection, idOrName string) (bool, error) {
	handle, err := m.resolve(collection, idOrName)
	if err != nil {
		m.observe(opDelete, err)
		return false, err
	}
	if d, ok := m.registry.Lookup(collection, collection+"/"+handle); ok && isImplicit(d.Kind) {
		err := apperrors.NewValidation(d.Kind.String(), "identifier", "%s indexes are managed by the store and cannot be deleted", d.Kind)
		m.observe(opDelete, err)
		return false, err
	}

	req := transport.Request{
		Method: transport.MethodDelete,
		Path:   indexPath + "/" + url.PathEscape(collection) + "/" + url.PathEscape(handle),
	}
	resp, err := m.dispatcher.Dispatch(ctx, req)
	if err != nil {
		m.observe(opDelete, err)
		return false, &apperrors.IndexError{Op: opDelete, Collection: collection, Identifier: idOrName, Err: err}
	}

	id := collection + "/" + handle
	switch {
	case resp.OK():
		m.registry.Remove(collection, id)
		m.observe(opDelete, nil)
		m.logger.Info("index deleted", "collection", collection, "id", id)
		return true, nil
	case resp.StatusCode == http.StatusNotFound && resp.ErrorNum() == ErrNumIndexNotFound:
		m.registry.Remove(collection, id)
		m.observe(opDelete, nil)
		m.logger.Debug("index already absent", "collection", collection, "id", id)
		return false, nil
	default:
		ie := m.statusError(opDelete, collection, resp)
		ie.Identifier = idOrName
		m.observe(opDelete, ie)
		return false, ie
	}
}

// Load asks the store to load every index of collection into memory. It
// reports the store's result flag.
func (m *Manager) Load(ctx context.Context, collection string) (bool, error) {
	req := transport.Request{
		Method: transport.MethodPut,
		Path:   collectionPath + "/" + url.PathEscape(collection) + "/loadIndexesIntoMemory",
	}
	resp, err := m.dispatcher.Dispatch(ctx, req)
	if err != nil {
		m.observe(opLoad, err)
		return false, &apperrors.IndexError{Op: opLoad, Collection: collection, Err: err}
	}
	if !resp.OK() {
		ie := m.statusError(opLoad, collection, resp)
		m.observe(opLoad, ie)
		return false, ie
	}
	var body struct {
		Result bool `json:"result"`
	}
	if err := resp.Decode(&body); err != nil {
		ie := &apperrors.IndexError{Op: opLoad, Collection: collection, Err: transport.Malformed(req, err)}
		m.observe(opLoad, ie)
		return false, ie
	}
	m.observe(opLoad, nil)
	m.logger.Debug("indexes loaded", "collection", collection, "result", body.Result)
	return body.Result, nil
}

// Snapshot returns the cached set for collection, listing from the store
// when nothing is cached. Concurrent misses share one List call.
func (m *Manager) Snapshot(ctx context.Context, collection string) ([]Descriptor, error) {
	if ds, ok := m.registry.Get(collection); ok {
		return ds, nil
	}
	v, err, _ := m.group.Do(collection, func() (any, error) {
		return m.List(ctx, collection)
	})
	if err != nil {
		return nil, err
	}
	return cloneAll(v.([]Descriptor)), nil
}

func (m *Manager) resolve(collection, idOrName string) (string, error) {
	handle := idOrName
	if i := strings.LastIndexByte(idOrName, '/'); i >= 0 {
		if idOrName[:i] != collection {
			return "", &apperrors.IndexError{
				Op:         opDelete,
				Collection: collection,
				Identifier: idOrName,
				Err:        apperrors.ErrNotFound,
				Message:    "identifier belongs to collection " + idOrName[:i],
			}
		}
		handle = idOrName[i+1:]
	}
	if strings.TrimSpace(handle) == "" {
		return "", apperrors.NewValidation("", "identifier", "index identifier must not be empty")
	}
	if h, ok := m.registry.Resolve(collection, handle); ok {
		return h, nil
	}
	return handle, nil
}

func isImplicit(k Kind) bool {
	return k == KindPrimary || k == KindEdge
}

// statusError maps a non-2xx response to an IndexError. A missing collection
// also drops its cached set.
func (m *Manager) statusError(op, collection string, resp *transport.Response) *apperrors.IndexError {
	if resp.ErrorNum() == ErrNumCollectionNotFound {
		m.registry.Invalidate(collection)
	}
	ie := &apperrors.IndexError{
		Op:         op,
		Collection: collection,
		StatusCode: resp.StatusCode,
		ErrorNum:   resp.ErrorNum(),
		Message:    resp.ErrorMessage(),
	}
	switch resp.StatusCode {
	case http.StatusConflict:
		ie.Err = apperrors.ErrConflict
	case http.StatusNotFound:
		ie.Err = apperrors.ErrNotFound
	default:
		ie.Err = apperrors.ErrUnexpectedStatus
	}
	return ie
}

func (m *Manager) observe(op string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrValidation):
		result = "invalid"
	case errors.Is(err, apperrors.ErrTransport):
		result = "transport_error"
	default:
		result = "error"
	}
	m.metrics.IndexOperation(op, result)
}
