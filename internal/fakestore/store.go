// Package fakestore is an in-memory implementation of the store's index API,
// enough to exercise the client end to end: idempotent creation, name
// conflicts, missing indexes and missing collections behave as on a real
// server.
package fakestore

import (
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
)

// Store error numbers.
const (
	errNumBadParameter       = 10
	errNumForbidden          = 11
	errNumCollectionNotFound = 1203
	errNumUniqueConstraint   = 1210
	errNumIndexNotFound      = 1212
)

var creatable = map[string]bool{
	"hash":       true,
	"skiplist":   true,
	"persistent": true,
	"geo":        true,
	"fulltext":   true,
	"ttl":        true,
}

// Index is the stored form of one index, rendered as-is on the wire.
type Index struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Fields      []string `json:"fields"`
	Unique      bool     `json:"unique"`
	Sparse      bool     `json:"sparse"`
	Deduplicate *bool    `json:"deduplicate,omitempty"`
	GeoJSON     *bool    `json:"geoJson,omitempty"`
	MinLength   *int     `json:"minLength,omitempty"`
	ExpireAfter *int     `json:"expireAfter,omitempty"`
	Selectivity *float64 `json:"selectivityEstimate,omitempty"`
}

// equivalent reports whether o requests the same index as ix: kind, fields
// and every option must agree.
func (ix Index) equivalent(o Index) bool {
	return ix.Type == o.Type &&
		slices.Equal(ix.Fields, o.Fields) &&
		ix.Unique == o.Unique &&
		ix.Sparse == o.Sparse &&
		samePtr(ix.Deduplicate, o.Deduplicate) &&
		samePtr(ix.GeoJSON, o.GeoJSON) &&
		samePtr(ix.MinLength, o.MinLength) &&
		samePtr(ix.ExpireAfter, o.ExpireAfter)
}

func samePtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

type collection struct {
	name    string
	indexes []Index
	nextID  int
}

// Store holds collections and their indexes.
type Store struct {
	mu          sync.Mutex
	collections map[string]*collection
	username    string
	password    string
	requests    atomic.Int64
}

// Option customizes a Store.
type Option func(*Store)

// WithCredentials requires HTTP basic auth on every request.
func WithCredentials(username, password string) Option {
	return func(s *Store) {
		s.username = username
		s.password = password
	}
}

func New(opts ...Option) *Store {
	s := &Store{collections: make(map[string]*collection)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddCollection creates a document collection with its primary index.
func (s *Store) AddCollection(name string) {
	s.add(name, false)
}

// AddEdgeCollection creates an edge collection with primary and edge indexes.
func (s *Store) AddEdgeCollection(name string) {
	s.add(name, true)
}

func (s *Store) add(name string, edge bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; ok {
		return
	}
	one := 1.0
	c := &collection{name: name, nextID: 1}
	c.indexes = append(c.indexes, Index{
		ID: name + "/0", Name: "primary", Type: "primary",
		Fields: []string{"_key"}, Unique: true, Selectivity: &one,
	})
	if edge {
		c.indexes = append(c.indexes, Index{
			ID: name + "/1", Name: "edge", Type: "edge",
			Fields: []string{"_from", "_to"},
		})
		c.nextID = 2
	}
	s.collections[name] = c
}

// Indexes returns a copy of the indexes on name.
func (s *Store) Indexes(name string) ([]Index, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		return nil, false
	}
	return slices.Clone(c.indexes), true
}

// Requests returns the number of API requests served.
func (s *Store) Requests() int64 {
	return s.requests.Load()
}

type storeError struct {
	status   int
	errorNum int
	message  string
}

func (s *Store) create(coll string, req Index) (Index, bool, *storeError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[coll]
	if !ok {
		return Index{}, false, &storeError{404, errNumCollectionNotFound, "collection or view not found"}
	}
	if !creatable[req.Type] {
		return Index{}, false, &storeError{400, errNumBadParameter, "invalid index type " + strconv.Quote(req.Type)}
	}
	if len(req.Fields) == 0 {
		return Index{}, false, &storeError{400, errNumBadParameter, "fields must be a non-empty array"}
	}
	for _, ix := range c.indexes {
		if ix.equivalent(req) && (req.Name == "" || req.Name == ix.Name) {
			return ix, false, nil
		}
		if req.Name != "" && ix.Name == req.Name {
			return Index{}, false, &storeError{409, errNumUniqueConstraint, "duplicate value for index name " + strconv.Quote(req.Name)}
		}
	}
	req.ID = coll + "/" + strconv.Itoa(c.nextID)
	if req.Name == "" {
		req.Name = "idx_" + strconv.Itoa(c.nextID)
	}
	c.nextID++
	if req.Type == "hash" || req.Type == "skiplist" || req.Type == "persistent" {
		sel := 1.0
		req.Selectivity = &sel
	}
	c.indexes = append(c.indexes, req)
	return req, true, nil
}

// load reports whether collection exists; the fake has nothing to page in.
func (s *Store) load(coll string) *storeError {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[coll]; !ok {
		return &storeError{404, errNumCollectionNotFound, "collection or view not found"}
	}
	return nil
}

func (s *Store) drop(coll, handle string) (string, *storeError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[coll]
	if !ok {
		return "", &storeError{404, errNumCollectionNotFound, "collection or view not found"}
	}
	id := coll + "/" + handle
	for n, ix := range c.indexes {
		if ix.ID != id {
			continue
		}
		if ix.Type == "primary" || ix.Type == "edge" {
			return "", &storeError{403, errNumForbidden, "cannot drop " + ix.Type + " index"}
		}
		c.indexes = slices.Delete(c.indexes, n, n+1)
		return id, nil
	}
	return "", &storeError{404, errNumIndexNotFound, "index not found"}
}
