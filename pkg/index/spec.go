package index

import (
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/indexkit/pkg/errors"
)

// Spec is a caller's declaration of an index to create. Options that the kind
// does not support must be left at their zero value.
type Spec struct {
	Kind        Kind
	Fields      []string
	Name        string
	Unique      bool
	Sparse      bool
	Deduplicate *bool
	GeoJSON     bool
	MinLength   *int
	ExpireAfter *int
}

type option string

const (
	optUnique      option = "unique"
	optSparse      option = "sparse"
	optDeduplicate option = "deduplicate"
	optGeoJSON     option = "geo_json"
	optMinLength   option = "min_length"
	optExpireAfter option = "ttl_expire_after"
)

// optionOrder fixes the order options are checked in, so the same invalid
// spec always reports the same option.
var optionOrder = []option{optUnique, optSparse, optDeduplicate, optGeoJSON, optMinLength, optExpireAfter}

type rule struct {
	allowed   map[option]bool
	required  map[option]bool
	maxFields int // 0 means unbounded
}

func allow(opts ...option) map[option]bool {
	m := make(map[option]bool, len(opts))
	for _, o := range opts {
		m[o] = true
	}
	return m
}

// rules is the single source of per-kind option support. Kinds absent from
// the table cannot be created.
var rules = map[Kind]rule{
	KindHash:       {allowed: allow(optUnique, optSparse, optDeduplicate)},
	KindSkiplist:   {allowed: allow(optUnique, optSparse, optDeduplicate)},
	KindPersistent: {allowed: allow(optUnique, optSparse, optDeduplicate)},
	KindGeo:        {allowed: allow(optSparse, optGeoJSON), maxFields: 2},
	KindFulltext:   {allowed: allow(optMinLength), maxFields: 1},
	KindTTL:        {allowed: allow(optExpireAfter), required: allow(optExpireAfter), maxFields: 1},
}

func (s Spec) carries(o option) bool {
	switch o {
	case optUnique:
		return s.Unique
	case optSparse:
		return s.Sparse
	case optDeduplicate:
		return s.Deduplicate != nil
	case optGeoJSON:
		return s.GeoJSON
	case optMinLength:
		return s.MinLength != nil
	case optExpireAfter:
		return s.ExpireAfter != nil
	}
	return false
}

// NormalizedOptions is a validated spec. Options the kind does not support
// are at their zero value.
type NormalizedOptions struct {
	Kind        Kind
	Fields      []string
	Name        string
	Unique      bool
	Sparse      bool
	Deduplicate *bool
	GeoJSON     bool
	MinLength   *int
	ExpireAfter *int
}

// Validate checks spec against the rule table for its kind. It has no side
// effects and never touches the network.
func Validate(spec Spec) (NormalizedOptions, error) {
	r, ok := rules[spec.Kind]
	if !ok {
		return NormalizedOptions{}, apperrors.NewValidation(spec.Kind.String(), "kind", "index kind cannot be created by clients")
	}
	kind := spec.Kind.String()

	if len(spec.Fields) == 0 {
		return NormalizedOptions{}, apperrors.NewValidation(kind, "fields", "at least one field is required")
	}
	seen := make(map[string]struct{}, len(spec.Fields))
	for _, f := range spec.Fields {
		if strings.TrimSpace(f) == "" {
			return NormalizedOptions{}, apperrors.NewValidation(kind, "fields", "field paths must not be blank")
		}
		if _, dup := seen[f]; dup {
			return NormalizedOptions{}, apperrors.NewValidation(kind, "fields", "duplicate field %q", f)
		}
		seen[f] = struct{}{}
	}
	if r.maxFields > 0 && len(spec.Fields) > r.maxFields {
		return NormalizedOptions{}, apperrors.NewValidation(kind, "fields", "at most %d field(s) supported, got %d", r.maxFields, len(spec.Fields))
	}

	for _, o := range optionOrder {
		if spec.carries(o) && !r.allowed[o] {
			return NormalizedOptions{}, apperrors.NewValidation(kind, string(o), "option not supported by %s indexes", kind)
		}
	}
	for _, o := range optionOrder {
		if r.required[o] && !spec.carries(o) {
			return NormalizedOptions{}, apperrors.NewValidation(kind, string(o), "option is required for %s indexes", kind)
		}
	}

	if spec.GeoJSON && len(spec.Fields) != 1 {
		return NormalizedOptions{}, apperrors.NewValidation(kind, string(optGeoJSON), "requires exactly one field, got %d", len(spec.Fields))
	}
	if spec.MinLength != nil && *spec.MinLength <= 0 {
		return NormalizedOptions{}, apperrors.NewValidation(kind, string(optMinLength), "must be positive, got %d", *spec.MinLength)
	}
	if spec.ExpireAfter != nil && *spec.ExpireAfter < 0 {
		return NormalizedOptions{}, apperrors.NewValidation(kind, string(optExpireAfter), "must not be negative, got %d", *spec.ExpireAfter)
	}

	return NormalizedOptions{
		Kind:        spec.Kind,
		Fields:      append([]string(nil), spec.Fields...),
		Name:        spec.Name,
		Unique:      spec.Unique,
		Sparse:      spec.Sparse,
		Deduplicate: cloneBool(spec.Deduplicate),
		GeoJSON:     spec.GeoJSON,
		MinLength:   cloneInt(spec.MinLength),
		ExpireAfter: cloneInt(spec.ExpireAfter),
	}, nil
}

// CreateRequest is the creation body sent to the store.
type CreateRequest struct {
	Type        string   `json:"type"`
	Fields      []string `json:"fields"`
	Name        string   `json:"name,omitempty"`
	Unique      *bool    `json:"unique,omitempty"`
	Sparse      *bool    `json:"sparse,omitempty"`
	Deduplicate *bool    `json:"deduplicate,omitempty"`
	GeoJSON     *bool    `json:"geoJson,omitempty"`
	MinLength   *int     `json:"minLength,omitempty"`
	ExpireAfter *int     `json:"expireAfter,omitempty"`
}

// Body renders the creation request. A key is present only when the kind
// supports the option; unique, sparse and geoJson are sent explicitly even
// when false.
func (o NormalizedOptions) Body() CreateRequest {
	r := rules[o.Kind]
	req := CreateRequest{
		Type:   string(o.Kind),
		Fields: append([]string(nil), o.Fields...),
		Name:   o.Name,
	}
	if r.allowed[optUnique] {
		req.Unique = &o.Unique
	}
	if r.allowed[optSparse] {
		req.Sparse = &o.Sparse
	}
	if r.allowed[optDeduplicate] {
		req.Deduplicate = cloneBool(o.Deduplicate)
	}
	if r.allowed[optGeoJSON] {
		req.GeoJSON = &o.GeoJSON
	}
	if r.allowed[optMinLength] {
		req.MinLength = cloneInt(o.MinLength)
	}
	if r.allowed[optExpireAfter] {
		req.ExpireAfter = cloneInt(o.ExpireAfter)
	}
	return req
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneBool(p *bool) *bool {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
