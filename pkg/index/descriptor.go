package index

import (
	"slices"
	"strings"
)

// Descriptor is the client-side view of a server-reported index. ID is
// collection-scoped ("<collection>/<number>"); Type keeps the raw server
// string so KindUnknown entries remain diagnosable.
type Descriptor struct {
	ID          string   `json:"id"`
	Name        string   `json:"name,omitempty"`
	Kind        Kind     `json:"kind"`
	Type        string   `json:"type"`
	Fields      []string `json:"fields"`
	Unique      bool     `json:"unique"`
	Sparse      bool     `json:"sparse"`
	IsNew       bool     `json:"isNew"`
	Selectivity *float64 `json:"selectivityEstimate,omitempty"`
	GeoJSON     bool     `json:"geoJson,omitempty"`
	MinLength   *int     `json:"minLength,omitempty"`
	ExpireAfter *int     `json:"expireAfter,omitempty"`
	// IgnoreNull is only reported by older servers on hash and skiplist
	// indexes.
	IgnoreNull *bool `json:"ignoreNull,omitempty"`
}

// Handle returns the collection-local part of the ID.
func (d Descriptor) Handle() string {
	if i := strings.LastIndexByte(d.ID, '/'); i >= 0 {
		return d.ID[i+1:]
	}
	return d.ID
}

// Clone deep-copies d.
func (d Descriptor) Clone() Descriptor {
	out := d
	out.Fields = slices.Clone(d.Fields)
	if d.Selectivity != nil {
		v := *d.Selectivity
		out.Selectivity = &v
	}
	out.MinLength = cloneInt(d.MinLength)
	out.ExpireAfter = cloneInt(d.ExpireAfter)
	out.IgnoreNull = cloneBool(d.IgnoreNull)
	return out
}

// Matches reports whether d was created from options equivalent to o.
func (d Descriptor) Matches(o NormalizedOptions) bool {
	return d.Kind == o.Kind &&
		slices.Equal(d.Fields, o.Fields) &&
		d.Unique == o.Unique &&
		d.Sparse == o.Sparse
}

func cloneAll(ds []Descriptor) []Descriptor {
	if ds == nil {
		return nil
	}
	out := make([]Descriptor, len(ds))
	for i, d := range ds {
		out[i] = d.Clone()
	}
	return out
}

// wireIndex is the store's JSON representation of one index.
type wireIndex struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Type           string   `json:"type"`
	Fields         []string `json:"fields"`
	Unique         bool     `json:"unique"`
	Sparse         bool     `json:"sparse"`
	IsNewlyCreated *bool    `json:"isNewlyCreated"`
	Selectivity    *float64 `json:"selectivityEstimate"`
	GeoJSON        bool     `json:"geoJson"`
	MinLength      *int     `json:"minLength"`
	ExpireAfter    *int     `json:"expireAfter"`
	IgnoreNull     *bool    `json:"ignoreNull"`
}

type listResponse struct {
	Indexes []wireIndex `json:"indexes"`
}

func (w wireIndex) descriptor(collection string) Descriptor {
	id := w.ID
	if id != "" && !strings.Contains(id, "/") {
		id = collection + "/" + id
	}
	d := Descriptor{
		ID:          id,
		Name:        w.Name,
		Kind:        ParseKind(w.Type),
		Type:        w.Type,
		Fields:      slices.Clone(w.Fields),
		Unique:      w.Unique,
		Sparse:      w.Sparse,
		Selectivity: w.Selectivity,
		GeoJSON:     w.GeoJSON,
		MinLength:   w.MinLength,
		ExpireAfter: w.ExpireAfter,
		IgnoreNull:  w.IgnoreNull,
	}
	if d.Fields == nil {
		d.Fields = []string{}
	}
	if w.IsNewlyCreated != nil {
		d.IsNew = *w.IsNewlyCreated
	}
	return d
}
