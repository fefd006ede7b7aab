package index

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/indexkit/pkg/errors"
)

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		spec   Spec
		option string
	}{
		{"no fields", Spec{Kind: KindHash}, "fields"},
		{"blank field", Spec{Kind: KindHash, Fields: []string{"a", " "}}, "fields"},
		{"duplicate field", Spec{Kind: KindSkiplist, Fields: []string{"a", "a"}}, "fields"},
		{"primary not creatable", Spec{Kind: KindPrimary, Fields: []string{"_key"}}, "kind"},
		{"edge not creatable", Spec{Kind: KindEdge, Fields: []string{"_from"}}, "kind"},
		{"unknown not creatable", Spec{Kind: KindUnknown, Fields: []string{"a"}}, "kind"},
		{"unique on fulltext", Spec{Kind: KindFulltext, Fields: []string{"a"}, Unique: true}, "unique"},
		{"unique on geo", Spec{Kind: KindGeo, Fields: []string{"loc"}, Unique: true}, "unique"},
		{"sparse on fulltext", Spec{Kind: KindFulltext, Fields: []string{"a"}, Sparse: true}, "sparse"},
		{"deduplicate on geo", Spec{Kind: KindGeo, Fields: []string{"loc"}, Deduplicate: boolPtr(true)}, "deduplicate"},
		{"geo_json on hash", Spec{Kind: KindHash, Fields: []string{"a"}, GeoJSON: true}, "geo_json"},
		{"geo_json with two fields", Spec{Kind: KindGeo, Fields: []string{"lat", "lng"}, GeoJSON: true}, "geo_json"},
		{"geo with three fields", Spec{Kind: KindGeo, Fields: []string{"a", "b", "c"}}, "fields"},
		{"min_length on hash", Spec{Kind: KindHash, Fields: []string{"a"}, MinLength: intPtr(3)}, "min_length"},
		{"min_length zero", Spec{Kind: KindFulltext, Fields: []string{"a"}, MinLength: intPtr(0)}, "min_length"},
		{"fulltext two fields", Spec{Kind: KindFulltext, Fields: []string{"a", "b"}}, "fields"},
		{"ttl without expiry", Spec{Kind: KindTTL, Fields: []string{"at"}}, "ttl_expire_after"},
		{"ttl negative expiry", Spec{Kind: KindTTL, Fields: []string{"at"}, ExpireAfter: intPtr(-1)}, "ttl_expire_after"},
		{"expiry on persistent", Spec{Kind: KindPersistent, Fields: []string{"a"}, ExpireAfter: intPtr(10)}, "ttl_expire_after"},
		{"ttl two fields", Spec{Kind: KindTTL, Fields: []string{"a", "b"}, ExpireAfter: intPtr(1)}, "fields"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.spec)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrValidation)

			var ve *apperrors.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.option, ve.Option)
		})
	}
}

func TestValidate_Deterministic(t *testing.T) {
	spec := Spec{Kind: KindFulltext, Fields: []string{"a"}, Unique: true, Sparse: true, MinLength: intPtr(-1)}
	_, first := Validate(spec)
	for i := 0; i < 5; i++ {
		_, err := Validate(spec)
		assert.Equal(t, first.Error(), err.Error())
	}
}

func TestValidate_Accepts(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
	}{
		{"unique sparse hash", Spec{Kind: KindHash, Fields: []string{"email"}, Unique: true, Sparse: true}},
		{"skiplist compound", Spec{Kind: KindSkiplist, Fields: []string{"a", "b.c"}}},
		{"persistent deduplicate", Spec{Kind: KindPersistent, Fields: []string{"tags[*]"}, Deduplicate: boolPtr(false)}},
		{"geo pair", Spec{Kind: KindGeo, Fields: []string{"lat", "lng"}}},
		{"geo json", Spec{Kind: KindGeo, Fields: []string{"loc"}, GeoJSON: true, Sparse: true}},
		{"fulltext min length", Spec{Kind: KindFulltext, Fields: []string{"text"}, MinLength: intPtr(3)}},
		{"fulltext default length", Spec{Kind: KindFulltext, Fields: []string{"text"}}},
		{"ttl zero expiry", Spec{Kind: KindTTL, Fields: []string{"createdAt"}, ExpireAfter: intPtr(0)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := Validate(tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.spec.Kind, opts.Kind)
			assert.Equal(t, tt.spec.Fields, opts.Fields)
		})
	}
}

func TestNormalizedOptions_Body(t *testing.T) {
	t.Run("hash sends unique and sparse explicitly", func(t *testing.T) {
		opts, err := Validate(Spec{Kind: KindHash, Fields: []string{"a"}, Name: "by_a"})
		require.NoError(t, err)
		body := opts.Body()
		assert.Equal(t, "hash", body.Type)
		assert.Equal(t, "by_a", body.Name)
		require.NotNil(t, body.Unique)
		assert.False(t, *body.Unique)
		require.NotNil(t, body.Sparse)
		assert.Nil(t, body.GeoJSON)
		assert.Nil(t, body.MinLength)
		assert.Nil(t, body.ExpireAfter)
	})

	t.Run("ttl sends only expiry", func(t *testing.T) {
		opts, err := Validate(Spec{Kind: KindTTL, Fields: []string{"at"}, ExpireAfter: intPtr(3600)})
		require.NoError(t, err)
		body := opts.Body()
		assert.Nil(t, body.Unique)
		assert.Nil(t, body.Sparse)
		require.NotNil(t, body.ExpireAfter)
		assert.Equal(t, 3600, *body.ExpireAfter)
	})

	t.Run("geo sends geoJson and sparse", func(t *testing.T) {
		opts, err := Validate(Spec{Kind: KindGeo, Fields: []string{"loc"}, GeoJSON: true})
		require.NoError(t, err)
		body := opts.Body()
		require.NotNil(t, body.GeoJSON)
		assert.True(t, *body.GeoJSON)
		require.NotNil(t, body.Sparse)
		assert.Nil(t, body.Unique)
	})
}

func TestValidate_CopiesFields(t *testing.T) {
	fields := []string{"a", "b"}
	opts, err := Validate(Spec{Kind: KindHash, Fields: fields})
	require.NoError(t, err)
	fields[0] = "mutated"
	assert.Equal(t, []string{"a", "b"}, opts.Fields)
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		wire string
		want Kind
	}{
		{"primary", KindPrimary},
		{"edge", KindEdge},
		{"hash", KindHash},
		{"geo1", KindGeo},
		{"geo2", KindGeo},
		{"fulltext", KindFulltext},
		{"ttl", KindTTL},
		{"zkd", KindUnknown},
		{"", KindUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseKind(tt.wire), tt.wire)
	}
	assert.False(t, KindPrimary.Creatable())
	assert.False(t, KindEdge.Creatable())
	assert.False(t, KindUnknown.Creatable())
	assert.True(t, KindTTL.Creatable())
	assert.Equal(t, "unknown", KindUnknown.String())
}
