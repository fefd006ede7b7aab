package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/indexkit/internal/fakestore"
	"github.com/Adithya-Monish-Kumar-K/indexkit/pkg/audit"
	"github.com/Adithya-Monish-Kumar-K/indexkit/pkg/client"
	"github.com/Adithya-Monish-Kumar-K/indexkit/pkg/index"
)

type env struct {
	store      *fakestore.Store
	configPath string
	auditPath  string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := fakestore.New(fakestore.WithCredentials("root", "secret"))
	store.AddCollection("users")
	store.AddCollection("orders")
	srv := httptest.NewServer(store.Handler())
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	auditPath := filepath.Join(dir, "calls.idxa")
	cfg := fmt.Sprintf(`store:
  url: %s
  database: shop
  username: root
  password: secret
audit:
  log:
    enabled: false
  file:
    enabled: true
    path: %s
logging:
  level: error
`, srv.URL, auditPath)
	configPath := filepath.Join(dir, "indexctl.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(cfg), 0o600))
	return &env{store: store, configPath: configPath, auditPath: auditPath}
}

func (e *env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestRoot_RejectsUnknownOutput(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "list", "users", "-o", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported --output")
}

func TestRoot_MissingConfigFile(t *testing.T) {
	root := NewRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "absent.yaml"), "list", "users"})
	require.Error(t, root.Execute())
}

func TestList_Text(t *testing.T) {
	e := newEnv(t)
	out, err := e.run(t, "list", "users")
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "users/0")
	assert.Contains(t, out, "primary")
}

func TestList_MultipleCollectionsJSON(t *testing.T) {
	e := newEnv(t)
	out, err := e.run(t, "list", "users", "orders", "-o", "json")
	require.NoError(t, err)

	var got map[string][]index.Descriptor
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "orders/0", got["orders"][0].ID)
	assert.Equal(t, index.KindPrimary, got["users"][0].Kind)
}

func TestList_UnknownCollection(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "list", "users", "missing")
	require.Error(t, err)
}

func TestCreate(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr string
	}{
		{
			name: "hash unique",
			args: []string{"create", "users", "--kind", "hash", "--field", "email", "--unique", "--name", "by_email"},
			want: "created users/1",
		},
		{
			name: "ttl",
			args: []string{"create", "users", "--kind", "ttl", "-f", "createdAt", "--expire-after", "3600"},
			want: "created users/1",
		},
		{
			name: "geo json",
			args: []string{"create", "users", "--kind", "geo", "-f", "location", "--geo-json"},
			want: "created users/1",
		},
		{
			name:    "unknown kind",
			args:    []string{"create", "users", "--kind", "btree", "-f", "a"},
			wantErr: "unknown index kind",
		},
		{
			name:    "unsupported option",
			args:    []string{"create", "users", "--kind", "fulltext", "-f", "body", "--unique"},
			wantErr: "unique",
		},
		{
			name:    "ttl without expiry",
			args:    []string{"create", "users", "--kind", "ttl", "-f", "createdAt"},
			wantErr: "ttl_expire_after",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			out, err := e.run(t, tt.args...)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestCreate_ExistingIndex(t *testing.T) {
	e := newEnv(t)
	args := []string{"create", "users", "--kind", "persistent", "-f", "age", "-o", "json"}
	_, err := e.run(t, args...)
	require.NoError(t, err)

	out, err := e.run(t, args...)
	require.NoError(t, err)
	var d index.Descriptor
	require.NoError(t, json.Unmarshal([]byte(out), &d))
	assert.False(t, d.IsNew)
	assert.Equal(t, "users/1", d.ID)
}

func TestDelete(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "create", "users", "--kind", "hash", "-f", "email", "--name", "by_email")
	require.NoError(t, err)

	out, err := e.run(t, "delete", "users", "by_email")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted by_email")
	ixs, _ := e.store.Indexes("users")
	assert.Len(t, ixs, 1)

	out, err = e.run(t, "delete", "users", "users/1")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing deleted")
}

func TestDelete_PrimaryForbidden(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "delete", "users", "0")
	require.Error(t, err)
}

func TestIsName(t *testing.T) {
	assert.False(t, isName("123"))
	assert.False(t, isName("users/123"))
	assert.False(t, isName("users/by_email"))
	assert.True(t, isName("by_email"))
	assert.True(t, isName("12a"))
}

func TestDoctor(t *testing.T) {
	e := newEnv(t)
	out, err := e.run(t, "doctor")
	require.NoError(t, err)
	assert.Contains(t, out, "store")
	assert.Contains(t, out, "file")
	assert.Contains(t, out, "overall: up")
}

func TestDoctor_StoreDown(t *testing.T) {
	e := newEnv(t)
	t.Setenv("IDX_STORE_URL", "http://127.0.0.1:1")
	out, err := e.run(t, "doctor", "-o", "json")
	require.Error(t, err)
	assert.Contains(t, out, `"status": "down"`)
}

func TestAuditRead(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "list", "users")
	require.NoError(t, err)
	_, err = e.run(t, "create", "users", "--kind", "skiplist", "-f", "score")
	require.NoError(t, err)

	out, err := e.run(t, "audit", "read", "-o", "json")
	require.NoError(t, err)
	var recs []audit.CallRecord
	require.NoError(t, json.Unmarshal([]byte(out), &recs))
	require.Len(t, recs, 2)
	assert.Equal(t, "GET", recs[0].Method)
	assert.Equal(t, "POST", recs[1].Method)
	assert.Equal(t, 201, recs[1].StatusCode)

	out, err = e.run(t, "audit", "read", e.auditPath)
	require.NoError(t, err)
	assert.Contains(t, out, "/_api/index")
}

func TestAuditRead_ForeignFile(t *testing.T) {
	e := newEnv(t)
	bogus := filepath.Join(t.TempDir(), "bogus")
	require.NoError(t, os.WriteFile(bogus, []byte("hello"), 0o600))
	_, err := e.run(t, "audit", "read", bogus)
	require.ErrorIs(t, err, audit.ErrBadAuditFile)
}

func TestClientOptionsReachCommands(t *testing.T) {
	e := newEnv(t)
	rec := audit.NewRecorder(0)
	root := NewRootCmd(client.WithSink(rec))
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--config", e.configPath, "list", "users"})
	require.NoError(t, root.Execute())
	assert.Equal(t, 1, rec.Len())
}

func TestLoad(t *testing.T) {
	e := newEnv(t)
	out, err := e.run(t, "load", "users", "orders")
	require.NoError(t, err)
	assert.Contains(t, out, "loaded users")
	assert.Contains(t, out, "loaded orders")

	out, err = e.run(t, "load", "users", "-o", "json")
	require.NoError(t, err)
	var got map[string]bool
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, map[string]bool{"users": true}, got)

	_, err = e.run(t, "load", "missing")
	require.Error(t, err)
}
