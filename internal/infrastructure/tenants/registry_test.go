package tenants

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edudash/credential-service/internal/core/domain"
)

const fixture = `
tenants:
  - domain: CFSS.edu.hk
    display_name: Carmel Secondary School
    connection:
      endpoint: mongodb://cfss-db:27017/
      database: cfss
      username: app
      password: ${TENANT_TEST_PASSWORD}
  - domain: demo.school.org
    display_name: Demo School
    connection:
      endpoint: mongodb://demo-db:27017
      database: demo
`

func TestParse_ResolveByEmail(t *testing.T) {
	t.Setenv("TENANT_TEST_PASSWORD", "s3cret")

	reg, err := Parse(strings.NewReader(fixture))
	require.NoError(t, err)

	p, ok := reg.ResolveByEmail("user@cfss.edu.hk")
	require.True(t, ok)
	assert.Equal(t, "cfss.edu.hk", p.Domain)
	assert.Equal(t, "Carmel Secondary School", p.DisplayName)
	assert.Equal(t, "s3cret", p.Connection.Password)

	p, ok = reg.ResolveByEmail("Teacher@CFSS.EDU.HK")
	require.True(t, ok)
	assert.Equal(t, "cfss.edu.hk", p.Domain)

	_, ok = reg.ResolveByEmail("user@unknown.tld")
	assert.False(t, ok)
}

func TestResolveByEmail_NoSubdomainMatching(t *testing.T) {
	reg, err := Parse(strings.NewReader(fixture))
	require.NoError(t, err)

	for _, email := range []string{"x@mail.cfss.edu.hk", "x@edu.hk", "no-at-sign", "trailing@", ""} {
		_, ok := reg.ResolveByEmail(email)
		assert.False(t, ok, email)
	}
}

func TestResolveByConnection(t *testing.T) {
	reg, err := Parse(strings.NewReader(fixture))
	require.NoError(t, err)

	p, ok := reg.ResolveByConnection("mongodb://cfss-db:27017")
	require.True(t, ok)
	assert.Equal(t, "cfss.edu.hk", p.Domain)

	p, ok = reg.ResolveByConnection("mongodb://demo-db:27017/")
	require.True(t, ok)
	assert.Equal(t, "demo.school.org", p.Domain)

	_, ok = reg.ResolveByConnection("mongodb://elsewhere:27017")
	assert.False(t, ok)
}

func TestResolveByConnection_SharedEndpoint(t *testing.T) {
	reg, err := New([]domain.TenantProject{
		{Domain: "a.edu.hk", DisplayName: "A", Connection: domain.Connection{Endpoint: "mongodb://cluster:27017", Database: "a"}},
		{Domain: "b.edu.hk", DisplayName: "B", Connection: domain.Connection{Endpoint: "mongodb://cluster:27017/", Database: "b"}},
	})
	require.NoError(t, err)

	p, ok := reg.ResolveByConnection("mongodb://cluster:27017/a")
	require.True(t, ok)
	assert.Equal(t, "a.edu.hk", p.Domain)

	p, ok = reg.ResolveByConnection("mongodb://cluster:27017/b?authSource=admin")
	require.True(t, ok)
	assert.Equal(t, "b.edu.hk", p.Domain)

	_, ok = reg.ResolveByConnection("mongodb://cluster:27017")
	assert.False(t, ok, "bare shared endpoint is ambiguous")

	_, ok = reg.ResolveByConnection("mongodb://cluster:27017/c")
	assert.False(t, ok)
}

func TestNew_RejectsSharedDatabase(t *testing.T) {
	conn := domain.Connection{Endpoint: "mongodb://cluster:27017", Database: "shared"}
	_, err := New([]domain.TenantProject{
		{Domain: "a.edu.hk", DisplayName: "A", Connection: conn},
		{Domain: "b.edu.hk", DisplayName: "B", Connection: conn},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "share database")
}

func TestSplitEndpoint(t *testing.T) {
	tests := []struct {
		in, base, db string
	}{
		{"mongodb://h:27017", "mongodb://h:27017", ""},
		{"mongodb://h:27017/", "mongodb://h:27017", ""},
		{" mongodb://h1,h2/school?replicaSet=rs0 ", "mongodb://h1,h2", "school"},
		{"mongodb+srv://user:pw@cluster.example.net/cfss", "mongodb+srv://user:pw@cluster.example.net", "cfss"},
	}
	for _, tc := range tests {
		base, db := splitEndpoint(tc.in)
		assert.Equal(t, tc.base, base, tc.in)
		assert.Equal(t, tc.db, db, tc.in)
	}
}

func TestNew_RejectsDuplicateDomains(t *testing.T) {
	conn := domain.Connection{Endpoint: "mongodb://a", Database: "a"}
	_, err := New([]domain.TenantProject{
		{Domain: "a.edu", DisplayName: "A", Connection: conn},
		{Domain: "A.EDU", DisplayName: "A again", Connection: conn},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate domain")
}

func TestNew_ValidatesEntries(t *testing.T) {
	_, err := New([]domain.TenantProject{{Domain: "not a domain", DisplayName: "x", Connection: domain.Connection{Endpoint: "e", Database: "d"}}})
	assert.Error(t, err)

	_, err = New([]domain.TenantProject{{Domain: "ok.edu", DisplayName: "x"}})
	assert.Error(t, err)
}

func TestProjects_SortedCopy(t *testing.T) {
	reg, err := Parse(strings.NewReader(fixture))
	require.NoError(t, err)

	ps := reg.Projects()
	require.Len(t, ps, 2)
	assert.Equal(t, "cfss.edu.hk", ps[0].Domain)
	assert.Equal(t, "demo.school.org", ps[1].Domain)

	ps[0].Domain = "mutated"
	assert.Equal(t, "cfss.edu.hk", reg.Projects()[0].Domain)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tenants.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0o600))

	reg, err := LoadFile(path)
	require.NoError(t, err)
	_, ok := reg.ResolveByDomain("demo.school.org")
	assert.True(t, ok)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
