// Package tenants holds the static table of tenant projects and resolves
// email addresses and connection endpoints against it.
package tenants

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/edudash/credential-service/internal/core/domain"
)

type file struct {
	Tenants []domain.TenantProject `yaml:"tenants"`
}

// connKey identifies one database on one backend endpoint. Several tenants may
// share an endpoint as long as their databases differ.
type connKey struct {
	endpoint string
	database string
}

// Registry is an immutable lookup table of tenant projects.
type Registry struct {
	byDomain     map[string]domain.TenantProject
	byConnection map[connKey]domain.TenantProject
	byEndpoint   map[string][]domain.TenantProject
	ordered      []domain.TenantProject
}

// LoadFile reads a YAML tenant table from path.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tenants: open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a YAML tenant table. ${VAR} references are expanded from the
// environment before decoding.
func Parse(r io.Reader) (*Registry, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("tenants: read: %w", err)
	}

	var doc file
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), &doc); err != nil {
		return nil, fmt.Errorf("tenants: decode: %w", err)
	}
	return New(doc.Tenants)
}

// New validates projects and builds a Registry. Domains are normalised to
// lowercase and must be unique, as must each endpoint and database pair.
func New(projects []domain.TenantProject) (*Registry, error) {
	v := validator.New()
	reg := &Registry{
		byDomain:     make(map[string]domain.TenantProject, len(projects)),
		byConnection: make(map[connKey]domain.TenantProject, len(projects)),
		byEndpoint:   make(map[string][]domain.TenantProject, len(projects)),
	}

	for i, p := range projects {
		p.Domain = strings.ToLower(strings.TrimSpace(p.Domain))
		if err := v.Struct(p); err != nil {
			return nil, fmt.Errorf("tenants: entry %d (%q): %w", i, p.Domain, err)
		}
		if _, dup := reg.byDomain[p.Domain]; dup {
			return nil, fmt.Errorf("tenants: duplicate domain %q", p.Domain)
		}
		base, _ := splitEndpoint(p.Connection.Endpoint)
		key := connKey{endpoint: base, database: p.Connection.Database}
		if other, dup := reg.byConnection[key]; dup {
			return nil, fmt.Errorf("tenants: %q and %q share database %q on %s", other.Domain, p.Domain, key.database, base)
		}
		reg.byDomain[p.Domain] = p
		reg.byConnection[key] = p
		reg.byEndpoint[base] = append(reg.byEndpoint[base], p)
		reg.ordered = append(reg.ordered, p)
	}

	sort.Slice(reg.ordered, func(i, j int) bool { return reg.ordered[i].Domain < reg.ordered[j].Domain })
	return reg, nil
}

// ResolveByEmail returns the project serving the email's domain. Only exact
// domain matches count; subdomains are not folded into their parent.
func (r *Registry) ResolveByEmail(email string) (domain.TenantProject, bool) {
	d := domain.EmailDomain(email)
	if d == "" {
		return domain.TenantProject{}, false
	}
	p, ok := r.byDomain[d]
	return p, ok
}

// ResolveByDomain looks a project up by its domain name.
func (r *Registry) ResolveByDomain(name string) (domain.TenantProject, bool) {
	p, ok := r.byDomain[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// ResolveByConnection recovers a project from its connection endpoint. A
// database in the URI path selects among tenants sharing the endpoint; a bare
// endpoint only resolves when exactly one tenant uses it.
func (r *Registry) ResolveByConnection(endpoint string) (domain.TenantProject, bool) {
	base, db := splitEndpoint(endpoint)
	if db != "" {
		if p, ok := r.byConnection[connKey{endpoint: base, database: db}]; ok {
			return p, true
		}
	}
	if ps := r.byEndpoint[base]; len(ps) == 1 {
		return ps[0], true
	}
	return domain.TenantProject{}, false
}

// Projects returns all projects ordered by domain.
func (r *Registry) Projects() []domain.TenantProject {
	out := make([]domain.TenantProject, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// splitEndpoint separates a connection URI into its scheme and hosts part and
// the database named in its path. Query options are dropped.
func splitEndpoint(e string) (base, database string) {
	e = strings.TrimSpace(e)
	if i := strings.IndexByte(e, '?'); i >= 0 {
		e = e[:i]
	}
	hosts := 0
	if i := strings.Index(e, "://"); i >= 0 {
		hosts = i + len("://")
	}
	if i := strings.IndexByte(e[hosts:], '/'); i >= 0 {
		return e[:hosts+i], strings.Trim(e[hosts+i:], "/")
	}
	return e, ""
}
