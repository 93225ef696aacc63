package domain

// Source names the record table a credential lives in.
type Source string

const (
	SourceStudents Source = "students"
	SourceTeachers Source = "teachers"
)

// Sources lists every credential source in lookup order.
var Sources = []Source{SourceStudents, SourceTeachers}

// Role maps the source table to the role exposed at the application boundary.
func (s Source) Role() string {
	if s == SourceTeachers {
		return RoleAdmin
	}
	return RoleStudent
}

// Credential is one login-capable record (student or teacher).
//
// PlaintextPassword is only populated before migration. Once HashedPassword is
// set the plaintext is never read again, even if it is still stored.
type Credential struct {
	Source            Source
	Identifier        string
	Email             string
	DisplayName       string
	PlaintextPassword *string
	HashedPassword    *string
	ClassID           string
	Classes           []string
}

// IsMigrated reports whether the credential carries a stored hash.
func (c *Credential) IsMigrated() bool {
	return c.HashedPassword != nil && *c.HashedPassword != ""
}

// Plaintext returns the stored plaintext password, or "" when absent.
func (c *Credential) Plaintext() string {
	if c.PlaintextPassword == nil {
		return ""
	}
	return *c.PlaintextPassword
}

// Identity builds the authenticated view of this credential for a tenant.
func (c *Credential) Identity(tenant string) *Identity {
	return &Identity{
		Identifier:  c.Identifier,
		Email:       c.Email,
		DisplayName: c.DisplayName,
		Role:        c.Source.Role(),
		Tenant:      tenant,
		ClassID:     c.ClassID,
		Classes:     c.Classes,
	}
}

// UpdateResult reports the outcome of a conditional hash write.
type UpdateResult int

const (
	// UpdateApplied means this call wrote the hash.
	UpdateApplied UpdateResult = iota
	// UpdateAlreadyHashed means another writer stored a hash first.
	UpdateAlreadyHashed
)

func (r UpdateResult) String() string {
	switch r {
	case UpdateApplied:
		return "applied"
	case UpdateAlreadyHashed:
		return "already_hashed"
	default:
		return "unknown"
	}
}
