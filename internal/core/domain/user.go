package domain

const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// KnownRole reports whether role is one login can issue.
func KnownRole(role string) bool {
	switch role {
	case RoleStudent, RoleAdmin:
		return true
	}
	return false
}

// Identity is the authenticated principal produced by a successful login.
type Identity struct {
	Identifier  string   `json:"id"`
	Email       string   `json:"email"`
	DisplayName string   `json:"name"`
	Role        string   `json:"role"`
	Tenant      string   `json:"tenant"`
	ClassID     string   `json:"class_id,omitempty"`
	Classes     []string `json:"classes,omitempty"`
}
