package domain

import "strings"

// Connection describes how to reach a tenant's isolated backend project.
type Connection struct {
	Endpoint string `yaml:"endpoint" validate:"required"`
	Database string `yaml:"database" validate:"required"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// TenantProject is one school served by its own backend, selected by email domain.
type TenantProject struct {
	Domain      string     `yaml:"domain"       validate:"required,fqdn"`
	DisplayName string     `yaml:"display_name" validate:"required"`
	Connection  Connection `yaml:"connection"`
}

// EmailDomain returns the lowercased part after the last '@', or "" when the
// address has no usable domain.
func EmailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(email[at+1:]))
}
