package domain

import "errors"

var (
	ErrBadRequest          = errors.New("bad request")
	ErrUnknownTenant       = errors.New("unknown tenant")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
	ErrCredentialNotFound  = errors.New("credential not found")
	ErrMalformedRecord     = errors.New("malformed credential record")
	ErrMissingPlaintext    = errors.New("record has no plaintext password")
	ErrMigrationInProgress = errors.New("migration already in progress")
	ErrForbidden           = errors.New("access forbidden")
)
