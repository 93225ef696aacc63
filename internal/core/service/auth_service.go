package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/edudash/credential-service/internal/api/metrics"
	"github.com/edudash/credential-service/internal/core/domain"
	"github.com/edudash/credential-service/internal/core/ports"
	"github.com/edudash/credential-service/internal/pkg/hashcodec"
)

// Rejection outcomes that do not come from the codec.
const (
	outcomeSuccess          = "success"
	outcomeUnknownTenant    = "unknown_tenant"
	outcomeNotFound         = "not_found"
	outcomeNoHash           = "no_hash"
	outcomeMalformedRecord  = "malformed_record"
	outcomeStoreUnavailable = "store_unavailable"
)

// dummyPassword feeds the decoy verification on early rejections.
const dummyPassword = "decoy-password"

// AuthService routes a login to the caller's tenant, finds the credential and
// verifies it. It never writes to a credential store.
type AuthService struct {
	tenants   ports.TenantResolver
	stores    ports.CredentialStores
	codec     ports.PasswordCodec
	jwtSecret string
	tokenTTL  time.Duration
	decoy     string
	log       zerolog.Logger

	// legacyDecoys holds, per tenant domain, a bcrypt decoy at the highest cost
	// seen among that tenant's stored hashes.
	legacyDecoys sync.Map
}

func NewAuthService(tenants ports.TenantResolver, stores ports.CredentialStores, codec ports.PasswordCodec, jwtSecret string, tokenTTL time.Duration, log zerolog.Logger) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	s := &AuthService{
		tenants:   tenants,
		stores:    stores,
		codec:     codec,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		log:       log,
	}
	if decoy, err := codec.Hash(dummyPassword); err == nil {
		s.decoy = decoy
	}
	return s
}

// Authenticate resolves the tenant from the email domain, looks the email up
// in students then teachers, and verifies the password against the stored
// hash. Every rejection is reported as domain.ErrUnknownTenant or
// domain.ErrInvalidCredentials; the detailed reason is only logged.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*domain.Identity, error) {
	email = strings.TrimSpace(email)
	log := s.log.With().Str("email", email).Logger()

	if email == "" || password == "" {
		s.reject(log, "empty", "")
		return nil, domain.ErrInvalidCredentials
	}

	project, ok := s.tenants.ResolveByEmail(email)
	if !ok {
		s.decoyCheck("", password)
		s.reject(log, outcomeUnknownTenant, "")
		return nil, domain.ErrUnknownTenant
	}
	log = log.With().Str("tenant", project.Domain).Logger()

	store, ok := s.stores.ForTenant(project.Domain)
	if !ok {
		s.reject(log, outcomeStoreUnavailable, "")
		return nil, fmt.Errorf("%w: no store bound for tenant %s", domain.ErrStoreUnavailable, project.Domain)
	}

	cred, err := s.lookup(ctx, store, email)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrCredentialNotFound):
		s.decoyCheck(project.Domain, password)
		s.reject(log, outcomeNotFound, "")
		return nil, domain.ErrInvalidCredentials
	case errors.Is(err, domain.ErrMalformedRecord):
		s.decoyCheck(project.Domain, password)
		log.Error().Err(err).Msg("credential record could not be decoded")
		s.reject(log, outcomeMalformedRecord, "")
		return nil, domain.ErrInvalidCredentials
	default:
		log.Error().Err(err).Msg("credential lookup failed")
		s.reject(log, outcomeStoreUnavailable, "")
		if errors.Is(err, domain.ErrStoreUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	if !cred.IsMigrated() {
		s.decoyCheck(project.Domain, password)
		s.reject(log, outcomeNoHash, cred.Source)
		return nil, domain.ErrInvalidCredentials
	}

	outcome := s.codec.Check(password, *cred.HashedPassword)
	metrics.HashFormatVerificationsTotal.WithLabelValues(outcome.Format.String()).Inc()
	if outcome.Format == hashcodec.FormatLegacyBcrypt {
		s.noteLegacyHash(project.Domain, *cred.HashedPassword)
	}
	if !outcome.Valid() {
		s.reject(log.With().Str("format", outcome.Format.String()).Logger(), string(outcome.Reason), cred.Source)
		return nil, domain.ErrInvalidCredentials
	}

	metrics.LoginAttemptsTotal.WithLabelValues(outcomeSuccess).Inc()
	log.Debug().Str("source", string(cred.Source)).Msg("credential verified")
	return cred.Identity(project.Domain), nil
}

// Login authenticates and issues a signed session token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.Identity, error) {
	identity, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return "", nil, err
	}

	token, err := s.generateToken(identity)
	if err != nil {
		return "", nil, err
	}
	return token, identity, nil
}

// lookup tries each source in order and returns the first match.
func (s *AuthService) lookup(ctx context.Context, store ports.CredentialStore, email string) (*domain.Credential, error) {
	for _, source := range domain.Sources {
		cred, err := store.FindByEmail(ctx, source, email)
		if errors.Is(err, domain.ErrCredentialNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return cred, nil
	}
	return nil, domain.ErrCredentialNotFound
}

// decoyCheck spends one verification so that early rejections take about as
// long as a wrong password. Once a tenant is known to hold bcrypt rows the
// decoy is a bcrypt hash of matching cost.
func (s *AuthService) decoyCheck(tenant, password string) {
	decoy := s.decoy
	if d, ok := s.legacyDecoys.Load(tenant); ok {
		decoy = d.(string)
	}
	if decoy != "" {
		_ = s.codec.Check(password, decoy)
	}
}

// noteLegacyHash records the cost of a tenant's bcrypt hash for its decoy.
func (s *AuthService) noteLegacyHash(tenant, stored string) {
	cost, err := bcrypt.Cost([]byte(stored))
	if err != nil {
		return
	}
	if d, ok := s.legacyDecoys.Load(tenant); ok {
		if have, err := bcrypt.Cost([]byte(d.(string))); err == nil && have >= cost {
			return
		}
	}
	decoy, err := bcrypt.GenerateFromPassword([]byte(dummyPassword), cost)
	if err != nil {
		s.log.Warn().Err(err).Str("tenant", tenant).Msg("bcrypt decoy not generated")
		return
	}
	s.legacyDecoys.Store(tenant, string(decoy))
}

func (s *AuthService) reject(log zerolog.Logger, reason string, source domain.Source) {
	metrics.LoginAttemptsTotal.WithLabelValues(reason).Inc()
	ev := log.Info().Str("reason", reason)
	if source != "" {
		ev = ev.Str("source", string(source))
	}
	ev.Msg("authentication rejected")
}

func (s *AuthService) generateToken(identity *domain.Identity) (string, error) {
	claims := jwt.MapClaims{
		"sub":    identity.Identifier,
		"email":  identity.Email,
		"role":   identity.Role,
		"tenant": identity.Tenant,
		"exp":    time.Now().Add(s.tokenTTL).Unix(),
	}
	if identity.ClassID != "" {
		claims["class_id"] = identity.ClassID
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}
