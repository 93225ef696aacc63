package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/edudash/credential-service/internal/core/domain"
	"github.com/edudash/credential-service/internal/pkg/hashcodec"
)

func mustHash(t *testing.T, password string) string {
	t.Helper()
	h, err := hashcodec.New().Hash(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return h
}

func mustBcrypt(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(h)
}

func newTestAuthService(t *testing.T, store *memStore) *AuthService {
	t.Helper()
	return NewAuthService(newTestRegistry(t), stubStores{testTenant: store}, hashcodec.New(), "secret", time.Hour, zerolog.Nop())
}

func TestAuthService_Authenticate_CanonicalStudent(t *testing.T) {
	store := newMemStore().add(&domain.Credential{
		Source: domain.SourceStudents, Identifier: "S001", Email: "amy@cfss.edu.hk",
		DisplayName: "Amy", HashedPassword: ptr(mustHash(t, "pw1")), ClassID: "3A",
	})
	svc := newTestAuthService(t, store)

	id, err := svc.Authenticate(context.Background(), "amy@cfss.edu.hk", "pw1")
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if id.Role != domain.RoleStudent || id.Tenant != testTenant || id.ClassID != "3A" || id.Identifier != "S001" {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestAuthService_Authenticate_LegacyBcryptTeacher(t *testing.T) {
	store := newMemStore().add(&domain.Credential{
		Source: domain.SourceTeachers, Identifier: "lee@cfss.edu.hk", Email: "lee@cfss.edu.hk",
		DisplayName: "Mr Lee", HashedPassword: ptr(mustBcrypt(t, "chalk")), Classes: []string{"3A", "4B"},
	})
	svc := newTestAuthService(t, store)

	id, err := svc.Authenticate(context.Background(), "lee@cfss.edu.hk", "chalk")
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if id.Role != domain.RoleAdmin || len(id.Classes) != 2 {
		t.Fatalf("unexpected identity: %+v", id)
	}

	if _, err := svc.Authenticate(context.Background(), "lee@cfss.edu.hk", "chalk!"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Authenticate_StudentsBeforeTeachers(t *testing.T) {
	hash := mustHash(t, "pw")
	store := newMemStore().
		add(&domain.Credential{Source: domain.SourceTeachers, Identifier: "x@cfss.edu.hk", Email: "x@cfss.edu.hk", HashedPassword: ptr(hash)}).
		add(&domain.Credential{Source: domain.SourceStudents, Identifier: "S9", Email: "x@cfss.edu.hk", HashedPassword: ptr(hash)})
	svc := newTestAuthService(t, store)

	id, err := svc.Authenticate(context.Background(), "x@cfss.edu.hk", "pw")
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if id.Role != domain.RoleStudent {
		t.Fatalf("expected student match first, got role %s", id.Role)
	}
}

func TestAuthService_Authenticate_Rejections(t *testing.T) {
	store := newMemStore().
		add(&domain.Credential{Source: domain.SourceStudents, Identifier: "S1", Email: "plain@cfss.edu.hk", PlaintextPassword: ptr("pw")}).
		add(&domain.Credential{Source: domain.SourceStudents, Identifier: "S2", Email: "unset@cfss.edu.hk", HashedPassword: ptr(hashcodec.UnsetSentinel)}).
		add(&domain.Credential{Source: domain.SourceStudents, Identifier: "S3", Email: "broken@cfss.edu.hk", HashedPassword: ptr("a:b:c")}).
		add(&domain.Credential{Source: domain.SourceStudents, Identifier: "S4", Email: "ok@cfss.edu.hk", HashedPassword: ptr(mustHash(t, "pw"))})
	svc := newTestAuthService(t, store)

	tests := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{"unknown tenant", "amy@unknown.tld", "pw", domain.ErrUnknownTenant},
		{"subdomain is not the tenant", "amy@mail.cfss.edu.hk", "pw", domain.ErrUnknownTenant},
		{"no such user", "ghost@cfss.edu.hk", "pw", domain.ErrInvalidCredentials},
		{"plaintext only", "plain@cfss.edu.hk", "pw", domain.ErrInvalidCredentials},
		{"unset sentinel", "unset@cfss.edu.hk", "pw", domain.ErrInvalidCredentials},
		{"malformed hash", "broken@cfss.edu.hk", "pw", domain.ErrInvalidCredentials},
		{"wrong password", "ok@cfss.edu.hk", "nope", domain.ErrInvalidCredentials},
		{"empty password", "ok@cfss.edu.hk", "", domain.ErrInvalidCredentials},
		{"empty email", "", "pw", domain.ErrInvalidCredentials},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			id, err := svc.Authenticate(context.Background(), tc.email, tc.password)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if id != nil {
				t.Fatalf("expected no identity, got %+v", id)
			}
		})
	}

	if c := store.get(domain.SourceStudents, "S1"); c.HashedPassword != nil {
		t.Fatalf("authentication must not migrate credentials")
	}
}

func TestAuthService_Authenticate_StoreUnavailable(t *testing.T) {
	store := newMemStore()
	store.findErr = fmt.Errorf("%w: connection refused", domain.ErrStoreUnavailable)
	svc := newTestAuthService(t, store)

	if _, err := svc.Authenticate(context.Background(), "amy@cfss.edu.hk", "pw"); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestAuthService_Authenticate_NoStoreForTenant(t *testing.T) {
	svc := NewAuthService(newTestRegistry(t), stubStores{}, hashcodec.New(), "secret", time.Hour, zerolog.Nop())

	if _, err := svc.Authenticate(context.Background(), "amy@cfss.edu.hk", "pw"); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestAuthService_Login_IssuesToken(t *testing.T) {
	store := newMemStore().add(&domain.Credential{
		Source: domain.SourceStudents, Identifier: "S001", Email: "amy@cfss.edu.hk",
		HashedPassword: ptr(mustHash(t, "pw1")), ClassID: "3A",
	})
	svc := newTestAuthService(t, store)

	token, id, err := svc.Login(context.Background(), "  amy@cfss.edu.hk ", "pw1")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if token == "" || id == nil {
		t.Fatalf("expected token and identity")
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("token invalid: %v", err)
	}
	if claims["role"] != domain.RoleStudent || claims["tenant"] != testTenant || claims["class_id"] != "3A" {
		t.Fatalf("unexpected claims: %v", claims)
	}
}

func TestAuthService_Login_Rejected(t *testing.T) {
	svc := newTestAuthService(t, newMemStore())

	token, id, err := svc.Login(context.Background(), "amy@cfss.edu.hk", "pw")
	if !errors.Is(err, domain.ErrInvalidCredentials) || token != "" || id != nil {
		t.Fatalf("expected rejection, got token=%q id=%v err=%v", token, id, err)
	}
}

// checkRecorder remembers the stored hash of every verification.
type checkRecorder struct {
	*hashcodec.Codec
	checked []string
}

func (r *checkRecorder) Check(password, stored string) hashcodec.Outcome {
	r.checked = append(r.checked, stored)
	return r.Codec.Check(password, stored)
}

func TestAuthService_DecoyFollowsLegacyBcryptCost(t *testing.T) {
	store := newMemStore().add(&domain.Credential{
		Source: domain.SourceTeachers, Identifier: "lee@cfss.edu.hk", Email: "lee@cfss.edu.hk",
		HashedPassword: ptr(mustBcrypt(t, "chalk")),
	})
	codec := &checkRecorder{Codec: hashcodec.New()}
	svc := NewAuthService(newTestRegistry(t), stubStores{testTenant: store}, codec, "secret", time.Hour, zerolog.Nop())
	ctx := context.Background()

	if _, err := svc.Authenticate(ctx, "nobody@cfss.edu.hk", "x"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if got := hashcodec.Parse(codec.checked[len(codec.checked)-1]).Format; got != hashcodec.FormatSaltedSHA256 {
		t.Fatalf("decoy before any bcrypt row should be salted, got %s", got)
	}

	if _, err := svc.Authenticate(ctx, "lee@cfss.edu.hk", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "nobody@cfss.edu.hk", "x"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	decoy := codec.checked[len(codec.checked)-1]
	if got := hashcodec.Parse(decoy).Format; got != hashcodec.FormatLegacyBcrypt {
		t.Fatalf("decoy after a bcrypt row should be bcrypt, got %s", got)
	}
	if cost, err := bcrypt.Cost([]byte(decoy)); err != nil || cost != bcrypt.MinCost {
		t.Fatalf("decoy cost = %d (%v), want %d", cost, err, bcrypt.MinCost)
	}
}
