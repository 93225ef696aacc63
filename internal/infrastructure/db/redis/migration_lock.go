package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/edudash/credential-service/internal/core/domain"
)

const defaultLockTTL = 15 * time.Minute

// releaseScript deletes the key only while it still holds the caller's token,
// so an expired holder cannot free a lock taken over by someone else.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// MigrationLock is a per-tenant mutex shared by every process on the same Redis.
// Key format: credmigrate:lock:<tenant_domain>
type MigrationLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewMigrationLock creates a lock whose keys expire after ttl, so a crashed
// holder cannot block a tenant forever.
func NewMigrationLock(client *redis.Client, ttl time.Duration) *MigrationLock {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &MigrationLock{client: client, ttl: ttl}
}

// Acquire takes the tenant's lock and returns the token needed to release it.
func (l *MigrationLock) Acquire(ctx context.Context, tenantDomain string) (string, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key(tenantDomain), token, l.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("migration lock acquire: %w", err)
	}
	if !ok {
		return "", domain.ErrMigrationInProgress
	}
	return token, nil
}

// Release frees the lock if token still owns it. Releasing a lock that already
// expired is not an error.
func (l *MigrationLock) Release(ctx context.Context, tenantDomain, token string) error {
	err := releaseScript.Run(ctx, l.client, []string{l.key(tenantDomain)}, token).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("migration lock release: %w", err)
	}
	return nil
}

func (l *MigrationLock) key(tenantDomain string) string {
	return fmt.Sprintf("credmigrate:lock:%s", tenantDomain)
}
