package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultClaimTTL is how long a processed callback is remembered.
const DefaultClaimTTL = 24 * time.Hour

// LockStore handles callback deduplication claims in Redis.
type LockStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLockStore creates a new LockStore. A non-positive ttl selects the default.
func NewLockStore(client *redis.Client, ttl time.Duration) *LockStore {
	if ttl <= 0 {
		ttl = DefaultClaimTTL
	}
	return &LockStore{client: client, ttl: ttl}
}

func claimKey(registrationID int64, sessionID, outcome string) string {
	return fmt.Sprintf("claim:stripe:%d:%s:%s", registrationID, sessionID, outcome)
}

// Claim marks the (registration, session, outcome) triple as processed.
// Returns true if this call made the claim, false if it was already held.
func (s *LockStore) Claim(ctx context.Context, registrationID int64, sessionID, outcome string) (bool, error) {
	ok, err := s.client.SetNX(ctx, claimKey(registrationID, sessionID, outcome), "1", s.ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

// Release drops a claim so the callback can be processed again.
func (s *LockStore) Release(ctx context.Context, registrationID int64, sessionID, outcome string) error {
	return s.client.Del(ctx, claimKey(registrationID, sessionID, outcome)).Err()
}
