package redis

import (
	"context"

	"github.com/dknog/indico-plugin-stripe/internal/domain"
)

// SettingsCacheInterface defines the interface for event settings caching.
type SettingsCacheInterface interface {
	GetEventSettings(ctx context.Context, eventID int64) (*domain.EventSettings, error)
	SetEventSettings(ctx context.Context, settings *domain.EventSettings) error
}

// ClaimStoreInterface defines the interface for callback deduplication.
type ClaimStoreInterface interface {
	Claim(ctx context.Context, registrationID int64, sessionID, outcome string) (bool, error)
	Release(ctx context.Context, registrationID int64, sessionID, outcome string) error
}

// Ensure concrete types implement interfaces.
var (
	_ SettingsCacheInterface = (*CacheStore)(nil)
	_ ClaimStoreInterface    = (*LockStore)(nil)
)
