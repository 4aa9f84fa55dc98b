package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dknog/indico-plugin-stripe/internal/domain"
)

// DefaultSettingsCacheTTL bounds how long an edited event setting can go unnoticed.
const DefaultSettingsCacheTTL = 30 * time.Second

const settingsCachePrefix = "cache:stripe:settings:"

// CacheStore handles entity caching in Redis.
type CacheStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCacheStore creates a new CacheStore. A non-positive ttl selects the default.
func NewCacheStore(client *redis.Client, ttl time.Duration) *CacheStore {
	if ttl <= 0 {
		ttl = DefaultSettingsCacheTTL
	}
	return &CacheStore{client: client, ttl: ttl}
}

// CachedEventSettings is the cached form of domain.EventSettings. The event
// secret key is never written to Redis.
type CachedEventSettings struct {
	EventID           int64   `json:"event_id"`
	Enabled           bool    `json:"enabled"`
	UseEventAPIKeys   bool    `json:"use_event_api_keys"`
	MethodName        *string `json:"method_name,omitempty"`
	PublishableKey    string  `json:"pub_key"`
	OrgName           *string `json:"org_name,omitempty"`
	Description       *string `json:"description,omitempty"`
	RequirePostalCode bool    `json:"require_postal_code"`
}

func settingsKey(eventID int64) string {
	return fmt.Sprintf("%s%d", settingsCachePrefix, eventID)
}

// GetEventSettings retrieves event settings from cache. Returns nil on a miss.
func (s *CacheStore) GetEventSettings(ctx context.Context, eventID int64) (*domain.EventSettings, error) {
	data, err := s.client.Get(ctx, settingsKey(eventID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var cached CachedEventSettings
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}

	return &domain.EventSettings{
		EventID:           cached.EventID,
		Enabled:           cached.Enabled,
		UseEventAPIKeys:   cached.UseEventAPIKeys,
		MethodName:        cached.MethodName,
		PublishableKey:    cached.PublishableKey,
		OrgName:           cached.OrgName,
		Description:       cached.Description,
		RequirePostalCode: cached.RequirePostalCode,
	}, nil
}

// SetEventSettings stores event settings in cache.
func (s *CacheStore) SetEventSettings(ctx context.Context, settings *domain.EventSettings) error {
	data, err := json.Marshal(CachedEventSettings{
		EventID:           settings.EventID,
		Enabled:           settings.Enabled,
		UseEventAPIKeys:   settings.UseEventAPIKeys,
		MethodName:        settings.MethodName,
		PublishableKey:    settings.PublishableKey,
		OrgName:           settings.OrgName,
		Description:       settings.Description,
		RequirePostalCode: settings.RequirePostalCode,
	})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, settingsKey(settings.EventID), data, s.ttl).Err()
}
