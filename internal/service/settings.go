package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dknog/indico-plugin-stripe/internal/domain"
	"github.com/dknog/indico-plugin-stripe/internal/redis"
	"github.com/dknog/indico-plugin-stripe/internal/repository"
)

// SettingsService resolves the effective Stripe configuration of an event.
type SettingsService struct {
	plugin       domain.PluginSettings
	settingsRepo repository.SettingsRepository
	cache        redis.SettingsCacheInterface
	logger       *slog.Logger
}

// NewSettingsService creates a new SettingsService. cache may be nil.
func NewSettingsService(
	plugin domain.PluginSettings,
	settingsRepo repository.SettingsRepository,
	cache redis.SettingsCacheInterface,
	logger *slog.Logger,
) *SettingsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsService{
		plugin:       plugin,
		settingsRepo: settingsRepo,
		cache:        cache,
		logger:       logger,
	}
}

// Resolve returns the payment settings of an event. Events that never
// configured Stripe resolve to disabled settings with plugin defaults.
func (s *SettingsService) Resolve(ctx context.Context, eventID int64) (domain.PaymentSettings, error) {
	event, err := s.eventSettings(ctx, eventID)
	if err != nil {
		return domain.PaymentSettings{}, err
	}
	return domain.ResolvePaymentSettings(s.plugin, event), nil
}

func (s *SettingsService) eventSettings(ctx context.Context, eventID int64) (*domain.EventSettings, error) {
	if s.cache != nil {
		cached, err := s.cache.GetEventSettings(ctx, eventID)
		if err != nil {
			s.logger.Warn("settings cache read failed", "event_id", eventID, "error", err)
		} else if cached != nil && !cached.UseEventAPIKeys {
			return cached, nil
		}
	}

	event, err := s.settingsRepo.GetEventSettings(ctx, eventID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("load event settings: %w", err)
		}
		event = domain.DefaultEventSettings(eventID)
	}

	// Settings holding an event secret key are read from the repository every time.
	if s.cache != nil && !event.UseEventAPIKeys {
		if err := s.cache.SetEventSettings(ctx, event); err != nil {
			s.logger.Warn("settings cache write failed", "event_id", eventID, "error", err)
		}
	}

	return event, nil
}
