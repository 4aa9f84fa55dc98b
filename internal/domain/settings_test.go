package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestResolvePaymentSettings(t *testing.T) {
	plugin := PluginSettings{
		MethodName:     "Card",
		PublishableKey: "pk_org",
		SecretKey:      "sk_org",
		OrgName:        "Org",
	}

	t.Run("nil event falls back to plugin", func(t *testing.T) {
		got := ResolvePaymentSettings(plugin, nil)
		assert.False(t, got.Enabled)
		assert.Equal(t, "Card", got.MethodName)
		assert.Equal(t, "sk_org", got.SecretKey)
		assert.Equal(t, "Org", got.OrgName)
		assert.Equal(t, defaultDescription, got.Description)
	})

	t.Run("event overrides and keys", func(t *testing.T) {
		got := ResolvePaymentSettings(plugin, &EventSettings{
			EventID:         4,
			Enabled:         true,
			UseEventAPIKeys: true,
			PublishableKey:  "pk_evt",
			SecretKey:       "sk_evt",
			OrgName:         strPtr("Event Org"),
			Description:     strPtr(""),
		})
		assert.Equal(t, int64(4), got.EventID)
		assert.Equal(t, "pk_evt", got.PublishableKey)
		assert.Equal(t, "sk_evt", got.SecretKey)
		assert.Equal(t, "Event Org", got.OrgName)
		assert.Equal(t, defaultDescription, got.Description)
	})

	t.Run("event keys ignored unless enabled", func(t *testing.T) {
		got := ResolvePaymentSettings(plugin, &EventSettings{SecretKey: "sk_evt"})
		assert.Equal(t, "sk_org", got.SecretKey)
	})

	t.Run("built-in defaults", func(t *testing.T) {
		got := ResolvePaymentSettings(PluginSettings{}, DefaultEventSettings(1))
		assert.Equal(t, "Stripe", got.MethodName)
		assert.Equal(t, "Organization", got.OrgName)
		assert.Equal(t, "Payment for conference", got.Description)
	})
}
