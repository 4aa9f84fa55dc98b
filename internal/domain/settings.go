package domain

const (
	defaultMethodName  = "Stripe"
	defaultOrgName     = "Organization"
	defaultDescription = "Payment for conference"
)

// PluginSettings holds the organization-wide Stripe configuration.
type PluginSettings struct {
	MethodName     string
	PublishableKey string
	SecretKey      string
	OrgName        string
	Description    string
}

// EventSettings holds the per-event Stripe configuration.
// Nil pointers fall back to the organization value.
type EventSettings struct {
	EventID           int64
	Enabled           bool
	UseEventAPIKeys   bool
	MethodName        *string
	PublishableKey    string
	SecretKey         string
	OrgName           *string
	Description       *string
	RequirePostalCode bool
}

// DefaultEventSettings returns the settings of an event that never
// configured Stripe.
func DefaultEventSettings(eventID int64) *EventSettings {
	return &EventSettings{EventID: eventID}
}

// PaymentSettings is the effective configuration for one event, resolved
// once per request and passed explicitly to every operation.
type PaymentSettings struct {
	EventID           int64
	Enabled           bool
	MethodName        string
	PublishableKey    string
	SecretKey         string
	OrgName           string
	Description       string
	RequirePostalCode bool
}

// ResolvePaymentSettings merges event settings over plugin settings.
func ResolvePaymentSettings(plugin PluginSettings, event *EventSettings) PaymentSettings {
	if event == nil {
		event = &EventSettings{}
	}

	resolved := PaymentSettings{
		EventID:           event.EventID,
		Enabled:           event.Enabled,
		MethodName:        pick(event.MethodName, plugin.MethodName, defaultMethodName),
		PublishableKey:    plugin.PublishableKey,
		SecretKey:         plugin.SecretKey,
		OrgName:           pick(event.OrgName, plugin.OrgName, defaultOrgName),
		Description:       pick(event.Description, plugin.Description, defaultDescription),
		RequirePostalCode: event.RequirePostalCode,
	}

	if event.UseEventAPIKeys {
		resolved.PublishableKey = event.PublishableKey
		resolved.SecretKey = event.SecretKey
	}

	return resolved
}

func pick(override *string, fallback, last string) string {
	if override != nil && *override != "" {
		return *override
	}
	if fallback != "" {
		return fallback
	}
	return last
}
