package tests

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dknog/indico-plugin-stripe/internal/domain"
	"github.com/dknog/indico-plugin-stripe/internal/money"
	"github.com/dknog/indico-plugin-stripe/internal/psp"
	"github.com/dknog/indico-plugin-stripe/internal/service"
)

func checkoutRequest() service.CreateSessionRequest {
	return service.CreateSessionRequest{
		EventID:   testEventID,
		RegFormID: testFormID,
		Token:     testToken,
	}
}

// ──────────────────────────────────────────────
// 1. SESSION CREATION
// ──────────────────────────────────────────────

func TestCheckout_CreatesSession(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	form, err := f.checkout.CreateSession(context.Background(), checkoutRequest())
	require.NoError(t, err)

	assert.Equal(t, "cs_mock_1", form.SessionID)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_mock_1", form.CheckoutURL)
	assert.Equal(t, pluginPublic, form.PublishableKey)
	assert.Equal(t, int64(5000), form.AmountMinor)
	assert.Equal(t, "USD", form.Currency)
	assert.Equal(t, "jane@example.org", form.Email)
	assert.Equal(t, "Example Org", form.OrgName)
	assert.Equal(t, "Payment for conference", form.Description)
	assert.Equal(t, "Stripe", form.MethodName)

	req := f.provider.LastCreateRequest
	assert.Equal(t, pluginSecret, req.APIKey)
	assert.Equal(t, testToken, req.Reference)
	assert.Equal(t, testRegID, req.RegistrationID)
	assert.Equal(t, int64(5000), req.AmountMinor)
	assert.False(t, req.RequirePostalCode)
}

func TestCheckout_CallbackURLsKeepPlaceholder(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := f.checkout.CreateSession(context.Background(), checkoutRequest())
	require.NoError(t, err)

	req := f.provider.LastCreateRequest
	prefix := testBaseURL + "/event/3/registrations/7/payment/response/stripe/"
	assert.Equal(t, prefix+"success?token="+testToken+"&session_id={CHECKOUT_SESSION_ID}", req.SuccessURL)
	assert.Equal(t, prefix+"cancel?token="+testToken+"&session_id={CHECKOUT_SESSION_ID}", req.CancelURL)
	assert.True(t, strings.HasSuffix(req.SuccessURL, psp.SessionIDPlaceholder))
}

func TestCheckout_EventOverrides(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	description := "Workshop fee"
	f.settingsRepo.SetEventSettings(&domain.EventSettings{
		EventID:           testEventID,
		Enabled:           true,
		UseEventAPIKeys:   true,
		PublishableKey:    "pk_test_event",
		SecretKey:         "sk_test_event",
		Description:       &description,
		RequirePostalCode: true,
	})

	form, err := f.checkout.CreateSession(context.Background(), checkoutRequest())
	require.NoError(t, err)

	assert.Equal(t, "pk_test_event", form.PublishableKey)
	assert.Equal(t, "Workshop fee", form.Description)
	assert.True(t, form.RequirePostalCode)
	assert.Equal(t, "sk_test_event", f.provider.LastCreateRequest.APIKey)
	assert.True(t, f.provider.LastCreateRequest.RequirePostalCode)
}

// ──────────────────────────────────────────────
// 2. REJECTED CHECKOUTS
// ──────────────────────────────────────────────

func TestCheckout_Rejections(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		setup   func(*fixture)
		req     service.CreateSessionRequest
		wantErr error
	}{
		{
			name:    "unknown token",
			req:     service.CreateSessionRequest{EventID: testEventID, RegFormID: testFormID, Token: otherToken},
			wantErr: service.ErrUnknownRegistration,
		},
		{
			name:    "missing token",
			req:     service.CreateSessionRequest{EventID: testEventID, RegFormID: testFormID},
			wantErr: service.ErrMissingParameter,
		},
		{
			name:    "invalid event id",
			req:     service.CreateSessionRequest{EventID: 0, RegFormID: testFormID, Token: testToken},
			wantErr: service.ErrInvalidIdentifier,
		},
		{
			name: "event never configured",
			setup: func(f *fixture) {
				f.settingsRepo = NewMockSettingsRepository()
				f.settings = service.NewSettingsService(domain.PluginSettings{SecretKey: pluginSecret}, f.settingsRepo, nil, nil)
				f.checkout = service.NewCheckoutService(f.registrations, f.settings, f.provider, service.NewURLBuilder(testBaseURL), nil)
			},
			req:     checkoutRequest(),
			wantErr: service.ErrPaymentDisabled,
		},
		{
			name: "no secret key",
			setup: func(f *fixture) {
				f.settingsRepo.SetEventSettings(&domain.EventSettings{EventID: testEventID, Enabled: true, UseEventAPIKeys: true})
			},
			req:     checkoutRequest(),
			wantErr: service.ErrMissingCredentials,
		},
		{
			name: "free registration",
			setup: func(f *fixture) {
				reg := testRegistration()
				reg.Price = decimal.Zero
				f.registrations.AddRegistration(reg)
			},
			req:     checkoutRequest(),
			wantErr: service.ErrInvalidPrice,
		},
		{
			name: "sub-cent price",
			setup: func(f *fixture) {
				reg := testRegistration()
				reg.Price = decimal.RequireFromString("10.005")
				f.registrations.AddRegistration(reg)
			},
			req:     checkoutRequest(),
			wantErr: money.ErrPrecision,
		},
		{
			name: "unsupported currency",
			setup: func(f *fixture) {
				reg := testRegistration()
				reg.Currency = "XBT"
				f.registrations.AddRegistration(reg)
			},
			req:     checkoutRequest(),
			wantErr: money.ErrUnsupportedCurrency,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			if tc.setup != nil {
				tc.setup(f)
			}

			form, err := f.checkout.CreateSession(context.Background(), tc.req)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Nil(t, form)
			assert.Equal(t, int32(0), f.provider.CreateCallCount)
		})
	}
}

func TestCheckout_ProviderUnavailable(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.provider.SetFailure(fmt.Errorf("create checkout session: %w", psp.ErrConnection))

	form, err := f.checkout.CreateSession(context.Background(), checkoutRequest())
	assert.ErrorIs(t, err, psp.ErrConnection)
	assert.Nil(t, form)
	assert.Equal(t, int32(1), f.provider.CreateCallCount)
}

// ──────────────────────────────────────────────
// 3. SETTINGS RESOLUTION
// ──────────────────────────────────────────────

func TestSettings_CachedAfterFirstRead(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		settings, err := f.settings.Resolve(ctx, testEventID)
		require.NoError(t, err)
		assert.True(t, settings.Enabled)
	}

	assert.Equal(t, int32(1), f.settingsRepo.GetCallCount)
	assert.Equal(t, int32(1), f.cache.SetCallCount)
}

func TestSettings_EventSecretKeyNeverCached(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.settingsRepo.SetEventSettings(&domain.EventSettings{
		EventID:         testEventID,
		Enabled:         true,
		UseEventAPIKeys: true,
		PublishableKey:  "pk_test_event",
		SecretKey:       "sk_test_event",
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		settings, err := f.settings.Resolve(ctx, testEventID)
		require.NoError(t, err)
		assert.Equal(t, "sk_test_event", settings.SecretKey)
	}

	assert.Equal(t, int32(0), f.cache.SetCallCount)
	assert.Equal(t, int32(2), f.settingsRepo.GetCallCount)
}

func TestSettings_CacheFailureFallsBackToRepository(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.cache.GetError = ErrMockRedisDown
	f.cache.SetError = ErrMockRedisDown

	settings, err := f.settings.Resolve(context.Background(), testEventID)
	require.NoError(t, err)
	assert.True(t, settings.Enabled)
	assert.Equal(t, pluginSecret, settings.SecretKey)
	assert.Equal(t, int32(1), f.settingsRepo.GetCallCount)
}

func TestSettings_RepositoryFailureIsReturned(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.settingsRepo.GetError = ErrMockTimeout

	_, err := f.settings.Resolve(context.Background(), testEventID)
	assert.ErrorIs(t, err, ErrMockTimeout)
}

func TestSettings_UnconfiguredEventUsesDefaults(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	settings, err := f.settings.Resolve(context.Background(), 99)
	require.NoError(t, err)
	assert.False(t, settings.Enabled)
	assert.Equal(t, int64(99), settings.EventID)
	assert.Equal(t, "Stripe", settings.MethodName)
	assert.Equal(t, "Example Org", settings.OrgName)
	assert.Equal(t, pluginSecret, settings.SecretKey)
}
