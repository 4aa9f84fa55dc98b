package tests

import (
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/dknog/indico-plugin-stripe/internal/domain"
	"github.com/dknog/indico-plugin-stripe/internal/psp"
	"github.com/dknog/indico-plugin-stripe/internal/service"
)

const (
	testBaseURL  = "https://events.example.org"
	testToken    = "8c5f0e1a-3b1d-4b8e-9a4e-2f6d7c1b0a11"
	otherToken   = "1d2e3f40-5a6b-4c7d-8e9f-a0b1c2d3e4f5"
	testEventID  = int64(3)
	testFormID   = int64(7)
	testRegID    = int64(11)
	testSession  = "cs_test_1"
	pluginSecret = "sk_test_plugin"
	pluginPublic = "pk_test_plugin"
)

type fixture struct {
	registrations *MockRegistrationRepository
	ledger        *MockTransactionLedger
	settingsRepo  *MockSettingsRepository
	cache         *MockSettingsCache
	claims        *MockClaimStore
	provider      *MockPSP

	settings *service.SettingsService
	checkout *service.CheckoutService
	callback *service.CallbackService
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRegistration() *domain.Registration {
	return &domain.Registration{
		ID:        testRegID,
		UUID:      testToken,
		EventID:   testEventID,
		RegFormID: testFormID,
		Email:     "jane@example.org",
		FirstName: "Jane",
		LastName:  "Doe",
		Price:     decimal.RequireFromString("50.00"),
		Currency:  "USD",
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		registrations: NewMockRegistrationRepository(),
		ledger:        NewMockTransactionLedger(),
		settingsRepo:  NewMockSettingsRepository(),
		cache:         NewMockSettingsCache(),
		claims:        NewMockClaimStore(),
		provider:      NewMockPSP(),
	}

	f.registrations.AddRegistration(testRegistration())
	f.settingsRepo.SetEventSettings(&domain.EventSettings{
		EventID: testEventID,
		Enabled: true,
	})

	logger := discardLogger()
	plugin := domain.PluginSettings{
		PublishableKey: pluginPublic,
		SecretKey:      pluginSecret,
		OrgName:        "Example Org",
	}
	urls := service.NewURLBuilder(testBaseURL + "/")

	f.settings = service.NewSettingsService(plugin, f.settingsRepo, f.cache, logger)
	f.checkout = service.NewCheckoutService(f.registrations, f.settings, f.provider, urls, logger)
	f.callback = service.NewCallbackService(f.registrations, f.ledger, f.settings, f.provider, f.claims, urls, logger)

	return f
}

// withCheckout makes the provider report status for the test session.
func (f *fixture) withCheckout(status domain.PaymentStatus, amountMinor int64, currency string) {
	f.provider.AddCheckout(&psp.Checkout{
		SessionID:       testSession,
		Reference:       testToken,
		PaymentIntentID: "pi_test_1",
		Status:          status,
		RawStatus:       string(status),
		AmountMinor:     amountMinor,
		Currency:        currency,
		Payload:         []byte(`{"session":{"id":"cs_test_1"}}`),
	})
}

func successRequest() service.SuccessRequest {
	return service.SuccessRequest{
		EventID:   testEventID,
		RegFormID: testFormID,
		Token:     testToken,
		SessionID: testSession,
	}
}
