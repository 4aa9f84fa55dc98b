package psp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/dknog/indico-plugin-stripe/internal/domain"
	"github.com/dknog/indico-plugin-stripe/internal/monitoring"
)

// DefaultStripeTimeout bounds every call to the Stripe API.
const DefaultStripeTimeout = 10 * time.Second

// StripeOptions configures the Stripe provider.
type StripeOptions struct {
	// APIURL overrides the Stripe API base URL. Empty selects api.stripe.com.
	APIURL  string
	Timeout time.Duration
	Logger  *slog.Logger
}

// StripeProvider implements Provider on top of the Stripe API.
type StripeProvider struct {
	backends *stripe.Backends
	timeout  time.Duration
	logger   *slog.Logger
}

// NewStripeProvider creates a new Stripe provider.
// Network retries are disabled; failures surface to the caller.
func NewStripeProvider(opts StripeOptions) *StripeProvider {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultStripeTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	httpClient := &http.Client{
		Timeout:   opts.Timeout,
		Transport: newrelic.NewRoundTripper(http.DefaultTransport),
	}

	cfg := &stripe.BackendConfig{
		HTTPClient:        httpClient,
		MaxNetworkRetries: stripe.Int64(0),
		EnableTelemetry:   stripe.Bool(false),
		LeveledLogger:     &stripeLogger{logger: opts.Logger},
	}
	if opts.APIURL != "" {
		cfg.URL = stripe.String(opts.APIURL)
	}

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, cfg)

	return &StripeProvider{
		backends: &stripe.Backends{API: backend, Connect: backend, Uploads: backend},
		timeout:  opts.Timeout,
		logger:   opts.Logger,
	}
}

// Name returns the provider identifier recorded on transactions.
func (p *StripeProvider) Name() string {
	return domain.ProviderStripe
}

// CreateSession opens a hosted checkout session for one registration.
func (p *StripeProvider) CreateSession(ctx context.Context, req CreateSessionRequest) (*Session, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		ClientReferenceID:  stripe.String(req.Reference),
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(req.Currency)),
					UnitAmount: stripe.Int64(req.AmountMinor),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}
	if req.RequirePostalCode {
		params.BillingAddressCollection = stripe.String(string(stripe.CheckoutSessionBillingAddressCollectionRequired))
	}
	params.AddMetadata("registration_id", strconv.FormatInt(req.RegistrationID, 10))
	params.AddMetadata("event_id", strconv.FormatInt(req.EventID, 10))
	params.Context = ctx

	started := time.Now()
	sess, err := client.New(req.APIKey, p.backends).CheckoutSessions.New(params)
	monitoring.ObserveProviderCall("create_session", started, err)
	if err != nil {
		return nil, translateError("create checkout session", err)
	}

	return &Session{ID: sess.ID, URL: sess.URL}, nil
}

// RetrieveCheckout fetches the session and its payment intent. The payment
// intent status is the authoritative outcome of the attempt.
func (p *StripeProvider) RetrieveCheckout(ctx context.Context, apiKey, sessionID string) (*Checkout, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	sc := client.New(apiKey, p.backends)

	sessionParams := &stripe.CheckoutSessionParams{}
	sessionParams.Context = ctx

	started := time.Now()
	sess, err := sc.CheckoutSessions.Get(sessionID, sessionParams)
	monitoring.ObserveProviderCall("retrieve_session", started, err)
	if err != nil {
		return nil, translateError("retrieve checkout session", err)
	}

	checkout := &Checkout{
		SessionID:   sess.ID,
		Reference:   sess.ClientReferenceID,
		Status:      domain.PaymentStatusUnknown,
		RawStatus:   string(sess.PaymentStatus),
		AmountMinor: sess.AmountTotal,
		Currency:    strings.ToUpper(string(sess.Currency)),
	}

	var intent *stripe.PaymentIntent
	if sess.PaymentIntent != nil && sess.PaymentIntent.ID != "" {
		intentParams := &stripe.PaymentIntentParams{}
		intentParams.Context = ctx

		started = time.Now()
		intent, err = sc.PaymentIntents.Get(sess.PaymentIntent.ID, intentParams)
		monitoring.ObserveProviderCall("retrieve_payment_intent", started, err)
		if err != nil {
			return nil, translateError("retrieve payment intent", err)
		}

		checkout.PaymentIntentID = intent.ID
		checkout.Status = MapIntentStatus(intent.Status)
		checkout.RawStatus = string(intent.Status)
		checkout.AmountMinor = intent.Amount
		checkout.Currency = strings.ToUpper(string(intent.Currency))
	}

	checkout.Payload = buildPayload(sess, intent)

	p.logger.Debug("retrieved checkout",
		"session_id", checkout.SessionID,
		"payment_intent_id", checkout.PaymentIntentID,
		"status", checkout.RawStatus,
	)

	return checkout, nil
}

// MapIntentStatus translates Stripe's payment intent vocabulary into the
// closed set of payment statuses.
func MapIntentStatus(status stripe.PaymentIntentStatus) domain.PaymentStatus {
	switch status {
	case stripe.PaymentIntentStatusSucceeded:
		return domain.PaymentStatusSucceeded
	case stripe.PaymentIntentStatusProcessing, stripe.PaymentIntentStatusRequiresCapture:
		// Authorised but not yet captured counts as pending.
		return domain.PaymentStatusPending
	case stripe.PaymentIntentStatusRequiresPaymentMethod, stripe.PaymentIntentStatusCanceled:
		return domain.PaymentStatusFailed
	default:
		return domain.PaymentStatusUnknown
	}
}

// translateError maps Stripe client errors onto the package sentinels.
func translateError(op string, err error) error {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return fmt.Errorf("%s: %w: %v", op, ErrConnection, err)
	}

	switch {
	case stripeErr.HTTPStatusCode == http.StatusNotFound || stripeErr.Code == stripe.ErrorCodeResourceMissing:
		return fmt.Errorf("%s: %w", op, ErrSessionNotFound)
	case stripeErr.HTTPStatusCode == http.StatusUnauthorized,
		stripeErr.HTTPStatusCode == http.StatusForbidden,
		stripeErr.HTTPStatusCode == http.StatusTooManyRequests,
		stripeErr.HTTPStatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%s: %w: %s", op, ErrConnection, stripeErr.Msg)
	case stripeErr.Type == stripe.ErrorTypeInvalidRequest:
		return fmt.Errorf("%s: %w: %s", op, ErrInvalidRequest, stripeErr.Msg)
	default:
		return fmt.Errorf("%s: %w: %s", op, ErrConnection, stripeErr.Msg)
	}
}

// buildPayload keeps the raw provider responses as audit data.
func buildPayload(sess *stripe.CheckoutSession, intent *stripe.PaymentIntent) json.RawMessage {
	payload := map[string]json.RawMessage{
		"session": rawJSON(sess.LastResponse, sess),
	}
	if intent != nil {
		payload["payment_intent"] = rawJSON(intent.LastResponse, intent)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return data
}

func rawJSON(resp *stripe.APIResponse, v any) json.RawMessage {
	if resp != nil && json.Valid(resp.RawJSON) {
		return resp.RawJSON
	}
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`null`)
	}
	return data
}

// stripeLogger adapts slog to stripe.LeveledLoggerInterface.
type stripeLogger struct {
	logger *slog.Logger
}

func (l *stripeLogger) Debugf(format string, v ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, v...), "component", "stripe")
}

func (l *stripeLogger) Infof(format string, v ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, v...), "component", "stripe")
}

func (l *stripeLogger) Warnf(format string, v ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, v...), "component", "stripe")
}

func (l *stripeLogger) Errorf(format string, v ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, v...), "component", "stripe")
}
