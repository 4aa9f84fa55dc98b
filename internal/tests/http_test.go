package tests

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dknog/indico-plugin-stripe/internal/app"
	"github.com/dknog/indico-plugin-stripe/internal/domain"
	"github.com/dknog/indico-plugin-stripe/internal/handler"
	"github.com/dknog/indico-plugin-stripe/internal/psp"
	"github.com/dknog/indico-plugin-stripe/internal/service"
)

const paymentPrefix = "/event/3/registrations/7/payment"

func newTestServer(t *testing.T, f *fixture) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	return app.NewRouter(app.RouterDeps{
		PaymentHandler:  handler.NewPaymentHandler(f.checkout, service.NewTransactionService(f.registrations, f.ledger)),
		CallbackHandler: handler.NewCallbackHandler(f.callback, false),
		Logger:          discardLogger(),
	})
}

func serve(router *gin.Engine, method, target string, body url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(body.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func flashFrom(t *testing.T, rec *httptest.ResponseRecorder) domain.Flash {
	t.Helper()
	resp := http.Response{Header: rec.Header()}
	for _, cookie := range resp.Cookies() {
		if cookie.Name == handler.FlashCookieName {
			flash, err := handler.DecodeFlash(cookie.Value)
			require.NoError(t, err)
			return flash
		}
	}
	t.Fatal("flash cookie not set")
	return domain.Flash{}
}

func successURL(token, sessionID string) string {
	return fmt.Sprintf("%s/response/stripe/success?token=%s&session_id=%s", paymentPrefix, token, sessionID)
}

// ──────────────────────────────────────────────
// 1. CALLBACK ENDPOINTS
// ──────────────────────────────────────────────

func TestHTTP_SuccessRedirectsWithFlash(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.withCheckout(domain.PaymentStatusSucceeded, 5000, "USD")
	router := newTestServer(t, f)

	rec := serve(router, http.MethodGet, successURL(testToken, testSession), nil)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, testBaseURL+"/event/3/registrations/7/?token="+testToken, rec.Header().Get("Location"))
	assert.Equal(t, domain.Flash{Message: service.MessageCompleted, Tone: domain.ToneSuccess}, flashFrom(t, rec))
	assert.Equal(t, 1, f.ledger.CountTransactions())
}

func TestHTTP_SuccessAcceptsPost(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.withCheckout(domain.PaymentStatusFailed, 5000, "USD")
	router := newTestServer(t, f)

	rec := serve(router, http.MethodPost, successURL(testToken, testSession), url.Values{
		"amount":   {"0.01"},
		"currency": {"EUR"},
	})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, domain.ToneError, flashFrom(t, rec).Tone)
	tx := f.ledger.LastTransaction()
	assert.Equal(t, domain.TransactionActionReject, tx.Action)
	assert.Contains(t, string(tx.Data), `"amount":"0.01"`)
}

func TestHTTP_PostBodyCannotOverrideQueryToken(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.withCheckout(domain.PaymentStatusSucceeded, 5000, "USD")
	router := newTestServer(t, f)

	rec := serve(router, http.MethodPost, successURL(otherToken, testSession), url.Values{
		"token":      {testToken},
		"session_id": {testSession},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, f.ledger.CountTransactions())
	assert.Equal(t, int32(0), f.provider.RetrieveCallCount)
}

func TestHTTP_CancelSessionIDComesFromQuery(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	router := newTestServer(t, f)

	rec := serve(router, http.MethodPost, paymentPrefix+"/response/stripe/cancel?token="+testToken+"&session_id=cs_query", url.Values{
		"session_id": {"cs_forged"},
	})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "cs_query", f.ledger.LastTransaction().ProviderRef)
	assert.True(t, f.claims.IsClaimed(testRegID, "cs_query", string(domain.TransactionActionReject)))
}

func TestHTTP_UnknownTokenIsClientError(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	router := newTestServer(t, f)

	for _, target := range []string{
		successURL(otherToken, testSession),
		paymentPrefix + "/response/stripe/cancel?token=" + otherToken,
	} {
		rec := serve(router, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)

		var body handler.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.NotEmpty(t, body.Error)
	}
	assert.Equal(t, 0, f.ledger.CountTransactions())
}

func TestHTTP_MissingSessionIDIsClientError(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	router := newTestServer(t, f)

	rec := serve(router, http.MethodGet, paymentPrefix+"/response/stripe/success?token="+testToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHTTP_MalformedEventIDIsClientError(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	router := newTestServer(t, f)

	rec := serve(router, http.MethodGet, "/event/abc/registrations/7/payment/response/stripe/success?token="+testToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHTTP_ProviderTimeoutRedirectsWithError(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.provider.SetFailure(fmt.Errorf("retrieve checkout session: %w", psp.ErrConnection))
	router := newTestServer(t, f)

	rec := serve(router, http.MethodGet, successURL(testToken, testSession), nil)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, domain.Flash{Message: service.MessageUnreachable, Tone: domain.ToneError}, flashFrom(t, rec))
	assert.Equal(t, 0, f.ledger.CountTransactions())
}

func TestHTTP_CancelRedirectsWithInfo(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	router := newTestServer(t, f)

	rec := serve(router, http.MethodGet, paymentPrefix+"/response/stripe/cancel?token="+testToken+"&session_id="+testSession, nil)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, domain.Flash{Message: service.MessageCancelled, Tone: domain.ToneInfo}, flashFrom(t, rec))
	assert.Equal(t, int32(0), f.provider.RetrieveCallCount)
	assert.Equal(t, domain.TransactionActionReject, f.ledger.LastTransaction().Action)
}

// ──────────────────────────────────────────────
// 2. CHECKOUT ENDPOINT
// ──────────────────────────────────────────────

func TestHTTP_CheckoutReturnsPaymentForm(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	router := newTestServer(t, f)

	rec := serve(router, http.MethodPost, paymentPrefix+"/stripe/checkout?token="+testToken, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var form service.PaymentForm
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &form))
	assert.Equal(t, "cs_mock_1", form.SessionID)
	assert.Equal(t, int64(5000), form.AmountMinor)
	assert.Equal(t, pluginPublic, form.PublishableKey)
}

func TestHTTP_CheckoutErrorCodes(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		setup func(*fixture)
		token string
		want  int
	}{
		{"unknown registration", nil, otherToken, http.StatusBadRequest},
		{"disabled event", func(f *fixture) {
			f.settingsRepo.SetEventSettings(&domain.EventSettings{EventID: testEventID})
		}, testToken, http.StatusConflict},
		{"provider down", func(f *fixture) {
			f.provider.SetFailure(psp.ErrConnection)
		}, testToken, http.StatusBadGateway},
		{"unsupported currency", func(f *fixture) {
			reg := testRegistration()
			reg.Currency = "XBT"
			f.registrations.AddRegistration(reg)
		}, testToken, http.StatusUnprocessableEntity},
		{"database down", func(f *fixture) {
			f.registrations.GetError = ErrMockTimeout
		}, testToken, http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			if tc.setup != nil {
				tc.setup(f)
			}
			router := newTestServer(t, f)

			rec := serve(router, http.MethodPost, paymentPrefix+"/stripe/checkout?token="+tc.token, nil)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestHTTP_ListTransactions(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.withCheckout(domain.PaymentStatusSucceeded, 5000, "USD")
	router := newTestServer(t, f)

	rec := serve(router, http.MethodGet, successURL(testToken, testSession), nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = serve(router, http.MethodGet, paymentPrefix+"/stripe/transactions?token="+testToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var txs []handler.TransactionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &txs))
	require.Len(t, txs, 1)
	assert.Equal(t, "50.00", txs[0].Amount)
	assert.Equal(t, "USD", txs[0].Currency)
	assert.Equal(t, "complete", txs[0].Action)
	assert.Equal(t, testSession, txs[0].ProviderRef)

	rec = serve(router, http.MethodGet, paymentPrefix+"/stripe/transactions?token="+otherToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHTTP_Health(t *testing.T) {
	t.Parallel()

	router := newTestServer(t, newFixture(t))

	rec := serve(router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
