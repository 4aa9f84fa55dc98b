package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dknog/indico-plugin-stripe/internal/money"
	"github.com/dknog/indico-plugin-stripe/internal/service"
)

// PaymentHandler handles HTTP requests for Stripe checkouts and their ledger.
type PaymentHandler struct {
	checkoutService    *service.CheckoutService
	transactionService *service.TransactionService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(checkoutService *service.CheckoutService, transactionService *service.TransactionService) *PaymentHandler {
	return &PaymentHandler{
		checkoutService:    checkoutService,
		transactionService: transactionService,
	}
}

// CreateCheckout handles POST /event/:event_id/registrations/:reg_form_id/payment/stripe/checkout
func (h *PaymentHandler) CreateCheckout(c *gin.Context) {
	eventID, regFormID, err := parseFormLocator(c)
	if err != nil {
		respondError(c, err)
		return
	}

	token := c.Query("token")
	if token == "" {
		token = c.PostForm("token")
	}

	form, err := h.checkoutService.CreateSession(c.Request.Context(), service.CreateSessionRequest{
		EventID:   eventID,
		RegFormID: regFormID,
		Token:     token,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, form)
}

// TransactionResponse is one ledger entry as shown to the registrant.
type TransactionResponse struct {
	ID          string `json:"id"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Action      string `json:"action"`
	Provider    string `json:"provider"`
	ProviderRef string `json:"provider_ref,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// ListTransactions handles GET /event/:event_id/registrations/:reg_form_id/payment/stripe/transactions
func (h *PaymentHandler) ListTransactions(c *gin.Context) {
	eventID, regFormID, err := parseFormLocator(c)
	if err != nil {
		respondError(c, err)
		return
	}

	txs, err := h.transactionService.ListTransactions(c.Request.Context(), service.ListTransactionsRequest{
		EventID:   eventID,
		RegFormID: regFormID,
		Token:     c.Query("token"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		response = append(response, TransactionResponse{
			ID:          tx.ID,
			Amount:      money.Format(tx.Amount, tx.Currency),
			Currency:    tx.Currency,
			Action:      string(tx.Action),
			Provider:    tx.Provider,
			ProviderRef: tx.ProviderRef,
			CreatedAt:   tx.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	respondJSON(c, http.StatusOK, response)
}
