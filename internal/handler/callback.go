package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dknog/indico-plugin-stripe/internal/service"
)

// CallbackHandler handles the browser redirects back from Stripe checkout.
type CallbackHandler struct {
	callbackService *service.CallbackService
	secureCookies   bool
}

// NewCallbackHandler creates a new CallbackHandler.
func NewCallbackHandler(callbackService *service.CallbackService, secureCookies bool) *CallbackHandler {
	return &CallbackHandler{
		callbackService: callbackService,
		secureCookies:   secureCookies,
	}
}

// Success handles GET|POST .../payment/response/stripe/success
func (h *CallbackHandler) Success(c *gin.Context) {
	eventID, regFormID, err := parseFormLocator(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := c.Request.ParseForm(); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid form data"})
		return
	}

	// Correlation keys come from the redirect URL only; the form is audit data.
	result, err := h.callbackService.HandleSuccess(c.Request.Context(), service.SuccessRequest{
		EventID:   eventID,
		RegFormID: regFormID,
		Token:     c.Query("token"),
		SessionID: c.Query("session_id"),
		Form:      c.Request.Form,
	})
	h.finish(c, result, err)
}

// Cancel handles GET|POST .../payment/response/stripe/cancel
func (h *CallbackHandler) Cancel(c *gin.Context) {
	eventID, regFormID, err := parseFormLocator(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := c.Request.ParseForm(); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid form data"})
		return
	}

	result, err := h.callbackService.HandleCancel(c.Request.Context(), service.CancelRequest{
		EventID:   eventID,
		RegFormID: regFormID,
		Token:     c.Query("token"),
		SessionID: c.Query("session_id"),
		Form:      c.Request.Form,
	})
	h.finish(c, result, err)
}

// finish redirects to the registration page whenever the service produced a
// result, including when the provider could not be reached.
func (h *CallbackHandler) finish(c *gin.Context, result *service.CallbackResult, err error) {
	if result == nil {
		respondError(c, err)
		return
	}
	if err != nil {
		_ = c.Error(err)
	}

	setFlash(c, result.Flash, h.secureCookies)
	c.Redirect(http.StatusSeeOther, result.RedirectURL)
}
