package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dknog/indico-plugin-stripe/internal/money"
	"github.com/dknog/indico-plugin-stripe/internal/psp"
	"github.com/dknog/indico-plugin-stripe/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	if code >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/provider errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Bad correlation data from the client
	case errors.Is(err, service.ErrMissingParameter),
		errors.Is(err, service.ErrInvalidIdentifier),
		errors.Is(err, service.ErrUnknownRegistration),
		errors.Is(err, service.ErrSessionMismatch),
		errors.Is(err, psp.ErrSessionNotFound),
		errors.Is(err, psp.ErrInvalidRequest):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, service.ErrPaymentDisabled):
		return http.StatusConflict

	// Registration cannot be charged as configured
	case errors.Is(err, service.ErrInvalidPrice),
		errors.Is(err, money.ErrUnsupportedCurrency),
		errors.Is(err, money.ErrPrecision),
		errors.Is(err, money.ErrOutOfRange):
		return http.StatusUnprocessableEntity

	// Provider unreachable
	case errors.Is(err, psp.ErrConnection):
		return http.StatusBadGateway

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}

// parseFormLocator reads the event and registration form ids from the path.
func parseFormLocator(c *gin.Context) (int64, int64, error) {
	eventID, err := strconv.ParseInt(c.Param("event_id"), 10, 64)
	if err != nil || eventID <= 0 {
		return 0, 0, service.ErrInvalidIdentifier
	}
	regFormID, err := strconv.ParseInt(c.Param("reg_form_id"), 10, 64)
	if err != nil || regFormID <= 0 {
		return 0, 0, service.ErrInvalidIdentifier
	}
	return eventID, regFormID, nil
}
