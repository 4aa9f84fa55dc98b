package service

import "errors"

var (
	// ErrUnknownRegistration is returned when a callback token does not
	// resolve to a registration of the event and form in the URL.
	ErrUnknownRegistration = errors.New("unknown registration")

	// ErrMissingParameter is returned when a required callback parameter is absent.
	ErrMissingParameter = errors.New("missing required parameter")

	// ErrInvalidIdentifier is returned when an event or form id is malformed.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrSessionMismatch is returned when the checkout session belongs to
	// another registration.
	ErrSessionMismatch = errors.New("checkout session does not belong to registration")

	// ErrPaymentDisabled is returned when the event does not accept Stripe payments.
	ErrPaymentDisabled = errors.New("stripe payments are disabled for this event")

	// ErrMissingCredentials is returned when no secret key is configured.
	ErrMissingCredentials = errors.New("stripe credentials are not configured")

	// ErrInvalidPrice is returned when the registration price is not positive.
	ErrInvalidPrice = errors.New("registration price must be positive")
)
