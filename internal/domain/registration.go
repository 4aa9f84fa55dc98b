package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Registration represents a person registered for an event.
// It is owned by the registration application and never modified here.
type Registration struct {
	ID        int64
	UUID      string // Opaque token used to correlate provider callbacks.
	EventID   int64
	RegFormID int64
	Email     string
	FirstName string
	LastName  string
	Price     decimal.Decimal
	Currency  string
}

// Locator returns the path prefix shared by every registrant-facing page.
func (r *Registration) Locator() string {
	return fmt.Sprintf("/event/%d/registrations/%d", r.EventID, r.RegFormID)
}

// BelongsTo reports whether the registration was made on the given form.
func (r *Registration) BelongsTo(eventID, regFormID int64) bool {
	return r.EventID == eventID && r.RegFormID == regFormID
}
