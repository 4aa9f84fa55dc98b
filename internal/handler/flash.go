package handler

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/dknog/indico-plugin-stripe/internal/domain"
)

const (
	// FlashCookieName is read by the registration page to show one message.
	FlashCookieName = "flash"
	flashMaxAge     = 60
)

// setFlash stores a one-shot message for the page the registrant is
// redirected to.
func setFlash(c *gin.Context, flash domain.Flash, secure bool) {
	data, err := json.Marshal(flash)
	if err != nil {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(FlashCookieName, string(data), flashMaxAge, "/", "", secure, true)
}

// DecodeFlash parses the value of a flash cookie as sent to the browser.
func DecodeFlash(value string) (domain.Flash, error) {
	var flash domain.Flash

	raw, err := url.QueryUnescape(value)
	if err != nil {
		return flash, err
	}
	if err := json.Unmarshal([]byte(raw), &flash); err != nil {
		return flash, err
	}
	return flash, nil
}
