package app

import (
	"strings"

	"github.com/laundrypro/server/internal/whatsapp"
)

// ChannelClientConfig converts the application WhatsApp configuration into
// the channel client representation.
func (c WhatsAppConfig) ChannelClientConfig() whatsapp.Config {
	return whatsapp.Config{
		Enabled:            c.Enabled,
		APIURL:             strings.TrimSpace(c.APIURL),
		AccessToken:        c.AccessToken,
		PhoneNumberID:      strings.TrimSpace(c.PhoneNumberID),
		BusinessAccountID:  strings.TrimSpace(c.BusinessAccountID),
		WebhookVerifyToken: c.WebhookVerifyToken,
		AppSecret:          c.AppSecret,
		DefaultCountryCode: strings.TrimSpace(c.DefaultCountryCode),
		Timeout:            c.Timeout,
	}
}
