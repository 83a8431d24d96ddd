package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultBusinessConfig(t *testing.T) {
	cfg := DefaultBusinessConfig("https://sync.example.com", "443", "https://sandbox.example.com", "8443")

	assert.Equal(t, "https://sync.example.com", cfg.ServerURL)
	assert.Equal(t, "443", cfg.ServerPort)
	assert.Equal(t, "https://sandbox.example.com", cfg.SandboxURL)
	assert.Equal(t, "8443", cfg.SandboxPort)

	// New tenants start with quoting, temporal orders and customer
	// geolocation enabled
	assert.True(t, cfg.AllowQuote)
	assert.True(t, cfg.TemporalOrder)
	assert.True(t, cfg.CaptureTemporalDoc)
	assert.True(t, cfg.AllowCaptureGeolocation)

	assert.False(t, cfg.TestMode)
	assert.False(t, cfg.DisplayPriceWithTax)
	assert.False(t, cfg.TrackingLocation)

	assert.Equal(t, int64(defaultOrderEmailTemplateID), cfg.OrderEmailTemplateID)
	assert.Zero(t, cfg.PaymentEmailTemplateID)

	assert.NotNil(t, cfg.Integrations)
	assert.Empty(t, cfg.Integrations)
	assert.NotNil(t, cfg.Metadata)
}

func TestWhatsAppIntegrationLookup(t *testing.T) {
	cfg := DefaultBusinessConfig("", "", "", "")
	assert.Nil(t, cfg.WhatsAppIntegration())

	cfg.Integrations = append(cfg.Integrations, Integration{
		Provider:      IntegrationWhatsApp,
		Enabled:       true,
		Token:         "prod-token",
		PhoneNumberID: "12345",
	})

	integ := cfg.WhatsAppIntegration()
	assert.NotNil(t, integ)

	token, phoneID := integ.ActiveCredentials()
	assert.Equal(t, "prod-token", token)
	assert.Equal(t, "12345", phoneID)

	integ.IsDevelopment = true
	integ.DevToken = "dev-token"
	integ.DevPhoneNumberID = "67890"
	token, phoneID = integ.ActiveCredentials()
	assert.Equal(t, "dev-token", token)
	assert.Equal(t, "67890", phoneID)
}
