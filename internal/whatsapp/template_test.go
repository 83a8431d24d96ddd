package whatsapp

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateWithDocumentHeader(t *testing.T) {
	msg := &TemplateMessage{
		To:               "18095551234",
		TemplateName:     "invoice_delivery",
		DocumentURL:      "https://storage.example.com/doc.pdf",
		DocumentFilename: "FAC-00123.pdf",
		BodyParams:       []string{"bodega central", "FAC-00123", "RD$1,250.00"},
	}

	tpl := msg.Template()
	assert.Equal(t, "invoice_delivery", tpl["name"])
	assert.Equal(t, map[string]interface{}{"code": "es"}, tpl["language"])

	components := tpl["components"].([]map[string]interface{})
	require.Len(t, components, 2)
	assert.Equal(t, "header", components[0]["type"])
	assert.Equal(t, "body", components[1]["type"])

	params := components[1]["parameters"].([]map[string]interface{})
	require.Len(t, params, 3)
	assert.Equal(t, "FAC-00123", params[1]["text"])
}

func TestTemplateWithoutDocument(t *testing.T) {
	msg := &TemplateMessage{
		To:           "18095551234",
		TemplateName: "payment_reminder",
		LanguageCode: "en",
		BodyParams:   []string{"john doe"},
	}

	tpl := msg.Template()
	assert.Equal(t, map[string]interface{}{"code": "en"}, tpl["language"])

	components := tpl["components"].([]map[string]interface{})
	require.Len(t, components, 1)
	assert.Equal(t, "body", components[0]["type"])
}

func TestWebhookEventFirstTextMessage(t *testing.T) {
	raw := `{
		"object": "whatsapp_business_account",
		"entry": [{
			"id": "100000000000000",
			"changes": [{
				"field": "messages",
				"value": {
					"messaging_product": "whatsapp",
					"metadata": {"display_phone_number": "18090000000", "phone_number_id": "555000"},
					"contacts": [{"wa_id": "18095551234", "profile": {"name": "Maria"}}],
					"messages": [{
						"id": "wamid.abc",
						"from": "18095551234",
						"timestamp": "1724900000",
						"type": "text",
						"text": {"body": "hola"}
					}]
				}
			}]
		}]
	}`

	var event WebhookEvent
	require.NoError(t, json.Unmarshal([]byte(raw), &event))

	msg := event.FirstTextMessage()
	require.NotNil(t, msg)
	assert.Equal(t, "18095551234", msg.From)
	assert.Equal(t, "hola", msg.Text.Body)
	assert.Equal(t, "555000", event.PhoneNumberID())
}

func TestWebhookEventWithoutMessages(t *testing.T) {
	event := WebhookEvent{
		Object: "whatsapp_business_account",
		Entry:  []Entry{{ID: "1"}},
	}
	assert.Nil(t, event.FirstTextMessage())
	assert.Empty(t, event.PhoneNumberID())
}
