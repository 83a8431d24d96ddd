package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mseller-cloud/mseller-server/internal/config"
	"github.com/mseller-cloud/mseller-server/internal/models"
	"github.com/mseller-cloud/mseller-server/internal/storage"
	"github.com/mseller-cloud/mseller-server/internal/whatsapp"
)

type webhookFakeStore struct {
	storage.Store
	businesses []*models.Business
}

func (f *webhookFakeStore) ListBusinesses(ctx context.Context, limit, offset int) ([]*models.Business, int64, error) {
	return f.businesses, int64(len(f.businesses)), nil
}

func newWebhookTestServer(store storage.Store, graphURL string) *RESTServer {
	cfg := &config.Config{}
	cfg.WhatsApp.VerifyToken = "verify-me"
	cfg.JWT.Secret = "test-secret"

	return NewRESTServer(cfg, Deps{
		Store:    store,
		WhatsApp: whatsapp.NewClient(graphURL),
	})
}

func TestWebhookVerifyEchoesChallenge(t *testing.T) {
	s := newWebhookTestServer(&webhookFakeStore{}, "")

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/webhooks/whatsapp?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=12345", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "12345", rec.Body.String())
}

func TestWebhookVerifyRejectsBadToken(t *testing.T) {
	s := newWebhookTestServer(&webhookFakeStore{}, "")

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/webhooks/whatsapp?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NotContains(t, rec.Body.String(), "12345")
}

func TestWebhookVerifyWithoutParams(t *testing.T) {
	s := newWebhookTestServer(&webhookFakeStore{}, "")

	// The handshake only applies when both mode and token arrive;
	// anything less is acknowledged without a challenge echo
	for _, target := range []string{
		"/api/v1/webhooks/whatsapp",
		"/api/v1/webhooks/whatsapp?hub.mode=subscribe",
		"/api/v1/webhooks/whatsapp?hub.verify_token=verify-me",
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, target)
		assert.Empty(t, rec.Body.String(), target)
	}
}

func inboundEventBody(phoneNumberID, from, text string) []byte {
	event := map[string]interface{}{
		"object": "whatsapp_business_account",
		"entry": []map[string]interface{}{{
			"id": "entry-1",
			"changes": []map[string]interface{}{{
				"field": "messages",
				"value": map[string]interface{}{
					"messaging_product": "whatsapp",
					"metadata": map[string]string{
						"phone_number_id": phoneNumberID,
					},
					"messages": []map[string]interface{}{{
						"id":   "wamid.1",
						"from": from,
						"type": "text",
						"text": map[string]string{"body": text},
					}},
				},
			}},
		}},
	}
	data, _ := json.Marshal(event)
	return data
}

func TestWebhookEventAcksInboundText(t *testing.T) {
	var graphPath string
	var graphBody map[string]interface{}
	graph := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		graphPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &graphBody)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"messages":[{"id":"wamid.out"}]}`))
	}))
	defer graph.Close()

	store := &webhookFakeStore{
		businesses: []*models.Business{{
			Name: "Distribuidora Norte",
			Config: models.BusinessConfig{
				Integrations: []models.Integration{{
					Provider:      models.IntegrationWhatsApp,
					Enabled:       true,
					Token:         "prod-token",
					PhoneNumberID: "555001",
				}},
			},
		}},
	}
	s := newWebhookTestServer(store, graph.URL)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/whatsapp",
		bytes.NewReader(inboundEventBody("555001", "18095551234", "hola")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/555001/messages", graphPath)
	assert.Equal(t, "18095551234", graphBody["to"])

	text, ok := graphBody["text"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Ack: hola", text["body"])
}

func TestWebhookEventRejectsUnknownEnvelope(t *testing.T) {
	s := newWebhookTestServer(&webhookFakeStore{}, "")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/whatsapp",
		bytes.NewReader([]byte(`{"foo":"bar"}`)))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWebhookEventFailsWhenAckRejected(t *testing.T) {
	graph := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer graph.Close()

	store := &webhookFakeStore{
		businesses: []*models.Business{{
			Config: models.BusinessConfig{
				Integrations: []models.Integration{{
					Provider:      models.IntegrationWhatsApp,
					Enabled:       true,
					Token:         "stale-token",
					PhoneNumberID: "555001",
				}},
			},
		}},
	}
	s := newWebhookTestServer(store, graph.URL)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/whatsapp",
		bytes.NewReader(inboundEventBody("555001", "18095551234", "hola")))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestWebhookEventIgnoresUnknownPhoneNumber(t *testing.T) {
	calls := 0
	graph := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer graph.Close()

	s := newWebhookTestServer(&webhookFakeStore{}, graph.URL)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/whatsapp",
		bytes.NewReader(inboundEventBody("999999", "18095551234", "hola")))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, calls)
}

func TestWebhookEventWithoutMessages(t *testing.T) {
	calls := 0
	graph := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer graph.Close()

	s := newWebhookTestServer(&webhookFakeStore{}, graph.URL)

	body := []byte(`{"object":"whatsapp_business_account","entry":[{"id":"entry-1","changes":[{"field":"statuses","value":{"messaging_product":"whatsapp"}}]}]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/whatsapp", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, calls)
}
