package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mseller-cloud/mseller-server/internal/whatsapp"
)

// ========== WhatsApp webhook handlers ==========

// HandleWebhookVerify answers the Meta subscription handshake. The
// challenge must be echoed back as plain text.
func (s *RESTServer) HandleWebhookVerify(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode != "" && token != "" {
		if mode == "subscribe" && token == s.config.WhatsApp.VerifyToken {
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(challenge))
			return
		}
		log.Warn().Str("mode", mode).Msg("WhatsApp webhook verification rejected")
		s.respondError(w, http.StatusForbidden, "verification failed")
		return
	}

	// Requests without the full handshake just get an ack
	w.WriteHeader(http.StatusOK)
}

// HandleWebhookEvent receives inbound WhatsApp events. Payloads that
// do not carry the event envelope are rejected with 404 so Meta stops
// delivering to a misconfigured endpoint.
func (s *RESTServer) HandleWebhookEvent(w http.ResponseWriter, r *http.Request) {
	var event whatsapp.WebhookEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil || event.Object == "" {
		log.Warn().Err(err).Msg("Unrecognized WhatsApp webhook payload")
		s.respondError(w, http.StatusNotFound, "unrecognized event")
		return
	}

	msg := event.FirstTextMessage()
	if msg == nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	log.Info().
		Str("from", msg.From).
		Str("phoneNumberId", event.PhoneNumberID()).
		Msg("Inbound WhatsApp message")

	if err := s.ackInboundMessage(r, &event, msg); err != nil {
		log.Error().Err(err).
			Str("from", msg.From).
			Msg("Failed to acknowledge inbound WhatsApp message")
		s.respondError(w, http.StatusInternalServerError, "acknowledgement failed")
		return
	}

	w.WriteHeader(http.StatusOK)
}

// ackInboundMessage replies to the sender through the business whose
// integration owns the receiving phone number
func (s *RESTServer) ackInboundMessage(r *http.Request, event *whatsapp.WebhookEvent, msg *whatsapp.InboundMessage) error {
	creds, ok := s.credentialsForPhoneNumber(r, event.PhoneNumberID())
	if !ok {
		log.Warn().
			Str("phoneNumberId", event.PhoneNumberID()).
			Msg("No business integration matches receiving phone number")
		return nil
	}

	return s.wa.SendText(r.Context(), creds, msg.From, "Ack: "+msg.Text.Body)
}

// credentialsForPhoneNumber finds the integration credentials that own
// the given WhatsApp phone number ID
func (s *RESTServer) credentialsForPhoneNumber(r *http.Request, phoneNumberID string) (whatsapp.Credentials, bool) {
	if phoneNumberID == "" {
		return whatsapp.Credentials{}, false
	}

	businesses, _, err := s.store.ListBusinesses(r.Context(), 1000, 0)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list businesses for webhook routing")
		return whatsapp.Credentials{}, false
	}

	for _, business := range businesses {
		integration := business.Config.WhatsAppIntegration()
		if integration == nil || !integration.Enabled {
			continue
		}
		switch phoneNumberID {
		case integration.PhoneNumberID:
			return whatsapp.Credentials{Token: integration.Token, PhoneNumberID: integration.PhoneNumberID}, true
		case integration.DevPhoneNumberID:
			return whatsapp.Credentials{Token: integration.DevToken, PhoneNumberID: integration.DevPhoneNumberID}, true
		}
	}
	return whatsapp.Credentials{}, false
}
