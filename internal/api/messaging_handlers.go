package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/mseller-cloud/mseller-server/internal/models"
)

// ========== Push messaging handlers ==========

// HandleRegisterDeviceToken registers a push token for the caller
func (s *RESTServer) HandleRegisterDeviceToken(w http.ResponseWriter, r *http.Request) {
	claims := currentClaims(r)

	var req struct {
		Token    string `json:"token" validate:"required"`
		Platform string `json:"platform" validate:"required,oneof=ios android web"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	token := &models.DeviceToken{
		UserID:   claims.UserID,
		Token:    req.Token,
		Platform: req.Platform,
	}
	if err := s.store.SaveDeviceToken(r.Context(), token); err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, token)
}

// HandleDeleteDeviceToken removes a push token, typically at logout
func (s *RESTServer) HandleDeleteDeviceToken(w http.ResponseWriter, r *http.Request) {
	claims := currentClaims(r)

	var req struct {
		Token string `json:"token" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.store.DeleteDeviceToken(r.Context(), claims.UserID, req.Token); err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// HandleNotifyUser dispatches a notification to one teammate
func (s *RESTServer) HandleNotifyUser(w http.ResponseWriter, r *http.Request) {
	claims := currentClaims(r)

	var req struct {
		RecipientID uuid.UUID        `json:"recipientId" validate:"required"`
		Title       string           `json:"title" validate:"required"`
		Body        string           `json:"body" validate:"required"`
		Data        models.Variables `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	recipient, err := s.store.GetUser(r.Context(), req.RecipientID)
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	if recipient.BusinessID != claims.BusinessID {
		s.respondError(w, http.StatusForbidden, "recipient belongs to another business")
		return
	}

	sender, err := s.store.GetUser(r.Context(), claims.UserID)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	n := &models.Notification{
		BusinessID: claims.BusinessID,
		Sender: models.Party{
			ID:       sender.ID,
			Name:     sender.DisplayName(),
			PhotoURL: sender.PhotoURL,
		},
		Recipient: &models.Party{ID: recipient.ID, Name: recipient.DisplayName()},
		Title:     req.Title,
		Body:      req.Body,
		Data:      req.Data,
		Kind:      "direct",
	}

	if err := s.dispatcher.Notify(r.Context(), n); err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusAccepted, map[string]bool{"sent": true})
}

// HandleBroadcast dispatches a notification to the whole business
// (administrators only)
func (s *RESTServer) HandleBroadcast(w http.ResponseWriter, r *http.Request) {
	claims := currentClaims(r)
	if !claims.IsAdministrator() {
		s.respondError(w, http.StatusForbidden, "administrator required")
		return
	}

	var req struct {
		Title string           `json:"title" validate:"required"`
		Body  string           `json:"body" validate:"required"`
		Data  models.Variables `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	sender, err := s.store.GetUser(r.Context(), claims.UserID)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	n := &models.Notification{
		BusinessID: claims.BusinessID,
		Sender: models.Party{
			ID:       sender.ID,
			Name:     sender.DisplayName(),
			PhotoURL: sender.PhotoURL,
		},
		Title: req.Title,
		Body:  req.Body,
		Data:  req.Data,
		Kind:  "broadcast",
	}

	if err := s.dispatcher.Broadcast(r.Context(), n); err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusAccepted, map[string]bool{"sent": true})
}
