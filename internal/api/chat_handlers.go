package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mseller-cloud/mseller-server/internal/models"
)

// ========== Conversation handlers ==========

// HandleListConversations lists the caller's conversation index
func (s *RESTServer) HandleListConversations(w http.ResponseWriter, r *http.Request) {
	claims := currentClaims(r)

	entries, err := s.chat.ListConversations(r.Context(), claims.UserID)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"conversations": entries,
	})
}

// HandleEnsureConversation opens (or returns) the conversation with a
// counterpart
func (s *RESTServer) HandleEnsureConversation(w http.ResponseWriter, r *http.Request) {
	claims := currentClaims(r)

	var req struct {
		CounterpartID uuid.UUID `json:"counterpartId" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CounterpartID == uuid.Nil {
		s.respondError(w, http.StatusBadRequest, "counterpartId is required")
		return
	}

	conv, err := s.chat.EnsureConversation(r.Context(), claims.BusinessID, claims.UserID, req.CounterpartID)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, conv)
}

// HandleBadge returns the caller's total unseen message count
func (s *RESTServer) HandleBadge(w http.ResponseWriter, r *http.Request) {
	claims := currentClaims(r)

	badge, err := s.chat.Badge(r.Context(), claims.UserID)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]int{"badge": badge})
}

// HandleListMessages lists a conversation's messages, newest first
func (s *RESTServer) HandleListMessages(w http.ResponseWriter, r *http.Request) {
	claims := currentClaims(r)
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit == 0 {
		limit = 50
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	messages, total, err := s.chat.Messages(r.Context(), claims.UserID, id, limit, offset)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"messages": messages,
		"total":    total,
	})
}

// HandleSendMessage appends a message to a conversation
func (s *RESTServer) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	claims := currentClaims(r)
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}

	var req struct {
		Body string `json:"body" validate:"required"`
		URL  string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := s.chat.SendMessage(r.Context(), claims.UserID, id, req.Body, req.URL)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, msg)
}

// HandleSetMessageStatus marks a message read
func (s *RESTServer) HandleSetMessageStatus(w http.ResponseWriter, r *http.Request) {
	claims := currentClaims(r)
	convID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}
	msgID, err := uuid.Parse(chi.URLParam(r, "messageId"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid message id")
		return
	}

	var req struct {
		Status models.MessageStatus `json:"status" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.chat.SetMessageStatus(r.Context(), claims.UserID, convID, msgID, req.Status); err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

// HandleResetUnseen zeroes the caller's unseen counter for one
// counterpart
func (s *RESTServer) HandleResetUnseen(w http.ResponseWriter, r *http.Request) {
	claims := currentClaims(r)
	counterpartID, err := uuid.Parse(chi.URLParam(r, "counterpartId"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid counterpart id")
		return
	}

	if err := s.chat.ResetUnseen(r.Context(), claims.UserID, counterpartID); err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]bool{"reset": true})
}
