package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/mseller-cloud/mseller-server/internal/models"
)

// ========== Document handlers ==========

// HandleGenerateDocument renders a document and fans it out on the
// requested channels
func (s *RESTServer) HandleGenerateDocument(w http.ResponseWriter, r *http.Request) {
	claims := currentClaims(r)

	var req models.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Payload) == 0 {
		s.respondError(w, http.StatusBadRequest, "payload is required")
		return
	}

	record, err := s.documents.Generate(r.Context(), claims.BusinessID, &req)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, record)
}

// HandleListDocuments lists the business's generated documents
func (s *RESTServer) HandleListDocuments(w http.ResponseWriter, r *http.Request) {
	claims := currentClaims(r)

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit == 0 {
		limit = 20
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	records, total, err := s.documents.List(r.Context(), claims.BusinessID, limit, offset)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"documents": records,
		"total":     total,
	})
}
