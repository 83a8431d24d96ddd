package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mseller-cloud/mseller-server/internal/models"
	"github.com/mseller-cloud/mseller-server/internal/storage"
	"github.com/mseller-cloud/mseller-server/pkg/crypto"
)

// ========== User handlers ==========

// HandleListUsers lists the users of the caller's business. Superusers
// may list any business via the businessId query parameter.
func (s *RESTServer) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	claims := currentClaims(r)

	businessID := claims.BusinessID
	if claims.IsSuperuser() {
		if qs := r.URL.Query().Get("businessId"); qs != "" {
			id, err := uuid.Parse(qs)
			if err != nil {
				s.respondError(w, http.StatusBadRequest, "invalid businessId")
				return
			}
			businessID = id
		}
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit == 0 {
		limit = 50
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	users, total, err := s.store.ListUsers(r.Context(), &businessID, limit, offset)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	// The caller is not part of its own directory listing
	filtered := users[:0]
	for _, u := range users {
		if u.ID == claims.UserID {
			total--
			continue
		}
		filtered = append(filtered, u)
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"users": filtered,
		"total": total,
	})
}

type userRequest struct {
	Email      string      `json:"email" validate:"required,email"`
	Password   string      `json:"password"`
	FirstName  string      `json:"firstName" validate:"required"`
	LastName   string      `json:"lastName"`
	Phone      string      `json:"phone"`
	PhotoURL   string      `json:"photoURL"`
	Role       models.Role `json:"role" validate:"required"`
	SellerCode string      `json:"sellerCode"`
	Warehouse  string      `json:"warehouse"`
	Disabled   bool        `json:"disabled"`
}

// validateRoleRules enforces the role constraints shared by create and
// update
func (s *RESTServer) validateRoleRules(req *userRequest) string {
	if !req.Role.Valid() {
		return "unknown role"
	}
	if req.Role.RequiresSellerCode() && req.SellerCode == "" {
		return "sellerCode is required for " + string(req.Role)
	}
	return ""
}

// HandleCreateUser creates a user in the caller's business
func (s *RESTServer) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	claims := currentClaims(r)
	if !claims.IsAdministrator() {
		s.respondError(w, http.StatusForbidden, "administrator required")
		return
	}

	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if msg := s.validateRoleRules(&req); msg != "" {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	if req.Password == "" {
		s.respondError(w, http.StatusBadRequest, "password is required")
		return
	}
	if req.Role == models.RoleSuperuser && !claims.IsSuperuser() {
		s.respondError(w, http.StatusForbidden, "only superusers may grant superuser")
		return
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to process password")
		return
	}

	user := &models.User{
		BusinessID:   claims.BusinessID,
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		PhotoURL:     req.PhotoURL,
		Role:         req.Role,
		SellerCode:   req.SellerCode,
		Warehouse:    req.Warehouse,
		Initials:     initials(req.FirstName, req.LastName),
	}

	if req.SellerCode != "" {
		// A taken code is a conflict on create, never a silent swap
		if _, err := s.store.GetUserBySellerCode(r.Context(), claims.BusinessID, req.SellerCode); err == nil {
			s.respondError(w, http.StatusConflict, "seller code already in use")
			return
		} else if !errors.Is(err, storage.ErrNotFound) {
			s.respondAppError(w, err)
			return
		}
	}

	if err := s.store.CreateUser(r.Context(), user); err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, user)
}

// HandleGetCurrentUser gets the authenticated user
func (s *RESTServer) HandleGetCurrentUser(w http.ResponseWriter, r *http.Request) {
	claims := currentClaims(r)

	user, err := s.store.GetUser(r.Context(), claims.UserID)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, user)
}

// HandleGetUser gets a user in the caller's business
func (s *RESTServer) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	claims := currentClaims(r)
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := s.store.GetUser(r.Context(), id)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	if !claims.IsSuperuser() && user.BusinessID != claims.BusinessID {
		s.respondError(w, http.StatusForbidden, "access denied")
		return
	}

	s.respondJSON(w, http.StatusOK, user)
}

// HandleUpdateUser updates a user. Assigning a seller code held by a
// teammate swaps the two codes atomically so every code stays unique
// within the business.
func (s *RESTServer) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	claims := currentClaims(r)
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if !claims.IsAdministrator() && claims.UserID != id {
		s.respondError(w, http.StatusForbidden, "access denied")
		return
	}

	user, err := s.store.GetUser(r.Context(), id)
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	if !claims.IsSuperuser() && user.BusinessID != claims.BusinessID {
		s.respondError(w, http.StatusForbidden, "access denied")
		return
	}

	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if msg := s.validateRoleRules(&req); msg != "" {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	// Only administrators can change roles
	if req.Role != user.Role && !claims.IsAdministrator() {
		s.respondError(w, http.StatusForbidden, "administrator required to change role")
		return
	}
	if req.Role == models.RoleSuperuser && !claims.IsSuperuser() {
		s.respondError(w, http.StatusForbidden, "only superusers may grant superuser")
		return
	}

	oldCode := user.SellerCode
	user.Email = req.Email
	user.FirstName = req.FirstName
	user.LastName = req.LastName
	user.Phone = req.Phone
	user.PhotoURL = req.PhotoURL
	user.Role = req.Role
	user.SellerCode = req.SellerCode
	user.Warehouse = req.Warehouse
	user.Disabled = req.Disabled
	user.Initials = initials(req.FirstName, req.LastName)
	if req.Password != "" {
		hash, err := crypto.HashPassword(req.Password)
		if err != nil {
			s.respondError(w, http.StatusInternalServerError, "failed to process password")
			return
		}
		user.PasswordHash = hash
	}

	tx, err := s.store.BeginTx(r.Context())
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	defer tx.Rollback()

	if req.SellerCode != "" && req.SellerCode != oldCode {
		holder, err := tx.GetUserBySellerCode(r.Context(), user.BusinessID, req.SellerCode)
		switch {
		case err == nil && holder.ID != user.ID:
			holder.SellerCode = oldCode
			if err := tx.UpdateUser(r.Context(), holder); err != nil {
				s.respondAppError(w, err)
				return
			}
			log.Info().
				Str("user", user.ID.String()).
				Str("holder", holder.ID.String()).
				Str("code", req.SellerCode).
				Msg("Seller codes swapped")
		case err != nil && !errors.Is(err, storage.ErrNotFound):
			s.respondAppError(w, err)
			return
		}
	}

	if err := tx.UpdateUser(r.Context(), user); err != nil {
		s.respondAppError(w, err)
		return
	}
	if err := tx.Commit(); err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, user)
}

// HandleChangePassword changes a user's password. Owners may change
// their own; administrators may change their teammates'; cross-business
// changes are superuser-only.
func (s *RESTServer) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := currentClaims(r)
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if claims.UserID != id && !claims.IsAdministrator() {
		s.respondError(w, http.StatusForbidden, "access denied")
		return
	}

	user, err := s.store.GetUser(r.Context(), id)
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	if user.BusinessID != claims.BusinessID && !claims.IsSuperuser() {
		s.respondError(w, http.StatusForbidden, "access denied")
		return
	}

	var req struct {
		Password string `json:"password" validate:"required,min=8"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to process password")
		return
	}
	user.PasswordHash = hash

	if err := s.store.UpdateUser(r.Context(), user); err != nil {
		s.respondAppError(w, err)
		return
	}

	log.Info().Str("user", id.String()).Msg("Password changed")
	s.respondJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

// HandleTransferSellerCode swaps the seller codes of two users in the
// caller's business. The swap runs in one transaction so concurrent
// transfers cannot leave a code duplicated or lost.
func (s *RESTServer) HandleTransferSellerCode(w http.ResponseWriter, r *http.Request) {
	claims := currentClaims(r)
	if !claims.IsAdministrator() {
		s.respondError(w, http.StatusForbidden, "administrator required")
		return
	}

	var req struct {
		SourceID uuid.UUID `json:"sourceId" validate:"required"`
		TargetID uuid.UUID `json:"targetId" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SourceID == uuid.Nil || req.TargetID == uuid.Nil {
		s.respondError(w, http.StatusBadRequest, "sourceId and targetId are required")
		return
	}
	if req.SourceID == req.TargetID {
		s.respondError(w, http.StatusBadRequest, "source and target are the same user")
		return
	}

	source, err := s.store.GetUser(r.Context(), req.SourceID)
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	target, err := s.store.GetUser(r.Context(), req.TargetID)
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	if !claims.IsSuperuser() && (source.BusinessID != claims.BusinessID || target.BusinessID != claims.BusinessID) {
		s.respondError(w, http.StatusForbidden, "access denied")
		return
	}

	tx, err := s.store.BeginTx(r.Context())
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	defer tx.Rollback()

	source.SellerCode, target.SellerCode = target.SellerCode, source.SellerCode
	if err := tx.UpdateUser(r.Context(), source); err != nil {
		s.respondAppError(w, err)
		return
	}
	if err := tx.UpdateUser(r.Context(), target); err != nil {
		s.respondAppError(w, err)
		return
	}
	if err := tx.Commit(); err != nil {
		s.respondAppError(w, err)
		return
	}

	log.Info().
		Str("source", source.ID.String()).
		Str("target", target.ID.String()).
		Msg("Seller codes transferred")

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"source": source,
		"target": target,
	})
}

// HandleDeleteUser deletes a user in the caller's business
func (s *RESTServer) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	claims := currentClaims(r)
	if !claims.IsAdministrator() {
		s.respondError(w, http.StatusForbidden, "administrator required")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if id == claims.UserID {
		s.respondError(w, http.StatusBadRequest, "cannot delete yourself")
		return
	}

	user, err := s.store.GetUser(r.Context(), id)
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	if !claims.IsSuperuser() && user.BusinessID != claims.BusinessID {
		s.respondError(w, http.StatusForbidden, "access denied")
		return
	}

	if err := s.store.DeleteUser(r.Context(), id); err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
