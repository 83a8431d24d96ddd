package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mseller-cloud/mseller-server/internal/models"
	"github.com/mseller-cloud/mseller-server/internal/storage"
	"github.com/mseller-cloud/mseller-server/pkg/crypto"
)

// ========== Business handlers ==========

// HandleSignup onboards a business from the public portal: one
// business plus its first administrator, created atomically.
func (s *RESTServer) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RecaptchaToken string `json:"recaptchaToken" validate:"required"`

		BusinessName string `json:"businessName" validate:"required,min=3,max=150"`
		RNC          string `json:"rnc"`
		Phone        string `json:"phone"`

		AdminFirstName string `json:"adminFirstName" validate:"required"`
		AdminLastName  string `json:"adminLastName"`
		AdminEmail     string `json:"adminEmail" validate:"required,email"`
		AdminPassword  string `json:"adminPassword" validate:"required,min=8"`
		AdminPhone     string `json:"adminPhone"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	score, err := s.verifyRecaptcha(r.Context(), req.RecaptchaToken)
	if err != nil || score < s.config.Recaptcha.MinScore {
		log.Warn().Err(err).Float64("score", score).Msg("Signup rejected by reCAPTCHA")
		s.respondError(w, http.StatusForbidden, "signup verification failed")
		return
	}

	hash, err := crypto.HashPassword(req.AdminPassword)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to process password")
		return
	}

	if _, err := s.store.GetUserByEmail(r.Context(), req.AdminEmail); err == nil {
		s.respondError(w, http.StatusConflict, "email is already registered")
		return
	} else if !errors.Is(err, storage.ErrNotFound) {
		s.respondAppError(w, err)
		return
	}

	now := time.Now()
	business := &models.Business{
		Name:           req.BusinessName,
		RNC:            req.RNC,
		Phone:          req.Phone,
		Email:          req.AdminEmail,
		Contact:        req.AdminFirstName + " " + req.AdminLastName,
		Status:         true,
		FromPortal:     true,
		StartDate:      &now,
		Tier:           "basic",
		SellerLicenses: 1,
		Config: models.DefaultBusinessConfig(
			s.config.Portal.ServerURL, s.config.Portal.ServerPort,
			s.config.Portal.SandboxURL, s.config.Portal.SandboxPort,
		),
	}

	tx, err := s.store.BeginTx(r.Context())
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	defer tx.Rollback()

	if err := tx.CreateBusiness(r.Context(), business); err != nil {
		s.respondAppError(w, err)
		return
	}

	admin := &models.User{
		BusinessID:   business.ID,
		Email:        req.AdminEmail,
		PasswordHash: hash,
		FirstName:    req.AdminFirstName,
		LastName:     req.AdminLastName,
		Phone:        req.AdminPhone,
		Role:         models.RoleAdministrator,
		Initials:     initials(req.AdminFirstName, req.AdminLastName),
	}
	if err := tx.CreateUser(r.Context(), admin); err != nil {
		s.respondAppError(w, err)
		return
	}

	if err := tx.Commit(); err != nil {
		s.respondAppError(w, err)
		return
	}

	// Onboarding mail is best effort; the account already exists
	if err := s.mail.SendWelcome(admin.Email, admin.DisplayName(), business.Name, s.config.Portal.BaseURL); err != nil {
		log.Error().Err(err).Str("email", admin.Email).Msg("Send welcome email")
	}
	if err := s.mail.SendSignupNotice(business.Name, business.Contact, admin.Email, admin.Phone); err != nil {
		log.Error().Err(err).Msg("Send signup notice")
	}

	log.Info().
		Str("business", business.ID.String()).
		Str("admin", admin.ID.String()).
		Msg("Business onboarded")

	s.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"business": business,
		"admin":    admin,
	})
}

// HandleListBusinesses lists businesses (superuser only)
func (s *RESTServer) HandleListBusinesses(w http.ResponseWriter, r *http.Request) {
	claims := currentClaims(r)
	if !claims.IsSuperuser() {
		s.respondError(w, http.StatusForbidden, "superuser required")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit == 0 {
		limit = 20
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	businesses, total, err := s.store.ListBusinesses(r.Context(), limit, offset)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"businesses": businesses,
		"total":      total,
	})
}

// HandleCreateBusiness creates a business directly (superuser only)
func (s *RESTServer) HandleCreateBusiness(w http.ResponseWriter, r *http.Request) {
	claims := currentClaims(r)
	if !claims.IsSuperuser() {
		s.respondError(w, http.StatusForbidden, "superuser required")
		return
	}

	var business models.Business
	if err := json.NewDecoder(r.Body).Decode(&business); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if business.Name == "" {
		s.respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	if err := s.store.CreateBusiness(r.Context(), &business); err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, &business)
}

// HandleGetBusiness gets a business
func (s *RESTServer) HandleGetBusiness(w http.ResponseWriter, r *http.Request) {
	claims := currentClaims(r)
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid business id")
		return
	}

	if !claims.IsSuperuser() && claims.BusinessID != id {
		s.respondError(w, http.StatusForbidden, "access denied")
		return
	}

	business, err := s.store.GetBusiness(r.Context(), id)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, business)
}

// HandleUpdateBusiness updates a business
func (s *RESTServer) HandleUpdateBusiness(w http.ResponseWriter, r *http.Request) {
	claims := currentClaims(r)
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid business id")
		return
	}

	if !claims.IsSuperuser() && !(claims.IsAdministrator() && claims.BusinessID == id) {
		s.respondError(w, http.StatusForbidden, "access denied")
		return
	}

	business, err := s.store.GetBusiness(r.Context(), id)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	if err := json.NewDecoder(r.Body).Decode(business); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	business.ID = id

	if err := s.store.UpdateBusiness(r.Context(), business); err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, business)
}

// HandleDeleteBusiness offboards a business: its users, then the
// business itself, in one transaction. An active subscription is
// cancelled first.
func (s *RESTServer) HandleDeleteBusiness(w http.ResponseWriter, r *http.Request) {
	claims := currentClaims(r)
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid business id")
		return
	}

	if !claims.IsSuperuser() && !(claims.Role == models.RoleAdministrator && claims.BusinessID == id) {
		s.respondError(w, http.StatusForbidden, "access denied")
		return
	}

	business, err := s.store.GetBusiness(r.Context(), id)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	if business.SubscriptionID != "" {
		if _, err := s.billing.CancelSubscription(business.SubscriptionID); err != nil {
			log.Error().Err(err).
				Str("subscription", business.SubscriptionID).
				Msg("Cancel subscription during offboarding")
		}
	}

	tx, err := s.store.BeginTx(r.Context())
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	defer tx.Rollback()

	removed, err := tx.DeleteUsersByBusiness(r.Context(), id)
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	if err := tx.DeleteBusiness(r.Context(), id); err != nil {
		s.respondAppError(w, err)
		return
	}
	if err := tx.Commit(); err != nil {
		s.respondAppError(w, err)
		return
	}

	log.Info().
		Str("business", id.String()).
		Int64("usersRemoved", removed).
		Msg("Business offboarded")

	event, _ := json.Marshal(map[string]string{"businessId": id.String()})
	if err := s.events.Publish("business.deleted", event); err != nil {
		log.Error().Err(err).
			Str("business", id.String()).
			Msg("Failed to publish offboarding event")
	}

	if err := s.mail.SendOffboardingNotice(business.Name, business.Email, removed); err != nil {
		log.Error().Err(err).
			Str("business", id.String()).
			Msg("Failed to send offboarding notice")
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"deleted":      true,
		"usersRemoved": removed,
	})
}

// initials builds the display initials for a name pair
func initials(first, last string) string {
	out := ""
	if first != "" {
		out += string([]rune(first)[0])
	}
	if last != "" {
		out += string([]rune(last)[0])
	}
	return out
}
