package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mseller-cloud/mseller-server/internal/models"
)

// ========== Billing handlers ==========

// billingBusiness loads the caller's business and checks it has (or
// may lack) a billing customer
func (s *RESTServer) billingBusiness(w http.ResponseWriter, r *http.Request, requireCustomer bool) *models.Business {
	claims := currentClaims(r)
	if !claims.IsAdministrator() {
		s.respondError(w, http.StatusForbidden, "administrator required")
		return nil
	}

	business, err := s.store.GetBusiness(r.Context(), claims.BusinessID)
	if err != nil {
		s.respondAppError(w, err)
		return nil
	}
	if requireCustomer && business.StripeCustomerID == "" {
		s.respondError(w, http.StatusPreconditionFailed, "business has no billing customer")
		return nil
	}
	return business
}

// HandleCreateBillingCustomer creates the Stripe customer for the
// caller's business
func (s *RESTServer) HandleCreateBillingCustomer(w http.ResponseWriter, r *http.Request) {
	business := s.billingBusiness(w, r, false)
	if business == nil {
		return
	}
	if business.StripeCustomerID != "" {
		s.respondError(w, http.StatusConflict, "billing customer already exists")
		return
	}

	cust, err := s.billing.CreateCustomer(business.Email, business.Name, business.ID.String())
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	business.StripeCustomerID = cust.ID
	if err := s.store.UpdateBusiness(r.Context(), business); err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, map[string]string{"customerId": cust.ID})
}

// HandleUpdateBillingCustomer updates billing contact details
func (s *RESTServer) HandleUpdateBillingCustomer(w http.ResponseWriter, r *http.Request) {
	business := s.billingBusiness(w, r, true)
	if business == nil {
		return
	}

	var req struct {
		Email string `json:"email" validate:"omitempty,email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	cust, err := s.billing.UpdateCustomer(business.StripeCustomerID, req.Email, req.Name)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"customerId": cust.ID})
}

// HandleListPaymentMethods lists the business's stored cards
func (s *RESTServer) HandleListPaymentMethods(w http.ResponseWriter, r *http.Request) {
	business := s.billingBusiness(w, r, true)
	if business == nil {
		return
	}

	methods, err := s.billing.ListPaymentMethods(business.StripeCustomerID)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"paymentMethods": methods,
	})
}

// HandleAttachPaymentMethod attaches a card and makes it the default
func (s *RESTServer) HandleAttachPaymentMethod(w http.ResponseWriter, r *http.Request) {
	business := s.billingBusiness(w, r, true)
	if business == nil {
		return
	}

	var req struct {
		PaymentMethodID string `json:"paymentMethodId" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	pm, err := s.billing.AttachPaymentMethod(business.StripeCustomerID, req.PaymentMethodID)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, pm)
}

// HandleDetachPaymentMethod removes a stored card
func (s *RESTServer) HandleDetachPaymentMethod(w http.ResponseWriter, r *http.Request) {
	business := s.billingBusiness(w, r, true)
	if business == nil {
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.billing.DetachPaymentMethod(id); err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]bool{"detached": true})
}

// HandleCreateSubscription starts a subscription sized to the seller
// licenses
func (s *RESTServer) HandleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	business := s.billingBusiness(w, r, true)
	if business == nil {
		return
	}
	if business.SubscriptionID != "" {
		s.respondError(w, http.StatusConflict, "subscription already exists")
		return
	}

	var req struct {
		PriceID  string `json:"priceId" validate:"required"`
		Quantity int64  `json:"quantity" validate:"required,min=1"`
		Tier     string `json:"tier"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	sub, err := s.billing.CreateSubscription(business.StripeCustomerID, req.PriceID, req.Quantity)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	business.SubscriptionID = sub.ID
	business.SubscriptionStatus = string(sub.Status)
	business.SellerLicenses = int(req.Quantity)
	if req.Tier != "" {
		business.Tier = req.Tier
	}
	if err := s.store.UpdateBusiness(r.Context(), business); err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"subscriptionId": sub.ID,
		"status":         sub.Status,
	})
}

// HandleCancelSubscription cancels the business subscription
func (s *RESTServer) HandleCancelSubscription(w http.ResponseWriter, r *http.Request) {
	business := s.billingBusiness(w, r, true)
	if business == nil {
		return
	}
	if business.SubscriptionID == "" {
		s.respondError(w, http.StatusPreconditionFailed, "no active subscription")
		return
	}

	sub, err := s.billing.CancelSubscription(business.SubscriptionID)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	business.SubscriptionID = ""
	business.SubscriptionStatus = string(sub.Status)
	if err := s.store.UpdateBusiness(r.Context(), business); err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": sub.Status,
	})
}

// HandleUpdateSubscriptionQuantity resizes the seller licenses
func (s *RESTServer) HandleUpdateSubscriptionQuantity(w http.ResponseWriter, r *http.Request) {
	business := s.billingBusiness(w, r, true)
	if business == nil {
		return
	}
	if business.SubscriptionID == "" {
		s.respondError(w, http.StatusPreconditionFailed, "no active subscription")
		return
	}

	var req struct {
		Quantity int64 `json:"quantity" validate:"required,min=1"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	sub, err := s.billing.UpdateSubscriptionQuantity(business.SubscriptionID, req.Quantity)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	business.SellerLicenses = int(req.Quantity)
	business.SubscriptionStatus = string(sub.Status)
	if err := s.store.UpdateBusiness(r.Context(), business); err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   sub.Status,
		"quantity": req.Quantity,
	})
}

// HandleListCharges lists the business's past charges
func (s *RESTServer) HandleListCharges(w http.ResponseWriter, r *http.Request) {
	business := s.billingBusiness(w, r, true)
	if business == nil {
		return
	}

	limit, _ := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64)
	if limit == 0 {
		limit = 12
	}

	charges, err := s.billing.ListCharges(business.StripeCustomerID, limit)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"charges": charges,
	})
}

// HandleListPlans lists the purchasable plans of a catalog category
func (s *RESTServer) HandleListPlans(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")

	plans, err := s.billing.ListPlans(category)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"plans": plans,
	})
}
