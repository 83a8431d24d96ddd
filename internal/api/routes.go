package api

import (
	"github.com/go-chi/chi/v5"
)

// setupAPIRoutes sets up API v1 routes
func (s *RESTServer) setupAPIRoutes(r chi.Router) {
	// Health check
	r.Get("/health", s.HandleHealth)

	// Auth routes (public)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", s.HandleLogin)
		r.Post("/refresh", s.HandleRefresh)
	})

	// Public signup, guarded by reCAPTCHA
	r.Post("/signup", s.HandleSignup)

	// WhatsApp inbound webhook (verified by Meta, not by JWT)
	r.Route("/webhooks/whatsapp", func(r chi.Router) {
		r.Get("/", s.HandleWebhookVerify)
		r.Post("/", s.HandleWebhookEvent)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		// Businesses
		r.Route("/businesses", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.HandleListBusinesses)
			r.Post("/", s.HandleCreateBusiness)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.HandleGetBusiness)
				r.Put("/", s.HandleUpdateBusiness)
				r.Delete("/", s.HandleDeleteBusiness)
			})
		})

		// Users
		r.Route("/users", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.HandleListUsers)
			r.Post("/", s.HandleCreateUser)
			r.Get("/me", s.HandleGetCurrentUser)
			r.Post("/transfer-seller-code", s.HandleTransferSellerCode)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.HandleGetUser)
				r.Put("/", s.HandleUpdateUser)
				r.Post("/password", s.HandleChangePassword)
				r.Delete("/", s.HandleDeleteUser)
			})
		})

		// Conversations
		r.Route("/conversations", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.HandleListConversations)
			r.Post("/", s.HandleEnsureConversation)
			r.Get("/badge", s.HandleBadge)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/messages", s.HandleListMessages)
				r.Post("/messages", s.HandleSendMessage)
				r.Put("/messages/{messageId}/status", s.HandleSetMessageStatus)
			})
			r.Put("/unseen/{counterpartId}/reset", s.HandleResetUnseen)
		})

		// Documents
		r.Route("/documents", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.HandleListDocuments)
			r.Post("/", s.HandleGenerateDocument)
		})

		// Push messaging
		r.Route("/messaging", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Post("/tokens", s.HandleRegisterDeviceToken)
			r.Delete("/tokens", s.HandleDeleteDeviceToken)
			r.Post("/notify", s.HandleNotifyUser)
			r.Post("/broadcast", s.HandleBroadcast)
		})

		// Billing
		r.Route("/billing", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Post("/customers", s.HandleCreateBillingCustomer)
			r.Put("/customers", s.HandleUpdateBillingCustomer)
			r.Get("/payment-methods", s.HandleListPaymentMethods)
			r.Post("/payment-methods", s.HandleAttachPaymentMethod)
			r.Delete("/payment-methods/{id}", s.HandleDetachPaymentMethod)
			r.Post("/subscriptions", s.HandleCreateSubscription)
			r.Delete("/subscriptions", s.HandleCancelSubscription)
			r.Put("/subscriptions/quantity", s.HandleUpdateSubscriptionQuantity)
			r.Get("/charges", s.HandleListCharges)
			r.Get("/plans", s.HandleListPlans)
		})

		// Images
		r.Route("/images", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.HandleListImages)
			r.Post("/", s.HandleUploadImages)
			r.Delete("/{id}", s.HandleDeleteImage)
			r.Post("/batch-delete", s.HandleBatchDeleteImages)
		})
	})
}
