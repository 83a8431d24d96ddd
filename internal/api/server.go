package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/mseller-cloud/mseller-server/internal/auth"
	"github.com/mseller-cloud/mseller-server/internal/billing"
	"github.com/mseller-cloud/mseller-server/internal/chat"
	"github.com/mseller-cloud/mseller-server/internal/config"
	"github.com/mseller-cloud/mseller-server/internal/documents"
	"github.com/mseller-cloud/mseller-server/internal/email"
	"github.com/mseller-cloud/mseller-server/internal/objstore"
	"github.com/mseller-cloud/mseller-server/internal/push"
	"github.com/mseller-cloud/mseller-server/internal/storage"
	"github.com/mseller-cloud/mseller-server/internal/validation"
	"github.com/mseller-cloud/mseller-server/internal/whatsapp"
)

type contextKey string

const claimsKey contextKey = "claims"

// Deps bundles the services the REST server exposes
type Deps struct {
	Store      storage.Store
	Chat       *chat.Service
	Documents  *documents.Service
	Billing    *billing.Service
	Dispatcher *push.Dispatcher
	Objects    *objstore.ObjectStore
	WhatsApp   *whatsapp.Client
	Mail       *email.Client
	Events     push.Publisher
}

// RESTServer represents the REST API server
type RESTServer struct {
	config     *config.Config
	store      storage.Store
	auth       *auth.JWTManager
	validator  *validation.Validator
	router     chi.Router
	server     *http.Server
	chat       *chat.Service
	documents  *documents.Service
	billing    *billing.Service
	dispatcher *push.Dispatcher
	objects    *objstore.ObjectStore
	wa         *whatsapp.Client
	mail       *email.Client
	events     push.Publisher
	httpClient *http.Client
}

// NewRESTServer creates a new REST API server
func NewRESTServer(cfg *config.Config, deps Deps) *RESTServer {
	s := &RESTServer{
		config:     cfg,
		store:      deps.Store,
		auth:       auth.NewJWTManager(&cfg.JWT),
		validator:  validation.NewValidator(),
		router:     chi.NewRouter(),
		chat:       deps.Chat,
		documents:  deps.Documents,
		billing:    deps.Billing,
		dispatcher: deps.Dispatcher,
		objects:    deps.Objects,
		wa:         deps.WhatsApp,
		mail:       deps.Mail,
		events:     deps.Events,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}

	s.setupRoutes()

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all routes
func (s *RESTServer) setupRoutes() {
	// Middleware
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		s.setupAPIRoutes(r)
	})
}

// ListenAndServe starts the server
func (s *RESTServer) ListenAndServe(addr string) error {
	s.server.Addr = addr
	log.Info().Str("addr", addr).Msg("Starting REST API server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *RESTServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// authMiddleware is the authentication middleware
func (s *RESTServer) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			s.respondError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			s.respondError(w, http.StatusUnauthorized, "invalid authorization header")
			return
		}

		claims, err := s.auth.ValidateToken(parts[1])
		if err != nil {
			s.respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// currentClaims returns the claims stored by authMiddleware
func currentClaims(r *http.Request) *auth.Claims {
	claims, _ := r.Context().Value(claimsKey).(*auth.Claims)
	return claims
}
