package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mseller-cloud/mseller-server/internal/api"
	"github.com/mseller-cloud/mseller-server/internal/billing"
	"github.com/mseller-cloud/mseller-server/internal/chat"
	"github.com/mseller-cloud/mseller-server/internal/config"
	"github.com/mseller-cloud/mseller-server/internal/documents"
	"github.com/mseller-cloud/mseller-server/internal/email"
	"github.com/mseller-cloud/mseller-server/internal/objstore"
	"github.com/mseller-cloud/mseller-server/internal/push"
	"github.com/mseller-cloud/mseller-server/internal/renderer"
	"github.com/mseller-cloud/mseller-server/internal/server"
	"github.com/mseller-cloud/mseller-server/internal/storage"
	"github.com/mseller-cloud/mseller-server/internal/whatsapp"
)

func main() {
	// Command line flags
	var configFile string
	flag.StringVar(&configFile, "config", "config/api-server.yml", "Configuration file path")
	flag.Parse()

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	// Load configuration
	cfg, err := config.Load(configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Connect to database
	store, err := storage.NewPostgresStore(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer store.Close()

	log.Info().Msg("Connected to database")

	// Connect to NATS
	nc, err := nats.Connect(cfg.NATS.URL,
		nats.Name(cfg.Server.Name),
		nats.UserInfo(cfg.NATS.Username, cfg.NATS.Password),
		nats.ReconnectWait(cfg.NATS.ReconnectInterval),
		nats.MaxReconnects(cfg.NATS.MaxReconnects),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn().Err(err).Msg("Disconnected from NATS")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Msg("Reconnected to NATS")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().
				Err(err).
				Str("subject", sub.Subject).
				Msg("NATS error")
		}),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to NATS")
	}
	defer nc.Close()

	log.Info().Msg("Connected to NATS")

	// Connect to object storage
	objects, err := objstore.NewObjectStore(&cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to object storage")
	}

	// Build services
	waClient := whatsapp.NewClient(cfg.WhatsApp.GraphURL)
	mailClient := email.NewClient(&cfg.Email)
	dispatcher := push.NewDispatcher(nc, store)
	chatService := chat.NewService(store, dispatcher)
	docService := documents.NewService(store,
		renderer.NewClient(&cfg.Renderer), objects, waClient, mailClient)
	billingService := billing.NewService(&cfg.Stripe)

	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start REST API server
	apiServer := api.NewRESTServer(cfg, api.Deps{
		Store:      store,
		Chat:       chatService,
		Documents:  docService,
		Billing:    billingService,
		Dispatcher: dispatcher,
		Objects:    objects,
		WhatsApp:   waClient,
		Mail:       mailClient,
		Events:     nc,
	})

	// WaitGroup for services
	var wg sync.WaitGroup

	// Start API server
	wg.Add(1)
	go func() {
		defer wg.Done()
		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		if err := apiServer.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("REST API server failed")
		}
	}()

	// Start NATS subscriber
	subscriber := server.NewNATSSubscriber(nc, store, objects)

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().Msg("Starting NATS subscriber")
		if err := subscriber.Start(ctx); err != nil {
			log.Error().Err(err).Msg("NATS subscriber stopped")
		}
	}()

	// Wait for signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received signal, shutting down")

	// Cancel context
	cancel()

	// Shutdown API server
	if err := apiServer.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown API server gracefully")
	}

	// Wait for all services
	wg.Wait()

	log.Info().Msg("API server stopped")
}
