package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/mseller-cloud/mseller-server/internal/objstore"
	"github.com/mseller-cloud/mseller-server/internal/storage"
)

// NATSSubscriber runs the background cleanup listeners
type NATSSubscriber struct {
	nc      *nats.Conn
	store   storage.Store
	objects *objstore.ObjectStore
	subs    []*nats.Subscription
}

// NewNATSSubscriber creates NATS subscriber
func NewNATSSubscriber(nc *nats.Conn, store storage.Store, objects *objstore.ObjectStore) *NATSSubscriber {
	return &NATSSubscriber{
		nc:      nc,
		store:   store,
		objects: objects,
		subs:    make([]*nats.Subscription, 0),
	}
}

// Start starts subscriptions
func (s *NATSSubscriber) Start(ctx context.Context) error {
	// Subscribe to single image deletions
	sub1, err := s.nc.Subscribe("images.deleted", s.handleImageDeleted)
	if err != nil {
		return fmt.Errorf("subscribe image deleted: %w", err)
	}
	s.subs = append(s.subs, sub1)

	// Subscribe to business offboarding
	sub2, err := s.nc.Subscribe("business.deleted", s.handleBusinessDeleted)
	if err != nil {
		return fmt.Errorf("subscribe business deleted: %w", err)
	}
	s.subs = append(s.subs, sub2)

	log.Info().
		Int("subscriptions", len(s.subs)).
		Msg("NATS subscriber started")

	<-ctx.Done()

	// Unsubscribe
	for _, sub := range s.subs {
		sub.Unsubscribe()
	}

	return ctx.Err()
}

// handleImageDeleted removes the stored object behind a deleted image
// asset. The database record is already gone when this fires.
func (s *NATSSubscriber) handleImageDeleted(msg *nats.Msg) {
	log.Debug().
		Str("subject", msg.Subject).
		Int("size", len(msg.Data)).
		Msg("Received image cleanup event")

	var event struct {
		ImageID      string `json:"imageId"`
		BusinessID   string `json:"businessId"`
		ObjectKey    string `json:"objectKey"`
		ThumbnailKey string `json:"thumbnailKey"`
	}

	if err := json.Unmarshal(msg.Data, &event); err != nil {
		log.Error().Err(err).Msg("Failed to unmarshal image cleanup event")
		return
	}
	if event.ObjectKey == "" {
		log.Warn().Str("image", event.ImageID).Msg("Image cleanup event without object key")
		return
	}

	ctx := context.Background()
	if err := s.objects.Remove(ctx, event.ObjectKey); err != nil {
		log.Error().Err(err).
			Str("objectKey", event.ObjectKey).
			Msg("Failed to remove image object")
		return
	}
	if event.ThumbnailKey != "" {
		if err := s.objects.Remove(ctx, event.ThumbnailKey); err != nil {
			log.Error().Err(err).
				Str("objectKey", event.ThumbnailKey).
				Msg("Failed to remove thumbnail object")
		}
	}

	log.Info().
		Str("image", event.ImageID).
		Str("objectKey", event.ObjectKey).
		Msg("Image objects removed")
}

// handleBusinessDeleted sweeps every image asset left behind by an
// offboarded business
func (s *NATSSubscriber) handleBusinessDeleted(msg *nats.Msg) {
	log.Debug().
		Str("subject", msg.Subject).
		Msg("Received business offboarding event")

	var event struct {
		BusinessID string `json:"businessId"`
	}

	if err := json.Unmarshal(msg.Data, &event); err != nil {
		log.Error().Err(err).Msg("Failed to unmarshal offboarding event")
		return
	}

	businessID, err := uuid.Parse(event.BusinessID)
	if err != nil {
		log.Error().Err(err).Msg("Invalid business ID in offboarding event")
		return
	}

	ctx := context.Background()
	images, err := s.store.ListImageAssets(ctx, businessID, nil)
	if err != nil {
		log.Error().Err(err).
			Str("business", event.BusinessID).
			Msg("Failed to list images for offboarded business")
		return
	}

	removed := 0
	for _, img := range images {
		if err := s.objects.Remove(ctx, img.ObjectKey); err != nil {
			log.Error().Err(err).
				Str("objectKey", img.ObjectKey).
				Msg("Failed to remove image object")
			continue
		}
		if img.ThumbnailKey != "" {
			if err := s.objects.Remove(ctx, img.ThumbnailKey); err != nil {
				log.Error().Err(err).
					Str("objectKey", img.ThumbnailKey).
					Msg("Failed to remove thumbnail object")
			}
		}
		if err := s.store.DeleteImageAsset(ctx, img.ID); err != nil {
			log.Error().Err(err).
				Str("image", img.ID.String()).
				Msg("Failed to delete image record")
			continue
		}
		removed++
	}

	log.Info().
		Str("business", event.BusinessID).
		Int("images", removed).
		Msg("Offboarded business images removed")
}
