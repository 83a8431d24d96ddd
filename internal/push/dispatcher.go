// Package push dispatches notifications to user devices over NATS
// subjects. Delivery workers subscribed to the subjects forward the
// payloads to the platform push gateways.
package push

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mseller-cloud/mseller-server/internal/models"
	"github.com/mseller-cloud/mseller-server/internal/storage"
)

// Publisher publishes a payload to a subject
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Dispatcher fans notifications out to per-user and per-business
// subjects and records them
type Dispatcher struct {
	pub   Publisher
	store storage.Store
}

// NewDispatcher creates a dispatcher
func NewDispatcher(pub Publisher, store storage.Store) *Dispatcher {
	return &Dispatcher{pub: pub, store: store}
}

// UserSubject is the per-user delivery subject
func UserSubject(userID uuid.UUID) string {
	return fmt.Sprintf("push.user.%s", userID)
}

// BusinessSubject is the per-business broadcast subject
func BusinessSubject(businessID uuid.UUID) string {
	return fmt.Sprintf("push.business.%s", businessID)
}

// envelope is what delivery workers receive on the subject
type envelope struct {
	Notification *models.Notification `json:"notification"`
	Tokens       []string             `json:"tokens,omitempty"`
}

// Notify dispatches a notification to one user. Users without a
// registered device are skipped, the notification is still recorded.
func (d *Dispatcher) Notify(ctx context.Context, n *models.Notification) error {
	if n.Recipient == nil {
		return fmt.Errorf("notification has no recipient")
	}

	if err := d.store.CreateNotification(ctx, n); err != nil {
		log.Error().Err(err).
			Str("recipient", n.Recipient.ID.String()).
			Msg("Failed to record notification")
	}

	devices, err := d.store.GetDeviceTokens(ctx, n.Recipient.ID)
	if err != nil {
		return fmt.Errorf("resolve device tokens: %w", err)
	}
	if len(devices) == 0 {
		log.Debug().
			Str("recipient", n.Recipient.ID.String()).
			Msg("No registered devices, skipping push")
		return nil
	}

	tokens := make([]string, 0, len(devices))
	for _, t := range devices {
		tokens = append(tokens, t.Token)
	}

	data, err := json.Marshal(envelope{Notification: n, Tokens: tokens})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	if err := d.pub.Publish(UserSubject(n.Recipient.ID), data); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}

	log.Debug().
		Str("recipient", n.Recipient.ID.String()).
		Str("kind", n.Kind).
		Int("devices", len(tokens)).
		Msg("Notification dispatched")
	return nil
}

// Broadcast dispatches a notification to every member of a business
func (d *Dispatcher) Broadcast(ctx context.Context, n *models.Notification) error {
	if err := d.store.CreateNotification(ctx, n); err != nil {
		log.Error().Err(err).
			Str("business", n.BusinessID.String()).
			Msg("Failed to record notification")
	}

	data, err := json.Marshal(envelope{Notification: n})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	if err := d.pub.Publish(BusinessSubject(n.BusinessID), data); err != nil {
		return fmt.Errorf("publish broadcast: %w", err)
	}

	log.Debug().
		Str("business", n.BusinessID.String()).
		Str("kind", n.Kind).
		Msg("Broadcast dispatched")
	return nil
}
