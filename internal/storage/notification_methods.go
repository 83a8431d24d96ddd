package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mseller-cloud/mseller-server/internal/models"
)

// CreateNotification records a dispatched notification
func (s *PostgresStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	var recipientID *uuid.UUID
	if n.Recipient != nil {
		recipientID = &n.Recipient.ID
	}

	query := `
		INSERT INTO notifications (
			id, business_id, sender_id, sender_name, recipient_id,
			title, body, badge, data, kind, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.getDB().ExecContext(ctx, query,
		n.ID, n.BusinessID, n.Sender.ID, n.Sender.Name, recipientID,
		n.Title, n.Body, n.Badge, n.Data, n.Kind, n.CreatedAt,
	)
	return err
}

// ListNotifications lists a business's notification history, newest first
func (s *PostgresStore) ListNotifications(ctx context.Context, businessID uuid.UUID, limit, offset int) ([]*models.Notification, int64, error) {
	var total int64
	if err := s.getDB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE business_id = $1`,
		businessID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, business_id, sender_id, sender_name, recipient_id,
		       title, body, badge, data, kind, created_at
		FROM notifications
		WHERE business_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := s.getDB().QueryContext(ctx, query, businessID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		n := &models.Notification{}
		var recipientID *uuid.UUID
		if err := rows.Scan(
			&n.ID, &n.BusinessID, &n.Sender.ID, &n.Sender.Name, &recipientID,
			&n.Title, &n.Body, &n.Badge, &n.Data, &n.Kind, &n.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		if recipientID != nil {
			n.Recipient = &models.Party{ID: *recipientID}
		}
		notifications = append(notifications, n)
	}

	return notifications, total, rows.Err()
}
