package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/mseller-cloud/mseller-server/internal/models"
)

// CreateConversation creates a two-member conversation
func (s *PostgresStore) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	if conv.ID == uuid.Nil {
		conv.ID = uuid.New()
	}
	if len(conv.MemberIDs) != 2 {
		return ErrInvalidData
	}

	now := time.Now()
	conv.CreatedAt = now
	conv.UpdatedAt = now

	query := `
		INSERT INTO conversations (
			id, created_at, updated_at, business_id, member_a, member_b,
			last_message, last_sender_id, last_message_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.getDB().ExecContext(ctx, query,
		conv.ID, conv.CreatedAt, conv.UpdatedAt, conv.BusinessID,
		conv.MemberIDs[0], conv.MemberIDs[1], conv.LastMessage,
		conv.LastSenderID, conv.LastMessageAt,
	)
	return err
}

func scanConversation(row interface{ Scan(...interface{}) error }) (*models.Conversation, error) {
	c := &models.Conversation{}
	var memberA, memberB uuid.UUID
	var lastSender sql.NullString
	err := row.Scan(
		&c.ID, &c.CreatedAt, &c.UpdatedAt, &c.BusinessID, &memberA, &memberB,
		&c.LastMessage, &lastSender, &c.LastMessageAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.MemberIDs = []uuid.UUID{memberA, memberB}
	if lastSender.Valid {
		c.LastSenderID, _ = uuid.Parse(lastSender.String)
	}
	return c, nil
}

const conversationColumns = `
	id, created_at, updated_at, business_id, member_a, member_b,
	last_message, last_sender_id, last_message_at`

// GetConversation gets a conversation by ID
func (s *PostgresStore) GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1`
	return scanConversation(s.getDB().QueryRowContext(ctx, query, id))
}

// FindConversation finds the conversation between two users regardless
// of member order
func (s *PostgresStore) FindConversation(ctx context.Context, businessID, memberA, memberB uuid.UUID) (*models.Conversation, error) {
	query := `SELECT ` + conversationColumns + `
		FROM conversations
		WHERE business_id = $1
		  AND ((member_a = $2 AND member_b = $3) OR (member_a = $3 AND member_b = $2))`
	return scanConversation(s.getDB().QueryRowContext(ctx, query, businessID, memberA, memberB))
}

// UpdateConversation updates the last-message summary of a conversation
func (s *PostgresStore) UpdateConversation(ctx context.Context, conv *models.Conversation) error {
	conv.UpdatedAt = time.Now()

	query := `
		UPDATE conversations SET
			updated_at = $2, last_message = $3, last_sender_id = $4,
			last_message_at = $5
		WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		conv.ID, conv.UpdatedAt, conv.LastMessage, conv.LastSenderID,
		conv.LastMessageAt,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// UpsertConversationEntry writes one user's index record for a
// conversation, keyed by counterpart
func (s *PostgresStore) UpsertConversationEntry(ctx context.Context, entry *models.ConversationEntry) error {
	query := `
		INSERT INTO conversation_entries (
			user_id, counterpart_id, conversation_id, display_name,
			photo_url, unseen_count, last_message, last_message_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, counterpart_id) DO UPDATE SET
			conversation_id = EXCLUDED.conversation_id,
			display_name = EXCLUDED.display_name,
			photo_url = EXCLUDED.photo_url,
			last_message = EXCLUDED.last_message,
			last_message_at = EXCLUDED.last_message_at`

	_, err := s.getDB().ExecContext(ctx, query,
		entry.UserID, entry.CounterpartID, entry.ConversationID,
		entry.DisplayName, entry.PhotoURL, entry.UnseenCount,
		entry.LastMessage, entry.LastMessageAt,
	)
	return err
}

// GetConversationEntry gets one index record
func (s *PostgresStore) GetConversationEntry(ctx context.Context, userID, counterpartID uuid.UUID) (*models.ConversationEntry, error) {
	query := `
		SELECT user_id, counterpart_id, conversation_id, display_name,
		       photo_url, unseen_count, last_message, last_message_at
		FROM conversation_entries
		WHERE user_id = $1 AND counterpart_id = $2`

	e := &models.ConversationEntry{}
	err := s.getDB().QueryRowContext(ctx, query, userID, counterpartID).Scan(
		&e.UserID, &e.CounterpartID, &e.ConversationID, &e.DisplayName,
		&e.PhotoURL, &e.UnseenCount, &e.LastMessage, &e.LastMessageAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return e, err
}

// ListConversationEntries lists a user's conversation index ordered by
// recency
func (s *PostgresStore) ListConversationEntries(ctx context.Context, userID uuid.UUID) ([]*models.ConversationEntry, error) {
	query := `
		SELECT user_id, counterpart_id, conversation_id, display_name,
		       photo_url, unseen_count, last_message, last_message_at
		FROM conversation_entries
		WHERE user_id = $1
		ORDER BY last_message_at DESC NULLS LAST`

	rows, err := s.getDB().QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.ConversationEntry
	for rows.Next() {
		e := &models.ConversationEntry{}
		if err := rows.Scan(
			&e.UserID, &e.CounterpartID, &e.ConversationID, &e.DisplayName,
			&e.PhotoURL, &e.UnseenCount, &e.LastMessage, &e.LastMessageAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// IncrementUnseen bumps the unseen counter and last-message summary of
// one index record
func (s *PostgresStore) IncrementUnseen(ctx context.Context, userID, counterpartID uuid.UUID, lastMessage string) error {
	query := `
		UPDATE conversation_entries SET
			unseen_count = unseen_count + 1,
			last_message = $3,
			last_message_at = $4
		WHERE user_id = $1 AND counterpart_id = $2`

	result, err := s.getDB().ExecContext(ctx, query, userID, counterpartID, lastMessage, time.Now())
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// ResetUnseen zeroes the unseen counter of one index record
func (s *PostgresStore) ResetUnseen(ctx context.Context, userID, counterpartID uuid.UUID) error {
	result, err := s.getDB().ExecContext(ctx, `
		UPDATE conversation_entries SET unseen_count = 0
		WHERE user_id = $1 AND counterpart_id = $2`,
		userID, counterpartID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// SumUnseen returns the total unseen messages across a user's index
func (s *PostgresStore) SumUnseen(ctx context.Context, userID uuid.UUID) (int, error) {
	var total int
	err := s.getDB().QueryRowContext(ctx, `
		SELECT COALESCE(SUM(unseen_count), 0)
		FROM conversation_entries
		WHERE user_id = $1`,
		userID).Scan(&total)
	return total, err
}

// CreateMessage appends a message to a conversation
func (s *PostgresStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	if msg.Status == "" {
		msg.Status = models.MessageSent
	}

	query := `
		INSERT INTO messages (id, conversation_id, sender_id, sender_name, body, url, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.getDB().ExecContext(ctx, query,
		msg.ID, msg.ConversationID, msg.SenderID, msg.SenderName, msg.Body, msg.URL, msg.Status, msg.CreatedAt)
	return err
}

// ListMessages lists messages of a conversation, newest first
func (s *PostgresStore) ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*models.Message, int64, error) {
	var total int64
	if err := s.getDB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE conversation_id = $1`,
		conversationID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, conversation_id, sender_id, sender_name, body, url, status, read_date, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := s.getDB().QueryContext(ctx, query, conversationID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		m := &models.Message{}
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.SenderName, &m.Body, &m.URL, &m.Status, &m.ReadDate, &m.CreatedAt); err != nil {
			return nil, 0, err
		}
		messages = append(messages, m)
	}

	return messages, total, rows.Err()
}

// UpdateMessageStatus sets the delivery status of a message. Marking a
// message read stamps its read date; any other status clears it.
func (s *PostgresStore) UpdateMessageStatus(ctx context.Context, id uuid.UUID, status models.MessageStatus) error {
	result, err := s.getDB().ExecContext(ctx,
		`UPDATE messages
		 SET status = $2,
		     read_date = CASE WHEN $2 = 'read' THEN NOW() ELSE NULL END
		 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrNotFound
	}

	return nil
}
