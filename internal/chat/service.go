// Package chat implements direct conversations between users of a
// business, with per-user unseen counters and push delivery.
package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mseller-cloud/mseller-server/internal/apperror"
	"github.com/mseller-cloud/mseller-server/internal/models"
	"github.com/mseller-cloud/mseller-server/internal/storage"
)

// Notifier dispatches a push notification
type Notifier interface {
	Notify(ctx context.Context, n *models.Notification) error
}

// Service coordinates conversation state
type Service struct {
	store    storage.Store
	notifier Notifier
}

// NewService creates a chat service
func NewService(store storage.Store, notifier Notifier) *Service {
	return &Service{store: store, notifier: notifier}
}

// EnsureConversation returns the conversation between two users,
// creating it and both index entries when it does not exist yet.
// Repeated calls for the same pair return the same conversation.
func (s *Service) EnsureConversation(ctx context.Context, businessID, userID, counterpartID uuid.UUID) (*models.Conversation, error) {
	if userID == counterpartID {
		return nil, apperror.New(apperror.InvalidArgument, "cannot open a conversation with yourself")
	}

	conv, err := s.store.FindConversation(ctx, businessID, userID, counterpartID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("find conversation: %w", err)
	}

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, apperror.Wrap(apperror.NotFound, "user not found", err)
	}
	counterpart, err := s.store.GetUser(ctx, counterpartID)
	if err != nil {
		return nil, apperror.Wrap(apperror.NotFound, "counterpart not found", err)
	}
	if user.BusinessID != businessID || counterpart.BusinessID != businessID {
		return nil, apperror.New(apperror.PermissionDenied, "members belong to another business")
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	conv = &models.Conversation{
		BusinessID: businessID,
		MemberIDs:  []uuid.UUID{userID, counterpartID},
	}
	if err := tx.CreateConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	entries := []*models.ConversationEntry{
		{
			UserID:         userID,
			CounterpartID:  counterpartID,
			ConversationID: conv.ID,
			DisplayName:    counterpart.DisplayName(),
			PhotoURL:       counterpart.PhotoURL,
		},
		{
			UserID:         counterpartID,
			CounterpartID:  userID,
			ConversationID: conv.ID,
			DisplayName:    user.DisplayName(),
			PhotoURL:       user.PhotoURL,
		},
	}
	for _, entry := range entries {
		if err := tx.UpsertConversationEntry(ctx, entry); err != nil {
			return nil, fmt.Errorf("create conversation entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit conversation: %w", err)
	}

	return conv, nil
}

// ListConversations returns a user's conversation index, most recent
// first
func (s *Service) ListConversations(ctx context.Context, userID uuid.UUID) ([]*models.ConversationEntry, error) {
	entries, err := s.store.ListConversationEntries(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	if len(entries) == 0 {
		return nil, apperror.New(apperror.InvalidArgument, "user has no conversations")
	}
	return entries, nil
}

// Messages returns a page of a conversation's messages, newest first.
// The requester must be a member.
func (s *Service) Messages(ctx context.Context, userID, conversationID uuid.UUID, limit, offset int) ([]*models.Message, int64, error) {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, 0, apperror.New(apperror.NotFound, "conversation not found")
		}
		return nil, 0, fmt.Errorf("get conversation: %w", err)
	}
	if !conv.HasMember(userID) {
		return nil, 0, apperror.New(apperror.PermissionDenied, "not a conversation member")
	}

	return s.store.ListMessages(ctx, conversationID, limit, offset)
}

// SendMessage appends a message, bumps the counterpart's unseen
// counter and dispatches a push carrying the counterpart's new badge.
// The message, conversation summary and counter move in one
// transaction. An attachment url may accompany the body.
func (s *Service) SendMessage(ctx context.Context, senderID, conversationID uuid.UUID, body, url string) (*models.Message, error) {
	if body == "" {
		return nil, apperror.New(apperror.InvalidArgument, "message body is empty")
	}

	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperror.New(apperror.NotFound, "conversation not found")
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if !conv.HasMember(senderID) {
		return nil, apperror.New(apperror.PermissionDenied, "not a conversation member")
	}

	sender, err := s.store.GetUser(ctx, senderID)
	if err != nil {
		return nil, apperror.Wrap(apperror.NotFound, "sender not found", err)
	}

	recipientID, _ := conv.Counterpart(senderID)

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	msg := &models.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		SenderName:     sender.DisplayName(),
		Body:           body,
		URL:            url,
		Status:         models.MessageSent,
	}
	if err := tx.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	conv.LastMessage = body
	conv.LastSenderID = senderID
	conv.LastMessageAt = &msg.CreatedAt
	if err := tx.UpdateConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("update conversation: %w", err)
	}

	// The sender's own entry gets the summary without a counter bump
	if err := s.bumpEntry(ctx, tx, recipientID, senderID, conv.ID, body, true); err != nil {
		return nil, err
	}
	if err := s.bumpEntry(ctx, tx, senderID, recipientID, conv.ID, body, false); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit message: %w", err)
	}

	s.pushNewMessage(ctx, conv, sender, recipientID, body)

	return msg, nil
}

// bumpEntry refreshes one member's index record. The recipient's
// counter is incremented, the sender's is left untouched. A missing
// record is recreated so a deleted index heals on the next message.
func (s *Service) bumpEntry(ctx context.Context, tx storage.Store, userID, counterpartID, conversationID uuid.UUID, body string, unseen bool) error {
	if unseen {
		err := tx.IncrementUnseen(ctx, userID, counterpartID, body)
		if err == nil {
			return nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("increment unseen: %w", err)
		}
	}

	counterpart, err := s.store.GetUser(ctx, counterpartID)
	if err != nil {
		return fmt.Errorf("get counterpart: %w", err)
	}

	now := time.Now()
	entry := &models.ConversationEntry{
		UserID:         userID,
		CounterpartID:  counterpartID,
		ConversationID: conversationID,
		DisplayName:    counterpart.DisplayName(),
		PhotoURL:       counterpart.PhotoURL,
		LastMessage:    body,
		LastMessageAt:  &now,
	}
	if unseen {
		entry.UnseenCount = 1
	}
	if err := tx.UpsertConversationEntry(ctx, entry); err != nil {
		return fmt.Errorf("upsert conversation entry: %w", err)
	}
	return nil
}

// pushNewMessage dispatches the new-message notification. Push
// failures are logged, never surfaced: the message is already stored.
func (s *Service) pushNewMessage(ctx context.Context, conv *models.Conversation, sender *models.User, recipientID uuid.UUID, body string) {
	badge, err := s.store.SumUnseen(ctx, recipientID)
	if err != nil {
		log.Error().Err(err).Msg("Sum unseen for badge")
		badge = 0
	}

	n := &models.Notification{
		BusinessID: conv.BusinessID,
		Sender: models.Party{
			ID:       sender.ID,
			Name:     sender.DisplayName(),
			PhotoURL: sender.PhotoURL,
		},
		Recipient: &models.Party{ID: recipientID},
		Title:     sender.DisplayName(),
		Body:      body,
		Badge:     badge,
		Kind:      "chat.message",
		Data: models.Variables{
			"conversationId": conv.ID.String(),
		},
	}

	if err := s.notifier.Notify(ctx, n); err != nil {
		log.Error().Err(err).
			Str("recipient", recipientID.String()).
			Msg("Dispatch message push")
	}
}

// ResetUnseen zeroes the caller's unseen counter for one counterpart,
// typically when the conversation is opened
func (s *Service) ResetUnseen(ctx context.Context, userID, counterpartID uuid.UUID) error {
	err := s.store.ResetUnseen(ctx, userID, counterpartID)
	if errors.Is(err, storage.ErrNotFound) {
		return apperror.New(apperror.NotFound, "conversation entry not found")
	}
	return err
}

// Badge returns the total unseen messages across all of a user's
// conversations
func (s *Service) Badge(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.store.SumUnseen(ctx, userID)
}

// SetMessageStatus marks a message read. Only the recipient may do so.
func (s *Service) SetMessageStatus(ctx context.Context, userID, conversationID, messageID uuid.UUID, status models.MessageStatus) error {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperror.New(apperror.NotFound, "conversation not found")
		}
		return fmt.Errorf("get conversation: %w", err)
	}
	if !conv.HasMember(userID) {
		return apperror.New(apperror.PermissionDenied, "not a conversation member")
	}

	if status != models.MessageRead && status != models.MessageSent {
		return apperror.New(apperror.InvalidArgument, "unknown message status")
	}

	err = s.store.UpdateMessageStatus(ctx, messageID, status)
	if errors.Is(err, storage.ErrNotFound) {
		return apperror.New(apperror.NotFound, "message not found")
	}
	return err
}
