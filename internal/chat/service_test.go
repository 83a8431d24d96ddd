package chat

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mseller-cloud/mseller-server/internal/apperror"
	"github.com/mseller-cloud/mseller-server/internal/models"
	"github.com/mseller-cloud/mseller-server/internal/storage"
)

type entryKey struct {
	user, counterpart uuid.UUID
}

// fakeStore keeps conversation state in memory. Methods outside the
// chat surface panic via the embedded nil interface.
type fakeStore struct {
	storage.Store

	users         map[uuid.UUID]*models.User
	conversations map[uuid.UUID]*models.Conversation
	entries       map[entryKey]*models.ConversationEntry
	messages      []*models.Message

	commits   int
	rollbacks int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:         make(map[uuid.UUID]*models.User),
		conversations: make(map[uuid.UUID]*models.Conversation),
		entries:       make(map[entryKey]*models.ConversationEntry),
	}
}

func (f *fakeStore) BeginTx(ctx context.Context) (storage.Store, error) { return f, nil }
func (f *fakeStore) Commit() error                                      { f.commits++; return nil }
func (f *fakeStore) Rollback() error                                    { f.rollbacks++; return nil }

func (f *fakeStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	if conv.ID == uuid.Nil {
		conv.ID = uuid.New()
	}
	f.conversations[conv.ID] = conv
	return nil
}

func (f *fakeStore) GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	c, ok := f.conversations[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) FindConversation(ctx context.Context, businessID, a, b uuid.UUID) (*models.Conversation, error) {
	for _, c := range f.conversations {
		if c.BusinessID == businessID && c.HasMember(a) && c.HasMember(b) {
			return c, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeStore) UpdateConversation(ctx context.Context, conv *models.Conversation) error {
	if _, ok := f.conversations[conv.ID]; !ok {
		return storage.ErrNotFound
	}
	f.conversations[conv.ID] = conv
	return nil
}

func (f *fakeStore) UpsertConversationEntry(ctx context.Context, e *models.ConversationEntry) error {
	key := entryKey{e.UserID, e.CounterpartID}
	if existing, ok := f.entries[key]; ok {
		existing.LastMessage = e.LastMessage
		existing.LastMessageAt = e.LastMessageAt
		existing.DisplayName = e.DisplayName
		return nil
	}
	copied := *e
	f.entries[key] = &copied
	return nil
}

func (f *fakeStore) GetConversationEntry(ctx context.Context, userID, counterpartID uuid.UUID) (*models.ConversationEntry, error) {
	e, ok := f.entries[entryKey{userID, counterpartID}]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return e, nil
}

func (f *fakeStore) ListConversationEntries(ctx context.Context, userID uuid.UUID) ([]*models.ConversationEntry, error) {
	var out []*models.ConversationEntry
	for key, e := range f.entries {
		if key.user == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) IncrementUnseen(ctx context.Context, userID, counterpartID uuid.UUID, lastMessage string) error {
	e, ok := f.entries[entryKey{userID, counterpartID}]
	if !ok {
		return storage.ErrNotFound
	}
	e.UnseenCount++
	e.LastMessage = lastMessage
	return nil
}

func (f *fakeStore) ResetUnseen(ctx context.Context, userID, counterpartID uuid.UUID) error {
	e, ok := f.entries[entryKey{userID, counterpartID}]
	if !ok {
		return storage.ErrNotFound
	}
	e.UnseenCount = 0
	return nil
}

func (f *fakeStore) SumUnseen(ctx context.Context, userID uuid.UUID) (int, error) {
	total := 0
	for key, e := range f.entries {
		if key.user == userID {
			total += e.UnseenCount
		}
	}
	return total, nil
}

func (f *fakeStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeStore) ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*models.Message, int64, error) {
	var out []*models.Message
	for _, m := range f.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeStore) UpdateMessageStatus(ctx context.Context, id uuid.UUID, status models.MessageStatus) error {
	for _, m := range f.messages {
		if m.ID == id {
			m.Status = status
			if status == models.MessageRead {
				now := time.Now()
				m.ReadDate = &now
			} else {
				m.ReadDate = nil
			}
			return nil
		}
	}
	return storage.ErrNotFound
}

type fakeNotifier struct {
	sent []*models.Notification
	err  error
}

func (f *fakeNotifier) Notify(ctx context.Context, n *models.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, n)
	return nil
}

func seedUsers(store *fakeStore, businessID uuid.UUID, n int) []*models.User {
	users := make([]*models.User, n)
	for i := range users {
		u := &models.User{
			BusinessID: businessID,
			FirstName:  fmt.Sprintf("User%d", i),
			LastName:   "Test",
			Email:      fmt.Sprintf("user%d@example.com", i),
			Role:       models.RoleSeller,
		}
		u.ID = uuid.New()
		store.users[u.ID] = u
		users[i] = u
	}
	return users
}

func TestEnsureConversationIdempotent(t *testing.T) {
	store := newFakeStore()
	businessID := uuid.New()
	users := seedUsers(store, businessID, 2)
	svc := NewService(store, &fakeNotifier{})
	ctx := context.Background()

	first, err := svc.EnsureConversation(ctx, businessID, users[0].ID, users[1].ID)
	require.NoError(t, err)

	// Same pair in reverse order resolves to the same conversation
	second, err := svc.EnsureConversation(ctx, businessID, users[1].ID, users[0].ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, store.conversations, 1)

	// Both members got an index entry
	assert.Len(t, store.entries, 2)
}

func TestEnsureConversationWithSelf(t *testing.T) {
	store := newFakeStore()
	businessID := uuid.New()
	users := seedUsers(store, businessID, 1)
	svc := NewService(store, &fakeNotifier{})

	_, err := svc.EnsureConversation(context.Background(), businessID, users[0].ID, users[0].ID)
	assert.True(t, apperror.Is(err, apperror.InvalidArgument))
}

func TestEnsureConversationCrossBusiness(t *testing.T) {
	store := newFakeStore()
	businessID := uuid.New()
	users := seedUsers(store, businessID, 1)
	outsiders := seedUsers(store, uuid.New(), 1)
	svc := NewService(store, &fakeNotifier{})

	_, err := svc.EnsureConversation(context.Background(), businessID, users[0].ID, outsiders[0].ID)
	assert.True(t, apperror.Is(err, apperror.PermissionDenied))
}

func TestListConversationsEmpty(t *testing.T) {
	store := newFakeStore()
	users := seedUsers(store, uuid.New(), 1)
	svc := NewService(store, &fakeNotifier{})

	_, err := svc.ListConversations(context.Background(), users[0].ID)
	assert.True(t, apperror.Is(err, apperror.InvalidArgument))
}

func TestSendMessageBumpsRecipientOnly(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	businessID := uuid.New()
	users := seedUsers(store, businessID, 2)
	svc := NewService(store, notifier)
	ctx := context.Background()

	conv, err := svc.EnsureConversation(ctx, businessID, users[0].ID, users[1].ID)
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, users[0].ID, conv.ID, "hola", "")
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, users[0].ID, conv.ID, "sigues ahi?", "")
	require.NoError(t, err)

	recipient := store.entries[entryKey{users[1].ID, users[0].ID}]
	sender := store.entries[entryKey{users[0].ID, users[1].ID}]
	assert.Equal(t, 2, recipient.UnseenCount)
	assert.Equal(t, 0, sender.UnseenCount)
	assert.Equal(t, "sigues ahi?", recipient.LastMessage)
	assert.Equal(t, "sigues ahi?", sender.LastMessage)

	// Conversation summary follows the latest message
	assert.Equal(t, "sigues ahi?", store.conversations[conv.ID].LastMessage)
	assert.Equal(t, users[0].ID, store.conversations[conv.ID].LastSenderID)
}

func TestSendMessagePushCarriesBadge(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	businessID := uuid.New()
	users := seedUsers(store, businessID, 3)
	svc := NewService(store, notifier)
	ctx := context.Background()

	convA, err := svc.EnsureConversation(ctx, businessID, users[0].ID, users[2].ID)
	require.NoError(t, err)
	convB, err := svc.EnsureConversation(ctx, businessID, users[1].ID, users[2].ID)
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, users[0].ID, convA.ID, "uno", "")
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, users[1].ID, convB.ID, "dos", "")
	require.NoError(t, err)

	require.Len(t, notifier.sent, 2)
	// The badge totals unseen across conversations, so the second
	// push sees both pending messages
	assert.Equal(t, 1, notifier.sent[0].Badge)
	assert.Equal(t, 2, notifier.sent[1].Badge)
	assert.Equal(t, users[2].ID, notifier.sent[1].Recipient.ID)
	assert.Equal(t, "chat.message", notifier.sent[1].Kind)
}

func TestSendMessageStampsSenderAndAttachment(t *testing.T) {
	store := newFakeStore()
	businessID := uuid.New()
	users := seedUsers(store, businessID, 2)
	svc := NewService(store, &fakeNotifier{})
	ctx := context.Background()

	conv, err := svc.EnsureConversation(ctx, businessID, users[0].ID, users[1].ID)
	require.NoError(t, err)

	msg, err := svc.SendMessage(ctx, users[0].ID, conv.ID, "mira esto", "https://cdn.example.com/photo.jpg")
	require.NoError(t, err)

	assert.Equal(t, users[0].DisplayName(), msg.SenderName)
	assert.Equal(t, "https://cdn.example.com/photo.jpg", msg.URL)
	assert.Nil(t, msg.ReadDate)
	require.Len(t, store.messages, 1)
	assert.Equal(t, users[0].DisplayName(), store.messages[0].SenderName)
}

func TestSendMessageRequiresMembership(t *testing.T) {
	store := newFakeStore()
	businessID := uuid.New()
	users := seedUsers(store, businessID, 3)
	svc := NewService(store, &fakeNotifier{})
	ctx := context.Background()

	conv, err := svc.EnsureConversation(ctx, businessID, users[0].ID, users[1].ID)
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, users[2].ID, conv.ID, "intruso", "")
	assert.True(t, apperror.Is(err, apperror.PermissionDenied))
	assert.Empty(t, store.messages)
}

func TestSendMessageSurvivesPushFailure(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{err: fmt.Errorf("nats down")}
	businessID := uuid.New()
	users := seedUsers(store, businessID, 2)
	svc := NewService(store, notifier)
	ctx := context.Background()

	conv, err := svc.EnsureConversation(ctx, businessID, users[0].ID, users[1].ID)
	require.NoError(t, err)

	msg, err := svc.SendMessage(ctx, users[0].ID, conv.ID, "hola", "")
	require.NoError(t, err)
	assert.NotNil(t, msg)
	assert.Len(t, store.messages, 1)
}

func TestResetUnseen(t *testing.T) {
	store := newFakeStore()
	businessID := uuid.New()
	users := seedUsers(store, businessID, 2)
	svc := NewService(store, &fakeNotifier{})
	ctx := context.Background()

	conv, err := svc.EnsureConversation(ctx, businessID, users[0].ID, users[1].ID)
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, users[0].ID, conv.ID, "hola", "")
	require.NoError(t, err)

	badge, err := svc.Badge(ctx, users[1].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, badge)

	require.NoError(t, svc.ResetUnseen(ctx, users[1].ID, users[0].ID))

	badge, err = svc.Badge(ctx, users[1].ID)
	require.NoError(t, err)
	assert.Equal(t, 0, badge)

	err = svc.ResetUnseen(ctx, users[1].ID, uuid.New())
	assert.True(t, apperror.Is(err, apperror.NotFound))
}

func TestSetMessageStatus(t *testing.T) {
	store := newFakeStore()
	businessID := uuid.New()
	users := seedUsers(store, businessID, 2)
	svc := NewService(store, &fakeNotifier{})
	ctx := context.Background()

	conv, err := svc.EnsureConversation(ctx, businessID, users[0].ID, users[1].ID)
	require.NoError(t, err)
	msg, err := svc.SendMessage(ctx, users[0].ID, conv.ID, "hola", "")
	require.NoError(t, err)

	require.NoError(t, svc.SetMessageStatus(ctx, users[1].ID, conv.ID, msg.ID, models.MessageRead))
	assert.Equal(t, models.MessageRead, store.messages[0].Status)
	assert.NotNil(t, store.messages[0].ReadDate)

	// Reverting to sent clears the read stamp
	require.NoError(t, svc.SetMessageStatus(ctx, users[1].ID, conv.ID, msg.ID, models.MessageSent))
	assert.Nil(t, store.messages[0].ReadDate)

	err = svc.SetMessageStatus(ctx, users[1].ID, conv.ID, msg.ID, models.MessageStatus("archived"))
	assert.True(t, apperror.Is(err, apperror.InvalidArgument))
}
