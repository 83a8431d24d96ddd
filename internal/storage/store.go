package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/mseller-cloud/mseller-server/internal/models"
)

// Common errors
var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrInvalidData  = errors.New("invalid data")
)

// Store defines the storage interface
type Store interface {
	// Transaction support
	BeginTx(ctx context.Context) (Store, error)
	Commit() error
	Rollback() error

	// Business methods
	CreateBusiness(ctx context.Context, business *models.Business) error
	GetBusiness(ctx context.Context, id uuid.UUID) (*models.Business, error)
	GetBusinessByRNC(ctx context.Context, rnc string) (*models.Business, error)
	UpdateBusiness(ctx context.Context, business *models.Business) error
	DeleteBusiness(ctx context.Context, id uuid.UUID) error
	ListBusinesses(ctx context.Context, limit, offset int) ([]*models.Business, int64, error)

	// User methods
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserBySellerCode(ctx context.Context, businessID uuid.UUID, sellerCode string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id uuid.UUID) error
	ListUsers(ctx context.Context, businessID *uuid.UUID, limit, offset int) ([]*models.User, int64, error)
	DeleteUsersByBusiness(ctx context.Context, businessID uuid.UUID) (int64, error)

	// Device token methods
	SaveDeviceToken(ctx context.Context, token *models.DeviceToken) error
	GetDeviceTokens(ctx context.Context, userID uuid.UUID) ([]*models.DeviceToken, error)
	DeleteDeviceToken(ctx context.Context, userID uuid.UUID, token string) error

	// Conversation methods
	CreateConversation(ctx context.Context, conv *models.Conversation) error
	GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	FindConversation(ctx context.Context, businessID, memberA, memberB uuid.UUID) (*models.Conversation, error)
	UpdateConversation(ctx context.Context, conv *models.Conversation) error
	UpsertConversationEntry(ctx context.Context, entry *models.ConversationEntry) error
	GetConversationEntry(ctx context.Context, userID, counterpartID uuid.UUID) (*models.ConversationEntry, error)
	ListConversationEntries(ctx context.Context, userID uuid.UUID) ([]*models.ConversationEntry, error)
	IncrementUnseen(ctx context.Context, userID, counterpartID uuid.UUID, lastMessage string) error
	ResetUnseen(ctx context.Context, userID, counterpartID uuid.UUID) error
	SumUnseen(ctx context.Context, userID uuid.UUID) (int, error)

	// Message methods
	CreateMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*models.Message, int64, error)
	UpdateMessageStatus(ctx context.Context, id uuid.UUID, status models.MessageStatus) error

	// Document methods
	CreateDocumentRecord(ctx context.Context, rec *models.DocumentRecord) error
	GetDocumentRecord(ctx context.Context, id uuid.UUID) (*models.DocumentRecord, error)
	ListDocumentRecords(ctx context.Context, businessID uuid.UUID, limit, offset int) ([]*models.DocumentRecord, int64, error)

	// Notification methods
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, businessID uuid.UUID, limit, offset int) ([]*models.Notification, int64, error)

	// Image asset methods
	CreateImageAsset(ctx context.Context, img *models.ImageAsset) error
	GetImageAsset(ctx context.Context, id uuid.UUID) (*models.ImageAsset, error)
	DeleteImageAsset(ctx context.Context, id uuid.UUID) error
	ListImageAssets(ctx context.Context, businessID uuid.UUID, ownerID *uuid.UUID) ([]*models.ImageAsset, error)
}
