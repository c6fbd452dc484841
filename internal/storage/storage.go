package storage

import (
	"context"
	"errors"
	"time"

	"flatshare/backend/internal/config"
	"flatshare/backend/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var (
	// ErrConflict is returned when a conversation for the same participant pair and context already exists.
	ErrConflict = errors.New("conversation already exists for this participant pair and context")
	// ErrInvalidContext is returned when a conversation write does not reference exactly one context.
	ErrInvalidContext = errors.New("invalid conversation context")
)

// ConversationStore persists conversations. Lookups return (nil, nil) when nothing matches.
type ConversationStore interface {
	// CreateConversation inserts a new conversation. It returns ErrConflict when the
	// (participant pair, context) pair is taken and ErrInvalidContext when the context is not exclusive.
	CreateConversation(ctx context.Context, conv *models.Conversation) error
	// FindConversation returns the conversation whose participant set is exactly participants
	// and whose context equals cc.
	FindConversation(ctx context.Context, participants []string, cc models.ConversationContext) (*models.Conversation, error)
	GetConversationByID(ctx context.Context, id string) (*models.Conversation, error)
	// ListConversationsForUser returns the user's conversations, most recently active first.
	ListConversationsForUser(ctx context.Context, userID string) ([]models.Conversation, error)
	// RemoveUnread takes userID out of the conversation's unread set.
	RemoveUnread(ctx context.Context, conversationID, userID string) error
	// SetUnread replaces the conversation's unread set.
	SetUnread(ctx context.Context, conversationID string, userIDs []string) error
}

// MessageStore persists the per-conversation message log.
type MessageStore interface {
	// AppendMessage stores msg and, as one unit, points the conversation's last message at it,
	// bumps its activity time and replaces its unread set. It returns the updated conversation.
	AppendMessage(ctx context.Context, msg *models.Message, unreadFor []string) (*models.Conversation, error)
	// ListMessages returns up to limit messages created strictly before `before` (when set), newest first.
	ListMessages(ctx context.Context, conversationID string, before *time.Time, limit int) ([]models.Message, error)
	GetMessagesByIDs(ctx context.Context, ids []string) (map[string]models.Message, error)
	// MarkMessagesRead adds userID to ReadBy of every message in the conversation that lacks it.
	MarkMessagesRead(ctx context.Context, conversationID, userID string) (int64, error)
	HasUnreadMessages(ctx context.Context, conversationID, userID string) (bool, error)
	CountMessages(ctx context.Context, conversationID string) (int64, error)
}

// Directory reads the records owned by other subsystems: users, listings and roommate requests.
type Directory interface {
	GetUserSummaries(ctx context.Context, ids []string) (map[string]models.UserSummary, error)
	GetListing(ctx context.Context, id string) (*models.Listing, error)
	GetListings(ctx context.Context, ids []string) (map[string]models.Listing, error)
	GetRoommateRequest(ctx context.Context, id string) (*models.RoommateRequest, error)
	GetRoommateRequests(ctx context.Context, ids []string) (map[string]models.RoommateRequest, error)
}

// Storage is everything the conversation service needs from persistence.
type Storage interface {
	ConversationStore
	MessageStore
	Directory
}

// Service implements Storage on PostgreSQL (gorm) with Redis as a user-summary cache.
type Service struct {
	DB           *gorm.DB
	Redis        *redis.Client
	UserCacheTTL time.Duration
}

var _ Storage = (*Service)(nil)

// NewStorageService Constructor. rdb may be nil, in which case user summaries are not cached.
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:           db,
		Redis:        rdb,
		UserCacheTTL: config.DefaultUserCacheTTL,
	}
}

// isUUID filters out ids the uuid columns would reject with a syntax error.
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
