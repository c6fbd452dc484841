package storage

import (
	"context"
	"errors"

	"flatshare/backend/internal/models"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// CreateConversation inserts conv. The unique index on (participant_key, context_key) turns a lost
// creation race into ErrConflict; the model hook and the CHECK constraint turn a bad context into ErrInvalidContext.
func (s *Service) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	err := s.DB.WithContext(ctx).Create(conv).Error
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrConflict
	case errors.Is(err, models.ErrMissingContext),
		errors.Is(err, models.ErrAmbiguousContext),
		errors.Is(err, models.ErrInvalidParticipants),
		errors.Is(err, gorm.ErrCheckConstraintViolated):
		return errors.Join(ErrInvalidContext, err)
	default:
		log.Error().Err(err).Msg("Failed to create conversation")
		return err
	}
}

// FindConversation looks the conversation up by its (participant pair, context) key.
func (s *Service) FindConversation(ctx context.Context, participants []string, cc models.ConversationContext) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.DB.WithContext(ctx).
		Where("participant_key = ? AND context_key = ?", models.ParticipantKey(participants...), cc.Key()).
		First(&conv).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// GetConversationByID returns (nil, nil) for unknown or malformed ids.
func (s *Service) GetConversationByID(ctx context.Context, id string) (*models.Conversation, error) {
	if !isUUID(id) {
		return nil, nil
	}

	var conv models.Conversation
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		log.Error().Err(err).Str("conversation_id", id).Msg("Failed to get conversation")
		return nil, err
	}
	return &conv, nil
}

// ListConversationsForUser uses the GIN index on participants.
func (s *Service) ListConversationsForUser(ctx context.Context, userID string) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := s.DB.WithContext(ctx).
		Where("participants @> ARRAY[?]::text[]", userID).
		Order("last_activity_at DESC").
		Order("id").
		Find(&convs).Error
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to list conversations")
		return nil, err
	}
	return convs, nil
}

func (s *Service) RemoveUnread(ctx context.Context, conversationID, userID string) error {
	return s.DB.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ?", conversationID).
		Update("unread_for", gorm.Expr("array_remove(unread_for, ?)", userID)).Error
}

func (s *Service) SetUnread(ctx context.Context, conversationID string, userIDs []string) error {
	if userIDs == nil {
		userIDs = []string{}
	}
	return s.DB.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ?", conversationID).
		Update("unread_for", pq.StringArray(userIDs)).Error
}
