package storage

import (
	"context"
	"errors"
	"time"

	"flatshare/backend/internal/models"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AppendMessage saves the message and the conversation metadata in one transaction.
// The conversation row is locked first so concurrent sends serialize; the last message
// only moves forward in (created_at, seq) order.
func (s *Service) AppendMessage(ctx context.Context, msg *models.Message, unreadFor []string) (*models.Conversation, error) {
	if unreadFor == nil {
		unreadFor = []string{}
	}

	var conv models.Conversation
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var locked models.Conversation
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", msg.ConversationID).
			First(&locked).Error; err != nil {
			return err
		}

		if err := tx.Create(msg).Error; err != nil {
			return err
		}

		newest, err := isNewestMessage(tx, &locked, msg)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{
			"unread_for": pq.StringArray(unreadFor),
		}
		if newest {
			updates["last_message_id"] = msg.ID
			updates["last_activity_at"] = msg.CreatedAt
		}
		if err := tx.Model(&models.Conversation{}).Where("id = ?", msg.ConversationID).Updates(updates).Error; err != nil {
			return err
		}

		return tx.Where("id = ?", msg.ConversationID).First(&conv).Error
	})
	if err != nil {
		log.Error().Err(err).Str("conversation_id", msg.ConversationID).Msg("Failed to append message")
		return nil, err
	}
	return &conv, nil
}

// isNewestMessage reports whether msg sorts after the conversation's current last message.
func isNewestMessage(tx *gorm.DB, conv *models.Conversation, msg *models.Message) (bool, error) {
	if conv.LastMessageID == nil {
		return true, nil
	}

	var last models.Message
	err := tx.Select("id", "created_at", "seq").Where("id = ?", *conv.LastMessageID).Take(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return models.MessageAfter(msg, &last), nil
}

// ListMessages pages backwards through a conversation, newest first.
// seq breaks ties between messages with the same created_at.
func (s *Service) ListMessages(ctx context.Context, conversationID string, before *time.Time, limit int) ([]models.Message, error) {
	q := s.DB.WithContext(ctx).Where("conversation_id = ?", conversationID)
	if before != nil {
		q = q.Where("created_at < ?", *before)
	}

	var msgs []models.Message
	if err := q.Order("created_at DESC").Order("seq DESC").Limit(limit).Find(&msgs).Error; err != nil {
		log.Error().Err(err).Str("conversation_id", conversationID).Msg("Failed to list messages")
		return nil, err
	}
	return msgs, nil
}

func (s *Service) GetMessagesByIDs(ctx context.Context, ids []string) (map[string]models.Message, error) {
	ids = validUUIDs(ids)
	out := make(map[string]models.Message, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var msgs []models.Message
	if err := s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&msgs).Error; err != nil {
		return nil, err
	}
	for _, m := range msgs {
		out[m.ID] = m
	}
	return out, nil
}

// MarkMessagesRead appends userID to read_by where it is missing. Safe to repeat.
func (s *Service) MarkMessagesRead(ctx context.Context, conversationID, userID string) (int64, error) {
	res := s.DB.WithContext(ctx).
		Model(&models.Message{}).
		Where("conversation_id = ? AND NOT (? = ANY(read_by))", conversationID, userID).
		Update("read_by", gorm.Expr("array_append(read_by, ?)", userID))
	if res.Error != nil {
		log.Error().Err(res.Error).Str("conversation_id", conversationID).Str("user_id", userID).Msg("Failed to mark messages read")
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (s *Service) HasUnreadMessages(ctx context.Context, conversationID, userID string) (bool, error) {
	var msg models.Message
	err := s.DB.WithContext(ctx).
		Select("id").
		Where("conversation_id = ? AND NOT (? = ANY(read_by))", conversationID, userID).
		Take(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) CountMessages(ctx context.Context, conversationID string) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&models.Message{}).Where("conversation_id = ?", conversationID).Count(&n).Error
	return n, err
}
