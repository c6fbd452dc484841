// Package conversation implements two-party messaging about listings and roommate requests:
// starting (or finding) a conversation, listing a user's conversations, paging through
// messages, sending, and read tracking.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"flatshare/backend/internal/config"
	"flatshare/backend/internal/models"
	"flatshare/backend/internal/storage"

	"github.com/rs/zerolog/log"
)

// MessageQuery selects a page of messages. Before is an exclusive upper bound on CreatedAt.
type MessageQuery struct {
	Before *time.Time
	Limit  int
}

// Service orchestrates the resolver, the stores and view assembly.
type Service struct {
	Storage  storage.Storage
	Resolver *Resolver
	Enricher *Enricher
	Now      func() time.Time
}

// NewService wires a Service over a single storage backend.
func NewService(s storage.Storage) *Service {
	return &Service{
		Storage:  s,
		Resolver: NewResolver(s),
		Enricher: NewEnricher(s),
		Now:      time.Now,
	}
}

// StartConversation returns the conversation for the resolved participant pair and context,
// creating it on first use. Repeated and concurrent calls yield the same conversation.
func (s *Service) StartConversation(ctx context.Context, requesterID string, req StartRequest) (*View, error) {
	res, err := s.Resolver.Resolve(ctx, requesterID, req)
	if err != nil {
		return nil, err
	}

	conv, err := s.findOrCreate(ctx, res)
	if err != nil {
		return nil, err
	}

	view, err := s.Enricher.Conversation(ctx, conv)
	if err != nil {
		return nil, unexpected("Unable to start conversation", err)
	}
	return view, nil
}

// findOrCreate closes the check-then-act race with the store's unique key: a creator that
// loses the race gets ErrConflict and re-reads the winner's row.
func (s *Service) findOrCreate(ctx context.Context, res *Resolution) (*models.Conversation, error) {
	participants := []string{res.RequesterID, res.CounterpartyID}

	for attempt := 1; attempt <= config.StartConversationAttempts; attempt++ {
		existing, err := s.Storage.FindConversation(ctx, participants, res.Context)
		if err != nil {
			return nil, unexpected("Unable to start conversation", err)
		}
		if existing != nil {
			return existing, nil
		}

		conv, err := models.NewConversation(res.RequesterID, res.CounterpartyID, res.Context, s.Now())
		if err != nil {
			return nil, invalidRequest(err.Error())
		}

		err = s.Storage.CreateConversation(ctx, conv)
		switch {
		case err == nil:
			log.Info().
				Str("conversation_id", conv.ID).
				Str("context", conv.ContextKey).
				Msg("Conversation created")
			return conv, nil
		case errors.Is(err, storage.ErrConflict):
			log.Debug().
				Str("context", res.Context.Key()).
				Int("attempt", attempt).
				Msg("Lost conversation creation race, re-reading")
		case errors.Is(err, storage.ErrInvalidContext):
			return nil, invalidRequest(err.Error())
		default:
			return nil, unexpected("Unable to start conversation", err)
		}
	}

	return nil, unexpected("Unable to start conversation", storage.ErrConflict)
}

// GetConversations lists every conversation userID takes part in, most recently active first.
func (s *Service) GetConversations(ctx context.Context, userID string) ([]View, error) {
	convs, err := s.Storage.ListConversationsForUser(ctx, userID)
	if err != nil {
		return nil, unexpected("Unable to load conversations", err)
	}

	views, err := s.Enricher.Conversations(ctx, convs)
	if err != nil {
		return nil, unexpected("Unable to load conversations", err)
	}
	return views, nil
}

// GetMessages returns one page of messages in ascending chronological order.
// A limit above config.MaxMessageLimit is clamped rather than rejected.
//
// Fetching any page, not only the newest, marks the whole conversation as read by userID.
func (s *Service) GetMessages(ctx context.Context, conversationID, userID string, q MessageQuery) ([]MessageView, error) {
	conv, err := s.authorize(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}

	limit, err := normalizeLimit(q.Limit)
	if err != nil {
		return nil, err
	}

	msgs, err := s.Storage.ListMessages(ctx, conv.ID, q.Before, limit)
	if err != nil {
		return nil, unexpected("Unable to load messages", err)
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	if err := s.markRead(ctx, conv.ID, userID); err != nil {
		return nil, unexpected("Unable to load messages", err)
	}

	views, err := s.Enricher.Messages(ctx, msgs)
	if err != nil {
		return nil, unexpected("Unable to load messages", err)
	}
	return views, nil
}

// SendMessage appends a message and marks the conversation unread for everyone but the sender.
func (s *Service) SendMessage(ctx context.Context, conversationID, senderID, body string) (*MessageView, *View, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, nil, invalidRequest("Message body is required.")
	}
	if utf8.RuneCountInString(body) > config.MaxMessageLength {
		return nil, nil, invalidRequest(fmt.Sprintf("Message body must be at most %d characters.", config.MaxMessageLength))
	}

	conv, err := s.authorize(ctx, conversationID, senderID)
	if err != nil {
		return nil, nil, err
	}

	msg := models.NewMessage(conv.ID, senderID, body, s.Now())
	// Replacement, not union: unread is exactly "everyone but the sender".
	updated, err := s.Storage.AppendMessage(ctx, msg, conv.OtherParticipants(senderID))
	if err != nil {
		return nil, nil, unexpected("Unable to send message", err)
	}

	msgViews, err := s.Enricher.Messages(ctx, []models.Message{*msg})
	if err != nil {
		return nil, nil, unexpected("Unable to send message", err)
	}
	convView, err := s.Enricher.Conversation(ctx, updated)
	if err != nil {
		return nil, nil, unexpected("Unable to send message", err)
	}

	log.Debug().
		Str("conversation_id", conv.ID).
		Str("message_id", msg.ID).
		Msg("Message sent")
	return &msgViews[0], convView, nil
}

// MarkRead marks every message in the conversation as read by userID and clears its unread flag.
// Repeating the call is harmless.
func (s *Service) MarkRead(ctx context.Context, conversationID, userID string) error {
	conv, err := s.authorize(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	if err := s.markRead(ctx, conv.ID, userID); err != nil {
		return unexpected("Unable to mark conversation as read", err)
	}
	return nil
}

// markRead runs the two read side effects. They are not atomic: if the second fails the
// message-level state is already right and the next read repeats both idempotently.
func (s *Service) markRead(ctx context.Context, conversationID, userID string) error {
	if _, err := s.Storage.MarkMessagesRead(ctx, conversationID, userID); err != nil {
		return err
	}
	if err := s.Storage.RemoveUnread(ctx, conversationID, userID); err != nil {
		log.Warn().Err(err).
			Str("conversation_id", conversationID).
			Str("user_id", userID).
			Msg("Messages marked read but unread flag not cleared")
		return err
	}
	return nil
}

// ReconcileUnread recomputes the unread set from the messages' read receipts and stores it.
func (s *Service) ReconcileUnread(ctx context.Context, conversationID string) ([]string, error) {
	conv, err := s.Storage.GetConversationByID(ctx, conversationID)
	if err != nil {
		return nil, unexpected("Unable to load conversation", err)
	}
	if conv == nil {
		return nil, errConversationNotFound()
	}

	unread := []string{}
	for _, p := range conv.Participants {
		has, err := s.Storage.HasUnreadMessages(ctx, conv.ID, p)
		if err != nil {
			return nil, unexpected("Unable to reconcile unread state", err)
		}
		if has {
			unread = append(unread, p)
		}
	}

	if err := s.Storage.SetUnread(ctx, conv.ID, unread); err != nil {
		return nil, unexpected("Unable to reconcile unread state", err)
	}
	return unread, nil
}

// Inspection is the raw state of a conversation, for operators.
type Inspection struct {
	Conversation *models.Conversation
	MessageCount int64
}

// Inspect returns the stored conversation row and its message count.
func (s *Service) Inspect(ctx context.Context, conversationID string) (*Inspection, error) {
	conv, err := s.Storage.GetConversationByID(ctx, conversationID)
	if err != nil {
		return nil, unexpected("Unable to load conversation", err)
	}
	if conv == nil {
		return nil, errConversationNotFound()
	}

	n, err := s.Storage.CountMessages(ctx, conv.ID)
	if err != nil {
		return nil, unexpected("Unable to count messages", err)
	}
	return &Inspection{Conversation: conv, MessageCount: n}, nil
}

// authorize folds "not a participant" into "not found".
func (s *Service) authorize(ctx context.Context, conversationID, userID string) (*models.Conversation, error) {
	conv, err := s.Storage.GetConversationByID(ctx, conversationID)
	if err != nil {
		return nil, unexpected("Unable to load conversation", err)
	}
	if conv == nil || !conv.HasParticipant(userID) {
		return nil, errConversationNotFound()
	}
	return conv, nil
}

// normalizeLimit applies the default page size and clamps oversized limits to config.MaxMessageLimit.
func normalizeLimit(limit int) (int, error) {
	switch {
	case limit == 0:
		return config.DefaultMessageLimit, nil
	case limit < 0:
		return 0, invalidRequest("limit must be a positive number.")
	case limit > config.MaxMessageLimit:
		return config.MaxMessageLimit, nil
	default:
		return limit, nil
	}
}
