// Package memory is an in-process implementation of storage.Storage.
//
// It mirrors the PostgreSQL store's guarantees: a unique (participant pair, context) key,
// context exclusivity on write, and a monotonic sequence that orders messages with equal
// timestamps. It backs local runs (STORAGE_DRIVER=memory) and the service tests.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"flatshare/backend/internal/models"
	"flatshare/backend/internal/storage"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type pairContextKey struct {
	participants string
	context      string
}

// Store keeps everything in maps behind a single RWMutex.
type Store struct {
	mu sync.RWMutex

	conversations map[string]*models.Conversation
	byPairContext map[pairContextKey]string
	messages      map[string][]*models.Message // conversation id -> log in insertion order
	messageByID   map[string]*models.Message
	seq           int64

	users            map[string]models.User
	listings         map[string]models.Listing
	roommateRequests map[string]models.RoommateRequest
}

var _ storage.Storage = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		conversations:    make(map[string]*models.Conversation),
		byPairContext:    make(map[pairContextKey]string),
		messages:         make(map[string][]*models.Message),
		messageByID:      make(map[string]*models.Message),
		users:            make(map[string]models.User),
		listings:         make(map[string]models.Listing),
		roommateRequests: make(map[string]models.RoommateRequest),
	}
}

// PutUser adds or replaces a directory user.
func (s *Store) PutUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// PutListing adds or replaces a listing.
func (s *Store) PutListing(l models.Listing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings[l.ID] = l
}

// PutRoommateRequest adds or replaces a roommate request.
func (s *Store) PutRoommateRequest(r models.RoommateRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roommateRequests[r.ID] = r
}

func (s *Store) CreateConversation(_ context.Context, conv *models.Conversation) error {
	if err := conv.Validate(); err != nil {
		return errors.Join(storage.ErrInvalidContext, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairContextKey{participants: models.ParticipantKey(conv.Participants...), context: conv.Context().Key()}
	if _, taken := s.byPairContext[key]; taken {
		return storage.ErrConflict
	}

	if conv.ID == "" {
		conv.ID = uuid.New().String()
	}
	conv.ParticipantKey = key.participants
	conv.ContextKey = key.context
	if conv.UnreadFor == nil {
		conv.UnreadFor = pq.StringArray{}
	}
	now := time.Now()
	conv.CreatedAt, conv.UpdatedAt = now, now

	stored := cloneConversation(conv)
	s.conversations[conv.ID] = stored
	s.byPairContext[key] = conv.ID
	return nil
}

func (s *Store) FindConversation(_ context.Context, participants []string, cc models.ConversationContext) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byPairContext[pairContextKey{participants: models.ParticipantKey(participants...), context: cc.Key()}]
	if !ok {
		return nil, nil
	}
	return cloneConversation(s.conversations[id]), nil
}

func (s *Store) GetConversationByID(_ context.Context, id string) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, nil
	}
	return cloneConversation(conv), nil
}

func (s *Store) ListConversationsForUser(_ context.Context, userID string) ([]models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Conversation
	for _, conv := range s.conversations {
		if conv.HasParticipant(userID) {
			out = append(out, *cloneConversation(conv))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastActivityAt.Equal(out[j].LastActivityAt) {
			return out[i].LastActivityAt.After(out[j].LastActivityAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) RemoveUnread(_ context.Context, conversationID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return nil
	}
	kept := pq.StringArray{}
	for _, u := range conv.UnreadFor {
		if u != userID {
			kept = append(kept, u)
		}
	}
	conv.UnreadFor = kept
	conv.UpdatedAt = time.Now()
	return nil
}

func (s *Store) SetUnread(_ context.Context, conversationID string, userIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return nil
	}
	conv.UnreadFor = append(pq.StringArray{}, userIDs...)
	conv.UpdatedAt = time.Now()
	return nil
}

func (s *Store) AppendMessage(_ context.Context, msg *models.Message, unreadFor []string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[msg.ConversationID]
	if !ok {
		return nil, errors.New("conversation not found")
	}

	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	s.seq++
	msg.Seq = s.seq

	stored := cloneMessage(msg)
	s.messages[msg.ConversationID] = append(s.messages[msg.ConversationID], stored)
	s.messageByID[msg.ID] = stored

	if s.isNewest(conv, stored) {
		lastID := msg.ID
		conv.LastMessageID = &lastID
		conv.LastActivityAt = msg.CreatedAt
	}
	conv.UnreadFor = append(pq.StringArray{}, unreadFor...)
	conv.UpdatedAt = time.Now()

	return cloneConversation(conv), nil
}

// isNewest must be called with s.mu held.
func (s *Store) isNewest(conv *models.Conversation, msg *models.Message) bool {
	if conv.LastMessageID == nil {
		return true
	}
	last, ok := s.messageByID[*conv.LastMessageID]
	if !ok {
		return true
	}
	return models.MessageAfter(msg, last)
}

func (s *Store) ListMessages(_ context.Context, conversationID string, before *time.Time, limit int) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var page []models.Message
	entries := s.messages[conversationID]
	sorted := make([]*models.Message, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return models.MessageAfter(sorted[i], sorted[j])
	})

	for _, m := range sorted {
		if before != nil && !m.CreatedAt.Before(*before) {
			continue
		}
		page = append(page, *cloneMessage(m))
		if limit > 0 && len(page) == limit {
			break
		}
	}
	return page, nil
}

func (s *Store) GetMessagesByIDs(_ context.Context, ids []string) (map[string]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]models.Message, len(ids))
	for _, id := range ids {
		if m, ok := s.messageByID[id]; ok {
			out[id] = *cloneMessage(m)
		}
	}
	return out, nil
}

func (s *Store) MarkMessagesRead(_ context.Context, conversationID, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, m := range s.messages[conversationID] {
		if !m.IsReadBy(userID) {
			m.ReadBy = append(m.ReadBy, userID)
			n++
		}
	}
	return n, nil
}

func (s *Store) HasUnreadMessages(_ context.Context, conversationID, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.messages[conversationID] {
		if !m.IsReadBy(userID) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) CountMessages(_ context.Context, conversationID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.messages[conversationID])), nil
}

func (s *Store) GetUserSummaries(_ context.Context, ids []string) (map[string]models.UserSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]models.UserSummary, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out[id] = u.Summary()
		}
	}
	return out, nil
}

func (s *Store) GetListing(_ context.Context, id string) (*models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.listings[id]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (s *Store) GetListings(_ context.Context, ids []string) (map[string]models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]models.Listing, len(ids))
	for _, id := range ids {
		if l, ok := s.listings[id]; ok {
			out[id] = l
		}
	}
	return out, nil
}

func (s *Store) GetRoommateRequest(_ context.Context, id string) (*models.RoommateRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.roommateRequests[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *Store) GetRoommateRequests(_ context.Context, ids []string) (map[string]models.RoommateRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]models.RoommateRequest, len(ids))
	for _, id := range ids {
		if r, ok := s.roommateRequests[id]; ok {
			out[id] = r
		}
	}
	return out, nil
}

func cloneConversation(c *models.Conversation) *models.Conversation {
	cp := *c
	cp.Participants = append(pq.StringArray{}, c.Participants...)
	cp.UnreadFor = append(pq.StringArray{}, c.UnreadFor...)
	if c.ListingID != nil {
		v := *c.ListingID
		cp.ListingID = &v
	}
	if c.RoommateRequestID != nil {
		v := *c.RoommateRequestID
		cp.RoommateRequestID = &v
	}
	if c.LastMessageID != nil {
		v := *c.LastMessageID
		cp.LastMessageID = &v
	}
	return &cp
}

func cloneMessage(m *models.Message) *models.Message {
	cp := *m
	cp.ReadBy = append(pq.StringArray{}, m.ReadBy...)
	return &cp
}
