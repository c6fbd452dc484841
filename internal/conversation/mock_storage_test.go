package conversation_test

import (
	"context"
	"time"

	"flatshare/backend/internal/models"

	"github.com/stretchr/testify/mock"
)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	args := m.Called(ctx, conv)
	return args.Error(0)
}

func (m *MockStorage) FindConversation(ctx context.Context, participants []string, cc models.ConversationContext) (*models.Conversation, error) {
	args := m.Called(ctx, participants, cc)
	conv, _ := args.Get(0).(*models.Conversation)
	return conv, args.Error(1)
}

func (m *MockStorage) GetConversationByID(ctx context.Context, id string) (*models.Conversation, error) {
	args := m.Called(ctx, id)
	conv, _ := args.Get(0).(*models.Conversation)
	return conv, args.Error(1)
}

func (m *MockStorage) ListConversationsForUser(ctx context.Context, userID string) ([]models.Conversation, error) {
	args := m.Called(ctx, userID)
	convs, _ := args.Get(0).([]models.Conversation)
	return convs, args.Error(1)
}

func (m *MockStorage) RemoveUnread(ctx context.Context, conversationID, userID string) error {
	args := m.Called(ctx, conversationID, userID)
	return args.Error(0)
}

func (m *MockStorage) SetUnread(ctx context.Context, conversationID string, userIDs []string) error {
	args := m.Called(ctx, conversationID, userIDs)
	return args.Error(0)
}

func (m *MockStorage) AppendMessage(ctx context.Context, msg *models.Message, unreadFor []string) (*models.Conversation, error) {
	args := m.Called(ctx, msg, unreadFor)
	conv, _ := args.Get(0).(*models.Conversation)
	return conv, args.Error(1)
}

func (m *MockStorage) ListMessages(ctx context.Context, conversationID string, before *time.Time, limit int) ([]models.Message, error) {
	args := m.Called(ctx, conversationID, before, limit)
	msgs, _ := args.Get(0).([]models.Message)
	return msgs, args.Error(1)
}

func (m *MockStorage) GetMessagesByIDs(ctx context.Context, ids []string) (map[string]models.Message, error) {
	args := m.Called(ctx, ids)
	msgs, _ := args.Get(0).(map[string]models.Message)
	return msgs, args.Error(1)
}

func (m *MockStorage) MarkMessagesRead(ctx context.Context, conversationID, userID string) (int64, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) HasUnreadMessages(ctx context.Context, conversationID, userID string) (bool, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) CountMessages(ctx context.Context, conversationID string) (int64, error) {
	args := m.Called(ctx, conversationID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) GetUserSummaries(ctx context.Context, ids []string) (map[string]models.UserSummary, error) {
	args := m.Called(ctx, ids)
	users, _ := args.Get(0).(map[string]models.UserSummary)
	return users, args.Error(1)
}

func (m *MockStorage) GetListing(ctx context.Context, id string) (*models.Listing, error) {
	args := m.Called(ctx, id)
	listing, _ := args.Get(0).(*models.Listing)
	return listing, args.Error(1)
}

func (m *MockStorage) GetListings(ctx context.Context, ids []string) (map[string]models.Listing, error) {
	args := m.Called(ctx, ids)
	listings, _ := args.Get(0).(map[string]models.Listing)
	return listings, args.Error(1)
}

func (m *MockStorage) GetRoommateRequest(ctx context.Context, id string) (*models.RoommateRequest, error) {
	args := m.Called(ctx, id)
	request, _ := args.Get(0).(*models.RoommateRequest)
	return request, args.Error(1)
}

func (m *MockStorage) GetRoommateRequests(ctx context.Context, ids []string) (map[string]models.RoommateRequest, error) {
	args := m.Called(ctx, ids)
	requests, _ := args.Get(0).(map[string]models.RoommateRequest)
	return requests, args.Error(1)
}
