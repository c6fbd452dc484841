package conversation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"flatshare/backend/internal/config"
	"flatshare/backend/internal/conversation"
	"flatshare/backend/internal/models"
	"flatshare/backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var errDatabaseDown = errors.New("connection refused")

func newMockedService() (*conversation.Service, *MockStorage) {
	ms := new(MockStorage)
	svc := conversation.NewService(ms)
	svc.Now = func() time.Time { return time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC) }
	return svc, ms
}

// expectEmptyDirectory lets view assembly succeed with nothing to expand.
func expectEmptyDirectory(ms *MockStorage) {
	ms.On("GetListings", mock.Anything, mock.Anything).Return(map[string]models.Listing{}, nil).Maybe()
	ms.On("GetRoommateRequests", mock.Anything, mock.Anything).Return(map[string]models.RoommateRequest{}, nil).Maybe()
	ms.On("GetMessagesByIDs", mock.Anything, mock.Anything).Return(map[string]models.Message{}, nil).Maybe()
	ms.On("GetUserSummaries", mock.Anything, mock.Anything).Return(map[string]models.UserSummary{}, nil).Maybe()
}

func listingConversation(t *testing.T, id string) *models.Conversation {
	t.Helper()
	conv, err := models.NewConversation(tenantR, landlordD, models.ListingContext(listingL), time.Now())
	require.NoError(t, err)
	conv.ID = id
	return conv
}

func TestStartConversation_LosingTheRaceReturnsWinner(t *testing.T) {
	svc, ms := newMockedService()
	ctx := context.Background()
	winner := listingConversation(t, "conv-winner")

	ms.On("GetListing", ctx, listingL).Return(&models.Listing{ID: listingL, LandlordID: landlordD}, nil)
	ms.On("FindConversation", ctx, mock.Anything, models.ListingContext(listingL)).Return(nil, nil).Once()
	ms.On("CreateConversation", ctx, mock.AnythingOfType("*models.Conversation")).Return(storage.ErrConflict).Once()
	ms.On("FindConversation", ctx, mock.Anything, models.ListingContext(listingL)).Return(winner, nil).Once()
	expectEmptyDirectory(ms)

	view, err := svc.StartConversation(ctx, tenantR, conversation.StartRequest{ListingID: listingL})

	require.NoError(t, err)
	assert.Equal(t, "conv-winner", view.ID)
	ms.AssertExpectations(t)
	ms.AssertNumberOfCalls(t, "CreateConversation", 1)
}

func TestStartConversation_GivesUpAfterRepeatedConflicts(t *testing.T) {
	svc, ms := newMockedService()
	ctx := context.Background()

	ms.On("GetListing", ctx, listingL).Return(&models.Listing{ID: listingL, LandlordID: landlordD}, nil)
	ms.On("FindConversation", ctx, mock.Anything, mock.Anything).Return(nil, nil)
	ms.On("CreateConversation", ctx, mock.Anything).Return(storage.ErrConflict)

	_, err := svc.StartConversation(ctx, tenantR, conversation.StartRequest{ListingID: listingL})

	assert.ErrorIs(t, err, conversation.ErrUnexpected)
	assert.ErrorIs(t, err, storage.ErrConflict)
	ms.AssertNumberOfCalls(t, "CreateConversation", config.StartConversationAttempts)
}

func TestStartConversation_InvalidContextFromStoreIsInvalidRequest(t *testing.T) {
	svc, ms := newMockedService()
	ctx := context.Background()

	ms.On("GetListing", ctx, listingL).Return(&models.Listing{ID: listingL, LandlordID: landlordD}, nil)
	ms.On("FindConversation", ctx, mock.Anything, mock.Anything).Return(nil, nil)
	ms.On("CreateConversation", ctx, mock.Anything).Return(errors.Join(storage.ErrInvalidContext, models.ErrAmbiguousContext))

	_, err := svc.StartConversation(ctx, tenantR, conversation.StartRequest{ListingID: listingL})

	assert.ErrorIs(t, err, conversation.ErrInvalidRequest)
}

func TestStartConversation_DirectoryFailure(t *testing.T) {
	svc, ms := newMockedService()
	ctx := context.Background()

	ms.On("GetRoommateRequest", ctx, requestQ).Return(nil, errDatabaseDown)

	_, err := svc.StartConversation(ctx, tenantR, conversation.StartRequest{RoommateRequestID: requestQ})

	assert.ErrorIs(t, err, conversation.ErrUnexpected)
	assert.ErrorIs(t, err, errDatabaseDown)
	ms.AssertNotCalled(t, "CreateConversation", mock.Anything, mock.Anything)
}

func TestGetConversations_StorageFailure(t *testing.T) {
	svc, ms := newMockedService()
	ctx := context.Background()

	ms.On("ListConversationsForUser", ctx, tenantR).Return(nil, errDatabaseDown)

	_, err := svc.GetConversations(ctx, tenantR)

	assert.ErrorIs(t, err, conversation.ErrUnexpected)
}

func TestGetMessages_LookupFailureIsNotNotFound(t *testing.T) {
	svc, ms := newMockedService()
	ctx := context.Background()

	ms.On("GetConversationByID", ctx, "conv-1").Return(nil, errDatabaseDown)

	_, err := svc.GetMessages(ctx, "conv-1", tenantR, conversation.MessageQuery{})

	assert.ErrorIs(t, err, conversation.ErrUnexpected)
	assert.NotErrorIs(t, err, conversation.ErrNotFound)
}

func TestGetMessages_ReadFailureFailsTheFetch(t *testing.T) {
	svc, ms := newMockedService()
	ctx := context.Background()
	conv := listingConversation(t, "conv-1")

	ms.On("GetConversationByID", ctx, "conv-1").Return(conv, nil)
	ms.On("ListMessages", ctx, "conv-1", (*time.Time)(nil), config.DefaultMessageLimit).Return([]models.Message{}, nil)
	ms.On("MarkMessagesRead", ctx, "conv-1", landlordD).Return(int64(0), errDatabaseDown)

	_, err := svc.GetMessages(ctx, "conv-1", landlordD, conversation.MessageQuery{})

	assert.ErrorIs(t, err, conversation.ErrUnexpected)
	ms.AssertNotCalled(t, "RemoveUnread", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetMessages_ClampsLimit(t *testing.T) {
	svc, ms := newMockedService()
	ctx := context.Background()
	conv := listingConversation(t, "conv-1")

	ms.On("GetConversationByID", ctx, "conv-1").Return(conv, nil)
	ms.On("ListMessages", ctx, "conv-1", (*time.Time)(nil), config.MaxMessageLimit).Return([]models.Message{}, nil)
	ms.On("MarkMessagesRead", ctx, "conv-1", tenantR).Return(int64(0), nil)
	ms.On("RemoveUnread", ctx, "conv-1", tenantR).Return(nil)

	_, err := svc.GetMessages(ctx, "conv-1", tenantR, conversation.MessageQuery{Limit: config.MaxMessageLimit + 1})

	require.NoError(t, err)
	ms.AssertExpectations(t)
}

func TestSendMessage_AppendFailure(t *testing.T) {
	svc, ms := newMockedService()
	ctx := context.Background()
	conv := listingConversation(t, "conv-1")

	ms.On("GetConversationByID", ctx, "conv-1").Return(conv, nil)
	ms.On("AppendMessage", ctx, mock.AnythingOfType("*models.Message"), []string{landlordD}).Return(nil, errDatabaseDown)

	_, _, err := svc.SendMessage(ctx, "conv-1", tenantR, "hello")

	assert.ErrorIs(t, err, conversation.ErrUnexpected)
	ms.AssertExpectations(t)
}

func TestMarkRead_UnreadFlagFailure(t *testing.T) {
	svc, ms := newMockedService()
	ctx := context.Background()
	conv := listingConversation(t, "conv-1")

	ms.On("GetConversationByID", ctx, "conv-1").Return(conv, nil)
	ms.On("MarkMessagesRead", ctx, "conv-1", landlordD).Return(int64(2), nil)
	ms.On("RemoveUnread", ctx, "conv-1", landlordD).Return(errDatabaseDown)

	err := svc.MarkRead(ctx, "conv-1", landlordD)

	assert.ErrorIs(t, err, conversation.ErrUnexpected)
	assert.ErrorIs(t, err, errDatabaseDown)
}

func TestInspect_CountFailure(t *testing.T) {
	svc, ms := newMockedService()
	ctx := context.Background()
	conv := listingConversation(t, "conv-1")

	ms.On("GetConversationByID", ctx, "conv-1").Return(conv, nil)
	ms.On("CountMessages", ctx, "conv-1").Return(int64(0), errDatabaseDown)

	_, err := svc.Inspect(ctx, "conv-1")

	assert.ErrorIs(t, err, conversation.ErrUnexpected)
}
