package conversation

import (
	"context"
	"time"

	"flatshare/backend/internal/models"
)

// View is a conversation expanded for display.
type View struct {
	ID              string                  `json:"id"`
	Participants    []models.UserSummary    `json:"participants"`
	Listing         *ListingSummary         `json:"listing,omitempty"`
	RoommateRequest *RoommateRequestSummary `json:"roommateRequest,omitempty"`
	LastMessage     *MessageView            `json:"lastMessage,omitempty"`
	LastActivityAt  time.Time               `json:"lastActivityAt"`
	UnreadFor       []string                `json:"unreadFor"`
	CreatedAt       time.Time               `json:"createdAt"`
	UpdatedAt       time.Time               `json:"updatedAt"`
}

// MessageView is a message with its sender expanded.
type MessageView struct {
	ID             string             `json:"id"`
	ConversationID string             `json:"conversationId"`
	Sender         models.UserSummary `json:"sender"`
	Body           string             `json:"body"`
	ReadBy         []string           `json:"readBy"`
	CreatedAt      time.Time          `json:"createdAt"`
}

// Occupancy is how many roommates a listing has against its capacity.
type Occupancy struct {
	Current int `json:"current"`
	Max     int `json:"max"`
}

// ListingSummary is the listing context of a conversation.
type ListingSummary struct {
	ID        string             `json:"id"`
	Title     string             `json:"title"`
	Location  string             `json:"location"`
	RoomType  string             `json:"roomType"`
	Roommates Occupancy          `json:"roommates"`
	Landlord  models.UserSummary `json:"landlord"`
}

// RoommateRequestSummary is the roommate-request context of a conversation.
type RoommateRequestSummary struct {
	ID       string             `json:"id"`
	Title    string             `json:"title"`
	Location string             `json:"location"`
	Budget   int                `json:"budget"`
	RoomType string             `json:"roomType"`
	User     models.UserSummary `json:"user"`
}

// EnrichDirectory is what view assembly reads.
type EnrichDirectory interface {
	GetUserSummaries(ctx context.Context, ids []string) (map[string]models.UserSummary, error)
	GetListings(ctx context.Context, ids []string) (map[string]models.Listing, error)
	GetRoommateRequests(ctx context.Context, ids []string) (map[string]models.RoommateRequest, error)
	GetMessagesByIDs(ctx context.Context, ids []string) (map[string]models.Message, error)
}

// Enricher assembles views from foreign-key style references. Each call batches its
// lookups: one query per kind of record regardless of how many conversations are expanded.
type Enricher struct {
	Directory EnrichDirectory
}

// NewEnricher creates an Enricher.
func NewEnricher(d EnrichDirectory) *Enricher {
	return &Enricher{Directory: d}
}

// Conversations expands convs, keeping their order.
func (e *Enricher) Conversations(ctx context.Context, convs []models.Conversation) ([]View, error) {
	views := make([]View, 0, len(convs))
	if len(convs) == 0 {
		return views, nil
	}

	var listingIDs, requestIDs, messageIDs []string
	for _, c := range convs {
		if c.ListingID != nil {
			listingIDs = append(listingIDs, *c.ListingID)
		}
		if c.RoommateRequestID != nil {
			requestIDs = append(requestIDs, *c.RoommateRequestID)
		}
		if c.LastMessageID != nil {
			messageIDs = append(messageIDs, *c.LastMessageID)
		}
	}

	listings, err := e.Directory.GetListings(ctx, listingIDs)
	if err != nil {
		return nil, err
	}
	requests, err := e.Directory.GetRoommateRequests(ctx, requestIDs)
	if err != nil {
		return nil, err
	}
	lastMessages, err := e.Directory.GetMessagesByIDs(ctx, messageIDs)
	if err != nil {
		return nil, err
	}

	var userIDs []string
	for _, c := range convs {
		userIDs = append(userIDs, c.Participants...)
	}
	for _, l := range listings {
		userIDs = append(userIDs, l.LandlordID)
	}
	for _, r := range requests {
		userIDs = append(userIDs, r.UserID)
	}
	for _, m := range lastMessages {
		userIDs = append(userIDs, m.SenderID)
	}
	users, err := e.Directory.GetUserSummaries(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	for _, c := range convs {
		v := View{
			ID:             c.ID,
			Participants:   make([]models.UserSummary, 0, len(c.Participants)),
			LastActivityAt: c.LastActivityAt,
			UnreadFor:      append([]string{}, c.UnreadFor...),
			CreatedAt:      c.CreatedAt,
			UpdatedAt:      c.UpdatedAt,
		}
		for _, p := range c.Participants {
			v.Participants = append(v.Participants, userSummary(users, p))
		}
		if c.ListingID != nil {
			if l, ok := listings[*c.ListingID]; ok {
				v.Listing = &ListingSummary{
					ID:        l.ID,
					Title:     l.Title,
					Location:  l.Location,
					RoomType:  l.RoomType,
					Roommates: Occupancy{Current: l.RoommatesCurrent, Max: l.RoommatesMax},
					Landlord:  userSummary(users, l.LandlordID),
				}
			}
		}
		if c.RoommateRequestID != nil {
			if r, ok := requests[*c.RoommateRequestID]; ok {
				v.RoommateRequest = &RoommateRequestSummary{
					ID:       r.ID,
					Title:    r.Title,
					Location: r.Location,
					Budget:   r.Budget,
					RoomType: r.RoomType,
					User:     userSummary(users, r.UserID),
				}
			}
		}
		if c.LastMessageID != nil {
			if m, ok := lastMessages[*c.LastMessageID]; ok {
				mv := messageView(m, users)
				v.LastMessage = &mv
			}
		}
		views = append(views, v)
	}
	return views, nil
}

// Conversation expands a single conversation.
func (e *Enricher) Conversation(ctx context.Context, conv *models.Conversation) (*View, error) {
	views, err := e.Conversations(ctx, []models.Conversation{*conv})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// Messages expands msgs with their senders, keeping their order.
func (e *Enricher) Messages(ctx context.Context, msgs []models.Message) ([]MessageView, error) {
	out := make([]MessageView, 0, len(msgs))
	if len(msgs) == 0 {
		return out, nil
	}

	senderIDs := make([]string, 0, len(msgs))
	for _, m := range msgs {
		senderIDs = append(senderIDs, m.SenderID)
	}
	users, err := e.Directory.GetUserSummaries(ctx, senderIDs)
	if err != nil {
		return nil, err
	}

	for _, m := range msgs {
		out = append(out, messageView(m, users))
	}
	return out, nil
}

func messageView(m models.Message, users map[string]models.UserSummary) MessageView {
	return MessageView{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Sender:         userSummary(users, m.SenderID),
		Body:           m.Body,
		ReadBy:         append([]string{}, m.ReadBy...),
		CreatedAt:      m.CreatedAt,
	}
}

// userSummary falls back to an id-only summary for users the directory no longer knows.
func userSummary(users map[string]models.UserSummary, id string) models.UserSummary {
	if u, ok := users[id]; ok {
		return u
	}
	return models.UserSummary{ID: id}
}
