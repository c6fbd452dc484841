package models

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

var (
	// ErrMissingContext is returned when a conversation references neither a listing nor a roommate request.
	ErrMissingContext = errors.New("conversation must reference a listing or a roommate request")
	// ErrAmbiguousContext is returned when a conversation references both a listing and a roommate request.
	ErrAmbiguousContext = errors.New("conversation cannot be linked to both a listing and a roommate request")
	// ErrInvalidParticipants is returned when the participant set is not two distinct users.
	ErrInvalidParticipants = errors.New("conversation requires exactly two distinct participants")
)

// ConversationContext is what a conversation is about: a listing or a roommate request, never both.
type ConversationContext struct {
	ListingID         string `json:"listingId,omitempty"`
	RoommateRequestID string `json:"roommateRequestId,omitempty"`
}

// ListingContext builds a context pointing at a listing.
func ListingContext(listingID string) ConversationContext {
	return ConversationContext{ListingID: listingID}
}

// RoommateRequestContext builds a context pointing at a roommate request.
func RoommateRequestContext(requestID string) ConversationContext {
	return ConversationContext{RoommateRequestID: requestID}
}

// Validate checks that exactly one reference is set.
func (c ConversationContext) Validate() error {
	hasListing := c.ListingID != ""
	hasRequest := c.RoommateRequestID != ""
	if !hasListing && !hasRequest {
		return ErrMissingContext
	}
	if hasListing && hasRequest {
		return ErrAmbiguousContext
	}
	return nil
}

// Key is the stable string form used by the uniqueness index.
func (c ConversationContext) Key() string {
	if c.ListingID != "" {
		return "listing:" + c.ListingID
	}
	return "roommate_request:" + c.RoommateRequestID
}

// ParticipantKey returns the order-independent key of a participant set.
// Each id is written as "<byte length>:<id>" so ids containing ':' cannot collide.
func ParticipantKey(ids ...string) string {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	var b strings.Builder
	for _, id := range sorted {
		b.WriteString(strconv.Itoa(len(id)))
		b.WriteByte(':')
		b.WriteString(id)
	}
	return b.String()
}

// Conversation is a two-party thread attached to a listing or a roommate request.
// Participants, UnreadFor are sets stored as arrays; never rely on their order.
type Conversation struct {
	// ID is the conversation UUID.
	ID string `gorm:"primaryKey;type:uuid" json:"id"`
	// ListingID is set when the conversation is about a listing.
	ListingID *string `gorm:"type:uuid;check:chk_conversations_context,(listing_id IS NULL) <> (roommate_request_id IS NULL)" json:"listingId,omitempty"`
	// RoommateRequestID is set when the conversation is about a roommate request.
	RoommateRequestID *string `gorm:"type:uuid" json:"roommateRequestId,omitempty"`
	// Participants holds the two user ids.
	Participants pq.StringArray `gorm:"type:text[];not null;index:idx_conversations_participants,type:gin" json:"participants"`
	// ParticipantKey is the sorted pair, each id length-prefixed.
	ParticipantKey string `gorm:"type:text;not null;uniqueIndex:idx_conversations_pair_context" json:"-"`
	// ContextKey is "listing:<id>" or "roommate_request:<id>".
	ContextKey string `gorm:"type:text;not null;uniqueIndex:idx_conversations_pair_context" json:"-"`
	// LastMessageID points at the newest message; nil until the first send.
	LastMessageID *string `gorm:"type:uuid" json:"lastMessageId,omitempty"`
	// LastActivityAt drives list ordering.
	LastActivityAt time.Time `gorm:"not null;index:idx_conversations_last_activity,sort:desc" json:"lastActivityAt"`
	// UnreadFor lists participants with unread messages.
	UnreadFor pq.StringArray `gorm:"type:text[];not null;default:'{}'" json:"unreadFor"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewConversation prepares an unsaved conversation between two users.
func NewConversation(requesterID, counterpartyID string, ctx ConversationContext, now time.Time) (*Conversation, error) {
	conv := &Conversation{
		Participants:   pq.StringArray{requesterID, counterpartyID},
		UnreadFor:      pq.StringArray{},
		LastActivityAt: now,
	}
	conv.SetContext(ctx)
	if err := conv.Validate(); err != nil {
		return nil, err
	}
	return conv, nil
}

// Context returns the listing or roommate-request reference.
func (c *Conversation) Context() ConversationContext {
	var ctx ConversationContext
	if c.ListingID != nil {
		ctx.ListingID = *c.ListingID
	}
	if c.RoommateRequestID != nil {
		ctx.RoommateRequestID = *c.RoommateRequestID
	}
	return ctx
}

// SetContext assigns the reference columns and the derived context key.
func (c *Conversation) SetContext(ctx ConversationContext) {
	c.ListingID, c.RoommateRequestID = nil, nil
	if ctx.ListingID != "" {
		id := ctx.ListingID
		c.ListingID = &id
	}
	if ctx.RoommateRequestID != "" {
		id := ctx.RoommateRequestID
		c.RoommateRequestID = &id
	}
	c.ContextKey = ctx.Key()
}

// HasParticipant reports whether userID belongs to the conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// IsUnreadFor reports whether userID has unread messages.
func (c *Conversation) IsUnreadFor(userID string) bool {
	for _, u := range c.UnreadFor {
		if u == userID {
			return true
		}
	}
	return false
}

// OtherParticipants returns every participant except userID.
func (c *Conversation) OtherParticipants(userID string) []string {
	others := make([]string, 0, len(c.Participants))
	for _, p := range c.Participants {
		if p != userID {
			others = append(others, p)
		}
	}
	return others
}

// Validate enforces context exclusivity and the two-distinct-participants rule.
func (c *Conversation) Validate() error {
	if err := c.Context().Validate(); err != nil {
		return err
	}
	if len(c.Participants) != 2 || c.Participants[0] == "" || c.Participants[1] == "" ||
		c.Participants[0] == c.Participants[1] {
		return ErrInvalidParticipants
	}
	return nil
}

// BeforeCreate validates the row, fills the derived keys and generates a UUID if needed.
func (c *Conversation) BeforeCreate(tx *gorm.DB) (err error) {
	if err := c.Validate(); err != nil {
		return err
	}
	c.ContextKey = c.Context().Key()
	c.ParticipantKey = ParticipantKey(c.Participants...)
	if c.UnreadFor == nil {
		c.UnreadFor = pq.StringArray{}
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return
}
