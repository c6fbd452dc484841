package conversation

import (
	"context"
	"strings"

	"flatshare/backend/internal/models"
	"flatshare/backend/internal/storage"
)

// StartRequest is the caller's description of the conversation to open.
type StartRequest struct {
	ListingID         string `json:"listingId"`
	RoommateRequestID string `json:"roommateRequestId"`
	// ParticipantID names the other party when the caller owns the listing or request.
	ParticipantID string `json:"participantId"`
}

// Resolution is the concrete (requester, counterparty, context) triple.
type Resolution struct {
	RequesterID    string
	CounterpartyID string
	Context        models.ConversationContext
}

// ContextDirectory is the part of the directory the resolver reads.
type ContextDirectory interface {
	GetListing(ctx context.Context, id string) (*models.Listing, error)
	GetRoommateRequest(ctx context.Context, id string) (*models.RoommateRequest, error)
}

var _ ContextDirectory = (storage.Directory)(nil)

// Resolver turns a StartRequest into a Resolution.
type Resolver struct {
	Directory ContextDirectory
}

// NewResolver creates a resolver over the given directory.
func NewResolver(d ContextDirectory) *Resolver {
	return &Resolver{Directory: d}
}

// Resolve finds the counterparty for a listing or roommate-request conversation.
// The owner of the listing or request is the default counterparty; when the owner is the
// requester, ParticipantID must name the other party.
func (r *Resolver) Resolve(ctx context.Context, requesterID string, req StartRequest) (*Resolution, error) {
	listingID := strings.TrimSpace(req.ListingID)
	requestID := strings.TrimSpace(req.RoommateRequestID)
	participantID := strings.TrimSpace(req.ParticipantID)

	if listingID == "" && requestID == "" {
		return nil, invalidRequest("Provide listingId or roommateRequestId.")
	}
	// A conversation references exactly one context. Picking one of two supplied ids would
	// silently discard the other, so contradictory input is rejected instead.
	if listingID != "" && requestID != "" {
		return nil, invalidRequest("Provide either listingId or roommateRequestId, not both.")
	}

	var (
		counterpartyID string
		cc             models.ConversationContext
	)

	if listingID != "" {
		listing, err := r.Directory.GetListing(ctx, listingID)
		if err != nil {
			return nil, unexpected("Unable to load listing", err)
		}
		if listing == nil {
			return nil, notFound("Listing not found.")
		}

		counterpartyID = listing.LandlordID
		if listing.LandlordID == requesterID {
			if participantID == "" {
				return nil, invalidRequest("Provide participantId when landlord starts a conversation.")
			}
			counterpartyID = participantID
		}
		cc = models.ListingContext(listingID)
	} else {
		request, err := r.Directory.GetRoommateRequest(ctx, requestID)
		if err != nil {
			return nil, unexpected("Unable to load roommate request", err)
		}
		if request == nil {
			return nil, notFound("Roommate request not found.")
		}

		counterpartyID = request.UserID
		if request.UserID == requesterID {
			if participantID == "" {
				return nil, invalidRequest("Provide participantId when starting a conversation about your own request.")
			}
			counterpartyID = participantID
		}
		cc = models.RoommateRequestContext(requestID)
	}

	if counterpartyID == "" {
		return nil, invalidRequest("Conversation requires another participant.")
	}
	if counterpartyID == requesterID {
		return nil, invalidRequest("Cannot start a conversation with yourself.")
	}

	return &Resolution{
		RequesterID:    requesterID,
		CounterpartyID: counterpartyID,
		Context:        cc,
	}, nil
}
