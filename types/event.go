package types

import (
	"time"

	"github.com/google/uuid"
)

// ListingEventType names the lifecycle transition of a listing.
type ListingEventType string

const (
	ListingCreated ListingEventType = "listing.created"
	ListingUpdated ListingEventType = "listing.updated"
	ListingDeleted ListingEventType = "listing.deleted"
)

// ListingEvent is published after a listing change has been committed.
type ListingEvent struct {
	// EventID uniquely identifies the event.
	EventID uuid.UUID `json:"event_id"`

	// Type is the lifecycle transition.
	Type ListingEventType `json:"type"`

	// ListingID is the id of the affected listing.
	ListingID int `json:"listing_id"`

	// Actor is the username of the admin who performed the change.
	Actor string `json:"actor"`

	// Listing is the state after the change. Deleted events carry the last state.
	Listing Listing `json:"listing"`

	// OccurredAt is when the change was committed.
	OccurredAt time.Time `json:"occurred_at"`
}

// NewListingEvent builds an event with a fresh id.
func NewListingEvent(eventType ListingEventType, actor string, listing Listing, at time.Time) ListingEvent {
	return ListingEvent{
		EventID:    uuid.New(),
		Type:       eventType,
		ListingID:  listing.ID,
		Actor:      actor,
		Listing:    listing,
		OccurredAt: at.UTC(),
	}
}
