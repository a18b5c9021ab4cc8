package services

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/listingdesk/listingdesk/types"
	"github.com/rs/zerolog"
)

// Publisher sends a payload to a named channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// ListingEvents announces committed listing changes. A nil *ListingEvents
// publishes nothing.
type ListingEvents struct {
	publisher Publisher
	channel   string
	log       zerolog.Logger
}

func NewListingEvents(publisher Publisher, channel string, log zerolog.Logger) *ListingEvents {
	return &ListingEvents{
		publisher: publisher,
		channel:   channel,
		log:       log.With().Str("component", "listing_events").Logger(),
	}
}

// Publish sends event. The change is already committed, so failures are
// logged and not returned.
func (e *ListingEvents) Publish(ctx context.Context, event types.ListingEvent) {
	if e == nil || e.publisher == nil {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		e.log.Error().Err(err).Int("listing_id", event.ListingID).Msg("encode listing event")
		return
	}

	attrs := map[string]string{
		"event_id":   event.EventID.String(),
		"event_type": string(event.Type),
		"listing_id": strconv.Itoa(event.ListingID),
	}
	id, err := e.publisher.Publish(ctx, e.channel, data, attrs)
	if err != nil {
		e.log.Warn().Err(err).
			Str("event_type", string(event.Type)).
			Int("listing_id", event.ListingID).
			Msg("publish listing event failed")
		return
	}
	e.log.Debug().Str("message_id", id).Str("event_type", string(event.Type)).Msg("listing event published")
}
