package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/listingdesk/listingdesk/internal/forms"
	"github.com/listingdesk/listingdesk/internal/mirror"
	"github.com/listingdesk/listingdesk/internal/store"
	"github.com/listingdesk/listingdesk/types"
	"github.com/rs/zerolog"
)

// ListingMirror applies listing changes to the external spreadsheet.
type ListingMirror interface {
	Insert(ctx context.Context, row mirror.Row) error
	Update(ctx context.Context, row mirror.Row) error
	Delete(ctx context.Context, id int) error
}

// ListingService encapsulates listing use-cases. Every write runs in one
// transaction that commits only after the mirror accepted the change.
type ListingService struct {
	store  Store
	mirror ListingMirror
	events *ListingEvents
	log    zerolog.Logger
	now    func() time.Time
}

func NewListingService(store Store, mirror ListingMirror, events *ListingEvents, log zerolog.Logger) *ListingService {
	return &ListingService{
		store:  store,
		mirror: mirror,
		events: events,
		log:    log.With().Str("component", "listings").Logger(),
		now:    time.Now,
	}
}

// ListOwn returns the listings created by actor, optionally filtered by address.
func (s *ListingService) ListOwn(ctx context.Context, actor types.User, filter types.ListingFilter) ([]types.Listing, error) {
	if err := authorize(actor); err != nil {
		return nil, err
	}
	return s.store.Listings().ListByOwner(ctx, actor.ID, filter)
}

func (s *ListingService) Get(ctx context.Context, actor types.User, id int) (types.Listing, error) {
	if err := authorize(actor); err != nil {
		return types.Listing{}, err
	}
	return s.store.Listings().Get(ctx, id)
}

// Sources returns the choices for the listing form's source field.
func (s *ListingService) Sources(ctx context.Context, actor types.User) ([]types.ListingSource, error) {
	if err := authorize(actor); err != nil {
		return nil, err
	}
	return s.store.Sources().List(ctx)
}

// Create stores a listing owned by actor and inserts its mirror row.
func (s *ListingService) Create(ctx context.Context, actor types.User, in forms.Listing) (types.Listing, error) {
	if err := authorize(actor); err != nil {
		return types.Listing{}, err
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return types.Listing{}, err
	}
	defer func() { _ = tx.Rollback() }()

	source, err := sourceChoice(ctx, tx, in.SourceID)
	if err != nil {
		return types.Listing{}, err
	}

	now := s.timestamp()
	listing := types.Listing{
		UserID:       actor.ID,
		CreatedDate:  now,
		ModifiedDate: now,
	}
	applyListingForm(&listing, in)

	created, err := tx.Listings().Create(ctx, listing)
	if err != nil {
		return types.Listing{}, fmt.Errorf("insert listing: %w", err)
	}
	created.SourceName = source.Description
	created.AuthorUsername = actor.Username

	if err := s.mirror.Insert(ctx, mirror.NewRow(created)); err != nil {
		return types.Listing{}, err
	}
	if err := tx.Commit(); err != nil {
		s.compensate(ctx, "insert", created.ID, func(ctx context.Context) error {
			return s.mirror.Delete(ctx, created.ID)
		})
		return types.Listing{}, fmt.Errorf("commit listing: %w", err)
	}

	s.log.Info().Int("listing_id", created.ID).Str("actor", actor.Username).Msg("listing created")
	s.events.Publish(ctx, types.NewListingEvent(types.ListingCreated, actor.Username, created, now))
	return created, nil
}

// Update rewrites the editable fields of listing id and replaces its mirror row.
func (s *ListingService) Update(ctx context.Context, actor types.User, id int, in forms.Listing) (types.Listing, error) {
	if err := authorize(actor); err != nil {
		return types.Listing{}, err
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return types.Listing{}, err
	}
	defer func() { _ = tx.Rollback() }()

	previous, err := tx.Listings().Get(ctx, id)
	if err != nil {
		return types.Listing{}, err
	}
	source, err := sourceChoice(ctx, tx, in.SourceID)
	if err != nil {
		return types.Listing{}, err
	}

	now := s.timestamp()
	listing := previous
	applyListingForm(&listing, in)
	listing.ModifiedDate = now

	updated, err := tx.Listings().Update(ctx, listing)
	if err != nil {
		return types.Listing{}, fmt.Errorf("update listing: %w", err)
	}
	updated.SourceName = source.Description

	if err := s.mirror.Update(ctx, mirror.NewRow(updated)); err != nil {
		return types.Listing{}, err
	}
	if err := tx.Commit(); err != nil {
		s.compensate(ctx, "update", id, func(ctx context.Context) error {
			return s.mirror.Update(ctx, mirror.NewRow(previous))
		})
		return types.Listing{}, fmt.Errorf("commit listing: %w", err)
	}

	s.log.Info().Int("listing_id", id).Str("actor", actor.Username).Msg("listing updated")
	s.events.Publish(ctx, types.NewListingEvent(types.ListingUpdated, actor.Username, updated, now))
	return updated, nil
}

// Delete removes listing id and its mirror row.
func (s *ListingService) Delete(ctx context.Context, actor types.User, id int) error {
	if err := authorize(actor); err != nil {
		return err
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	previous, err := tx.Listings().Get(ctx, id)
	if err != nil {
		return err
	}
	if err := tx.Listings().Delete(ctx, id); err != nil {
		return fmt.Errorf("delete listing: %w", err)
	}

	if err := s.mirror.Delete(ctx, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		s.compensate(ctx, "delete", id, func(ctx context.Context) error {
			return s.mirror.Insert(ctx, mirror.NewRow(previous))
		})
		return fmt.Errorf("commit listing delete: %w", err)
	}

	s.log.Info().Int("listing_id", id).Str("actor", actor.Username).Msg("listing deleted")
	s.events.Publish(ctx, types.NewListingEvent(types.ListingDeleted, actor.Username, previous, s.timestamp()))
	return nil
}

// compensate reverts a mirror change whose local commit failed. Its own
// failure leaves the sheet out of step and is only logged.
func (s *ListingService) compensate(ctx context.Context, op string, id int, revert func(context.Context) error) {
	if err := revert(context.WithoutCancel(ctx)); err != nil {
		s.log.Error().Err(err).
			Str("op", op).
			Int("listing_id", id).
			Msg("mirror left out of step after failed commit")
	}
}

// timestamp is truncated to the precision Postgres keeps.
func (s *ListingService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// sourceChoice resolves the submitted source id; an unknown id is a field error.
func sourceChoice(ctx context.Context, repos Repositories, id int) (types.ListingSource, error) {
	source, err := repos.Sources().Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return types.ListingSource{}, forms.Errors{"source_id": "Not a valid choice."}
	}
	return source, err
}

func applyListingForm(l *types.Listing, in forms.Listing) {
	l.ListingDate = in.ListingDate
	l.SourceID = in.SourceID
	l.Name = in.Name
	l.Email = in.Email
	l.Description = in.Description
	l.Address1 = in.Address1
	l.Address2 = in.Address2
	l.PostCode = in.PostCode
	l.Outgoing = in.Outgoing
}
