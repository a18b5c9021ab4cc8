package services

import (
	"context"
	"errors"

	"github.com/listingdesk/listingdesk/internal/forms"
	"github.com/listingdesk/listingdesk/internal/store"
	"github.com/listingdesk/listingdesk/types"
	"github.com/rs/zerolog"
)

// DescriptionInUse is reported when a source description collides with another source.
const DescriptionInUse = "Description is already in use."

// ListingSourceService encapsulates listing source use-cases.
type ListingSourceService struct {
	store Store
	log   zerolog.Logger
}

func NewListingSourceService(store Store, log zerolog.Logger) *ListingSourceService {
	return &ListingSourceService{
		store: store,
		log:   log.With().Str("component", "listing_sources").Logger(),
	}
}

func (s *ListingSourceService) List(ctx context.Context, actor types.User) ([]types.ListingSource, error) {
	if err := authorize(actor); err != nil {
		return nil, err
	}
	return s.store.Sources().List(ctx)
}

func (s *ListingSourceService) Get(ctx context.Context, actor types.User, id int) (types.ListingSource, error) {
	if err := authorize(actor); err != nil {
		return types.ListingSource{}, err
	}
	return s.store.Sources().Get(ctx, id)
}

func (s *ListingSourceService) Create(ctx context.Context, actor types.User, in forms.ListingSource) (types.ListingSource, error) {
	if err := authorize(actor); err != nil {
		return types.ListingSource{}, err
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return types.ListingSource{}, err
	}
	defer func() { _ = tx.Rollback() }()

	created, err := tx.Sources().Create(ctx, types.ListingSource{Description: in.Description})
	if err != nil {
		return types.ListingSource{}, descriptionError(err)
	}
	if err := tx.Commit(); err != nil {
		return types.ListingSource{}, err
	}
	s.log.Info().Int("source_id", created.ID).Str("actor", actor.Username).Msg("listing source created")
	return created, nil
}

func (s *ListingSourceService) Update(ctx context.Context, actor types.User, id int, in forms.ListingSource) (types.ListingSource, error) {
	if err := authorize(actor); err != nil {
		return types.ListingSource{}, err
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return types.ListingSource{}, err
	}
	defer func() { _ = tx.Rollback() }()

	updated, err := tx.Sources().Update(ctx, types.ListingSource{ID: id, Description: in.Description})
	if err != nil {
		return types.ListingSource{}, descriptionError(err)
	}
	if err := tx.Commit(); err != nil {
		return types.ListingSource{}, err
	}
	s.log.Info().Int("source_id", id).Str("actor", actor.Username).Msg("listing source updated")
	return updated, nil
}

// Delete removes source id. Sources still referenced by listings are kept.
func (s *ListingSourceService) Delete(ctx context.Context, actor types.User, id int) error {
	if err := authorize(actor); err != nil {
		return err
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.Sources().Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrReferenced) {
			return ErrSourceInUse
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.log.Info().Int("source_id", id).Str("actor", actor.Username).Msg("listing source deleted")
	return nil
}

func descriptionError(err error) error {
	if store.IsDuplicate(err, store.ConstraintSourceDescription) {
		return forms.Errors{"description": DescriptionInUse}
	}
	return err
}
