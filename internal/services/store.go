package services

import (
	"context"

	"github.com/listingdesk/listingdesk/internal/store"
	"github.com/listingdesk/listingdesk/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	List(ctx context.Context) ([]types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	Delete(ctx context.Context, id int) error
}

// ListingSourceRepository defines persistence operations for listing sources.
type ListingSourceRepository interface {
	Get(ctx context.Context, id int) (types.ListingSource, error)
	List(ctx context.Context) ([]types.ListingSource, error)
	Create(ctx context.Context, source types.ListingSource) (types.ListingSource, error)
	Update(ctx context.Context, source types.ListingSource) (types.ListingSource, error)
	Delete(ctx context.Context, id int) error
}

// ListingRepository defines persistence operations for listings.
type ListingRepository interface {
	Get(ctx context.Context, id int) (types.Listing, error)
	ListByOwner(ctx context.Context, userID int, filter types.ListingFilter) ([]types.Listing, error)
	ListAll(ctx context.Context) ([]types.Listing, error)
	Create(ctx context.Context, listing types.Listing) (types.Listing, error)
	Update(ctx context.Context, listing types.Listing) (types.Listing, error)
	Delete(ctx context.Context, id int) error
}

// Repositories groups the repositories of one handle.
type Repositories interface {
	Users() UserRepository
	Sources() ListingSourceRepository
	Listings() ListingRepository
}

// Tx is one admin action's unit of work. Rollback after Commit is a no-op.
type Tx interface {
	Repositories
	Commit() error
	Rollback() error
}

// Store hands out repositories for reads and transactions for writes.
type Store interface {
	Repositories
	Begin(ctx context.Context) (Tx, error)
}

// NewStore adapts the SQL store.
func NewStore(s *store.Store) Store {
	return sqlStore{s: s}
}

type sqlStore struct {
	s *store.Store
}

func (a sqlStore) Users() UserRepository            { return a.s.Users() }
func (a sqlStore) Sources() ListingSourceRepository { return a.s.Sources() }
func (a sqlStore) Listings() ListingRepository      { return a.s.Listings() }

func (a sqlStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := a.s.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return sqlTx{tx: tx}, nil
}

type sqlTx struct {
	tx *store.Tx
}

func (t sqlTx) Users() UserRepository            { return t.tx.Users() }
func (t sqlTx) Sources() ListingSourceRepository { return t.tx.Sources() }
func (t sqlTx) Listings() ListingRepository      { return t.tx.Listings() }
func (t sqlTx) Commit() error                    { return t.tx.Commit() }
func (t sqlTx) Rollback() error                  { return t.tx.Rollback() }
