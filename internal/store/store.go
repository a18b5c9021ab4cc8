package store

import (
	"context"
	"database/sql"
)

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store exposes the repositories over a database handle.
type Store struct {
	db       *sql.DB
	users    *UserRepository
	sources  *ListingSourceRepository
	listings *ListingRepository
}

func New(db *sql.DB) *Store {
	return &Store{
		db:       db,
		users:    NewUserRepository(db),
		sources:  NewListingSourceRepository(db),
		listings: NewListingRepository(db),
	}
}

func (s *Store) Users() *UserRepository {
	return s.users
}

func (s *Store) Sources() *ListingSourceRepository {
	return s.sources
}

func (s *Store) Listings() *ListingRepository {
	return s.listings
}

// Begin starts a transaction. Writes made through the returned Tx are
// visible to later statements of the same Tx but durable only after Commit.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{
		tx:       tx,
		users:    NewUserRepository(tx),
		sources:  NewListingSourceRepository(tx),
		listings: NewListingRepository(tx),
	}, nil
}

// Tx is one logical unit of work.
type Tx struct {
	tx       *sql.Tx
	users    *UserRepository
	sources  *ListingSourceRepository
	listings *ListingRepository
}

func (t *Tx) Users() *UserRepository {
	return t.users
}

func (t *Tx) Sources() *ListingSourceRepository {
	return t.sources
}

func (t *Tx) Listings() *ListingRepository {
	return t.listings
}

func (t *Tx) Commit() error {
	return t.tx.Commit()
}

// Rollback aborts the transaction. It is a no-op after Commit.
func (t *Tx) Rollback() error {
	err := t.tx.Rollback()
	if err == sql.ErrTxDone {
		return nil
	}
	return err
}
