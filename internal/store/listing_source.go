package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/listingdesk/listingdesk/types"
)

// ListingSourceRepository handles persistence for listing sources.
type ListingSourceRepository struct {
	db Querier
}

func NewListingSourceRepository(db Querier) *ListingSourceRepository {
	return &ListingSourceRepository{db: db}
}

func (r *ListingSourceRepository) Get(ctx context.Context, id int) (types.ListingSource, error) {
	const query = `SELECT id, description FROM listing_source WHERE id = $1`
	var source types.ListingSource
	err := r.db.QueryRowContext(ctx, query, id).Scan(&source.ID, &source.Description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.ListingSource{}, ErrNotFound
		}
		return types.ListingSource{}, err
	}
	return source, nil
}

func (r *ListingSourceRepository) List(ctx context.Context) ([]types.ListingSource, error) {
	const query = `SELECT id, description FROM listing_source ORDER BY description`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sources := make([]types.ListingSource, 0)
	for rows.Next() {
		var source types.ListingSource
		if err := rows.Scan(&source.ID, &source.Description); err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sources, nil
}

func (r *ListingSourceRepository) Create(ctx context.Context, source types.ListingSource) (types.ListingSource, error) {
	const query = `INSERT INTO listing_source (description) VALUES ($1) RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, source.Description).Scan(&source.ID); err != nil {
		return types.ListingSource{}, translateError(err)
	}
	return source, nil
}

func (r *ListingSourceRepository) Update(ctx context.Context, source types.ListingSource) (types.ListingSource, error) {
	const query = `UPDATE listing_source SET description = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, source.Description, source.ID)
	if err != nil {
		return types.ListingSource{}, translateError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.ListingSource{}, err
	}
	if affected == 0 {
		return types.ListingSource{}, ErrNotFound
	}
	return source, nil
}

func (r *ListingSourceRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM listing_source WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return translateError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
