package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/listingdesk/listingdesk/types"
)

var addressExpr = types.AddressExpression("l.address_1", "l.address_2", "l.post_code")

var listingSelect = `
	SELECT l.id, l.user_id, l.listing_date, l.source_id, l.description, l.name, l.email,
	       l.address_1, l.address_2, l.post_code, l.outgoing, l.created_date, l.modified_date,
	       s.description, u.username, ` + addressExpr + `
	FROM listing l
	JOIN listing_source s ON s.id = l.source_id
	JOIN "user" u ON u.id = l.user_id`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ListingRepository handles persistence for listings.
type ListingRepository struct {
	db Querier
}

func NewListingRepository(db Querier) *ListingRepository {
	return &ListingRepository{db: db}
}

func (r *ListingRepository) Get(ctx context.Context, id int) (types.Listing, error) {
	query := listingSelect + ` WHERE l.id = $1`
	listing, err := scanListing(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Listing{}, ErrNotFound
		}
		return types.Listing{}, err
	}
	return listing, nil
}

// ListByOwner returns the listings created by userID, newest listing date first.
func (r *ListingRepository) ListByOwner(ctx context.Context, userID int, filter types.ListingFilter) ([]types.Listing, error) {
	query := listingSelect + `
	WHERE l.user_id = $1
	  AND ($2::text = '' OR ` + addressExpr + ` ILIKE '%' || $2::text || '%')
	ORDER BY l.listing_date DESC, l.id DESC`
	pattern := likeEscaper.Replace(strings.TrimSpace(filter.Address))
	return r.list(ctx, query, userID, pattern)
}

// ListAll returns every listing ordered by id.
func (r *ListingRepository) ListAll(ctx context.Context) ([]types.Listing, error) {
	query := listingSelect + ` ORDER BY l.id`
	return r.list(ctx, query)
}

// Create inserts listing and returns it with the generated id. Inside a
// transaction the id is available before commit.
func (r *ListingRepository) Create(ctx context.Context, listing types.Listing) (types.Listing, error) {
	const query = `
		INSERT INTO listing (
			user_id, listing_date, source_id, description, name, email,
			address_1, address_2, post_code, outgoing, created_date, modified_date
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		listing.UserID,
		listing.ListingDate,
		listing.SourceID,
		listing.Description,
		listing.Name,
		listing.Email,
		listing.Address1,
		listing.Address2,
		listing.PostCode,
		listing.Outgoing,
		listing.CreatedDate,
		listing.ModifiedDate,
	).Scan(&listing.ID); err != nil {
		return types.Listing{}, translateError(err)
	}
	listing.Address = listing.FormattedAddress()
	return listing, nil
}

// Update writes the editable fields and the modified timestamp. The owner and
// the created timestamp are left untouched.
func (r *ListingRepository) Update(ctx context.Context, listing types.Listing) (types.Listing, error) {
	const query = `
		UPDATE listing
		SET listing_date = $1,
			source_id = $2,
			description = $3,
			name = $4,
			email = $5,
			address_1 = $6,
			address_2 = $7,
			post_code = $8,
			outgoing = $9,
			modified_date = $10
		WHERE id = $11`
	result, err := r.db.ExecContext(
		ctx,
		query,
		listing.ListingDate,
		listing.SourceID,
		listing.Description,
		listing.Name,
		listing.Email,
		listing.Address1,
		listing.Address2,
		listing.PostCode,
		listing.Outgoing,
		listing.ModifiedDate,
		listing.ID,
	)
	if err != nil {
		return types.Listing{}, translateError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Listing{}, err
	}
	if affected == 0 {
		return types.Listing{}, ErrNotFound
	}
	listing.Address = listing.FormattedAddress()
	return listing, nil
}

func (r *ListingRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM listing WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
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

func (r *ListingRepository) list(ctx context.Context, query string, args ...any) ([]types.Listing, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	listings := make([]types.Listing, 0)
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, listing)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return listings, nil
}

func scanListing(row rowScanner) (types.Listing, error) {
	var listing types.Listing
	err := row.Scan(
		&listing.ID,
		&listing.UserID,
		&listing.ListingDate,
		&listing.SourceID,
		&listing.Description,
		&listing.Name,
		&listing.Email,
		&listing.Address1,
		&listing.Address2,
		&listing.PostCode,
		&listing.Outgoing,
		&listing.CreatedDate,
		&listing.ModifiedDate,
		&listing.SourceName,
		&listing.AuthorUsername,
		&listing.Address,
	)
	return listing, err
}
