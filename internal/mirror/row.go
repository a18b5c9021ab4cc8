package mirror

import (
	"strconv"
	"time"

	"github.com/listingdesk/listingdesk/types"
)

// Columns is the frozen column order of the mirror sheet. The sheet itself
// enforces no schema, so every writer must use this order.
var Columns = []string{
	"id",
	"author",
	"listing_date",
	"source",
	"description",
	"name",
	"email",
	"address_1",
	"address_2",
	"post_code",
	"outgoing",
	"created_date",
	"modified_date",
}

const (
	// IDColumn is the 1-based column holding the listing id.
	IDColumn = 1

	// InsertRow is the 1-based row new listings are inserted at, directly
	// below the header row.
	InsertRow = 2

	dateLayout = "2006-01-02"
)

// Row is one listing as mirrored to the sheet.
type Row struct {
	Listing types.Listing
}

// NewRow builds the row for listing. SourceName and AuthorUsername must be set.
func NewRow(listing types.Listing) Row {
	return Row{Listing: listing}
}

// Values returns the cells of the row in Columns order.
func (r Row) Values() []any {
	l := r.Listing
	return []any{
		l.ID,
		l.AuthorUsername,
		l.ListingDate.Format(dateLayout),
		l.SourceName,
		l.Description,
		l.Name,
		l.Email,
		l.Address1,
		l.Address2,
		l.PostCode,
		l.Outgoing,
		formatTimestamp(l.CreatedDate),
		formatTimestamp(l.ModifiedDate),
	}
}

// Strings returns the cells of the row as text, in Columns order.
func (r Row) Strings() []string {
	l := r.Listing
	return []string{
		Key(l.ID),
		l.AuthorUsername,
		l.ListingDate.Format(dateLayout),
		l.SourceName,
		l.Description,
		l.Name,
		l.Email,
		l.Address1,
		l.Address2,
		l.PostCode,
		strconv.FormatBool(l.Outgoing),
		formatTimestamp(l.CreatedDate),
		formatTimestamp(l.ModifiedDate),
	}
}

// Key is the literal value the id column is matched against.
func Key(id int) string {
	return strconv.Itoa(id)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
