package types

import (
	"fmt"
	"time"
)

// AddressSeparator joins the parts of a formatted listing address.
const AddressSeparator = ", "

// Listing is a single tracked incoming or outgoing item.
type Listing struct {
	// ID is the unique identifier of the listing.
	ID int `json:"id" db:"id"`

	// UserID references the admin who created the listing.
	UserID int `json:"user_id" db:"user_id"`

	// ListingDate is the calendar date of the listing. Only the date part is meaningful.
	ListingDate time.Time `json:"listing_date" db:"listing_date"`

	// SourceID references the ListingSource the listing came from.
	SourceID int `json:"source_id" db:"source_id"`

	// Description is free text between 5 and 140 characters.
	Description string `json:"description" db:"description"`

	// Name is the addressee's name.
	Name string `json:"name" db:"name"`

	// Email is the addressee's email address, possibly empty.
	Email string `json:"email" db:"email"`

	// Address1 and Address2 are the two address lines; Address2 may be empty.
	Address1 string `json:"address_1" db:"address_1"`
	Address2 string `json:"address_2" db:"address_2"`

	// PostCode is the addressee's postal code.
	PostCode string `json:"post_code" db:"post_code"`

	// Outgoing is true for outgoing items and false for incoming ones.
	Outgoing bool `json:"outgoing" db:"outgoing"`

	// CreatedDate is set once when the listing is created.
	CreatedDate time.Time `json:"created_date" db:"created_date"`

	// ModifiedDate is updated on every edit.
	ModifiedDate time.Time `json:"modified_date" db:"modified_date"`

	// SourceName is the description of the referenced source, filled on reads.
	SourceName string `json:"source_name" db:"source_name"`

	// AuthorUsername is the username of the owning user, filled on reads.
	AuthorUsername string `json:"author_username" db:"author_username"`

	// Address is the formatted address computed by FormatAddress.
	Address string `json:"address" db:"address"`
}

// ListingFilter narrows a listing query.
type ListingFilter struct {
	// Address matches listings whose formatted address contains the value,
	// case-insensitively. Empty matches everything.
	Address string
}

// FormatAddress renders the address lines and post code as a single value.
// The second line is skipped when empty.
func FormatAddress(address1, address2, postCode string) string {
	if address2 != "" {
		return address1 + AddressSeparator + address2 + AddressSeparator + postCode
	}
	return address1 + AddressSeparator + postCode
}

// AddressExpression is the SQL form of FormatAddress over the given column
// expressions, usable in SELECT, WHERE and ORDER BY clauses.
func AddressExpression(address1, address2, postCode string) string {
	sep := "'" + AddressSeparator + "'"
	return fmt.Sprintf(
		"(CASE WHEN %[2]s <> '' THEN %[1]s || %[4]s || %[2]s || %[4]s || %[3]s ELSE %[1]s || %[4]s || %[3]s END)",
		address1, address2, postCode, sep,
	)
}

// FormattedAddress computes the address of a loaded listing.
func (l Listing) FormattedAddress() string {
	return FormatAddress(l.Address1, l.Address2, l.PostCode)
}

// Direction labels the listing as incoming or outgoing.
func (l Listing) Direction() string {
	if l.Outgoing {
		return "outgoing"
	}
	return "incoming"
}
