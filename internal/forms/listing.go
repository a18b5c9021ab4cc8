package forms

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/listingdesk/listingdesk/types"
)

// Listing is a validated listing submission.
type Listing struct {
	ListingDate time.Time
	SourceID    int
	Name        string
	Email       string
	Description string
	Address1    string
	Address2    string
	PostCode    string
	Outgoing    bool
}

type listingInput struct {
	ListingDate string `form:"listing_date" validate:"required"`
	Name        string `form:"name" validate:"required,max=50"`
	Email       string `form:"email" validate:"omitempty,email,max=40"`
	SourceID    int    `form:"source_id" validate:"gt=0"`
	Address1    string `form:"address_1" validate:"max=50"`
	Address2    string `form:"address_2" validate:"max=50"`
	PostCode    string `form:"post_code" validate:"max=10"`
	Description string `form:"description" validate:"length=5-140"`
}

// ParseListing validates a listing submission. The source id is only checked
// for shape here; whether it names an existing source is decided by the caller.
func ParseListing(values url.Values) (Listing, Errors) {
	in := listingInput{
		ListingDate: trimmed(values, "listing_date"),
		Name:        trimmed(values, "name"),
		Email:       trimmed(values, "email"),
		Address1:    trimmed(values, "address_1"),
		Address2:    trimmed(values, "address_2"),
		PostCode:    trimmed(values, "post_code"),
		Description: values.Get("description"),
	}
	if id, err := strconv.Atoi(trimmed(values, "source_id")); err == nil {
		in.SourceID = id
	}

	// The description length counts the text as submitted; blank text is still missing.
	errs := validateStruct(in)
	if strings.TrimSpace(in.Description) == "" {
		errs.Add("description", "This field is required.")
	}

	var date time.Time
	if in.ListingDate != "" {
		parsed, err := time.Parse(dateLayout, in.ListingDate)
		if err != nil {
			errs.Add("listing_date", "Not a valid date value.")
		}
		date = parsed
	}

	if len(errs) > 0 {
		return Listing{}, errs
	}

	return Listing{
		ListingDate: date,
		SourceID:    in.SourceID,
		Name:        in.Name,
		Email:       in.Email,
		Description: in.Description,
		Address1:    in.Address1,
		Address2:    in.Address2,
		PostCode:    in.PostCode,
		Outgoing:    checked(values, "outgoing"),
	}, nil
}

// ListingValues renders a stored listing as form values.
func ListingValues(l types.Listing) url.Values {
	values := url.Values{}
	values.Set("listing_date", l.ListingDate.Format(dateLayout))
	values.Set("source_id", strconv.Itoa(l.SourceID))
	values.Set("name", l.Name)
	values.Set("email", l.Email)
	values.Set("description", l.Description)
	values.Set("address_1", l.Address1)
	values.Set("address_2", l.Address2)
	values.Set("post_code", l.PostCode)
	if l.Outgoing {
		values.Set("outgoing", "y")
	}
	return values
}
