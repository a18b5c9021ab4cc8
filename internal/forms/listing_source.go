package forms

import (
	"net/url"

	"github.com/listingdesk/listingdesk/types"
)

// ListingSource is a validated listing source submission.
type ListingSource struct {
	Description string
}

type sourceInput struct {
	Description string `form:"description" validate:"required,length=5-100"`
}

func ParseListingSource(values url.Values) (ListingSource, Errors) {
	in := sourceInput{Description: trimmed(values, "description")}
	if errs := validateStruct(in); len(errs) > 0 {
		return ListingSource{}, errs
	}
	return ListingSource{Description: in.Description}, nil
}

func ListingSourceValues(s types.ListingSource) url.Values {
	return url.Values{"description": {s.Description}}
}
