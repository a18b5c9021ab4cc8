package services

import (
	"errors"

	"github.com/listingdesk/listingdesk/types"
)

var (
	// ErrForbidden is returned when the acting user lacks the admin capability.
	ErrForbidden = errors.New("admin access required")

	// ErrInvalidCredentials is returned by Authenticate for any mismatch.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserHasListings is returned when deleting a user who still owns listings.
	ErrUserHasListings = errors.New("user still owns listings")

	// ErrSourceInUse is returned when deleting a source still referenced by listings.
	ErrSourceInUse = errors.New("listing source is still in use")

	// ErrSelfDelete is returned when an admin tries to delete their own account.
	ErrSelfDelete = errors.New("cannot delete the signed-in user")
)

func authorize(actor types.User) error {
	if actor.ID < 1 || !actor.IsAdmin {
		return ErrForbidden
	}
	return nil
}
