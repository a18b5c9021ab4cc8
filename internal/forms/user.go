package forms

import (
	"net/url"

	"github.com/listingdesk/listingdesk/types"
)

// Messages reported when an identity field collides with another user.
const (
	EmailInUse    = "Email is already in use."
	UsernameInUse = "Username is already in use."

	PasswordTooLong = "Field cannot be longer than 72 bytes."
)

// NewUser is a validated add-user submission. Uniqueness of email and
// username needs the database and is checked by the caller.
type NewUser struct {
	Email     string
	Username  string
	FirstName string
	LastName  string
	Password  string
	IsAdmin   bool
}

// EditUser is a validated edit-user submission. The password is not editable.
type EditUser struct {
	Email     string
	Username  string
	FirstName string
	LastName  string
	IsAdmin   bool
}

type identityInput struct {
	Email     string `form:"email" validate:"required,email,max=60"`
	Username  string `form:"username" validate:"required,max=60"`
	FirstName string `form:"first_name" validate:"required,max=60"`
	LastName  string `form:"last_name" validate:"required,max=60"`
}

type newUserInput struct {
	identityInput
	Password        string `form:"password" validate:"required,maxbytes=72,eqfield=ConfirmPassword"`
	ConfirmPassword string `form:"confirm_password"`
}

func identityFrom(values url.Values) identityInput {
	return identityInput{
		Email:     trimmed(values, "email"),
		Username:  trimmed(values, "username"),
		FirstName: trimmed(values, "first_name"),
		LastName:  trimmed(values, "last_name"),
	}
}

func ParseNewUser(values url.Values) (NewUser, Errors) {
	in := newUserInput{
		identityInput:   identityFrom(values),
		Password:        values.Get("password"),
		ConfirmPassword: values.Get("confirm_password"),
	}
	if errs := validateStruct(in); len(errs) > 0 {
		return NewUser{}, errs
	}
	return NewUser{
		Email:     in.Email,
		Username:  in.Username,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Password:  in.Password,
		IsAdmin:   checked(values, "is_admin"),
	}, nil
}

func ParseEditUser(values url.Values) (EditUser, Errors) {
	in := identityFrom(values)
	if errs := validateStruct(in); len(errs) > 0 {
		return EditUser{}, errs
	}
	return EditUser{
		Email:     in.Email,
		Username:  in.Username,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		IsAdmin:   checked(values, "is_admin"),
	}, nil
}

// UserValues renders a stored user as edit form values. The password hash is
// never part of the result.
func UserValues(u types.User) url.Values {
	values := url.Values{}
	values.Set("email", u.Email)
	values.Set("username", u.Username)
	values.Set("first_name", u.FirstName)
	values.Set("last_name", u.LastName)
	if u.IsAdmin {
		values.Set("is_admin", "y")
	}
	return values
}
