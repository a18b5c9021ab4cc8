package forms

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/listingdesk/listingdesk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validListingValues() url.Values {
	return url.Values{
		"listing_date": {"2024-02-29"},
		"name":         {"Jane Doe"},
		"email":        {"jane@example.com"},
		"source_id":    {"3"},
		"address_1":    {"12 Quay Street"},
		"address_2":    {""},
		"post_code":    {"M3 3JE"},
		"description":  {"Two boxes of donated books"},
	}
}

func TestParseListing_Valid(t *testing.T) {
	listing, errs := ParseListing(validListingValues())
	require.Nil(t, errs)

	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), listing.ListingDate)
	assert.Equal(t, 3, listing.SourceID)
	assert.Equal(t, "Jane Doe", listing.Name)
	assert.False(t, listing.Outgoing, "outgoing defaults to false")
}

func TestParseListing_DescriptionLength(t *testing.T) {
	tests := []struct {
		length int
		valid  bool
	}{
		{0, false},
		{4, false},
		{5, true},
		{140, true},
		{141, false},
	}
	for _, tt := range tests {
		values := validListingValues()
		values.Set("description", strings.Repeat("x", tt.length))

		_, errs := ParseListing(values)
		if tt.valid {
			assert.Nil(t, errs, "length %d", tt.length)
			continue
		}
		require.NotNil(t, errs, "length %d", tt.length)
		assert.Equal(t, "Field must be between 5 and 140 characters long.", errs.Get("description"))
	}
}

func TestParseListing_DescriptionKeepsSubmittedText(t *testing.T) {
	values := validListingValues()
	values.Set("description", " abcd")

	listing, errs := ParseListing(values)
	require.Nil(t, errs)
	assert.Equal(t, " abcd", listing.Description)

	values.Set("description", "     ")
	_, errs = ParseListing(values)
	require.NotNil(t, errs)
	assert.Equal(t, "This field is required.", errs.Get("description"))
}

func TestParseListing_DescriptionCountsCharacters(t *testing.T) {
	values := validListingValues()
	values.Set("description", strings.Repeat("é", 140))

	_, errs := ParseListing(values)
	assert.Nil(t, errs)
}

func TestParseListing_RequiredFields(t *testing.T) {
	values := validListingValues()
	values.Del("listing_date")
	values.Del("name")
	values.Del("source_id")

	_, errs := ParseListing(values)
	require.NotNil(t, errs)
	assert.Equal(t, "This field is required.", errs.Get("listing_date"))
	assert.Equal(t, "This field is required.", errs.Get("name"))
	assert.Equal(t, "Not a valid choice.", errs.Get("source_id"))
}

func TestParseListing_InvalidDateAndEmail(t *testing.T) {
	values := validListingValues()
	values.Set("listing_date", "29/02/2024")
	values.Set("email", "not-an-email")

	_, errs := ParseListing(values)
	require.NotNil(t, errs)
	assert.Equal(t, "Not a valid date value.", errs.Get("listing_date"))
	assert.Equal(t, "Invalid email address.", errs.Get("email"))
}

func TestParseListing_EmailOptional(t *testing.T) {
	values := validListingValues()
	values.Del("email")

	listing, errs := ParseListing(values)
	require.Nil(t, errs)
	assert.Empty(t, listing.Email)
}

func TestParseListing_Outgoing(t *testing.T) {
	for _, raw := range []string{"y", "on", "true"} {
		values := validListingValues()
		values.Set("outgoing", raw)
		listing, errs := ParseListing(values)
		require.Nil(t, errs)
		assert.True(t, listing.Outgoing, raw)
	}
}

func TestListingValues_RoundTrip(t *testing.T) {
	stored := types.Listing{
		ListingDate: time.Date(2023, 12, 24, 0, 0, 0, 0, time.UTC),
		SourceID:    3,
		Name:        "Jane Doe",
		Description: "Two boxes of donated books",
		Address1:    "12 Quay Street",
		PostCode:    "M3 3JE",
		Outgoing:    true,
	}

	parsed, errs := ParseListing(ListingValues(stored))
	require.Nil(t, errs)
	assert.Equal(t, stored.ListingDate, parsed.ListingDate)
	assert.True(t, parsed.Outgoing)
}

func TestParseListingSource(t *testing.T) {
	_, errs := ParseListingSource(url.Values{})
	require.NotNil(t, errs)
	assert.Equal(t, "This field is required.", errs.Get("description"))

	_, errs = ParseListingSource(url.Values{"description": {"Web"}})
	require.NotNil(t, errs)
	assert.Equal(t, "Field must be between 5 and 100 characters long.", errs.Get("description"))

	_, errs = ParseListingSource(url.Values{"description": {strings.Repeat("s", 101)}})
	require.NotNil(t, errs)

	source, errs := ParseListingSource(url.Values{"description": {"  Walk-in donation "}})
	require.Nil(t, errs)
	assert.Equal(t, "Walk-in donation", source.Description)
}

func validUserValues() url.Values {
	return url.Values{
		"email":            {"sam@example.com"},
		"username":         {"sam"},
		"first_name":       {"Sam"},
		"last_name":        {"Lee"},
		"password":         {"s3cret!"},
		"confirm_password": {"s3cret!"},
	}
}

func TestParseNewUser(t *testing.T) {
	user, errs := ParseNewUser(validUserValues())
	require.Nil(t, errs)
	assert.Equal(t, "sam", user.Username)
	assert.Equal(t, "s3cret!", user.Password)
	assert.False(t, user.IsAdmin)

	values := validUserValues()
	values.Set("is_admin", "y")
	user, errs = ParseNewUser(values)
	require.Nil(t, errs)
	assert.True(t, user.IsAdmin)
}

func TestParseNewUser_PasswordMismatch(t *testing.T) {
	values := validUserValues()
	values.Set("confirm_password", "other")

	_, errs := ParseNewUser(values)
	require.NotNil(t, errs)
	assert.Equal(t, "Field must be equal to confirm_password.", errs.Get("password"))
}

func TestParseNewUser_PasswordTooLong(t *testing.T) {
	values := validUserValues()
	values.Set("password", strings.Repeat("p", 73))
	values.Set("confirm_password", strings.Repeat("p", 73))

	_, errs := ParseNewUser(values)
	require.NotNil(t, errs)
	assert.Equal(t, PasswordTooLong, errs.Get("password"))

	// Multi-byte characters count by their encoded length.
	values.Set("password", strings.Repeat("é", 37))
	values.Set("confirm_password", strings.Repeat("é", 37))
	_, errs = ParseNewUser(values)
	assert.Equal(t, PasswordTooLong, errs.Get("password"))

	values.Set("password", strings.Repeat("p", 72))
	values.Set("confirm_password", strings.Repeat("p", 72))
	_, errs = ParseNewUser(values)
	assert.Nil(t, errs)
}

func TestParseNewUser_MissingAndInvalid(t *testing.T) {
	values := validUserValues()
	values.Set("email", "sam.example.com")
	values.Del("username")
	values.Del("password")
	values.Del("confirm_password")

	_, errs := ParseNewUser(values)
	require.NotNil(t, errs)
	assert.Equal(t, "Invalid email address.", errs.Get("email"))
	assert.Equal(t, "This field is required.", errs.Get("username"))
	assert.Equal(t, "This field is required.", errs.Get("password"))
}

func TestParseEditUser_IgnoresPassword(t *testing.T) {
	values := validUserValues()
	values.Set("password", "changed")

	user, errs := ParseEditUser(values)
	require.Nil(t, errs)
	assert.Equal(t, "sam@example.com", user.Email)

	values.Del("first_name")
	_, errs = ParseEditUser(values)
	require.NotNil(t, errs)
	assert.Contains(t, errs.Error(), "first_name: This field is required.")
}

func TestUserValues_OmitsPassword(t *testing.T) {
	values := UserValues(types.User{Email: "a@example.com", PasswordHash: "hash", IsAdmin: true})
	assert.Empty(t, values.Get("password"))
	assert.Empty(t, values.Get("password_hash"))
	assert.Equal(t, "y", values.Get("is_admin"))
}

func TestErrorsAddKeepsFirstMessage(t *testing.T) {
	errs := Errors{}
	errs.Add("email", EmailInUse)
	errs.Add("email", "other")
	assert.Equal(t, EmailInUse, errs.Get("email"))
	assert.Equal(t, "invalid form: email: Email is already in use.", errs.Error())
}
