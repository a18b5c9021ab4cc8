package types

// ListingSource is a named category describing where a listing originated.
type ListingSource struct {
	// ID is the unique identifier of the source.
	ID int `json:"id" db:"id"`

	// Description is the unique human-readable label of the source.
	Description string `json:"description" db:"description"`
}
