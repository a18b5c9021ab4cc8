package store

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a write violates a unique constraint.
var ErrDuplicate = errors.New("duplicate value")

// ErrReferenced is returned when a delete is blocked by rows referencing the record.
var ErrReferenced = errors.New("record is still referenced")

// Names of the unique constraints callers may need to tell apart.
const (
	ConstraintUserEmail         = "ix_user_email"
	ConstraintUserUsername      = "ix_user_username"
	ConstraintSourceDescription = "listing_source_description_key"
)

// ConstraintError reports which constraint a write violated.
type ConstraintError struct {
	Kind       error
	Constraint string
	Err        error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%v (%s)", e.Kind, e.Constraint)
}

func (e *ConstraintError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// IsDuplicate reports whether err is a unique violation of constraint.
func IsDuplicate(err error, constraint string) bool {
	var ce *ConstraintError
	if !errors.As(err, &ce) {
		return false
	}
	return errors.Is(ce.Kind, ErrDuplicate) && ce.Constraint == constraint
}

func translateError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code.Name() {
	case "unique_violation":
		return &ConstraintError{Kind: ErrDuplicate, Constraint: pqErr.Constraint, Err: err}
	case "foreign_key_violation":
		return &ConstraintError{Kind: ErrReferenced, Constraint: pqErr.Constraint, Err: err}
	}
	return err
}
