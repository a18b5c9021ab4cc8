package mirror

import "fmt"

// State is the progress of a single sync operation. A sync moves
// Pending → Authenticated → Located (update and delete) → Mutated → Done,
// or ends in Failed, which must abort the local commit.
type State int

const (
	StatePending State = iota
	StateAuthenticated
	StateLocated
	StateMutated
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateAuthenticated:
		return "authenticated"
	case StateLocated:
		return "located"
	case StateMutated:
		return "mutated"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// SyncError reports a failed sync and the last state it reached.
type SyncError struct {
	Op        string
	ListingID int
	State     State
	Err       error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("mirror %s of listing %d failed after %s: %v", e.Op, e.ListingID, e.State, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}
