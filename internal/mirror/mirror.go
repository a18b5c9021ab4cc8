// Package mirror keeps an external spreadsheet as a row-per-listing copy of
// the listing table. Rows are located by the listing id in the first column.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const defaultTimeout = 20 * time.Second

var (
	// ErrRowNotFound is returned when no row carries the listing id.
	ErrRowNotFound = errors.New("mirror row not found")

	// ErrDocumentNotFound is returned when the spreadsheet cannot be opened by name.
	ErrDocumentNotFound = errors.New("mirror document not found")
)

// Sheet is an opened worksheet. Row indexes are 1-based.
type Sheet interface {
	// FindRow returns the first row whose cell in column equals value.
	FindRow(ctx context.Context, column int, value string) (int, error)
	// InsertRow inserts values as a new row at index, shifting rows below it down.
	InsertRow(ctx context.Context, index int, values []any) error
	// DeleteRow removes the row at index, shifting rows below it up.
	DeleteRow(ctx context.Context, index int) error
	// ReplaceRow deletes the row at index and inserts values at the same index.
	ReplaceRow(ctx context.Context, index int, values []any) error
}

// Opener authenticates against the spreadsheet service and opens the mirror sheet.
type Opener interface {
	Open(ctx context.Context) (Sheet, error)
}

// Mirror applies listing changes to the sheet. Operations are serialized so
// two edits of the same listing cannot interleave their row lookups.
type Mirror struct {
	opener  Opener
	timeout time.Duration
	log     zerolog.Logger
	sem     chan struct{}
}

func New(opener Opener, timeout time.Duration, log zerolog.Logger) *Mirror {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Mirror{
		opener:  opener,
		timeout: timeout,
		log:     log.With().Str("component", "mirror").Logger(),
		sem:     make(chan struct{}, 1),
	}
}

// Insert adds row at InsertRow.
func (m *Mirror) Insert(ctx context.Context, row Row) error {
	op, err := m.begin(ctx, "insert", row.Listing.ID)
	if err != nil {
		return err
	}
	defer op.end()

	sheet, err := op.open()
	if err != nil {
		return err
	}
	if err := sheet.InsertRow(op.ctx, InsertRow, row.Values()); err != nil {
		return op.fail(err)
	}
	op.advance(StateMutated)
	return op.done()
}

// Update replaces the row carrying the listing id in place.
func (m *Mirror) Update(ctx context.Context, row Row) error {
	op, err := m.begin(ctx, "update", row.Listing.ID)
	if err != nil {
		return err
	}
	defer op.end()

	sheet, err := op.open()
	if err != nil {
		return err
	}
	index, err := op.locate(sheet)
	if err != nil {
		return err
	}
	if err := sheet.ReplaceRow(op.ctx, index, row.Values()); err != nil {
		return op.fail(err)
	}
	op.advance(StateMutated)
	return op.done()
}

// Delete removes the row carrying id. A missing row is an error.
func (m *Mirror) Delete(ctx context.Context, id int) error {
	op, err := m.begin(ctx, "delete", id)
	if err != nil {
		return err
	}
	defer op.end()

	sheet, err := op.open()
	if err != nil {
		return err
	}
	index, err := op.locate(sheet)
	if err != nil {
		return err
	}
	if err := sheet.DeleteRow(op.ctx, index); err != nil {
		return op.fail(err)
	}
	op.advance(StateMutated)
	return op.done()
}

// operation tracks one sync through its states.
type operation struct {
	m      *Mirror
	ctx    context.Context
	cancel context.CancelFunc
	name   string
	id     int
	state  State
	log    zerolog.Logger
}

// begin waits for the running operation to finish. The wait counts against
// the operation's timeout; expiry fails the operation in StatePending.
func (m *Mirror) begin(ctx context.Context, name string, id int) (*operation, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	op := &operation{
		m:      m,
		ctx:    ctx,
		cancel: cancel,
		name:   name,
		id:     id,
		state:  StatePending,
		log:    m.log.With().Str("op", name).Int("listing_id", id).Logger(),
	}

	select {
	case m.sem <- struct{}{}:
	case <-ctx.Done():
		err := op.fail(ctx.Err())
		cancel()
		return nil, err
	}
	op.log.Debug().Str("state", op.state.String()).Msg("mirror sync started")
	return op, nil
}

func (op *operation) end() {
	op.cancel()
	<-op.m.sem
}

func (op *operation) advance(state State) {
	op.state = state
	op.log.Debug().Str("state", state.String()).Msg("mirror sync advanced")
}

func (op *operation) open() (Sheet, error) {
	sheet, err := op.m.opener.Open(op.ctx)
	if err != nil {
		return nil, op.fail(err)
	}
	op.advance(StateAuthenticated)
	return sheet, nil
}

func (op *operation) locate(sheet Sheet) (int, error) {
	index, err := sheet.FindRow(op.ctx, IDColumn, Key(op.id))
	if err != nil {
		return 0, op.fail(err)
	}
	op.advance(StateLocated)
	return index, nil
}

func (op *operation) fail(err error) error {
	if ctxErr := op.ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		err = fmt.Errorf("%w: %w", ctxErr, err)
	}
	syncErr := &SyncError{Op: op.name, ListingID: op.id, State: op.state, Err: err}
	op.state = StateFailed
	op.log.Error().Err(err).Str("failed_in", syncErr.State.String()).Msg("mirror sync failed")
	return syncErr
}

func (op *operation) done() error {
	op.state = StateDone
	op.log.Debug().Str("state", op.state.String()).Msg("mirror sync finished")
	return nil
}
