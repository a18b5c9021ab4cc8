package sheets

import (
	"context"
	"fmt"
	"strings"

	"github.com/listingdesk/listingdesk/internal/mirror"
	"google.golang.org/api/sheets/v4"
)

// Worksheet is one opened sheet of a spreadsheet.
type Worksheet struct {
	service       *sheets.Service
	spreadsheetID string
	sheetID       int64
	title         string
}

// FindRow scans column for a cell whose displayed value equals value.
func (w *Worksheet) FindRow(ctx context.Context, column int, value string) (int, error) {
	resp, err := w.service.Spreadsheets.Values.Get(w.spreadsheetID, w.columnRange(column)).
		MajorDimension("ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return 0, fmt.Errorf("read column %d: %w", column, err)
	}
	if index := findValue(resp.Values, value); index > 0 {
		return index, nil
	}
	return 0, fmt.Errorf("%w: %q in column %d", mirror.ErrRowNotFound, value, column)
}

func (w *Worksheet) InsertRow(ctx context.Context, index int, values []any) error {
	return w.batchUpdate(ctx,
		w.insertDimension(index),
		w.updateCells(index, values),
	)
}

func (w *Worksheet) DeleteRow(ctx context.Context, index int) error {
	return w.batchUpdate(ctx, w.deleteDimension(index))
}

// ReplaceRow deletes and re-inserts the row in a single batch, so readers
// never observe the sheet without it.
func (w *Worksheet) ReplaceRow(ctx context.Context, index int, values []any) error {
	return w.batchUpdate(ctx,
		w.deleteDimension(index),
		w.insertDimension(index),
		w.updateCells(index, values),
	)
}

func (w *Worksheet) batchUpdate(ctx context.Context, requests ...*sheets.Request) error {
	_, err := w.service.Spreadsheets.BatchUpdate(w.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	return err
}

func (w *Worksheet) rowRange(index int) *sheets.DimensionRange {
	return &sheets.DimensionRange{
		SheetId:         w.sheetID,
		Dimension:       "ROWS",
		StartIndex:      int64(index - 1),
		EndIndex:        int64(index),
		ForceSendFields: []string{"SheetId", "StartIndex"},
	}
}

func (w *Worksheet) insertDimension(index int) *sheets.Request {
	return &sheets.Request{InsertDimension: &sheets.InsertDimensionRequest{
		Range: w.rowRange(index),
	}}
}

func (w *Worksheet) deleteDimension(index int) *sheets.Request {
	return &sheets.Request{DeleteDimension: &sheets.DeleteDimensionRequest{
		Range: w.rowRange(index),
	}}
}

func (w *Worksheet) updateCells(index int, values []any) *sheets.Request {
	return &sheets.Request{UpdateCells: &sheets.UpdateCellsRequest{
		Start: &sheets.GridCoordinate{
			SheetId:         w.sheetID,
			RowIndex:        int64(index - 1),
			ColumnIndex:     0,
			ForceSendFields: []string{"SheetId", "RowIndex", "ColumnIndex"},
		},
		Rows:   []*sheets.RowData{{Values: cells(values)}},
		Fields: "userEnteredValue",
	}}
}

func (w *Worksheet) columnRange(column int) string {
	letter := columnLetter(column)
	return fmt.Sprintf("'%s'!%s:%s", strings.ReplaceAll(w.title, "'", "''"), letter, letter)
}

func findValue(rows [][]any, value string) int {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		if fmt.Sprint(row[0]) == value {
			return i + 1
		}
	}
	return 0
}

func cells(values []any) []*sheets.CellData {
	out := make([]*sheets.CellData, 0, len(values))
	for _, value := range values {
		out = append(out, &sheets.CellData{UserEnteredValue: extendedValue(value)})
	}
	return out
}

func extendedValue(value any) *sheets.ExtendedValue {
	switch v := value.(type) {
	case nil:
		return &sheets.ExtendedValue{StringValue: new(string)}
	case string:
		return &sheets.ExtendedValue{StringValue: &v}
	case bool:
		return &sheets.ExtendedValue{BoolValue: &v}
	case int:
		n := float64(v)
		return &sheets.ExtendedValue{NumberValue: &n}
	case int64:
		n := float64(v)
		return &sheets.ExtendedValue{NumberValue: &n}
	case float64:
		return &sheets.ExtendedValue{NumberValue: &v}
	}
	s := fmt.Sprint(value)
	return &sheets.ExtendedValue{StringValue: &s}
}

// columnLetter converts a 1-based column index to A1 notation.
func columnLetter(column int) string {
	var letters []byte
	for column > 0 {
		column--
		letters = append([]byte{byte('A' + column%26)}, letters...)
		column /= 26
	}
	return string(letters)
}
