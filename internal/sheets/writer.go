package sheets

import (
	"context"
	"errors"
	"fmt"

	"sheetmail/internal/model"
)

// FallbackStatusColumn is used when the Status header cannot be located.
const FallbackStatusColumn = 2 // "C"

// Writer records a row's outcome in its Status cell.
type Writer struct {
	client        TableClient
	spreadsheetID string
	anchor        Range
}

func NewWriter(client TableClient, spreadsheetID, rangeName string) *Writer {
	return &Writer{client: client, spreadsheetID: spreadsheetID, anchor: ParseRange(rangeName)}
}

// Locate computes the Status cell for the row at rowIndex. The column is
// looked up by name on every call; when that fails the fallback column is
// returned together with ErrStatusColumn.
func (w *Writer) Locate(table *model.RowTable, rowIndex int) (Cell, error) {
	cell := Cell{
		Sheet: w.anchor.Sheet,
		Row:   w.anchor.StartRow + 1 + rowIndex,
	}
	idx := table.ColumnIndex(model.StatusField)
	if idx < 0 {
		cell.Column = FallbackStatusColumn
		return cell, fmt.Errorf("%w: using column %s", model.ErrStatusColumn, ColumnName(FallbackStatusColumn))
	}
	cell.Column = w.anchor.StartCol + idx
	return cell, nil
}

// Write overwrites the row's Status cell. It performs exactly one update and
// never retries; a failure is returned wrapped in ErrStatusWrite.
func (w *Writer) Write(ctx context.Context, table *model.RowTable, rowIndex int, status model.Status) (Cell, error) {
	cell, locErr := w.Locate(table, rowIndex)
	if err := w.client.UpdateValue(ctx, w.spreadsheetID, cell.A1(), string(status)); err != nil {
		return cell, errors.Join(locErr, fmt.Errorf("%w at %s: %w", model.ErrStatusWrite, cell, err))
	}
	return cell, locErr
}
