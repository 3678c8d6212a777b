package sheets

import (
	"context"
	"fmt"
	"log/slog"

	"sheetmail/internal/model"
	"sheetmail/internal/util"
)

// Source reads the configured range into a RowTable.
type Source struct {
	client        TableClient
	spreadsheetID string
	rangeName     string
	log           *slog.Logger
}

func NewSource(client TableClient, spreadsheetID, rangeName string, log *slog.Logger) *Source {
	return &Source{client: client, spreadsheetID: spreadsheetID, rangeName: rangeName, log: log}
}

// Fetch takes one snapshot of the range. An empty range yields an empty
// table, not an error.
func (s *Source) Fetch(ctx context.Context) (*model.RowTable, error) {
	values, err := s.client.Values(ctx, s.spreadsheetID, s.rangeName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrFetch, err)
	}
	if len(values) == 0 {
		s.log.InfoContext(ctx, "No data found in sheet.", slog.String("range", s.rangeName))
	}
	return BuildTable(s.rangeName, values), nil
}

// BuildTable turns a raw values grid into a RowTable. The first row holds
// the headers; every other row is right-padded to the header count and
// never truncated. A Status column is appended when the headers lack one.
func BuildTable(rangeName string, values [][]string) *model.RowTable {
	t := &model.RowTable{Range: rangeName}
	if len(values) == 0 {
		return t
	}

	headers := make([]string, len(values[0]))
	for i, h := range values[0] {
		headers[i] = util.NormalizeHeader(h)
	}
	t.Headers = headers
	if t.ColumnIndex(model.StatusField) < 0 {
		t.Headers = append(t.Headers, model.StatusField)
	}

	t.Rows = make([]model.Row, 0, len(values)-1)
	for i, raw := range values[1:] {
		cells := make([]string, max(len(raw), len(headers)))
		copy(cells, raw)

		fields := make(map[string]string, len(t.Headers))
		fields[model.StatusField] = ""
		for j, h := range headers {
			fields[h] = cells[j]
		}
		t.Rows = append(t.Rows, model.Row{Index: i, Values: cells, Fields: fields})
	}
	return t
}
