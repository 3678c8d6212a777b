package sheets

import (
	"context"
	"fmt"

	sheetsv4 "google.golang.org/api/sheets/v4"
)

// TableClient is the slice of the Sheets API the pipeline needs.
type TableClient interface {
	// Values returns the grid for an A1 range; rows may be ragged.
	Values(ctx context.Context, spreadsheetID, a1 string) ([][]string, error)
	// UpdateValue overwrites a single cell with a raw value.
	UpdateValue(ctx context.Context, spreadsheetID, cell, value string) error
}

// API implements TableClient on top of the Sheets v4 service.
type API struct {
	svc *sheetsv4.Service
}

// NewAPI wraps an authenticated Sheets service.
func NewAPI(svc *sheetsv4.Service) *API {
	return &API{svc: svc}
}

func (a *API) Values(ctx context.Context, spreadsheetID, a1 string) ([][]string, error) {
	resp, err := a.svc.Spreadsheets.Values.Get(spreadsheetID, a1).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get values %s: %w", a1, err)
	}
	grid := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		cells := make([]string, len(row))
		for j, v := range row {
			if v != nil {
				cells[j] = fmt.Sprint(v)
			}
		}
		grid[i] = cells
	}
	return grid, nil
}

func (a *API) UpdateValue(ctx context.Context, spreadsheetID, cell, value string) error {
	vr := &sheetsv4.ValueRange{
		Values: [][]interface{}{{value}},
	}
	_, err := a.svc.Spreadsheets.Values.Update(spreadsheetID, cell, vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", cell, err)
	}
	return nil
}
