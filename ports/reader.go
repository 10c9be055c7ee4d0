package ports

import (
	"context"

	"casedesk/domain/grid"
	"casedesk/domain/table"
)

// WorkbookReader gives read-only access to the sheets of the source workbook.
// Every call opens the document afresh; nothing is cached between calls.
type WorkbookReader interface {
	// SheetNames returns the sheet names in workbook order
	SheetNames(ctx context.Context) ([]string, error)

	// ReadGrid returns the raw, header-less grid of the named sheet
	ReadGrid(ctx context.Context, sheet string) (grid.Grid, error)
}

// TableReader reads a self-describing table (header row plus data) with an inferred schema
type TableReader interface {
	ReadTable(ctx context.Context) (*table.Table, error)
}

// QueryEngine executes a restricted SQL query against a table referenced as "self"
type QueryEngine interface {
	Query(ctx context.Context, t *table.Table, query string) (*table.Result, error)
}
