package coercer

import (
	"math"
	"strconv"
	"strings"
	"time"

	"casedesk/domain/grid"
	"casedesk/domain/table"
)

// TypeCoercer infers column types from raw cells and converts cells to typed values
type TypeCoercer struct {
	config CoercionConfig
}

// CoercionConfig defines the parsing rules used during inference
type CoercionConfig struct {
	DateLayouts []string `json:"date_layouts"` // layouts a text cell may match to count as a date
}

// DefaultCoercionConfig returns the layouts seen in exported case sheets and mail dumps
func DefaultCoercionConfig() CoercionConfig {
	return CoercionConfig{
		DateLayouts: []string{
			time.RFC3339,
			"2006-01-02T15:04:05",
			"2006-01-02 15:04:05",
			"2006-01-02",
			"02/01/2006",
			"2/1/2006",
			"02/01/2006 15:04",
			"01-02-06",
			"2006/01/02",
			"02-Jan-2006",
			"Mon, 02 Jan 2006 15:04:05 -0700",
		},
	}
}

// NewTypeCoercer creates a coercer with the given config
func NewTypeCoercer(config CoercionConfig) *TypeCoercer {
	return &TypeCoercer{config: config}
}

// BuildTable infers a type per column and converts every cell. Rows shorter
// than the column list read as empty.
func (c *TypeCoercer) BuildTable(name string, columns []string, rows [][]grid.Cell) *table.Table {
	t := &table.Table{
		Name:    name,
		Columns: make([]table.Column, len(columns)),
		Rows:    make([][]any, len(rows)),
	}

	column := make([]grid.Cell, len(rows))
	for j, colName := range columns {
		for i, row := range rows {
			column[i] = cellAt(row, j)
		}
		t.Columns[j] = table.Column{Name: colName, Type: c.InferType(column)}
	}

	for i, row := range rows {
		values := make([]any, len(columns))
		for j := range columns {
			values[j] = c.Convert(cellAt(row, j), t.Columns[j].Type)
		}
		t.Rows[i] = values
	}

	return t
}

// InferType picks the narrowest type every non-empty cell fits. Whitespace-only
// text is a value here; only the anchor filter treats it as blank.
func (c *TypeCoercer) InferType(cells []grid.Cell) table.ColumnType {
	var valid, numbers, integers, bools, dates int
	for _, cell := range cells {
		if cell.Kind == grid.CellEmpty {
			continue
		}
		valid++
		switch cell.Kind {
		case grid.CellNumber:
			numbers++
			if isIntegral(cell.Number) {
				integers++
			}
		case grid.CellBool:
			bools++
		case grid.CellText:
			if c.isDate(cell.Trimmed()) {
				dates++
			}
		}
	}

	switch {
	case valid == 0:
		return table.TypeNull
	case numbers == valid && integers == valid:
		return table.TypeInteger
	case numbers == valid:
		return table.TypeFloat
	case bools == valid:
		return table.TypeBoolean
	case dates == valid:
		return table.TypeDate
	default:
		return table.TypeString
	}
}

// Convert turns a cell into the Go value stored for a column of type t
func (c *TypeCoercer) Convert(cell grid.Cell, t table.ColumnType) any {
	if cell.Kind == grid.CellEmpty {
		return nil
	}
	switch t {
	case table.TypeInteger:
		return int64(cell.Number)
	case table.TypeFloat:
		return cell.Number
	case table.TypeBoolean:
		return cell.Bool
	default:
		return cell.String()
	}
}

// ParseText classifies a raw text field the way a CSV reader would: numbers and
// true/false literals become typed cells, the empty field becomes an empty cell.
func (c *TypeCoercer) ParseText(raw string) grid.Cell {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return grid.NewTextCell(raw)
	}
	if n, ok := parseNumber(trimmed); ok {
		return grid.NewNumberCell(n, trimmed)
	}
	switch strings.ToLower(trimmed) {
	case "true":
		return grid.NewBoolCell(true)
	case "false":
		return grid.NewBoolCell(false)
	}
	return grid.NewTextCell(raw)
}

func (c *TypeCoercer) isDate(s string) bool {
	for _, layout := range c.config.DateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// parseNumber accepts plain decimal and scientific literals only
func parseNumber(s string) (float64, bool) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return float64(i), true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func isIntegral(f float64) bool {
	return f == math.Trunc(f) && math.Abs(f) < 1<<53
}

func cellAt(row []grid.Cell, j int) grid.Cell {
	if j < len(row) {
		return row[j]
	}
	return grid.NewEmptyCell()
}
