package grid

import (
	"strconv"
	"strings"
)

// CellKind tags the variant held by a Cell
type CellKind string

const (
	CellEmpty  CellKind = "empty"
	CellText   CellKind = "text"
	CellNumber CellKind = "number"
	CellBool   CellKind = "bool"
)

// Cell is one spreadsheet cell value. Text carries the display form for every
// non-empty kind so header and anchor matching can work on what the user sees.
type Cell struct {
	Kind   CellKind `json:"kind"`
	Text   string   `json:"text,omitempty"`
	Number float64  `json:"number,omitempty"`
	Bool   bool     `json:"bool,omitempty"`
}

// NewEmptyCell creates an empty cell
func NewEmptyCell() Cell {
	return Cell{Kind: CellEmpty}
}

// NewTextCell creates a text cell; the empty string yields an empty cell
func NewTextCell(s string) Cell {
	if s == "" {
		return NewEmptyCell()
	}
	return Cell{Kind: CellText, Text: s}
}

// NewNumberCell creates a numeric cell with its formatted display text
func NewNumberCell(n float64, display string) Cell {
	if display == "" {
		display = strconv.FormatFloat(n, 'f', -1, 64)
	}
	return Cell{Kind: CellNumber, Number: n, Text: display}
}

// NewBoolCell creates a boolean cell
func NewBoolCell(b bool) Cell {
	display := "FALSE"
	if b {
		display = "TRUE"
	}
	return Cell{Kind: CellBool, Bool: b, Text: display}
}

// String returns the display form of the cell
func (c Cell) String() string {
	if c.Kind == CellEmpty {
		return ""
	}
	return c.Text
}

// Trimmed returns the display form without surrounding whitespace
func (c Cell) Trimmed() string {
	return strings.TrimSpace(c.String())
}

// IsEmpty reports whether the cell holds no value. Whitespace-only text counts as empty.
func (c Cell) IsEmpty() bool {
	switch c.Kind {
	case CellEmpty:
		return true
	case CellText:
		return strings.TrimSpace(c.Text) == ""
	default:
		return false
	}
}

// Grid is a header-less, row-major view of one sheet
type Grid [][]Cell

// Height returns the number of rows
func (g Grid) Height() int {
	return len(g)
}

// Width returns the length of the longest row
func (g Grid) Width() int {
	width := 0
	for _, row := range g {
		if len(row) > width {
			width = len(row)
		}
	}
	return width
}

// At returns the cell at (row, col); positions outside the grid read as empty
func (g Grid) At(row, col int) Cell {
	if row < 0 || row >= len(g) || col < 0 || col >= len(g[row]) {
		return NewEmptyCell()
	}
	return g[row][col]
}

// FromStrings builds a grid of text cells, mainly for fixtures
func FromStrings(rows [][]string) Grid {
	g := make(Grid, len(rows))
	for i, row := range rows {
		g[i] = make([]Cell, len(row))
		for j, v := range row {
			g[i][j] = NewTextCell(v)
		}
	}
	return g
}
