package app

import (
	"context"
	"strconv"
	"strings"
	"time"

	"casedesk/adapters/coercer"
	"casedesk/domain/grid"
	"casedesk/domain/table"
	"casedesk/internal/errors"
	"casedesk/ports"

	"go.uber.org/zap"
)

// CaseLoader turns one workbook sheet into a canonical case table
type CaseLoader struct {
	reader  ports.WorkbookReader
	anchor  string
	coercer *coercer.TypeCoercer
	logger  *zap.Logger
}

// NewCaseLoader creates a loader reading sheets through reader and locating
// the data region by the anchor token
func NewCaseLoader(reader ports.WorkbookReader, anchor string, typeCoercer *coercer.TypeCoercer, logger *zap.Logger) *CaseLoader {
	if anchor == "" {
		anchor = grid.DefaultAnchor
	}
	if typeCoercer == nil {
		typeCoercer = coercer.NewTypeCoercer(coercer.DefaultCoercionConfig())
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CaseLoader{
		reader:  reader,
		anchor:  anchor,
		coercer: typeCoercer,
		logger:  logger.Named("loader"),
	}
}

// SheetNames lists the workbook's sheets in order
func (l *CaseLoader) SheetNames(ctx context.Context) ([]string, error) {
	return l.reader.SheetNames(ctx)
}

// ResolveSheet maps an identifier to a sheet name. An exact name wins; otherwise
// a decimal identifier selects the sheet at that position.
func (l *CaseLoader) ResolveSheet(ctx context.Context, id string) (string, error) {
	names, err := l.reader.SheetNames(ctx)
	if err != nil {
		return "", err
	}
	for _, name := range names {
		if name == id {
			return name, nil
		}
	}
	if idx, err := strconv.Atoi(strings.TrimSpace(id)); err == nil && idx >= 0 && idx < len(names) {
		return names[idx], nil
	}
	return "", errors.SheetNotFound(id)
}

// Load reads the sheet, rebuilds its header and returns the rows below the anchor
// that carry an anchor value, trimmed to the canonical case columns.
func (l *CaseLoader) Load(ctx context.Context, sheet string) (*table.Table, error) {
	startTime := time.Now()

	name, err := l.ResolveSheet(ctx, sheet)
	if err != nil {
		return nil, err
	}

	g, err := l.reader.ReadGrid(ctx, name)
	if err != nil {
		return nil, err
	}

	headers, err := grid.Reconstruct(g, l.anchor)
	if err != nil {
		return nil, err
	}

	// first and last columns are administrative
	width := len(headers.Names)
	kept := width - 2
	if kept < 0 {
		kept = 0
	}
	if kept != len(table.CaseColumns) {
		return nil, errors.SchemaMismatch(len(table.CaseColumns), kept)
	}

	rows := make([][]grid.Cell, 0, g.Height()-headers.DataStart())
	for i := headers.DataStart(); i < g.Height(); i++ {
		if g.At(i, headers.Anchor.Col).IsEmpty() {
			continue
		}
		cells := make([]grid.Cell, kept)
		for j := range cells {
			cells[j] = g.At(i, j+1)
		}
		rows = append(rows, cells)
	}

	t := l.coercer.BuildTable(name, table.CaseColumns, rows)

	l.logger.Debug("case table loaded",
		zap.String("sheet", name),
		zap.String("anchor_column", headers.AnchorName),
		zap.Int("anchor_row", headers.Anchor.Row),
		zap.Int("rows", t.Len()),
		zap.Duration("elapsed", time.Since(startTime)))

	return t, nil
}
