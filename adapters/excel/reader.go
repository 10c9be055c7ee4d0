package excel

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"casedesk/domain/grid"
	"casedesk/internal/errors"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// WorkbookReader reads sheets of a spreadsheet workbook (.xlsx, .xlsm) as raw grids
type WorkbookReader struct {
	filePath string
	logger   *zap.Logger
}

// NewWorkbookReader creates a reader for the workbook at filePath
func NewWorkbookReader(filePath string, logger *zap.Logger) *WorkbookReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkbookReader{filePath: filePath, logger: logger.Named("excel")}
}

// SheetNames returns the sheet names in workbook order
func (r *WorkbookReader) SheetNames(ctx context.Context) ([]string, error) {
	f, err := r.open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return f.GetSheetList(), nil
}

// ReadGrid reads one sheet into a header-less grid. Numeric cells whose display
// is not itself a number (dates, custom formats) are kept as their display text.
func (r *WorkbookReader) ReadGrid(ctx context.Context, sheet string) (grid.Grid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	startTime := time.Now()
	f, err := r.open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, errors.SheetNotFound(sheet)
	}

	formatted, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read sheet %q", sheet)
	}
	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read raw values of sheet %q", sheet)
	}

	g := make(grid.Grid, len(formatted))
	for i, row := range formatted {
		cells := make([]grid.Cell, len(row))
		for j, display := range row {
			if display == "" {
				cells[j] = grid.NewEmptyCell()
				continue
			}
			cells[j] = r.classify(f, sheet, i, j, display, valueAt(raw, i, j))
		}
		g[i] = cells
	}

	r.logger.Debug("sheet read",
		zap.String("sheet", sheet),
		zap.Int("rows", g.Height()),
		zap.Int("cols", g.Width()),
		zap.Duration("elapsed", time.Since(startTime)))

	return g, nil
}

func (r *WorkbookReader) open() (*excelize.File, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, errors.NotFound(fmt.Sprintf("workbook %s", r.filePath))
	}
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open workbook")
	}
	return f, nil
}

// classify turns one non-empty cell into a typed grid cell using the native cell type
func (r *WorkbookReader) classify(f *excelize.File, sheet string, row, col int, display, raw string) grid.Cell {
	ref, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return grid.NewTextCell(display)
	}
	cellType, err := f.GetCellType(sheet, ref)
	if err != nil {
		return grid.NewTextCell(display)
	}

	switch cellType {
	case excelize.CellTypeBool:
		return grid.NewBoolCell(raw == "1" || strings.EqualFold(raw, "true"))
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil || !looksNumeric(display) {
			return grid.NewTextCell(display)
		}
		return grid.NewNumberCell(n, display)
	default:
		return grid.NewTextCell(display)
	}
}

// looksNumeric reports whether a formatted value still reads as a number
func looksNumeric(display string) bool {
	s := strings.TrimSpace(display)
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", "")
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = s[1 : len(s)-1]
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func valueAt(rows [][]string, i, j int) string {
	if i < len(rows) && j < len(rows[i]) {
		return rows[i][j]
	}
	return ""
}
