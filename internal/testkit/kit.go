package testkit

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"casedesk/domain/grid"
	"casedesk/domain/table"

	"github.com/xuri/excelize/v2"
)

// Sheet is a named block of rows written verbatim into a workbook
type Sheet struct {
	Name string
	Rows [][]interface{}
}

// CaseSheetOptions shapes a generated case sheet
type CaseSheetOptions struct {
	DataRows  int   // number of data rows below the header
	NullSTT   []int // data row indices whose STT cell is left blank
	ExtraCols int   // business columns added (positive) or removed (negative) to break the schema
}

// Width returns the number of columns of the generated sheet: one leading
// administrative column, the business columns and one trailing sentinel column.
func (o CaseSheetOptions) Width() int {
	return len(table.CaseColumns) + o.ExtraCols + 2
}

// CaseSheetRows builds a sheet shaped like the court case registers: a title row,
// a two-row grouped header with the anchor in column 1 of the second header row,
// then data rows. Data rows start at index 3.
func CaseSheetRows(opts CaseSheetOptions) [][]interface{} {
	width := opts.Width()
	business := width - 2

	title := make([]interface{}, width)
	title[1] = "DANH SÁCH VỤ VIỆC"

	upper := make([]interface{}, width)
	lower := make([]interface{}, width)
	upper[0] = "Mã nội bộ"
	lower[1] = grid.DefaultAnchor
	for k := 1; k < business; k++ {
		col := k + 1
		switch {
		case k >= 3 && k <= 5:
			upper[col] = "Thụ lý"
			lower[col] = fmt.Sprintf("Cột %d", k)
		case k >= 14 && k <= 17:
			upper[col] = "Giải quyết"
			lower[col] = fmt.Sprintf("Cột %d", k)
		default:
			upper[col] = fmt.Sprintf("Cột %d", k)
		}
	}
	upper[width-1] = "Kiểm tra"

	nulls := make(map[int]bool, len(opts.NullSTT))
	for _, i := range opts.NullSTT {
		nulls[i] = true
	}

	rows := [][]interface{}{title, upper, lower}
	for i := 0; i < opts.DataRows; i++ {
		row := make([]interface{}, width)
		row[0] = fmt.Sprintf("ID-%03d", i)
		if !nulls[i] {
			row[1] = i + 1
		}
		row[2] = "Dân sự"
		row[3] = fmt.Sprintf("Vụ án %d", i)
		row[4] = fmt.Sprintf("%d/TLST", 100+i)
		row[5] = 30 + i
		for col := 6; col < width-1; col++ {
			row[col] = fmt.Sprintf("r%dc%d", i, col)
		}
		row[width-1] = "x"
		rows = append(rows, row)
	}
	return rows
}

// CaseGrid converts CaseSheetRows into an in-memory grid
func CaseGrid(opts CaseSheetOptions) grid.Grid {
	rows := CaseSheetRows(opts)
	g := make(grid.Grid, len(rows))
	for i, row := range rows {
		g[i] = make([]grid.Cell, len(row))
		for j, v := range row {
			g[i][j] = toCell(v)
		}
	}
	return g
}

// WriteWorkbook saves the sheets into a new .xlsx file under a test temp dir
func WriteWorkbook(t testing.TB, sheets ...Sheet) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet.Name); err != nil {
				t.Fatalf("rename sheet: %v", err)
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			t.Fatalf("create sheet %q: %v", sheet.Name, err)
		}

		for r, row := range sheet.Rows {
			for c, v := range row {
				if v == nil {
					continue
				}
				ref, err := excelize.CoordinatesToCellName(c+1, r+1)
				if err != nil {
					t.Fatalf("cell name: %v", err)
				}
				if err := f.SetCellValue(sheet.Name, ref, v); err != nil {
					t.Fatalf("set %s!%s: %v", sheet.Name, ref, err)
				}
			}
		}
	}

	path := filepath.Join(t.TempDir(), "cases.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}

// WriteFile writes content into a file under a test temp dir
func WriteFile(t testing.TB, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func toCell(v interface{}) grid.Cell {
	switch x := v.(type) {
	case nil:
		return grid.NewEmptyCell()
	case string:
		return grid.NewTextCell(x)
	case int:
		return grid.NewNumberCell(float64(x), "")
	case float64:
		return grid.NewNumberCell(x, "")
	case bool:
		return grid.NewBoolCell(x)
	default:
		return grid.NewTextCell(fmt.Sprint(x))
	}
}
