package excel

import (
	"context"
	"path/filepath"
	"testing"

	"casedesk/domain/grid"
	"casedesk/internal/errors"
	"casedesk/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSheetNamesInWorkbookOrder(t *testing.T) {
	path := testkit.WriteWorkbook(t,
		testkit.Sheet{Name: "Dân sự", Rows: [][]interface{}{{"a"}}},
		testkit.Sheet{Name: "Hình sự", Rows: [][]interface{}{{"b"}}},
		testkit.Sheet{Name: "Hành chính", Rows: [][]interface{}{{"c"}}},
	)

	names, err := NewWorkbookReader(path, nil).SheetNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Dân sự", "Hình sự", "Hành chính"}, names)
}

func TestReadGridClassifiesCells(t *testing.T) {
	path := testkit.WriteWorkbook(t, testkit.Sheet{
		Name: "DS",
		Rows: [][]interface{}{
			{nil, "Tên", 2024},
			{"STT", true, 2.5},
			{"  ", nil, "ghi chú"},
		},
	})

	g, err := NewWorkbookReader(path, nil).ReadGrid(context.Background(), "DS")
	require.NoError(t, err)

	assert.Equal(t, 3, g.Height())
	assert.Equal(t, 3, g.Width())

	assert.Equal(t, grid.CellEmpty, g.At(0, 0).Kind)
	assert.Equal(t, grid.NewTextCell("Tên"), g.At(0, 1))
	assert.Equal(t, grid.CellNumber, g.At(0, 2).Kind)
	assert.Equal(t, 2024.0, g.At(0, 2).Number)
	assert.Equal(t, "2024", g.At(0, 2).String())

	assert.Equal(t, grid.NewTextCell("STT"), g.At(1, 0))
	assert.Equal(t, grid.NewBoolCell(true), g.At(1, 1))
	assert.Equal(t, 2.5, g.At(1, 2).Number)

	assert.True(t, g.At(2, 0).IsEmpty())
	assert.Equal(t, "ghi chú", g.At(2, 2).String())
}

func TestReadGridUnknownSheet(t *testing.T) {
	path := testkit.WriteWorkbook(t, testkit.Sheet{Name: "DS", Rows: [][]interface{}{{"a"}}})

	_, err := NewWorkbookReader(path, nil).ReadGrid(context.Background(), "Không có")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeSheetNotFound))
}

func TestReadGridMissingFile(t *testing.T) {
	r := NewWorkbookReader(filepath.Join(t.TempDir(), "missing.xlsx"), nil)

	_, err := r.ReadGrid(context.Background(), "DS")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeNotFound))
}

func TestReadGridCaseSheet(t *testing.T) {
	opts := testkit.CaseSheetOptions{DataRows: 4}
	path := testkit.WriteWorkbook(t, testkit.Sheet{Name: "DS", Rows: testkit.CaseSheetRows(opts)})

	g, err := NewWorkbookReader(path, nil).ReadGrid(context.Background(), "DS")
	require.NoError(t, err)

	pos, err := grid.FindAnchor(g, grid.DefaultAnchor)
	require.NoError(t, err)
	assert.Equal(t, grid.Position{Row: 2, Col: 1}, pos)
	assert.Equal(t, opts.Width(), g.Width())
	assert.Equal(t, 7, g.Height())
}

func TestLooksNumeric(t *testing.T) {
	assert.True(t, looksNumeric("1,234.50"))
	assert.True(t, looksNumeric("12%"))
	assert.True(t, looksNumeric("(5)"))
	assert.False(t, looksNumeric("01-02-24"))
	assert.False(t, looksNumeric("2/1/2024"))
}
