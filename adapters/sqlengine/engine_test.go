package sqlengine

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"casedesk/domain/table"
	"casedesk/internal/errors"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() *table.Table {
	return &table.Table{
		Name: "cases",
		Columns: []table.Column{
			{Name: "STT", Type: table.TypeInteger},
			{Name: "Loại", Type: table.TypeString},
			{Name: "Số ngày gia hạn", Type: table.TypeFloat},
			{Name: "Ngày nhận", Type: table.TypeDate},
			{Name: "Đã xử lý", Type: table.TypeBoolean},
			{Name: `Ghi "chú"`, Type: table.TypeNull},
		},
		Rows: [][]any{
			{int64(3), "Dân sự", 1.5, "01/02/2024", true, nil},
			{int64(1), "Hình sự", nil, "2024-03-05", false, nil},
			{int64(2), "Dân sự", 10.0, nil, nil, nil},
		},
	}
}

func rowValues(res *table.Result) [][]any {
	out := make([][]any, len(res.Rows))
	for i, r := range res.Rows {
		out[i] = r.Values()
	}
	return out
}

func TestSelectStarRoundTrip(t *testing.T) {
	tbl := sampleTable()

	res, err := NewEngine(nil).Query(context.Background(), tbl, "SELECT * FROM self")
	require.NoError(t, err)

	assert.Equal(t, tbl.ColumnNames(), res.Columns)
	if diff := cmp.Diff(tbl.Rows, rowValues(res)); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestQueryPreservesEngineOrder(t *testing.T) {
	res, err := NewEngine(nil).Query(context.Background(), sampleTable(),
		`SELECT "STT", "Loại" FROM self ORDER BY "STT" DESC`)
	require.NoError(t, err)

	assert.Equal(t, [][]any{
		{int64(3), "Dân sự"},
		{int64(2), "Dân sự"},
		{int64(1), "Hình sự"},
	}, rowValues(res))

	out, err := json.Marshal(res.Rows)
	require.NoError(t, err)
	assert.Equal(t, `[{"STT":3,"Loại":"Dân sự"},{"STT":2,"Loại":"Dân sự"},{"STT":1,"Loại":"Hình sự"}]`, string(out))
}

func TestQueryAggregates(t *testing.T) {
	res, err := NewEngine(nil).Query(context.Background(), sampleTable(),
		`SELECT "Loại" AS loai, count(*) AS n, sum("Số ngày gia hạn") AS total FROM self GROUP BY "Loại" ORDER BY n DESC;`)
	require.NoError(t, err)

	require.Len(t, res.Rows, 2)
	assert.Equal(t, map[string]any{"loai": "Dân sự", "n": int64(2), "total": 11.5}, res.Rows[0].Map())
}

func TestRegisteredFunctions(t *testing.T) {
	tests := []struct {
		query string
		want  any
	}{
		{"SELECT starts_with('Quyết định', 'Quyết')", int64(1)},
		{"SELECT ends_with('bản án', 'xx')", int64(0)},
		{"SELECT initcap('nguyễn văn a')", "Nguyễn Văn A"},
		{"SELECT reverse('abc')", "cba"},
		{"SELECT strpos('Thụ lý số', 'số')", int64(8)},
		{"SELECT regexp_like('12/TLST', '^[0-9]+/TL')", int64(1)},
		{"SELECT '12/TLST' REGEXP 'TLST$'", int64(1)},
		{"SELECT greatest(3, NULL, 7.5, 2)", 7.5},
		{"SELECT least('b', 'a', 'c')", "a"},
		{"SELECT bit_count(7)", int64(3)},
		{"SELECT starts_with(NULL, 'a')", nil},
	}

	engine := NewEngine(nil)
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			res, err := engine.Query(context.Background(), sampleTable(), tt.query)
			require.NoError(t, err)
			require.Len(t, res.Rows, 1)
			assert.Equal(t, tt.want, res.Rows[0].Values()[0])
		})
	}
}

func TestQueryErrorsCarryEngineMessage(t *testing.T) {
	_, err := NewEngine(nil).Query(context.Background(), sampleTable(), "SELECT missing_col FROM self")
	require.Error(t, err)

	assert.True(t, errors.HasCode(err, errors.CodeQueryError))
	assert.Contains(t, err.Error(), "missing_col")
}

func TestQueryRejectsNonSelect(t *testing.T) {
	engine := NewEngine(nil)

	for _, q := range []string{
		"DELETE FROM self",
		"SELECT 1; DROP TABLE self",
		"ATTACH DATABASE 'x.db' AS x",
		"   ",
	} {
		_, err := engine.Query(context.Background(), sampleTable(), q)
		require.Error(t, err, q)
		assert.True(t, errors.HasCode(err, errors.CodeQueryError), q)
	}
}

func TestQueryRejectsDuplicateOutputColumns(t *testing.T) {
	_, err := NewEngine(nil).Query(context.Background(), sampleTable(), `SELECT "STT", "STT" FROM self`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate column")
}

func TestQueryEmptyResultIsNotNil(t *testing.T) {
	res, err := NewEngine(nil).Query(context.Background(), sampleTable(), `SELECT * FROM self WHERE "STT" > 100`)
	require.NoError(t, err)

	out, err := json.Marshal(res.Rows)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(out))
}

func TestFirstKeyword(t *testing.T) {
	assert.Equal(t, "WITH", firstKeyword("-- note\n /* c */ (WITH x AS (SELECT 1) SELECT * FROM x)"))
	assert.Equal(t, "select", firstKeyword("select 1"))
	assert.Equal(t, "", firstKeyword("/* unterminated"))
}

func TestSingleStatementKeepsQuotedSemicolons(t *testing.T) {
	q, err := singleStatement(`SELECT * FROM self WHERE "Loại" = 'a;b';  `)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM self WHERE "Loại" = 'a;b'`, q)
}

func TestFunctionsDocListsEveryCategory(t *testing.T) {
	doc := FunctionsDoc()
	for _, cat := range []string{"Aggregate", "Array", "Bitwise", "Conditional", "Mathematical", "String", "Temporal", "Type", "Trigonometric"} {
		assert.True(t, strings.Contains(doc, cat+":\n"), cat)
	}
	assert.Contains(t, doc, "- starts_with\n")
}
