package table

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaMarshalKeepsColumnOrder(t *testing.T) {
	tbl := &Table{Columns: []Column{
		{Name: "Tên", Type: TypeString},
		{Name: "STT", Type: TypeInteger},
		{Name: "Ngày", Type: TypeDate},
	}}

	out, err := json.Marshal(tbl.Schema())
	require.NoError(t, err)
	assert.Equal(t, `{"Tên":"string","STT":"integer","Ngày":"date"}`, string(out))

	typ, ok := tbl.Schema().Lookup("STT")
	assert.True(t, ok)
	assert.Equal(t, TypeInteger, typ)
}

func TestRowMarshalKeepsColumnOrder(t *testing.T) {
	row := NewRow([]string{"b", "a", "c"}, []any{int64(1), nil, "x"})

	out, err := json.Marshal(row)
	require.NoError(t, err)
	assert.Equal(t, `{"b":1,"a":null,"c":"x"}`, string(out))

	v, ok := row.Get("c")
	assert.True(t, ok)
	assert.Equal(t, "x", v)
	assert.Equal(t, map[string]any{"a": nil, "b": int64(1), "c": "x"}, row.Map())
}

func TestCaseColumnsAreUnique(t *testing.T) {
	require.Len(t, CaseColumns, 24)
	seen := map[string]bool{}
	for _, c := range CaseColumns {
		assert.False(t, seen[c], c)
		seen[c] = true
	}
}
