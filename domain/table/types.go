package table

import (
	"bytes"
	"encoding/json"
)

// ColumnType is the inferred storage type of a column
type ColumnType string

const (
	TypeInteger ColumnType = "integer"
	TypeFloat   ColumnType = "float"
	TypeBoolean ColumnType = "boolean"
	TypeDate    ColumnType = "date"
	TypeString  ColumnType = "string"
	TypeNull    ColumnType = "null"
)

// Column describes one column of a table
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Table is a typed, column-ordered table. Row values are nil, string, int64, float64 or bool.
type Table struct {
	Name    string
	Columns []Column
	Rows    [][]any
}

// ColumnNames returns the column names in order
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Width returns the number of columns
func (t *Table) Width() int {
	return len(t.Columns)
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.Rows)
}

// Schema describes the table's columns
func (t *Table) Schema() Schema {
	return Schema(append([]Column(nil), t.Columns...))
}

// Schema is an ordered column name to type mapping
type Schema []Column

// Lookup returns the type of the named column
func (s Schema) Lookup(name string) (ColumnType, bool) {
	for _, c := range s {
		if c.Name == name {
			return c.Type, true
		}
	}
	return "", false
}

// MarshalJSON renders the schema as a JSON object in column order
func (s Schema) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(string(c.Type))
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
