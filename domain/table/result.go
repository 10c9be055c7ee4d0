package table

import (
	"bytes"
	"encoding/json"
)

// Row is one result record: an ordered column to value mapping
type Row struct {
	columns []string
	values  []any
}

// NewRow pairs column names with values; both slices must have the same length
func NewRow(columns []string, values []any) Row {
	return Row{columns: columns, values: values}
}

// Get returns the value of the named column
func (r Row) Get(column string) (any, bool) {
	for i, c := range r.columns {
		if c == column {
			return r.values[i], true
		}
	}
	return nil, false
}

// Values returns the values in column order
func (r Row) Values() []any {
	return r.values
}

// Map returns the row as an unordered map
func (r Row) Map() map[string]any {
	m := make(map[string]any, len(r.columns))
	for i, c := range r.columns {
		m[c] = r.values[i]
	}
	return m
}

// MarshalJSON renders the row as a JSON object in column order
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Result is the output of a query, rows in engine order
type Result struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}
