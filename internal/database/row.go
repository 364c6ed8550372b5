package database

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Row is one result record: column names mapped to values, in the order the
// backend returned the columns. Values keep the driver's native scalar type:
// nil, int64, float64, bool, string, time.Time or []byte.
type Row struct {
	layout *rowLayout
	values []any
}

// rowLayout is shared by every row of one result set.
type rowLayout struct {
	columns []string
	index   map[string]int
}

// Columns returns the column names in result order.
func (r Row) Columns() []string {
	if r.layout == nil {
		return nil
	}
	return append([]string(nil), r.layout.columns...)
}

// Values returns the values in column order.
func (r Row) Values() []any {
	return append([]any(nil), r.values...)
}

// Len is the number of columns.
func (r Row) Len() int { return len(r.values) }

// Get returns the value of column name and whether the column exists.
func (r Row) Get(name string) (any, bool) {
	if r.layout == nil {
		return nil, false
	}
	i, ok := r.layout.index[name]
	if !ok {
		return nil, false
	}
	return r.values[i], true
}

// Map copies the row into an unordered map.
func (r Row) Map() map[string]any {
	m := make(map[string]any, len(r.values))
	if r.layout == nil {
		return m
	}
	for i, c := range r.layout.columns {
		m[c] = r.values[i]
	}
	return m
}

// MarshalJSON encodes the row as an object with keys in column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if r.layout != nil {
		for i, c := range r.layout.columns {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(c)
			if err != nil {
				return nil, err
			}
			val, err := json.Marshal(r.values[i])
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// newLayout builds the column layout for a result set and the slot each
// source column lands in. Column names stay unique within a row: a repeated
// name keeps its first position and takes the later column's value.
func newLayout(cols []string) (*rowLayout, []int) {
	l := &rowLayout{index: make(map[string]int, len(cols))}
	slots := make([]int, len(cols))
	for i, c := range cols {
		if j, ok := l.index[c]; ok {
			slots[i] = j
			continue
		}
		l.index[c] = len(l.columns)
		slots[i] = len(l.columns)
		l.columns = append(l.columns, c)
	}
	return l, slots
}

// mapRows reads every row of rows. Column metadata is read once. The result
// is fully materialized because rows is invalid once its handle is released.
func mapRows(rows *sqlx.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	layout, slots := newLayout(cols)

	out := make([]Row, 0)
	for rows.Next() {
		raw, err := rows.SliceScan()
		if err != nil {
			return nil, err
		}
		values := make([]any, len(layout.columns))
		for i, v := range raw {
			values[slots[i]] = nativeValue(types[i], v)
		}
		out = append(out, Row{layout: layout, values: values})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// nativeValue surfaces textual columns delivered as bytes as strings. Binary
// columns, and columns whose declared type is unknown, stay []byte.
func nativeValue(ct *sql.ColumnType, v any) any {
	b, ok := v.([]byte)
	if !ok || ct == nil {
		return v
	}
	if isBinaryType(ct.DatabaseTypeName()) {
		return b
	}
	return string(b)
}

func isBinaryType(name string) bool {
	name = strings.ToUpper(name)
	switch {
	case name == "":
		return true
	case strings.Contains(name, "BLOB"),
		strings.Contains(name, "BINARY"),
		name == "BIT",
		name == "GEOMETRY":
		return true
	}
	return false
}
