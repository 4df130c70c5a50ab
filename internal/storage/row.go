// Package storage persists sensor readings as flat delimited text.
// Fingerprint rows are heterogeneous - each scan cycle can observe
// identifiers never seen before - so the CSV schema widens over time:
// a row introducing new columns triggers a full rewrite of the file
// with the merged header and blank backfill for prior rows.
package storage

import "strconv"

// Row is an ordered set of column/value pairs for one CSV record.
// Column order is insertion order; setting an existing column updates
// the value without moving it.
type Row struct {
	columns []string
	values  map[string]string
}

// NewRow returns an empty row.
func NewRow() *Row {
	return &Row{values: make(map[string]string)}
}

// Set adds or updates a column and returns the row for chaining.
func (r *Row) Set(column, value string) *Row {
	if _, ok := r.values[column]; !ok {
		r.columns = append(r.columns, column)
	}
	r.values[column] = value
	return r
}

// SetInt adds or updates a column with an integer value.
func (r *Row) SetInt(column string, value int) *Row {
	return r.Set(column, strconv.Itoa(value))
}

// Get returns a column's value and whether the column is present.
func (r *Row) Get(column string) (string, bool) {
	value, ok := r.values[column]
	return value, ok
}

// Columns returns the column names in insertion order.
func (r *Row) Columns() []string {
	columns := make([]string, len(r.columns))
	copy(columns, r.columns)
	return columns
}

// Len returns the number of columns in the row.
func (r *Row) Len() int {
	return len(r.columns)
}

// record aligns the row's values to the given header, producing blank
// cells for header columns the row does not carry.
func (r *Row) record(header []string) []string {
	record := make([]string, len(header))
	for i, column := range header {
		record[i] = r.values[column]
	}
	return record
}

// ReconcileHeader merges a row's key set into an existing header. The
// existing column order is preserved and new keys are appended in the
// row's own order. The second return reports whether the header widened.
func ReconcileHeader(header, keys []string) ([]string, bool) {
	known := make(map[string]struct{}, len(header))
	for _, column := range header {
		known[column] = struct{}{}
	}

	merged := make([]string, len(header), len(header)+len(keys))
	copy(merged, header)

	widened := false
	for _, key := range keys {
		if _, ok := known[key]; ok {
			continue
		}
		merged = append(merged, key)
		known[key] = struct{}{}
		widened = true
	}

	return merged, widened
}
