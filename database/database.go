// Package database defines the single-connection handle a quest runs against
// and the result shape handed back to adventures and printers.
package database

import (
	"context"
	"errors"
)

// ErrClosed is returned by a Conn used after Close.
var ErrClosed = errors.New("database: connection closed")

// Conn is one live database handle. Implementations are not safe for
// concurrent use; a quest issues at most one call at a time.
type Conn interface {
	Query(ctx context.Context, query string, args ...any) (*Result, error)
	Close(ctx context.Context) error
}

// Rows is the cursor shape both driver adapters expose before collection.
type Rows interface {
	Next() bool
	Columns() ([]string, error)
	Values() ([]any, error)
	Err() error
	Close() error
}

// Result holds the fields and rows returned by one statement.
type Result struct {
	Fields       []string
	Rows         []map[string]any
	RowsAffected int64
}

// Len returns the number of rows.
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// Values returns row i as a slice ordered like Fields.
func (r *Result) Values(i int) []any {
	row := r.Rows[i]
	out := make([]any, len(r.Fields))
	for j, f := range r.Fields {
		out[j] = row[f]
	}
	return out
}

// Collect drains rows into a Result and closes them.
func Collect(rows Rows) (*Result, error) {
	defer rows.Close()

	fields, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	res := &Result{Fields: fields, Rows: make([]map[string]any, 0)}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(map[string]any, len(fields))
		for i, f := range fields {
			if i < len(values) {
				row[f] = values[i]
			}
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}
