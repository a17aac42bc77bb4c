package database

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// PgxConn implements Conn for a single *pgx.Conn.
type PgxConn struct {
	conn *pgx.Conn
}

// NewPgxConn creates a new PgxConn.
func NewPgxConn(conn *pgx.Conn) *PgxConn {
	return &PgxConn{conn: conn}
}

// Query executes a statement and collects every row it returns.
func (p *PgxConn) Query(ctx context.Context, query string, args ...any) (*Result, error) {
	if p.conn == nil {
		return nil, ErrClosed
	}
	rows, err := p.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	res, err := Collect(&PgxRows{rows: rows})
	if err != nil {
		return nil, err
	}
	res.RowsAffected = rows.CommandTag().RowsAffected()
	return res, nil
}

// Close closes the connection. Subsequent calls are no-ops.
func (p *PgxConn) Close(ctx context.Context) error {
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close(ctx)
	p.conn = nil
	return err
}

// PgxRows implements Rows for pgx.Rows.
type PgxRows struct {
	rows pgx.Rows
}

// Next prepares the next result row for reading.
func (p *PgxRows) Next() bool { return p.rows.Next() }

// Values returns the decoded values for the current row.
func (p *PgxRows) Values() ([]any, error) { return p.rows.Values() }

// Err returns any error hit while iterating.
func (p *PgxRows) Err() error { return p.rows.Err() }

// Close closes the rows iterator.
func (p *PgxRows) Close() error { p.rows.Close(); return nil }

// Columns returns the column names.
func (p *PgxRows) Columns() ([]string, error) {
	fds := p.rows.FieldDescriptions()
	columns := make([]string, len(fds))
	for i, fd := range fds {
		columns[i] = fd.Name
	}
	return columns, nil
}

// Assert that PgxConn implements the Conn interface.
var _ Conn = (*PgxConn)(nil)
