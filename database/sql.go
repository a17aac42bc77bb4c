package database

import (
	"context"
	"database/sql"
)

// SqlConn implements Conn for database/sql. It pins one *sql.Conn so that
// session state such as an open transaction survives between statements.
type SqlConn struct {
	db   *sql.DB
	conn *sql.Conn
}

// NewSqlConn reserves a single connection from db.
func NewSqlConn(ctx context.Context, db *sql.DB) (*SqlConn, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return &SqlConn{db: db, conn: conn}, nil
}

// Query executes a statement and collects every row it returns.
func (s *SqlConn) Query(ctx context.Context, query string, args ...any) (*Result, error) {
	if s.conn == nil {
		return nil, ErrClosed
	}
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return Collect(&SqlRows{rows: rows})
}

// Close releases the pinned connection and closes the database handle.
func (s *SqlConn) Close(ctx context.Context) error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	if cerr := s.db.Close(); err == nil {
		err = cerr
	}
	return err
}

// SqlRows implements Rows for *sql.Rows.
type SqlRows struct {
	rows *sql.Rows
	n    int
}

// Next prepares the next result row for reading.
func (s *SqlRows) Next() bool { return s.rows.Next() }

// Err returns any error hit while iterating.
func (s *SqlRows) Err() error { return s.rows.Err() }

// Close closes the rows iterator.
func (s *SqlRows) Close() error { return s.rows.Close() }

// Columns returns the column names.
func (s *SqlRows) Columns() ([]string, error) {
	cols, err := s.rows.Columns()
	s.n = len(cols)
	return cols, err
}

// Values scans the current row. Byte slices are copied into strings since
// database/sql reuses their backing arrays.
func (s *SqlRows) Values() ([]any, error) {
	values := make([]any, s.n)
	ptrs := make([]any, s.n)
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := s.rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	for i, v := range values {
		if b, ok := v.([]byte); ok {
			values[i] = string(b)
		}
	}
	return values, nil
}

// Assert that SqlConn implements the Conn interface.
var _ Conn = (*SqlConn)(nil)
