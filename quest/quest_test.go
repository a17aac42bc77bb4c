package quest

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/Konsultn-Engineering/quest/async"
	"github.com/Konsultn-Engineering/quest/database"
	"github.com/Konsultn-Engineering/quest/render"
	"github.com/Konsultn-Engineering/quest/sqlerr"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu      sync.Mutex
	queries []string
	args    [][]any
	errs    map[string][]error
	closed  int
}

func newFakeConn() *fakeConn {
	return &fakeConn{errs: make(map[string][]error)}
}

// failOn queues errors returned, in order, by successive runs of stmt.
func (c *fakeConn) failOn(stmt string, errs ...error) {
	c.errs[stmt] = append(c.errs[stmt], errs...)
}

func (c *fakeConn) Query(_ context.Context, query string, args ...any) (*database.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries = append(c.queries, query)
	c.args = append(c.args, args)
	if q := c.errs[query]; len(q) > 0 {
		c.errs[query] = q[1:]
		return nil, q[0]
	}
	return &database.Result{
		Fields:       []string{"sql"},
		Rows:         []map[string]any{{"sql": query}},
		RowsAffected: 1,
	}, nil
}

func (c *fakeConn) Close(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}

func (c *fakeConn) count(stmt string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, q := range c.queries {
		if q == stmt {
			n++
		}
	}
	return n
}

type recordingReporter struct {
	NopReporter
	retries   []int
	rollbacks []error
	completed []string
	elapsed   []time.Duration
}

func (r *recordingReporter) Retrying(attempt int, _ time.Duration, _ error) {
	r.retries = append(r.retries, attempt)
}

func (r *recordingReporter) RollbackFailed(err error) {
	r.rollbacks = append(r.rollbacks, err)
}

func (r *recordingReporter) Completed(stmt string, elapsed time.Duration) {
	r.completed = append(r.completed, stmt)
	r.elapsed = append(r.elapsed, elapsed)
}

// instantClock records every Sleep duration and fires immediately.
type instantClock struct {
	waits []time.Duration
}

func (c *instantClock) after(d time.Duration) <-chan time.Time {
	c.waits = append(c.waits, d)
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

func run(t *testing.T, conn database.Conn, fn func(ctx context.Context, q *Quest) error, opts ...RunnerOption) error {
	t.Helper()
	r := NewRunner(func(context.Context) (database.Conn, error) { return conn, nil }, opts...)
	return r.Run(context.Background(), "test", AdventureFunc(fn))
}

func TestExecRunsStatementsInOrder(t *testing.T) {
	conn := newFakeConn()
	var res *database.Result

	err := run(t, conn, func(ctx context.Context, q *Quest) error {
		var err error
		res, err = q.Exec(ctx, SQL("INSERT INTO t VALUES (1); INSERT INTO t VALUES (2);"))
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"INSERT INTO t VALUES (1)", "INSERT INTO t VALUES (2)"}, conn.queries)
	assert.Equal(t, "INSERT INTO t VALUES (2)", res.Rows[0]["sql"])
	assert.Equal(t, 1, conn.closed)
}

func TestExecAgainstDatabaseSQL(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO t VALUES (1) RETURNING id")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO t VALUES (2) RETURNING id")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(2)))
	mock.ExpectClose()

	connect := func(ctx context.Context) (database.Conn, error) {
		return database.NewSqlConn(ctx, db)
	}
	var res *database.Result
	r := NewRunner(connect)
	err = r.Run(context.Background(), "inserts", AdventureFunc(func(ctx context.Context, q *Quest) error {
		var err error
		res, err = q.Exec(ctx, SQL("INSERT INTO t VALUES (1) RETURNING id;\nINSERT INTO t VALUES (2) RETURNING id;"))
		return err
	}))

	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, res.Fields)
	assert.Equal(t, int64(2), res.Rows[0]["id"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecStopsAtFirstFailure(t *testing.T) {
	conn := newFakeConn()
	boom := errors.New("syntax error")
	conn.failOn("SELECT bad", boom)

	err := run(t, conn, func(ctx context.Context, q *Quest) error {
		_, err := q.Exec(ctx, SQL("SELECT 1; SELECT bad; SELECT 3"))
		return err
	})

	assert.Same(t, boom, err)
	assert.Equal(t, []string{"SELECT 1", "SELECT bad"}, conn.queries)
}

func TestExecRendersAndPassesParams(t *testing.T) {
	conn := newFakeConn()

	err := run(t, conn, func(ctx context.Context, q *Quest) error {
		req := SQL("SELECT * FROM {{table}} WHERE id = $1", 7).
			WithView(render.View{"table": "heroes"})
		_, err := q.ExecView(ctx, req, render.View{"table": "villains"})
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"SELECT * FROM villains WHERE id = $1"}, conn.queries)
	assert.Equal(t, []any{7}, conn.args[0])
}

func TestExecWholeSkipsSplitting(t *testing.T) {
	conn := newFakeConn()
	body := "CREATE FUNCTION f() RETURNS int AS $$ SELECT 1; $$ LANGUAGE sql"

	err := run(t, conn, func(ctx context.Context, q *Quest) error {
		_, err := q.Exec(ctx, SQL(body).Whole())
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, []string{body}, conn.queries)
}

func TestExecEmptyBatch(t *testing.T) {
	conn := newFakeConn()
	var res *database.Result

	err := run(t, conn, func(ctx context.Context, q *Quest) error {
		var err error
		res, err = q.Exec(ctx, SQL(" ; ;\n"))
		return err
	})

	require.NoError(t, err)
	assert.Empty(t, conn.queries)
	assert.Equal(t, 0, res.Len())
}

func TestExecReadsFilesFromSQLDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "seed.sql"), []byte("SELECT 1;\nSELECT 2;\n"), 0o600))
	abs := filepath.Join(t.TempDir(), "abs.sql")
	require.NoError(t, os.WriteFile(abs, []byte("SELECT 3"), 0o600))

	conn := newFakeConn()
	err := run(t, conn, func(ctx context.Context, q *Quest) error {
		if _, err := q.Exec(ctx, File("seed.sql")); err != nil {
			return err
		}
		_, err := q.Exec(ctx, File(abs))
		return err
	}, WithSQLDir(dir))

	require.NoError(t, err)
	assert.Equal(t, []string{"SELECT 1", "SELECT 2", "SELECT 3"}, conn.queries)
}

func TestExecMissingFile(t *testing.T) {
	conn := newFakeConn()
	err := run(t, conn, func(ctx context.Context, q *Quest) error {
		_, err := q.Exec(ctx, File("missing.sql"))
		return err
	}, WithSQLDir(t.TempDir()))

	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Empty(t, conn.queries)
}

func TestExecInvalidRequest(t *testing.T) {
	for _, req := range []Request{{}, {Text: "SELECT 1", File: "x.sql"}} {
		err := run(t, newFakeConn(), func(ctx context.Context, q *Quest) error {
			_, err := q.Exec(ctx, req)
			return err
		})
		assert.ErrorIs(t, err, ErrInvalidRequest)
	}
}

func TestExecReportsTiming(t *testing.T) {
	rep := &recordingReporter{}
	err := run(t, newFakeConn(), func(ctx context.Context, q *Quest) error {
		_, err := q.Exec(ctx, SQL("SELECT 1; SELECT 2"))
		return err
	}, WithReporter(rep), WithTiming(true))

	require.NoError(t, err)
	assert.Equal(t, []string{"SELECT 1", "SELECT 2"}, rep.completed)
	assert.Len(t, rep.elapsed, 2)
}

func TestExecReportsCompletionWithoutTiming(t *testing.T) {
	rep := &recordingReporter{}
	err := run(t, newFakeConn(), func(ctx context.Context, q *Quest) error {
		_, err := q.Exec(ctx, SQL("SELECT 1; SELECT 2"))
		return err
	}, WithReporter(rep))

	require.NoError(t, err)
	assert.Equal(t, []string{"SELECT 1", "SELECT 2"}, rep.completed)
	assert.Equal(t, []time.Duration{0, 0}, rep.elapsed)
}

func TestLogReporterOmitsZeroElapsed(t *testing.T) {
	var buf bytes.Buffer
	rep := NewLogReporter(zerolog.New(&buf))

	rep.Completed("SELECT 1", 0)
	assert.NotContains(t, buf.String(), "elapsed")

	buf.Reset()
	rep.Completed("SELECT 1", 5*time.Millisecond)
	assert.Contains(t, buf.String(), `"elapsed":5`)
}

func TestRetryPolicyDefaults(t *testing.T) {
	p := NewRetryPolicy()
	assert.Equal(t, DefaultTimes, p.Times())
	assert.Equal(t, DefaultWait, p.Wait())
	assert.False(t, p.Unbounded())
	assert.True(t, p.Retryable(errors.New("anything")))

	assert.Equal(t, 1, NewRetryPolicy(WithTimes(0)).Times())
	assert.True(t, NewRetryPolicy(Forever()).Unbounded())

	ok := NewRetryPolicy(WithOKErrors("deadlock", "^timeout"))
	assert.True(t, ok.Retryable(errors.New("deadlock detected")))
	assert.True(t, ok.Retryable(errors.New("timeout expired")))
	assert.False(t, ok.Retryable(errors.New("syntax error")))
}

func TestRetryNonRetryableErrorRunsOnce(t *testing.T) {
	clock := &instantClock{}
	boom := errors.New("syntax error")
	calls := 0

	err := run(t, newFakeConn(), func(ctx context.Context, q *Quest) error {
		_, err := q.Retry(ctx, NewRetryPolicy(WithTimes(5), WithOKErrors("deadlock")), func(context.Context) (*database.Result, error) {
			calls++
			return nil, boom
		})
		return err
	}, WithLoopOptions(async.WithAfter(clock.after)))

	assert.Same(t, boom, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, clock.waits)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	clock := &instantClock{}
	boom := errors.New("connection reset")
	calls := 0

	err := run(t, newFakeConn(), func(ctx context.Context, q *Quest) error {
		_, err := q.Retry(ctx, NewRetryPolicy(WithTimes(4), WithWait(250*time.Millisecond)), func(context.Context) (*database.Result, error) {
			calls++
			return nil, boom
		})
		return err
	}, WithLoopOptions(async.WithAfter(clock.after)))

	assert.Same(t, boom, err)
	assert.Equal(t, 4, calls)
	assert.Equal(t, []time.Duration{250 * time.Millisecond, 250 * time.Millisecond, 250 * time.Millisecond}, clock.waits)
}

func TestRetryZeroTimesStillAttemptsOnce(t *testing.T) {
	calls := 0
	err := run(t, newFakeConn(), func(ctx context.Context, q *Quest) error {
		_, err := q.Retry(ctx, NewRetryPolicy(WithTimes(0), WithWait(0)), func(context.Context) (*database.Result, error) {
			calls++
			return nil, errors.New("nope")
		})
		return err
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryDeadlockThenSuccess(t *testing.T) {
	clock := &instantClock{}
	rep := &recordingReporter{}
	conn := newFakeConn()
	stmt := "UPDATE heroes SET gold = gold + 1"
	conn.failOn(stmt, errors.New("deadlock detected"), errors.New("deadlock detected"))

	var res *database.Result
	err := run(t, conn, func(ctx context.Context, q *Quest) error {
		var err error
		res, err = q.Retry(ctx, NewRetryPolicy(WithTimes(3), WithWait(0), WithOKErrors("deadlock")), func(ctx context.Context) (*database.Result, error) {
			return q.Exec(ctx, SQL(stmt))
		})
		return err
	}, WithReporter(rep), WithLoopOptions(async.WithAfter(clock.after)))

	require.NoError(t, err)
	assert.Equal(t, stmt, res.Rows[0]["sql"])
	assert.Equal(t, 3, conn.count(stmt))
	assert.Len(t, clock.waits, 2)
	assert.Equal(t, []int{1, 2}, rep.retries)
}

func TestRetryWithTransientClassifier(t *testing.T) {
	conn := newFakeConn()
	stmt := "UPDATE heroes SET gold = 0"
	conn.failOn(stmt, &pgconn.PgError{Code: "40P01", Message: "deadlock detected"})

	err := run(t, conn, func(ctx context.Context, q *Quest) error {
		_, err := q.Retry(ctx, NewRetryPolicy(WithWait(0), WithRetryable(sqlerr.IsTransient)), func(ctx context.Context) (*database.Result, error) {
			return q.Exec(ctx, SQL(stmt))
		})
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, 2, conn.count(stmt))
}

func TestRetryForever(t *testing.T) {
	clock := &instantClock{}
	calls := 0
	err := run(t, newFakeConn(), func(ctx context.Context, q *Quest) error {
		_, err := q.Retry(ctx, NewRetryPolicy(WithTimes(2), Forever()), func(context.Context) (*database.Result, error) {
			calls++
			if calls < 25 {
				return nil, errors.New("busy")
			}
			return &database.Result{}, nil
		})
		return err
	}, WithLoopOptions(async.WithAfter(clock.after)))

	require.NoError(t, err)
	assert.Equal(t, 25, calls)
	assert.Len(t, clock.waits, 24)
}

func TestTransactionCommits(t *testing.T) {
	conn := newFakeConn()
	want := &database.Result{Fields: []string{"n"}}
	var got *database.Result

	err := run(t, conn, func(ctx context.Context, q *Quest) error {
		var err error
		got, err = q.Transaction(ctx, func(ctx context.Context) (*database.Result, error) {
			if _, err := q.Exec(ctx, SQL("INSERT INTO t VALUES (1)")); err != nil {
				return nil, err
			}
			return want, nil
		})
		return err
	})

	require.NoError(t, err)
	assert.Same(t, want, got)
	assert.Equal(t, []string{"BEGIN", "INSERT INTO t VALUES (1)", "COMMIT"}, conn.queries)
	assert.Equal(t, 0, conn.count("ROLLBACK"))
}

func TestTransactionRollsBack(t *testing.T) {
	conn := newFakeConn()
	boom := errors.New("check constraint")

	err := run(t, conn, func(ctx context.Context, q *Quest) error {
		_, err := q.Transaction(ctx, func(context.Context) (*database.Result, error) {
			return nil, boom
		})
		return err
	})

	assert.Same(t, boom, err)
	assert.Equal(t, 1, conn.count("BEGIN"))
	assert.Equal(t, 1, conn.count("ROLLBACK"))
	assert.Equal(t, 0, conn.count("COMMIT"))
}

func TestTransactionRollbackFailureKeepsOriginalError(t *testing.T) {
	conn := newFakeConn()
	rbErr := errors.New("connection lost")
	conn.failOn("ROLLBACK", rbErr)
	rep := &recordingReporter{}
	boom := errors.New("check constraint")

	err := run(t, conn, func(ctx context.Context, q *Quest) error {
		_, err := q.Transaction(ctx, func(context.Context) (*database.Result, error) {
			return nil, boom
		})
		return err
	}, WithReporter(rep))

	assert.Same(t, boom, err)
	assert.Equal(t, []error{rbErr}, rep.rollbacks)
}

func TestTransactionCommitFailure(t *testing.T) {
	conn := newFakeConn()
	commitErr := errors.New("serialization failure")
	conn.failOn("COMMIT", commitErr)

	err := run(t, conn, func(ctx context.Context, q *Quest) error {
		_, err := q.Transaction(ctx, func(context.Context) (*database.Result, error) {
			return &database.Result{}, nil
		})
		return err
	})

	assert.Same(t, commitErr, err)
}
