// Package quest runs batches of templated SQL against a single connection.
//
// A quest is a user procedure (an Adventure) driven by a Runner. Inside the
// procedure every database call goes through Quest, whose methods look
// synchronous but suspend on the run's event loop while the driver works.
package quest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Konsultn-Engineering/quest/async"
	"github.com/Konsultn-Engineering/quest/database"
	"github.com/Konsultn-Engineering/quest/render"
	"github.com/Konsultn-Engineering/quest/splitter"
)

// Quest is the handle an adventure uses to talk to the database. It is only
// valid for the duration of one Runner.Run.
type Quest struct {
	name     string
	conn     database.Conn
	loop     *async.Loop
	splitter splitter.Splitter
	reporter Reporter
	sqlDir   string
	timing   bool
}

// Name returns the quest name.
func (q *Quest) Name() string { return q.name }

// SQLDir returns the directory relative request files are read from.
func (q *Quest) SQLDir() string { return q.sqlDir }

// Exec renders, splits and executes req, returning the last statement's result.
func (q *Quest) Exec(ctx context.Context, req Request) (*database.Result, error) {
	return q.ExecView(ctx, req, nil)
}

// ExecView is Exec with an extra view merged over req.View.
func (q *Quest) ExecView(ctx context.Context, req Request, view render.View) (*database.Result, error) {
	stmts, err := q.statements(ctx, req, view)
	if err != nil {
		return nil, err
	}

	res := &database.Result{}
	for _, stmt := range stmts {
		q.reporter.Statement(stmt)

		start := time.Now()
		res, err = async.Await(async.Go(q.loop, func() (*database.Result, error) {
			return q.conn.Query(ctx, stmt, req.Params...)
		}))
		if err != nil {
			q.reporter.Failed(stmt, err)
			return nil, err
		}
		var elapsed time.Duration
		if q.timing {
			elapsed = time.Since(start)
		}
		q.reporter.Completed(stmt, elapsed)
	}
	if res == nil {
		res = &database.Result{}
	}
	return res, nil
}

func (q *Quest) statements(ctx context.Context, req Request, view render.View) ([]string, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	text := req.Text
	if req.File != "" {
		path := q.resolve(req.File)
		b, err := async.Await(async.Go(q.loop, func() ([]byte, error) {
			return os.ReadFile(path)
		}))
		if err != nil {
			return nil, fmt.Errorf("read sql file: %w", err)
		}
		text = string(b)
	}

	text, err := render.Render(text, render.Merge(req.View, view))
	if err != nil {
		return nil, err
	}

	if req.NoSplit {
		return []string{text}, nil
	}
	return async.Await(async.Go(q.loop, func() ([]string, error) {
		return q.splitter.Split(ctx, text)
	}))
}

func (q *Quest) resolve(path string) string {
	if filepath.IsAbs(path) || q.sqlDir == "" {
		return path
	}
	return filepath.Join(q.sqlDir, path)
}
