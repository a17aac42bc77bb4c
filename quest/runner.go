package quest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Konsultn-Engineering/quest/async"
	"github.com/Konsultn-Engineering/quest/database"
	"github.com/Konsultn-Engineering/quest/splitter"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

var ErrNoAdventure = errors.New("quest: no adventure to run")

// ConnectError reports that the run could not open its connection. No
// procedure ran.
type ConnectError struct {
	Err error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("quest: connect: %v", e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// ConnectFunc opens the connection for one run.
type ConnectFunc func(ctx context.Context) (database.Conn, error)

// Runner drives adventures, one connection and one event loop per run.
type Runner struct {
	connect  ConnectFunc
	sqlDir   string
	splitter splitter.Splitter
	reporter Reporter
	log      zerolog.Logger
	timing   bool
	loopOpts []async.Option
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithSQLDir sets the directory relative request files resolve against.
func WithSQLDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.sqlDir = dir
	}
}

// WithSplitter replaces the default naive splitter.
func WithSplitter(s splitter.Splitter) RunnerOption {
	return func(r *Runner) {
		r.splitter = s
	}
}

// WithReporter sets the reporter used for every run. Without it each run
// reports through a LogReporter on the run's logger.
func WithReporter(rep Reporter) RunnerOption {
	return func(r *Runner) {
		r.reporter = rep
	}
}

// WithLogger sets the logger runs derive theirs from.
func WithLogger(log zerolog.Logger) RunnerOption {
	return func(r *Runner) {
		r.log = log
	}
}

// WithTiming reports elapsed time per statement.
func WithTiming(on bool) RunnerOption {
	return func(r *Runner) {
		r.timing = on
	}
}

// WithLoopOptions passes options to each run's event loop.
func WithLoopOptions(opts ...async.Option) RunnerOption {
	return func(r *Runner) {
		r.loopOpts = append(r.loopOpts, opts...)
	}
}

// NewRunner creates a runner that opens connections with connect.
func NewRunner(connect ConnectFunc, opts ...RunnerOption) *Runner {
	r := &Runner{
		connect:  connect,
		splitter: splitter.Naive{},
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run connects, drives adv to completion on a fresh event loop and closes
// the connection. The adventure's error is returned as-is.
func (r *Runner) Run(ctx context.Context, name string, adv Adventure) error {
	if adv == nil {
		return ErrNoAdventure
	}

	log := r.log.With().
		Str("quest", name).
		Str("run_id", ulid.Make().String()).
		Logger()

	conn, err := r.connect(ctx)
	if err != nil {
		log.Error().Err(err).Msg("connect failed")
		return &ConnectError{Err: err}
	}
	defer func() {
		if cerr := conn.Close(context.WithoutCancel(ctx)); cerr != nil {
			log.Warn().Err(cerr).Msg("closing connection")
		}
	}()

	reporter := r.reporter
	if reporter == nil {
		reporter = NewLogReporter(log)
	}

	loop := async.NewLoop(r.loopOpts...)
	q := &Quest{
		name:     name,
		conn:     conn,
		loop:     loop,
		splitter: r.splitter,
		reporter: reporter,
		sqlDir:   r.sqlDir,
		timing:   r.timing,
	}

	log.Info().Msg("quest started")
	start := time.Now()
	if err := loop.Run(ctx, func(ctx context.Context) error {
		return adv.Run(ctx, q)
	}); err != nil {
		log.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("quest failed")
		return err
	}
	log.Info().Dur("elapsed", time.Since(start)).Msg("quest completed")
	return nil
}
