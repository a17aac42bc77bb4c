package quest

import (
	"time"

	"github.com/gertd/go-pluralize"
	"github.com/rs/zerolog"
)

// Reporter receives progress from a running quest.
type Reporter interface {
	Statement(stmt string)
	Completed(stmt string, elapsed time.Duration)
	Failed(stmt string, err error)
	Retrying(attempt int, wait time.Duration, err error)
	RollbackFailed(err error)
}

// NopReporter discards everything.
type NopReporter struct{}

func (NopReporter) Statement(string) {}
func (NopReporter) Completed(string, time.Duration) {}
func (NopReporter) Failed(string, error) {}
func (NopReporter) Retrying(int, time.Duration, error) {}
func (NopReporter) RollbackFailed(error) {}

// LogReporter writes progress to a zerolog logger.
type LogReporter struct {
	log    zerolog.Logger
	plural *pluralize.Client
}

// NewLogReporter creates a reporter logging through log.
func NewLogReporter(log zerolog.Logger) *LogReporter {
	return &LogReporter{log: log, plural: pluralize.NewClient()}
}

func (r *LogReporter) Statement(stmt string) {
	r.log.Info().Str("sql", stmt).Msg("executing")
}

// Completed logs the statement's elapsed time unless it is zero.
func (r *LogReporter) Completed(stmt string, elapsed time.Duration) {
	ev := r.log.Info().Str("sql", stmt)
	if elapsed > 0 {
		ev = ev.Dur("elapsed", elapsed)
	}
	ev.Msg("done")
}

func (r *LogReporter) Failed(stmt string, err error) {
	r.log.Error().Err(err).Str("sql", stmt).Msg("statement failed")
}

func (r *LogReporter) Retrying(attempt int, wait time.Duration, err error) {
	r.log.Warn().Err(err).
		Int("attempt", attempt).
		Dur("wait", wait).
		Msgf("retrying after %s", r.plural.Pluralize("failure", attempt, true))
}

func (r *LogReporter) RollbackFailed(err error) {
	r.log.Error().Err(err).Msg("rollback failed")
}

var (
	_ Reporter = NopReporter{}
	_ Reporter = (*LogReporter)(nil)
)
