package quest

import (
	"context"

	"github.com/Konsultn-Engineering/quest/database"
)

var (
	beginTx    = Request{Text: "BEGIN", NoSplit: true}
	commitTx   = Request{Text: "COMMIT", NoSplit: true}
	rollbackTx = Request{Text: "ROLLBACK", NoSplit: true}
)

// Transaction runs proc between BEGIN and COMMIT and returns proc's result.
// When proc fails the transaction is rolled back and proc's error returned
// unchanged; a failed rollback is only reported. Calls do not nest: an inner
// Transaction issues a second BEGIN.
func (q *Quest) Transaction(ctx context.Context, proc Proc) (*database.Result, error) {
	if _, err := q.Exec(ctx, beginTx); err != nil {
		return nil, err
	}

	res, err := proc(ctx)
	if err != nil {
		if _, rerr := q.Exec(ctx, rollbackTx); rerr != nil {
			q.reporter.RollbackFailed(rerr)
		}
		return nil, err
	}

	if _, err := q.Exec(ctx, commitTx); err != nil {
		return nil, err
	}
	return res, nil
}
