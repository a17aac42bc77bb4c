// Package adventures holds the quests shipped with the binary. Importing it
// registers them with the quest registry.
package adventures

import (
	"context"
	"os"
	"time"

	"github.com/Konsultn-Engineering/quest/database"
	"github.com/Konsultn-Engineering/quest/quest"
	"github.com/Konsultn-Engineering/quest/render"
	"github.com/Konsultn-Engineering/quest/sqlerr"
	"github.com/Konsultn-Engineering/quest/table"
)

func init() {
	quest.Register("treasure", quest.AdventureFunc(Treasure))
	quest.Register("census", Census{Printer: table.NewPrinter(os.Stdout)})
}

// TreasurePolicy retries the treasure transfer on deadlocks and
// serialization failures.
var TreasurePolicy = quest.NewRetryPolicy(
	quest.WithTimes(5),
	quest.WithWait(200*time.Millisecond),
	quest.WithRetryable(sqlerr.IsTransient),
)

// Treasure moves gold between heroes in one transaction, running
// treasure.sql with the amount bound to $1.
func Treasure(ctx context.Context, q *quest.Quest) error {
	req := quest.Request{
		File:   "treasure.sql",
		View:   render.View{"table": "heroes"},
		Params: []any{10},
	}
	_, err := q.Retry(ctx, TreasurePolicy, func(ctx context.Context) (*database.Result, error) {
		return q.Transaction(ctx, func(ctx context.Context) (*database.Result, error) {
			return q.Exec(ctx, req)
		})
	})
	return err
}

// Census runs census.sql and prints the result.
type Census struct {
	Printer quest.ResultPrinter
}

// Run implements quest.Adventure.
func (c Census) Run(ctx context.Context, q *quest.Quest) error {
	res, err := q.Exec(ctx, quest.File("census.sql"))
	if err != nil {
		return err
	}
	if c.Printer == nil {
		return nil
	}
	return c.Printer.Print(res)
}
