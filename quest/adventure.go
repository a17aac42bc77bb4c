package quest

import (
	"context"
	"sort"
	"sync"

	"github.com/Konsultn-Engineering/quest/database"
)

// Adventure is the procedure a quest runs.
type Adventure interface {
	Run(ctx context.Context, q *Quest) error
}

// AdventureFunc adapts a function to Adventure.
type AdventureFunc func(ctx context.Context, q *Quest) error

// Run implements Adventure.
func (f AdventureFunc) Run(ctx context.Context, q *Quest) error {
	return f(ctx, q)
}

// ResultPrinter renders a result for the operator.
type ResultPrinter interface {
	Print(res *database.Result) error
}

// DefaultAdventure executes <name>.sql from the quest's SQL directory and
// prints the last statement's result when Printer is set.
type DefaultAdventure struct {
	Printer ResultPrinter
}

// Run implements Adventure.
func (a DefaultAdventure) Run(ctx context.Context, q *Quest) error {
	res, err := q.Exec(ctx, File(q.Name()+".sql"))
	if err != nil {
		return err
	}
	if a.Printer == nil {
		return nil
	}
	return a.Printer.Print(res)
}

var registry = struct {
	sync.RWMutex
	adventures map[string]Adventure
}{adventures: make(map[string]Adventure)}

// Register makes an adventure available under name. Registering the same
// name twice replaces the earlier adventure.
func Register(name string, adv Adventure) {
	registry.Lock()
	defer registry.Unlock()
	registry.adventures[name] = adv
}

// Lookup returns the adventure registered under name.
func Lookup(name string) (Adventure, bool) {
	registry.RLock()
	defer registry.RUnlock()
	adv, ok := registry.adventures[name]
	return adv, ok
}

// Names lists registered adventures in sorted order.
func Names() []string {
	registry.RLock()
	defer registry.RUnlock()
	names := make([]string, 0, len(registry.adventures))
	for name := range registry.adventures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
