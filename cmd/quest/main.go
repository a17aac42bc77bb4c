package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/Konsultn-Engineering/quest/adventures"
	"github.com/Konsultn-Engineering/quest/config"
	"github.com/Konsultn-Engineering/quest/connector"
	"github.com/Konsultn-Engineering/quest/database"
	"github.com/Konsultn-Engineering/quest/logger"
	"github.com/Konsultn-Engineering/quest/quest"
	"github.com/Konsultn-Engineering/quest/splitter"
	"github.com/Konsultn-Engineering/quest/table"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags
var Version = "dev"

type flags struct {
	dir         string
	sqlDir      string
	timing      bool
	splitterURL string
	driver      string
	logLevel    string
	pretty      bool
	list        bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:           "quest [name]",
		Short:         "Run a batch of templated SQL against PostgreSQL",
		Version:       Version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return err
			}
			f.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return err
			}

			if f.list {
				for _, name := range quest.Names() {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			}
			if len(args) == 0 {
				return cmd.Help()
			}

			log := logger.New(cfg.Log)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, log, args[0], cmd)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&f.dir, "dir", "d", "", "quest directory")
	fs.StringVar(&f.sqlDir, "sql-dir", "", "SQL directory, relative to the quest directory")
	fs.BoolVarP(&f.timing, "timing", "t", false, "report elapsed time per statement")
	fs.StringVar(&f.splitterURL, "splitter-url", "", "splitting service endpoint")
	fs.StringVar(&f.driver, "driver", "", "database driver (pgx or stdlib)")
	fs.StringVar(&f.logLevel, "log-level", "", "log level")
	fs.BoolVar(&f.pretty, "pretty", false, "human-readable logs")
	fs.BoolVarP(&f.list, "list", "l", false, "list registered quests and exit")
	return cmd
}

// apply overrides cfg with flags the user set explicitly.
func (f flags) apply(cmd *cobra.Command, cfg *config.Config) {
	fs := cmd.Flags()
	if fs.Changed("dir") {
		cfg.Quest.Dir = f.dir
	}
	if fs.Changed("sql-dir") {
		cfg.Quest.SQLDir = f.sqlDir
	}
	if fs.Changed("timing") {
		cfg.Quest.Timing = f.timing
	}
	if fs.Changed("splitter-url") {
		cfg.Splitter.URL = f.splitterURL
	}
	if fs.Changed("driver") {
		cfg.Database.Driver = f.driver
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if fs.Changed("pretty") {
		cfg.Log.Pretty = f.pretty
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger, name string, cmd *cobra.Command) error {
	adv, ok := quest.Lookup(name)
	if !ok {
		adv = quest.DefaultAdventure{Printer: table.NewPrinter(cmd.OutOrStdout())}
	}

	connect := func(ctx context.Context) (database.Conn, error) {
		return connector.Connect(ctx, cfg.Database,
			connector.WithTracer(logger.NewPgxTracer(log)),
			connector.WithRetryHook(func(attempt int, delay time.Duration, err error) {
				log.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("database unavailable, retrying")
			}),
		)
	}

	runner := quest.NewRunner(connect,
		quest.WithSQLDir(cfg.Quest.SQLPath()),
		quest.WithSplitter(splitter.New(cfg.Splitter, log)),
		quest.WithLogger(log),
		quest.WithTiming(cfg.Quest.Timing),
	)
	return runner.Run(ctx, name, adv)
}
