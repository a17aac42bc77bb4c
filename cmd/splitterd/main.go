package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Konsultn-Engineering/quest/config"
	"github.com/Konsultn-Engineering/quest/logger"
	"github.com/Konsultn-Engineering/quest/splitter"
	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags
var Version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:           "splitterd",
		Short:         "Serve SQL statement boundaries over HTTP",
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return err
			}
			if cmd.Flags().Changed("listen") {
				cfg.Splitter.Listen = listen
			}

			log := logger.New(cfg.Log)
			e := splitter.NewServer(splitter.NewService(log))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errc := make(chan error, 1)
			go func() {
				log.Info().Str("addr", cfg.Splitter.Listen).Msg("splitter listening")
				errc <- e.Start(cfg.Splitter.Listen)
			}()

			select {
			case err := <-errc:
				if !errors.Is(err, http.ErrServerClosed) {
					log.Error().Err(err).Msg("server failed")
					return err
				}
				return nil
			case <-ctx.Done():
			}

			log.Info().Msg("shutting down")
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := e.Shutdown(sctx); err != nil {
				log.Error().Err(err).Msg("shutdown failed")
				return err
			}
			log.Info().Msg("server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "address to listen on")
	return cmd
}
