package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/larder/internal/server"
	"github.com/mesh-intelligence/larder/internal/tracing"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the declared tables over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			db, err := a.openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			if addr == "" {
				addr = a.file.Server.Addr
			}
			name := a.file.Trace.ServiceName
			if name == "" {
				name = tracing.DefaultServiceName
			}
			srv := server.New(db, name, a.logger)

			errc := make(chan error, 1)
			go func() { errc <- srv.Start(addr) }()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}
			a.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Warn("shutdown", zap.Error(err))
			}
			return <-errc
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr from config.yaml)")
	return cmd
}
