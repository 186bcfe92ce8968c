package ui

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/javiermolinar/clinicflow/internal/api"
	"github.com/javiermolinar/clinicflow/internal/config"
)

func (a *App) serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the appointment API over HTTP",
		Long: `Serve the configured repository as a JSON API, so other machines can
run the calendar with storage.driver = "remote".

Prometheus metrics are exposed at /metrics and a health check at /healthz.`,
		Example: `  clinicflow serve --addr=:8080`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.config.Storage.Driver == config.DriverRemote && a.repo == nil {
				a.logger.Warn("serving a remote repository proxies every request upstream",
					zap.String("upstream", a.config.Storage.APIURL))
			}

			ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := a.ensureRepo(ctx); err != nil {
				return err
			}

			if addr == "" {
				addr = a.config.Server.Addr
			}
			srv := api.NewServer(a.repo, api.Options{
				Metrics:  a.metrics,
				Gatherer: a.registry,
				Logger:   a.logger,
			})
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	return cmd
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
