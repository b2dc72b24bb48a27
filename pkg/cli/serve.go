package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/metaform/pkg/cli/config"
	httpctrl "github.com/secmon-lab/metaform/pkg/controller/http"
	"github.com/secmon-lab/metaform/pkg/service/worker"
	"github.com/secmon-lab/metaform/pkg/utils/logging"
	"github.com/secmon-lab/metaform/pkg/widget"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var addr string
	var exposeRecordAPI bool
	var wsOrigins []string
	var refreshInterval time.Duration
	var engineCfg engineConfig
	var seedCfg config.Seed

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("METAFORM_ADDR"),
			Destination: &addr,
		},
		&cli.BoolFlag{
			Name:        "record-api",
			Usage:       "Expose the record store as a record API under /gemini",
			Value:       true,
			Sources:     cli.EnvVars("METAFORM_RECORD_API"),
			Destination: &exposeRecordAPI,
		},
		&cli.StringSliceFlag{
			Name:        "ws-origin",
			Usage:       "Origin pattern accepted on WebSocket form sessions (repeatable)",
			Sources:     cli.EnvVars("METAFORM_WS_ORIGINS"),
			Destination: &wsOrigins,
		},
		&cli.DurationFlag{
			Name:        "schema-refresh-interval",
			Usage:       "Interval of background schema refresh (0 disables it)",
			Category:    "Form",
			Sources:     cli.EnvVars("METAFORM_SCHEMA_REFRESH_INTERVAL"),
			Destination: &refreshInterval,
		},
	}
	flags = append(flags, engineCfg.Flags()...)
	flags = append(flags, seedCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			// refreshing without a schema cache would only re-read the store
			if refreshInterval > 0 && !engineCfg.uc.CacheEnabled() {
				return goerr.Wrap(config.ErrInvalidConfig, "--schema-refresh-interval requires --schema-cache-ttl",
					goerr.V(config.FlagKey, "schema-refresh-interval"))
			}

			eng, err := engineCfg.open(ctx)
			if err != nil {
				return err
			}
			defer eng.Close(ctx)

			if seedCfg.IsConfigured() {
				seed, err := seedCfg.Load(ctx)
				if err != nil {
					return err
				}
				if _, err := eng.uc.Seed.Apply(ctx, seed); err != nil {
					return goerr.Wrap(err, "failed to apply schema seed")
				}
			}

			if refreshInterval > 0 {
				refreshWorker := worker.NewSchemaRefreshWorker(eng.uc.Schema, refreshInterval)
				if err := refreshWorker.Start(ctx); err != nil {
					return goerr.Wrap(err, "failed to start schema refresh worker")
				}
				defer refreshWorker.Stop()
			}

			host, err := widget.NewHost(eng.repo)
			if err != nil {
				return goerr.Wrap(err, "failed to create widget host")
			}

			var httpOpts []httpctrl.Options
			if exposeRecordAPI {
				httpOpts = append(httpOpts, httpctrl.WithRecordAPI(eng.repo))
			}
			if len(wsOrigins) > 0 {
				httpOpts = append(httpOpts, httpctrl.WithWebSocketOrigins(wsOrigins...))
			}

			httpHandler, err := httpctrl.New(eng.uc, host, httpOpts...)
			if err != nil {
				return goerr.Wrap(err, "failed to create http server")
			}
			server := &http.Server{
				Addr:              addr,
				Handler:           httpHandler,
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr, "record_api", exposeRecordAPI)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
