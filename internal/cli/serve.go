package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"cookiesync/internal/httpapi"
	"cookiesync/internal/scheduler"
)

func newServeCmd(configPath *string) *cobra.Command {
	var noScheduler bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the background refresh scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApplication(*configPath)
			if err != nil {
				return err
			}
			defer app.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			api := httpapi.NewServer(app.orch, app.configView())
			srv := &http.Server{
				Addr:              app.cfg.Listen,
				Handler:           api.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			schedDone := make(chan struct{})
			if app.cfg.Enabled && !noScheduler {
				sched := scheduler.New(app.cfg.RefreshInterval, func(ctx context.Context) {
					app.orch.Refresh(ctx, nil, false)
				})
				go func() {
					defer close(schedDone)
					sched.Run(ctx)
				}()
			} else {
				close(schedDone)
				if !app.cfg.Enabled {
					log.Printf("cookiesync: sync disabled, serving status API only")
				}
			}

			errCh := make(chan error, 1)
			go func() {
				log.Printf("cookiesync: listening on %s", app.cfg.Listen)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				stop()
				<-schedDone
				return fmt.Errorf("http server: %w", err)
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("cookiesync: http shutdown: %v", err)
			}
			// The scheduler lets any in-flight cycle finish first.
			<-schedDone
			return nil
		},
	}
	cmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "Serve the API without the background refresh loop")
	return cmd
}
