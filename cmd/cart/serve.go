package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/nikolayk812/cartstore/internal/httpapi"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the cart over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := &http.Server{
				Addr:    a.cfg.HTTP.Addr,
				Handler: httpapi.NewRouter(a.store, a.catalog, a.logger),
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("cart api listening", slog.String("addr", srv.Addr))
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return fmt.Errorf("srv.ListenAndServe: %w", err)
			case <-ctx.Done():
			}

			a.logger.Info("shutting down cart api")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("srv.Shutdown: %w", err)
			}
			if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("srv.ListenAndServe: %w", err)
			}

			return nil
		},
	}

	cmd.Flags().String("addr", "", "listen address")
	_ = a.v.BindPFlag("http.addr", cmd.Flags().Lookup("addr"))

	return cmd
}
