package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/room-booking/internal/handler"
	"github.com/Shivanand-hulikatti/room-booking/internal/identity"
)

func serveCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			if err := a.cfg.ValidateServe(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// ── 1. Connect to the store ─────────────────────────────────────
			store, closeStore, err := a.openStore(ctx, migrate)
			if err != nil {
				return err
			}
			defer closeStore()

			// ── 2. Wire up layers ───────────────────────────────────────────
			pub, closePub := a.publisher()
			defer closePub()
			svc, err := a.service(store, pub)
			if err != nil {
				return err
			}
			verifier := identity.NewJWTVerifier(a.cfg.Auth.JWTSecret, a.cfg.Auth.AdminEmails)
			router := handler.NewRouter(handler.NewBookingHandler(svc, a.log), verifier, a.log)

			// ── 3. Start server with graceful shutdown ──────────────────────
			srv := &http.Server{
				Addr:         a.cfg.HTTP.ListenAddr(),
				Handler:      router,
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 15 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.log.Info("server listening", "addr", srv.Addr, "store", a.cfg.Store.Driver)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			a.log.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			a.log.Info("server stopped")
			return nil
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply database migrations on start")
	return cmd
}
