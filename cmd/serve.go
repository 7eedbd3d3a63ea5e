/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"reviewdeck/internal/bootstrap"
	"reviewdeck/internal/bootstrap/logging"
	"reviewdeck/internal/errs"
	"reviewdeck/internal/infrastructure/notify"
	reviewuc "reviewdeck/internal/usecase/review"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook receiver and review API server",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, svc *reviewuc.Service, hub *notify.Hub) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		addr, _ := cmd.Flags().GetString("addr")
		addr = strings.TrimSpace(addr)
		if addr == "" {
			addr = app.Config.Server.Addr
		}

		router := newServeRouter(svc, hub, reviewuc.WebhookSecrets{
			GitHubSecret: app.Config.Server.GitHubWebhookSecret,
			GitLabToken:  app.Config.Server.GitLabWebhookToken,
		})

		server := &http.Server{
			Addr:    addr,
			Handler: router,
		}

		if after := app.Config.Analysis.StaleReviewAfter; after > 0 {
			go runReaper(ctx, svc, after)
		}

		errCh := make(chan error, 1)
		go func() {
			logging.Info(ctx, "server started", slog.String("addr", addr))
			errCh <- server.ListenAndServe()
		}()

		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return errs.Wrap(err, "shutdown server")
			}
			logging.Info(ctx, "server stopped")
			return nil
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error(ctx, "server failed", slog.Any("err", errs.Loggable(err)))
				return errs.Wrap(err, "serve http")
			}
			return nil
		}
	}),
}

func newServeRouter(svc *reviewuc.Service, hub *notify.Hub, secrets reviewuc.WebhookSecrets) chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	newWebhookHandler(svc, secrets).mount(router)
	newReviewAPIHandler(svc).mount(router)
	newReviewEventsHandler(svc, hub).mount(router)

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeAPIJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return router
}

// runReaper periodically fails reviews stuck IN_PROGRESS longer than
// maxAge, covering crashes between review creation and the analysis
// pipeline's terminal write.
func runReaper(ctx context.Context, svc *reviewuc.Service, maxAge time.Duration) {
	interval := maxAge / 2
	if interval > 5*time.Minute {
		interval = 5 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := svc.SweepStaleReviews(ctx, maxAge); err != nil {
				logging.Error(ctx, "stale review sweep failed", slog.Any("err", errs.Loggable(err)))
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (defaults to server.addr from config)")
}
