/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"reviewdeck/internal/bootstrap"
	"reviewdeck/internal/bootstrap/logging"
	"reviewdeck/internal/errs"
	"reviewdeck/internal/infrastructure/notify"
	reviewuc "reviewdeck/internal/usecase/review"
)

// reviewsCmd groups review maintenance subcommands.
var reviewsCmd = &cobra.Command{
	Use:   "reviews",
	Short: "Review maintenance operations",
}

var reviewsReapCmd = &cobra.Command{
	Use:   "reap",
	Short: "Fail reviews stuck IN_PROGRESS beyond the staleness cutoff",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, svc *reviewuc.Service, _ *notify.Hub) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		maxAge, _ := cmd.Flags().GetDuration("older-than")
		if maxAge <= 0 {
			maxAge = app.Config.Analysis.StaleReviewAfter
		}
		if maxAge <= 0 {
			maxAge = 30 * time.Minute
		}

		swept, err := svc.SweepStaleReviews(ctx, maxAge)
		if err != nil {
			logging.Error(ctx, "reap failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "sweep stale reviews")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "swept %d stale reviews (older than %s)\n", swept, maxAge); err != nil {
			return errs.Wrap(err, "write reap output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(reviewsCmd)
	reviewsCmd.AddCommand(reviewsReapCmd)

	reviewsReapCmd.Flags().Duration("older-than", 0, "Staleness cutoff (defaults to analysis.stale_review_after from config)")
}
