package handlers

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"paperfeed/internal/email"
	"paperfeed/internal/logger"
	"paperfeed/internal/scheduler"
)

// NewScheduleCmd creates the schedule command for recurring email dispatch
func NewScheduleCmd() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the weekly email dispatch on a schedule",
		Long: `Run the digest email dispatch in a loop. The first dispatch happens
immediately; later ones fire on the configured interval. Digests are
cached per week, so a shorter interval only picks up subscribers who
were missed by an earlier run.

Examples:
  # The default weekly cadence
  paperfeed schedule

  # Retry missed subscribers daily
  paperfeed schedule --interval 24h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchedule(cmd.Context(), interval)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 7*24*time.Hour, "time between dispatch runs")

	return cmd
}

func runSchedule(ctx context.Context, interval time.Duration) error {
	log := logger.Get()

	d, err := buildDeps(false)
	if err != nil {
		return err
	}
	defer d.Close()

	if d.cfg.Email.ResendAPIKey == "" {
		return fmt.Errorf("email.resend_api_key is not configured (set RESEND_API_KEY)")
	}

	dispatcher := email.NewDispatcher(
		d.cfg.Email,
		d.db.Subscribers(),
		d.service,
		email.NewResendClient(d.cfg.Email),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched := scheduler.New(interval)
	sched.Start(ctx, func(ctx context.Context, at time.Time) {
		sent, failed, err := dispatcher.DispatchWeekly(ctx)
		if err != nil {
			log.Error("scheduled dispatch failed", "error", err.Error())
			return
		}
		log.Info("scheduled dispatch finished", "sent", sent, "failed", failed)
	})
	defer sched.Stop()

	<-ctx.Done()
	log.Info("shutting down scheduler")
	return nil
}
