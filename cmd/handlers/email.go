package handlers

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"paperfeed/internal/email"
)

// NewEmailCmd creates the email command for a one-off digest dispatch
func NewEmailCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "email",
		Short: "Send the weekly digest email to subscribers",
		Long: `Generate this week's digest for every subscribed user and send it
through the configured email provider. A failure for one subscriber is
logged and skipped; the command only fails when no subscribers can be
listed at all.

Examples:
  # All subscribers
  paperfeed email

  # A single subscriber
  paperfeed email --user 7f3c9a12`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEmail(cmd.Context(), userID)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "send to this subscriber only")

	return cmd
}

func runEmail(ctx context.Context, userID string) error {
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

	if userID != "" {
		if err := dispatcher.DispatchUser(ctx, userID); err != nil {
			return err
		}
		fmt.Println("Sent 1 digest email")
		return nil
	}

	sent, failed, err := dispatcher.DispatchWeekly(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Sent %d digest emails (%d failed)\n", sent, failed)
	return nil
}
