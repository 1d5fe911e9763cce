package handlers

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"paperfeed/internal/logger"
)

// NewDigestCmd creates the digest command for one-off generation
func NewDigestCmd() *cobra.Command {
	var (
		userID string
		pretty bool
	)

	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Generate one user's weekly digest",
		Long: `Generate the current week's digest for a single user and print it
as JSON. Results are cached per (user, week) so repeated runs within
the same week return the stored digest.

Examples:
  paperfeed digest --user 7f3c9a12
  paperfeed digest --user 7f3c9a12 --pretty`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			return runDigest(cmd, userID, pretty)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user ID to generate the digest for")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent the JSON output")

	return cmd
}

func runDigest(cmd *cobra.Command, userID string, pretty bool) error {
	d, err := buildDeps(true)
	if err != nil {
		return err
	}
	defer d.Close()

	digest, traceID, err := d.service.Generate(cmd.Context(), userID)
	if err != nil {
		return fmt.Errorf("digest generation failed (trace %s): %w", traceID, err)
	}
	logger.Info("digest generated", "trace_id", traceID, "papers", digest.PapersCount)

	enc := json.NewEncoder(os.Stdout)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(digest)
}
