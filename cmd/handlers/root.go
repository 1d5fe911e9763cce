package handlers

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"paperfeed/internal/config"
	"paperfeed/internal/logger"
)

var cfgFile string

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "paperfeed",
		Short: "Paperfeed generates personalized weekly research paper digests.",
		Long: `Paperfeed discovers recently published research papers, enriches them
with metadata and abstracts, ranks them against each user's research
profile, and delivers the result as an API response or a weekly email.

Common usage:

  # Start the HTTP API
  paperfeed serve

  # Generate one user's digest from the command line
  paperfeed digest --user <user-id>

  # Send the weekly digest email to all subscribers
  paperfeed email

  # Run the weekly email dispatch on a schedule
  paperfeed schedule`,
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .paperfeed.yaml)")

	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewDigestCmd())
	rootCmd.AddCommand(NewEmailCmd())
	rootCmd.AddCommand(NewScheduleCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger.SetLevel(cfg.Logging.Level)
}
