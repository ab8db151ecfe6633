package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for adslwatch.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "adslwatch",
		Short: "Register and monitor ADSL subscriber accounts",
		Long: `adslwatch logs in to an ADSL provider's subscriber portal on behalf of many
lines at once. It finds the login name of each line, solves the login
CAPTCHA through an inference service and stores the account details it
scrapes in a local SQLite database.

Settings are read from flags, then from .adslwatch.yaml (see "adslwatch init").`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Path to configuration file (default: search .adslwatch.yaml)")

	cmd.AddCommand(NewRegisterCmd())
	cmd.AddCommand(NewRefreshCmd())
	cmd.AddCommand(NewShowCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewCaptchaCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command's
// context so running jobs stop and report what they finished.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
