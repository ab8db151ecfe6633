package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nao1215/adslwatch/internal/config"
	"github.com/nao1215/adslwatch/internal/database"
)

// defaultHistoryLimit is the number of login log entries history shows.
const defaultHistoryLimit = 20

const dateLayout = "2006-01-02 15:04:05"

// NewShowCmd creates the show command.
func NewShowCmd() *cobra.Command {
	cfg := config.NewConfig()

	cmd := &cobra.Command{
		Use:   "show <login>",
		Short: "Show the latest snapshot of a registered account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, cfg, args[0])
		},
	}
	bindStoreFlags(cmd.Flags(), cfg)
	return cmd
}

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cfg := config.NewConfig()

	cmd := &cobra.Command{
		Use:   "history <login>",
		Short: "Show recent login attempts of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, cfg, args[0])
		},
	}
	bindStoreFlags(cmd.Flags(), cfg)
	cmd.Flags().Int("limit", defaultHistoryLimit, "Maximum number of entries to show")
	return cmd
}

// openDatabase opens an existing account database read for display.
func openDatabase(cmd *cobra.Command, cfg *config.Config) (*database.AccountDB, error) {
	if _, err := loadConfig(cmd, cfg); err != nil {
		return nil, err
	}
	db, err := database.Open(cfg.DBDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		return nil, fmt.Errorf("no accounts registered yet: %w", err)
	}
	return db, nil
}

func runShow(cmd *cobra.Command, cfg *config.Config, loginName string) error {
	db, err := openDatabase(cmd, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	cred, err := db.CredentialByLogin(ctx, loginName)
	if errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("%s is not registered: %w", loginName, err)
	}
	if err != nil {
		return err
	}

	rec, err := db.LatestSnapshot(ctx, cred.ID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Login:    %s\n", cred.LoginName)
	fmt.Fprintf(out, "Line:     %s\n", cred.LineNumber)
	if cred.NetworkID != "" {
		fmt.Fprintf(out, "Network:  %s\n", cred.NetworkID)
	}
	if rec == nil {
		fmt.Fprintln(out, "\nNo snapshot stored yet.")
		return nil
	}

	fmt.Fprintf(out, "\nSnapshot taken %s:\n", rec.Timestamp.Local().Format(dateLayout))
	s := rec.Snapshot
	writeField(out, "Name", s.DisplayedName)
	writeField(out, "Plan", s.PlanText)
	writeField(out, "Status", s.StatusText)
	writeField(out, "Balance", s.AvailableBalanceText)
	writeField(out, "Subscribed", s.SubscriptionDate)
	writeField(out, "Expires", s.ExpiryDateText)
	return nil
}

func writeField(out io.Writer, label, value string) {
	if value == "" {
		value = "-"
	}
	fmt.Fprintf(out, "  %-11s %s\n", label+":", value)
}

func runHistory(cmd *cobra.Command, cfg *config.Config, loginName string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	db, err := openDatabase(cmd, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	logs, err := db.LoginHistory(cmd.Context(), loginName, limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(logs) == 0 {
		fmt.Fprintf(out, "No login history found for %s\n", loginName)
		return nil
	}

	fmt.Fprintf(out, "Login history for %s (%d entries):\n\n", loginName, len(logs))
	fmt.Fprintf(out, "  %-19s  %-24s  %s\n", "Date", "Result", "Details")
	for _, entry := range logs {
		fmt.Fprintf(out, "  %-19s  %-24s  %s\n",
			entry.Timestamp.Local().Format(dateLayout),
			entry.Result,
			entry.Details,
		)
	}
	return nil
}
