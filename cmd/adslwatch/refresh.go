package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/adslwatch/internal/config"
	"github.com/nao1215/adslwatch/internal/database"
	"github.com/nao1215/adslwatch/internal/report"
)

var errRefreshTarget = errors.New("pass login names to refresh, or --all")

// NewRefreshCmd creates the refresh command.
func NewRefreshCmd() *cobra.Command {
	cfg := config.NewConfig()

	cmd := &cobra.Command{
		Use:   "refresh [logins...]",
		Short: "Refresh the snapshots of registered accounts",
		Long: `Refresh logs in as registered accounts with their stored credentials and
saves a new account snapshot when the plan, status or balance changed.

Examples:
  # Refresh two accounts
  adslwatch refresh 10871234 21234567

  # Refresh every registered account, 10 at a time
  adslwatch refresh --all --workers 10 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefresh(cmd, cfg, args)
		},
	}

	flags := cmd.Flags()
	bindPortalFlags(flags, cfg)
	bindCaptchaFlags(flags, cfg)
	bindStoreFlags(flags, cfg)
	bindWorkerFlags(flags, cfg)
	bindReportFlags(flags, cfg)
	flags.BoolP("all", "a", false, "Refresh every registered account")
	cmd.MarkFlagsMutuallyExclusive(flagJSON, flagMarkdown)
	cmd.MarkFlagsMutuallyExclusive(flagProxy, flagTor)

	return cmd
}

func runRefresh(cmd *cobra.Command, cfg *config.Config, logins []string) error {
	all, err := cmd.Flags().GetBool("all")
	if err != nil {
		return err
	}
	if all == (len(logins) > 0) {
		return errRefreshTarget
	}

	logger, err := loadConfig(cmd, cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	e, stop, err := startEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stop()

	rep := &report.RefreshReport{StartedAt: time.Now()}
	if all {
		rep.Results, err = e.Orchestrator().RefreshAll(ctx, cfg.Workers)
		if err != nil {
			return err
		}
	} else {
		rep.Results = make(map[string]bool, len(logins))
		for _, loginName := range logins {
			ok, err := e.Orchestrator().RefreshAccount(ctx, loginName)
			if errors.Is(err, database.ErrNotFound) {
				return fmt.Errorf("%s is not registered: %w", loginName, err)
			}
			if err != nil {
				logger.Warn("refresh failed", "login", loginName, "error", err)
			}
			rep.Results[loginName] = ok
		}
	}
	rep.FinishedAt = time.Now()

	succeeded, failed := rep.Split()
	logger.Info("refresh finished", "succeeded", len(succeeded), "failed", len(failed))

	return outputReport(cmd, cfg, func(w report.Writer) error {
		_, err := w.WriteRefresh(rep)
		return err
	})
}
