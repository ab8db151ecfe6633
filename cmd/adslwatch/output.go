package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/adslwatch/internal/config"
	"github.com/nao1215/adslwatch/internal/engine"
	"github.com/nao1215/adslwatch/internal/report"
)

// reportFormat picks the report format from the output flags.
func reportFormat(cfg *config.Config) report.Format {
	switch {
	case cfg.JSONReport:
		return report.FormatJSON
	case cfg.MarkdownReport:
		return report.FormatMarkdown
	default:
		return report.FormatText
	}
}

// outputReport renders a report to cfg.ReportFile, or to the command's
// stdout when no file is set.
func outputReport(cmd *cobra.Command, cfg *config.Config, write func(report.Writer) error) (err error) {
	var output io.Writer = cmd.OutOrStdout()
	if cfg.ReportFile != "" {
		if dir := filepath.Dir(cfg.ReportFile); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Reports list login names, so only the owner may read them.
		var f *os.File
		f, err = os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("failed to close output file: %w", cerr)
			}
		}()
		output = f
	}

	return write(report.New(output, reportFormat(cfg), getVersion()))
}

// startEngine builds and starts an Engine for cfg. The caller must call
// the returned stop function.
func startEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...engine.Option) (*engine.Engine, func(), error) {
	if cfg.UseEmbeddedTor {
		logger.Info("starting embedded Tor daemon, this may take a few minutes")
	}

	e, err := engine.New(ctx, cfg, append([]engine.Option{engine.WithLogger(logger)}, opts...)...)
	if err != nil {
		return nil, nil, err
	}
	stop := func() {
		if err := e.Close(); err != nil {
			logger.Warn("failed to shut down cleanly", "error", err)
		}
	}
	if err := e.Start(ctx); err != nil {
		stop()
		return nil, nil, err
	}
	return e, stop, nil
}
