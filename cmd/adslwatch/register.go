package main

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/adslwatch/internal/config"
	"github.com/nao1215/adslwatch/internal/model"
	"github.com/nao1215/adslwatch/internal/report"
)

var (
	errNoLines          = errors.New("no lines to register: pass line numbers, --list or --usernames")
	errArgsWithLogins   = errors.New("line arguments cannot be combined with --usernames")
	errMalformedMapping = errors.New("malformed usernames file")
)

// Operation names shown in registration reports.
const (
	operationRegister      = "register"
	operationRegisterKnown = "register-known"
)

// NewRegisterCmd creates the register command.
func NewRegisterCmd() *cobra.Command {
	cfg := config.NewConfig()

	cmd := &cobra.Command{
		Use:   "register [lines...]",
		Short: "Register subscriber lines",
		Long: `Register logs in to the portal for each line, stores the credential that
worked and the first account snapshot.

Without --usernames the login name of each line is unknown: adslwatch tries
the usual login name forms of the line number (with and without the area
code prefix) and keeps the first one the portal accepts.

With --usernames the login names come from a CSV file of "line,login" rows
and only those are tried.

Lines that are already registered are reported as failures and skipped.

Examples:
  # Register two lines under a network tag
  adslwatch register 0871234 087-1235 --network tehran-1

  # Register the lines listed in a file, one per row
  adslwatch register --list lines.txt --workers 10

  # Register lines with known login names and save a Markdown report
  adslwatch register --usernames logins.csv --markdown -o report.md`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(cmd, cfg, args)
		},
	}

	flags := cmd.Flags()
	bindPortalFlags(flags, cfg)
	bindCaptchaFlags(flags, cfg)
	bindStoreFlags(flags, cfg)
	bindWorkerFlags(flags, cfg)
	bindRegistrationFlags(flags, cfg)
	bindReportFlags(flags, cfg)

	flags.StringP("list", "l", "", "File with one line number per row")
	flags.String("usernames", "", `CSV file of "line,login" rows`)
	cmd.MarkFlagsMutuallyExclusive("list", "usernames")
	cmd.MarkFlagsMutuallyExclusive(flagJSON, flagMarkdown)
	cmd.MarkFlagsMutuallyExclusive(flagProxy, flagTor)

	return cmd
}

func runRegister(cmd *cobra.Command, cfg *config.Config, args []string) error {
	listFile, err := cmd.Flags().GetString("list")
	if err != nil {
		return err
	}
	usernamesFile, err := cmd.Flags().GetString("usernames")
	if err != nil {
		return err
	}

	lines := append([]string(nil), args...)
	var logins map[string]string
	switch {
	case usernamesFile != "":
		if len(args) > 0 {
			return errArgsWithLogins
		}
		if logins, err = readUsernamesFile(usernamesFile); err != nil {
			return err
		}
	case listFile != "":
		fromFile, err := readLinesFile(listFile)
		if err != nil {
			return err
		}
		lines = append(lines, fromFile...)
	}
	if len(lines) == 0 && len(logins) == 0 {
		return errNoLines
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

	job := &report.JobReport{
		Operation: operationRegister,
		NetworkID: cfg.NetworkID,
		StartedAt: time.Now(),
	}
	var result *model.BulkJobResult
	if logins != nil {
		job.Operation = operationRegisterKnown
		result, err = e.Orchestrator().ProcessLinesWithUsernames(ctx, logins, cfg.NetworkID, cfg.Workers)
	} else {
		result, err = e.Orchestrator().ProcessLines(ctx, lines, cfg.NetworkID, cfg.Workers)
	}
	if err != nil {
		return err
	}
	job.FinishedAt = time.Now()
	job.Result = result

	logger.Info("registration finished",
		"succeeded", len(result.Succeeded),
		"failed", len(result.Failed),
		"duration", job.Duration(),
	)
	if ctx.Err() != nil {
		logger.Warn("registration was interrupted, unfinished lines are reported as failed")
	}

	return outputReport(cmd, cfg, func(w report.Writer) error {
		_, err := w.WriteJob(job)
		return err
	})
}

// readLinesFile reads one line number per row. Blank rows and rows
// starting with '#' are skipped.
func readLinesFile(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided list path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to open list file: %w", err)
	}
	defer f.Close()

	return readLines(f)
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		row := strings.TrimSpace(scanner.Text())
		if row == "" || strings.HasPrefix(row, "#") {
			continue
		}
		lines = append(lines, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read list: %w", err)
	}
	return lines, nil
}

func readUsernamesFile(path string) (map[string]string, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided CSV path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to open usernames file: %w", err)
	}
	defer f.Close()

	return readUsernames(f)
}

// readUsernames parses "line,login" rows. An optional header row whose
// first cell is "line" is skipped. A repeated line keeps its last login.
func readUsernames(r io.Reader) (map[string]string, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	logins := make(map[string]string)
	for row := 1; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errMalformedMapping, err)
		}
		if row == 1 && strings.EqualFold(strings.TrimSpace(record[0]), "line") {
			continue
		}
		if len(record) != 2 {
			return nil, fmt.Errorf("%w: row %d has %d fields, want 2", errMalformedMapping, row, len(record))
		}
		line := strings.TrimSpace(record[0])
		loginName := strings.TrimSpace(record[1])
		if line == "" || loginName == "" {
			return nil, fmt.Errorf("%w: row %d has an empty field", errMalformedMapping, row)
		}
		logins[line] = loginName
	}
	return logins, nil
}
