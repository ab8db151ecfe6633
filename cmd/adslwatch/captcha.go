package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/adslwatch/internal/captcha"
	"github.com/nao1215/adslwatch/internal/config"
)

// maxImageSize bounds the CAPTCHA image read by "captcha solve".
const maxImageSize = 1 << 20

// NewCaptchaCmd creates the captcha command and its subcommands.
func NewCaptchaCmd() *cobra.Command {
	cfg := config.NewConfig()

	cmd := &cobra.Command{
		Use:   "captcha",
		Short: "Talk to the CAPTCHA inference service",
		Long: `Check the CAPTCHA inference service or solve a single image with it.

Examples:
  # Check that the service answers its health endpoint
  adslwatch captcha probe --captcha-url http://127.0.0.1:8000

  # Solve a saved CAPTCHA image
  adslwatch captcha solve captcha.png

  # Solve an image read from stdin
  curl -s https://panel.example.net/captcha.php | adslwatch captcha solve -`,
	}
	bindCaptchaFlags(cmd.PersistentFlags(), cfg)

	cmd.AddCommand(&cobra.Command{
		Use:   "probe",
		Short: "Check the CAPTCHA service health endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCaptchaProbe(cmd, cfg)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "solve <image|->",
		Short: "Solve one CAPTCHA image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCaptchaSolve(cmd, cfg, args[0])
		},
	})

	return cmd
}

func newCaptchaClient(cmd *cobra.Command, cfg *config.Config) (*captcha.Client, error) {
	logger, err := loadConfig(cmd, cfg)
	if err != nil {
		return nil, err
	}
	return captcha.NewClient(cfg.CaptchaURL,
		captcha.WithTimeout(cfg.CaptchaTimeout),
		captcha.WithLogger(logger),
	)
}

func runCaptchaProbe(cmd *cobra.Command, cfg *config.Config) error {
	client, err := newCaptchaClient(cmd, cfg)
	if err != nil {
		return err
	}
	if err := client.Probe(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "CAPTCHA service at %s is healthy\n", cfg.CaptchaURL)
	return nil
}

func runCaptchaSolve(cmd *cobra.Command, cfg *config.Config, path string) error {
	image, err := readImage(cmd, path)
	if err != nil {
		return err
	}

	client, err := newCaptchaClient(cmd, cfg)
	if err != nil {
		return err
	}
	text, err := client.Solve(cmd.Context(), image)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}

// readImage reads path, or stdin when path is "-".
func readImage(cmd *cobra.Command, path string) ([]byte, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path) //nolint:gosec // User-provided image path is intentional
		if err != nil {
			return nil, fmt.Errorf("failed to open image: %w", err)
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(io.LimitReader(r, maxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) > maxImageSize {
		return nil, fmt.Errorf("image is larger than %d bytes", maxImageSize)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("image %s is empty", path)
	}
	return data, nil
}
