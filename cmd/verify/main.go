package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/anime-shed/veritas-go/internal/config"
	"github.com/anime-shed/veritas-go/internal/container"
	"github.com/anime-shed/veritas-go/internal/intake"
	"github.com/anime-shed/veritas-go/internal/logger"
	"github.com/anime-shed/veritas-go/internal/provider"
)

// cliSession is the session used for one-shot verifications
const cliSession = "cli"

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check text, a URL or a media file for signs of fraud",
	Long: `Runs a single verification against the configured provider and prints
the verdict as JSON.

Examples:
  verify --text "Your account is suspended, confirm your password"
  verify --url https://example.com/offer
  verify --file ./clip.mp4
  PROVIDER=gemini GEMINI_API_KEY=... verify --file ./receipt.png`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.LoadFromEnv()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		// stdout carries the JSON result
		logger.SetOutput(os.Stderr)
		logger.Configure(cfg.LogLevel, cfg.LogFormat)
		return nil
	},
	RunE: runVerify,
}

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List registered provider names",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range provider.Registered() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "active: %s\n", cfg.ResolvedProvider())
		return nil
	},
}

func init() {
	f := rootCmd.Flags()
	f.String("text", "", "text to verify")
	f.String("url", "", "URL to verify")
	f.String("file", "", "path of an image, audio, video or PDF file")
	f.String("mime", "", "MIME type of --file (sniffed when empty)")
	f.Bool("pretty", true, "indent JSON output")

	rootCmd.AddCommand(providersCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	text, _ := cmd.Flags().GetString("text")
	rawURL, _ := cmd.Flags().GetString("url")
	path, _ := cmd.Flags().GetString("file")
	mimeType, _ := cmd.Flags().GetString("mime")
	pretty, _ := cmd.Flags().GetBool("pretty")

	raw := intake.RawInput{Text: text, URL: rawURL}
	if path != "" {
		file, err := fileInput(path, mimeType)
		if err != nil {
			return err
		}
		raw.File = file
	}

	c, err := container.NewContainer(cfg)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer c.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := c.Service().Verify(ctx, cliSession, raw)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(result)
}

func fileInput(path, mimeType string) (*intake.FileInput, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	return &intake.FileInput{
		Filename: filepath.Base(path),
		MimeType: mimeType,
		Size:     info.Size(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
