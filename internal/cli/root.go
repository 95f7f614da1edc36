// Package cli implements the podcraft command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/apresai/podcraft/internal/config"
	"github.com/apresai/podcraft/internal/observability"
)

var Version = "dev"

var (
	flagConfig  string
	flagVerbose bool

	cfg    *config.Config
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
)

var rootCmd = &cobra.Command{
	Use:   "podcraft",
	Short: "Turn documents and web pages into two-voice podcast audio",
	Long: `podcraft reads PDF, Word, text or Markdown files, or a web page, asks a
language model to write a host/guest dialogue about it, and synthesizes the
dialogue into a single MP3.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE: func(cmd *cobra.Command, args []string) error {
		flagTUI = true
		return runGenerate(cmd, args)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "podcraft %s\n", Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Config file (default: ./podcraft.yaml or ~/.config/podcraft/podcraft.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log to stderr instead of showing a progress bar")
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command with ctx, which should be cancelled on
// interrupt.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func setup(cmd *cobra.Command, _ []string) error {
	if cmd == versionCmd {
		return nil
	}
	loaded, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	cfg = loaded

	if flagVerbose {
		if cfg.Logging.Level == "" || cfg.Logging.Level == "info" {
			cfg.Logging.Level = "debug"
		}
		logger = observability.NewLogger(cfg.Logging, os.Stderr)
	} else {
		// The progress bar owns the terminal; only warnings get through.
		quiet := cfg.Logging
		quiet.Level = "warn"
		logger = observability.NewLogger(quiet, os.Stderr)
	}
	slog.SetDefault(logger)
	return nil
}

func checkFFmpeg() error {
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("%s not found: install FFmpeg (e.g. apt install ffmpeg or brew install ffmpeg)", bin)
		}
	}
	return nil
}
