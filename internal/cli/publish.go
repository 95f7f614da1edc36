package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/apresai/podcraft/internal/assembly"
	"github.com/apresai/podcraft/internal/pipeline"
	"github.com/apresai/podcraft/internal/publish"
)

var publishCmd = &cobra.Command{
	Use:   "publish <episode.mp3>",
	Short: "Upload an existing episode and record it in the catalog",
	Long: `Upload an MP3 produced by "podcraft generate" to the configured S3 bucket and
record it in the DynamoDB catalog. A transcript.md next to the MP3 is uploaded
as well.`,
	Args: cobra.ExactArgs(1),
	RunE: runPublish,
}

var episodesCmd = &cobra.Command{
	Use:   "episodes",
	Short: "List published episodes, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		pub, err := publish.New(cmd.Context(), cfg.Publish, logger)
		if err != nil {
			return err
		}
		eps, next, err := pub.Catalog.List(cmd.Context(), flagLimit, flagCursor)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, ep := range eps {
			fmt.Fprintf(out, "%s  %-10s %-30s %s\n", ep.ID, ep.Status, ep.Title, ep.AudioURL)
		}
		if next != "" {
			fmt.Fprintf(out, "\nmore: podcraft episodes --cursor %q\n", next)
		}
		return nil
	},
}

var (
	flagLimit  int
	flagCursor string
)

func init() {
	publishCmd.Flags().StringVar(&flagTitle, "title", "", "Episode title (default: file name)")
	episodesCmd.Flags().IntVar(&flagLimit, "limit", 20, "Maximum number of episodes")
	episodesCmd.Flags().StringVar(&flagCursor, "cursor", "", "Cursor from a previous listing")
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(episodesCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	path := args[0]
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("episode not found: %w", err)
	}
	ctx := cmd.Context()

	res := &pipeline.Result{
		AudioPath:  path,
		SessionDir: filepath.Dir(path),
	}
	if d, err := assembly.ProbeDuration(ctx, nil, path); err == nil {
		res.Duration = d
	} else {
		logger.Warn("could not read duration", "path", path, "error", err)
	}

	title := flagTitle
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	pub, err := publish.New(ctx, cfg.Publish, logger)
	if err != nil {
		return err
	}
	ep, err := pub.Publish(ctx, publish.Episode{Title: title}, res)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Published %s: %s\n", ep.ID, ep.AudioURL)
	return nil
}
