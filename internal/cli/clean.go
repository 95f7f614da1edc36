package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/apresai/podcraft/internal/pipeline"
)

var flagCleanAll bool

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove old session directories from the cache",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dir := cfg.Pipeline.CacheDir
		if dir == "" {
			dir = "./podcraft-cache"
		}
		out := cmd.OutOrStdout()

		if flagCleanAll {
			if err := pipeline.CleanAll(dir); err != nil {
				return err
			}
			fmt.Fprintf(out, "Emptied %s\n", dir)
			return nil
		}

		ttl := cfg.Pipeline.CacheTTL
		if ttl <= 0 {
			ttl = time.Hour
		}
		removed, err := pipeline.Housekeep(cmd.Context(), dir, ttl, time.Now())
		for _, r := range removed {
			fmt.Fprintf(out, "removed %s\n", r)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%d session(s) older than %s removed\n", len(removed), ttl)
		return nil
	},
}

func init() {
	cleanCmd.Flags().BoolVar(&flagCleanAll, "all", false, "Remove every session, not only expired ones")
	rootCmd.AddCommand(cleanCmd)
}
