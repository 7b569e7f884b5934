package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"segment-studio/internal/platform/logger"
)

var (
	verbose bool
	log     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "studioctl",
	Short: "Developer tools for the segment studio",
	Long: `studioctl inspects the pieces the studio server works with: audio
durations as the layer registry probes them, global-to-local time
resolution over a segment list, segment concatenation and the metadata
sidecars of published videos.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := "warn"
		if verbose {
			level = "debug"
		}
		log = logger.NewWithWriter(cmd.ErrOrStderr(), level, "text")
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().
		BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
}
