package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"segment-studio/internal/storage"
)

var metaCmd = &cobra.Command{
	Use:   "meta [video_name]",
	Short: "Show the metadata stored with a published video",
	Long: `Read the YAML sidecar written next to a published video in the media
directory and print a summary.

Examples:
  studioctl meta 0190f3c2-7d1e-7a44-9c1b-2f6d1e0a9b11.webm --media-dir ./data`,
	Args: cobra.ExactArgs(1),
	RunE: runMeta,
}

func init() {
	rootCmd.AddCommand(metaCmd)

	metaCmd.Flags().
		String("media-dir", "./data", "Media directory of the studio server")
}

func runMeta(cmd *cobra.Command, args []string) error {
	dir, _ := cmd.Flags().GetString("media-dir")

	store, err := storage.NewLocal(dir, "", log)
	if err != nil {
		return err
	}
	meta, err := store.ReadMetadata(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "title:    %s\n", meta.Title)
	fmt.Fprintf(out, "channel:  %s (%s)\n", meta.ChannelName, meta.ChannelID)
	fmt.Fprintf(out, "duration: %ds in %d segments\n", meta.Duration, meta.Segments)
	fmt.Fprintf(out, "short:    %v\n", meta.IsShort)
	fmt.Fprintf(out, "captions: %d\n", len(meta.TextLayers))
	if meta.Effect != "" {
		fmt.Fprintf(out, "effect:   %s\n", meta.Effect)
	}
	return nil
}
