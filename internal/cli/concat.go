package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"segment-studio/internal/capture"
)

var concatCmd = &cobra.Command{
	Use:   "concat [segment_file]...",
	Short: "Concatenate segment payloads in order",
	Long: `Join segment files byte for byte in the order given, exactly as a
capture session does when it finalizes its active segments.

Examples:
  studioctl concat -o clip.webm seg1.webm seg2.webm`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConcat,
}

func init() {
	rootCmd.AddCommand(concatCmd)

	concatCmd.Flags().
		StringP("output", "o", "", "Output file path (default stdout)")
}

func runConcat(cmd *cobra.Command, args []string) error {
	outputPath, _ := cmd.Flags().GetString("output")

	segs := make([]capture.Segment, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read segment: %w", err)
		}
		segs = append(segs, capture.Segment{ID: path, Media: data})
	}
	out := capture.ConcatMedia(segs)

	log.Debug("concatenated segments",
		slog.Int("segments", len(segs)),
		slog.Int("bytes", len(out)))

	if outputPath == "" {
		_, err := cmd.OutOrStdout().Write(out)
		return err
	}
	if err := os.WriteFile(outputPath, out, 0644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d bytes to %s\n", len(out), outputPath)
	return nil
}
