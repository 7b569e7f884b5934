package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"segment-studio/internal/media"
)

var probeCmd = &cobra.Command{
	Use:   "probe [audio_file]",
	Short: "Print the duration of an audio file",
	Long: `Probe an audio file with ffprobe and print its duration in seconds,
the same way the server measures uploaded voice-over layers.

Examples:
  studioctl probe voiceover.mp3
  studioctl probe take.webm --timeout 30s`,
	Args: cobra.ExactArgs(1),
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)

	probeCmd.Flags().
		Duration("timeout", media.DefaultProbeTimeout, "Maximum time to wait for ffprobe")
}

func runProbe(cmd *cobra.Command, args []string) error {
	timeout, _ := cmd.Flags().GetDuration("timeout")

	log.Debug("probing", slog.String("file", args[0]), slog.Duration("timeout", timeout))
	d, err := media.FFprobe{Timeout: timeout}.ProbeFile(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%.3f\n", d)
	return nil
}
