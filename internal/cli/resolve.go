package cli

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"segment-studio/internal/timeline"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Map a global timeline time onto a segment",
	Long: `Resolve a global time against a list of segment durations and print
the segment index, the local time inside it and the clamped global time.

Examples:
  studioctl resolve --durations 3,2 --at 4.2
  studioctl resolve --durations 1.5,1.5,4 --at 0`,
	Args: cobra.NoArgs,
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().
		String("durations", "", "Comma-separated segment durations in seconds")
	resolveCmd.Flags().
		Float64("at", 0, "Global time in seconds")
}

func runResolve(cmd *cobra.Command, args []string) error {
	raw, _ := cmd.Flags().GetString("durations")
	at, _ := cmd.Flags().GetFloat64("at")

	durations, err := parseDurations(raw)
	if err != nil {
		return err
	}
	layout := timeline.NewLayout(durations)
	index, local, ok := layout.Resolve(at)
	if !ok {
		return errors.New("no segments to resolve against")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "segment=%d local=%.3f global=%.3f total=%.3f\n",
		index, local, layout.StartOffset(index)+local, layout.Total())
	return nil
}

func parseDurations(raw string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := strconv.ParseFloat(part, 64)
		if err != nil || d < 0 || math.IsNaN(d) || math.IsInf(d, 0) {
			return nil, fmt.Errorf("invalid duration %q", part)
		}
		out = append(out, d)
	}
	return out, nil
}
