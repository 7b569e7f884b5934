package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// DefaultProbeTimeout bounds a single ffprobe run.
const DefaultProbeTimeout = 15 * time.Second

var errNoDuration = errors.New("no duration in probe output")

// FFprobe determines media durations with the ffprobe binary.
type FFprobe struct {
	Timeout time.Duration
	// TempDir holds payloads while they are probed; empty uses os.TempDir.
	TempDir string
}

// ProbeDuration writes media to a temporary file and probes it.
func (p FFprobe) ProbeDuration(ctx context.Context, media []byte) (float64, error) {
	if len(media) == 0 {
		return 0, errors.New("empty payload")
	}
	f, err := os.CreateTemp(p.TempDir, "probe-*.bin")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(media); err != nil {
		f.Close()
		return 0, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("failed to write temp file: %w", err)
	}
	return p.ProbeFile(ctx, f.Name())
}

// ProbeFile probes a file on disk.
func (p FFprobe) ProbeFile(ctx context.Context, path string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	out, err := ffmpeg.ProbeWithTimeout(path, timeout, ffmpeg.KwArgs{})
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}
	return parseProbeDuration(out)
}

// probeOutput is the part of `ffprobe -of json -show_format -show_streams`
// that carries durations.
type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Duration  string `json:"duration"`
	} `json:"streams"`
}

// parseProbeDuration reads the container duration, falling back to the
// longest audio stream when the container has none.
func parseProbeDuration(out string) (float64, error) {
	var probe probeOutput
	if err := json.Unmarshal([]byte(out), &probe); err != nil {
		return 0, fmt.Errorf("failed to parse probe output: %w", err)
	}
	if d, err := parseSeconds(probe.Format.Duration); err == nil {
		return d, nil
	}
	best := 0.0
	for _, s := range probe.Streams {
		if s.CodecType != "audio" {
			continue
		}
		if d, err := parseSeconds(s.Duration); err == nil && d > best {
			best = d
		}
	}
	if best == 0 {
		return 0, errNoDuration
	}
	return best, nil
}

func parseSeconds(s string) (float64, error) {
	if s == "" || s == "N/A" {
		return 0, errNoDuration
	}
	d, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if !(d > 0) {
		return 0, errNoDuration
	}
	return d, nil
}
