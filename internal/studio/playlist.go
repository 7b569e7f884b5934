package studio

import (
	"fmt"

	"github.com/grafov/m3u8"

	"segment-studio/internal/capture"
)

const playlistContentType = "application/vnd.apple.mpegurl"

// BuildTimelinePlaylist renders the active segments as a closed VOD media
// playlist. Every segment after the first is marked as a discontinuity
// since each one is an independently encoded recording. uri maps a segment
// to the address it is served from.
func BuildTimelinePlaylist(segments []capture.Segment, uri func(capture.Segment) string) (string, error) {
	capacity := uint(len(segments))
	if capacity == 0 {
		capacity = 1
	}
	p, err := m3u8.NewMediaPlaylist(0, capacity)
	if err != nil {
		return "", fmt.Errorf("failed to create playlist: %w", err)
	}
	p.MediaType = m3u8.VOD

	for i, seg := range segments {
		if err := p.Append(uri(seg), seg.Duration, ""); err != nil {
			return "", fmt.Errorf("failed to add segment %s: %w", seg.ID, err)
		}
		if i > 0 {
			if err := p.SetDiscontinuity(); err != nil {
				return "", fmt.Errorf("failed to mark discontinuity: %w", err)
			}
		}
	}
	if len(segments) == 0 {
		p.TargetDuration = 1
	}
	p.Close()
	return p.Encode().String(), nil
}
