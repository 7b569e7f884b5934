package studio

import (
	"strings"
	"testing"

	"segment-studio/internal/capture"
)

func segmentURI(seg capture.Segment) string { return "segments/" + seg.ID }

func TestBuildTimelinePlaylist(t *testing.T) {
	segs := []capture.Segment{
		{ID: "a", Duration: 3},
		{ID: "b", Duration: 2.4},
		{ID: "c", Duration: 1},
	}
	out, err := BuildTimelinePlaylist(segs, segmentURI)
	if err != nil {
		t.Fatalf("BuildTimelinePlaylist() error = %v", err)
	}

	for _, want := range []string{
		"#EXTM3U",
		"#EXT-X-PLAYLIST-TYPE:VOD",
		"#EXT-X-TARGETDURATION:3",
		"segments/a",
		"segments/c",
		"#EXT-X-ENDLIST",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("playlist missing %q:\n%s", want, out)
		}
	}
	if got := strings.Count(out, "#EXT-X-DISCONTINUITY\n"); got != 2 {
		t.Errorf("discontinuities = %d, want 2", got)
	}
	if strings.Index(out, "segments/a") > strings.Index(out, "segments/b") {
		t.Error("segments out of timeline order")
	}
	if strings.Index(out, "#EXT-X-DISCONTINUITY") < strings.Index(out, "segments/a") {
		t.Error("first segment must not start with a discontinuity")
	}
}

func TestBuildTimelinePlaylist_empty(t *testing.T) {
	out, err := BuildTimelinePlaylist(nil, segmentURI)
	if err != nil {
		t.Fatalf("BuildTimelinePlaylist() error = %v", err)
	}
	if !strings.Contains(out, "#EXTM3U") || !strings.Contains(out, "#EXT-X-ENDLIST") {
		t.Errorf("unexpected empty playlist:\n%s", out)
	}
	if strings.Contains(out, "#EXTINF") {
		t.Errorf("empty playlist has segments:\n%s", out)
	}
}
