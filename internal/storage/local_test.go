package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"segment-studio/internal/platform/logger"
	"segment-studio/internal/studio"
	"segment-studio/internal/timeline"
)

func newTestLocal(t *testing.T) *Local {
	t.Helper()
	l, err := NewLocal(t.TempDir(), "http://localhost:8080/media", logger.Discard())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	n := 0
	l.newName = func() string {
		n++
		return fmt.Sprintf("file-%d", n)
	}
	return l
}

func TestLocal_PersistVideo(t *testing.T) {
	l := newTestLocal(t)
	meta := studio.VideoMetadata{
		Title:      "Beach day",
		TextLayers: []timeline.TextLayer{{ID: "t1", Text: "hi", StartTime: 1, EndTime: 4, X: 50, Y: 50, Scale: 1, Color: "#ffffff", Style: timeline.TextClassic}},
		ChannelID:  "local",
		Duration:   12,
		Segments:   3,
		IsShort:    true,
		Category:   studio.DefaultCategory,
		CreatedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	u, err := l.PersistVideo(context.Background(), []byte("video-bytes"), meta)
	if err != nil {
		t.Fatalf("PersistVideo: %v", err)
	}
	if u != "http://localhost:8080/media/videos/file-1.webm" {
		t.Errorf("url = %q", u)
	}

	data, err := os.ReadFile(filepath.Join(l.dir, "videos", "file-1.webm"))
	if err != nil || string(data) != "video-bytes" {
		t.Errorf("video file = %q, %v", data, err)
	}

	got, err := l.ReadMetadata("file-1.webm")
	if err != nil {
		t.Fatalf("ReadMetadata: %v", err)
	}
	if got.Title != meta.Title || got.Duration != 12 || !got.IsShort || !got.CreatedAt.Equal(meta.CreatedAt) {
		t.Errorf("metadata = %+v", got)
	}
	if len(got.TextLayers) != 1 || got.TextLayers[0].Text != "hi" || got.TextLayers[0].Style != timeline.TextClassic {
		t.Errorf("text layers = %+v", got.TextLayers)
	}
}

func TestLocal_PersistThumbnail(t *testing.T) {
	l := newTestLocal(t)
	u, err := l.PersistThumbnail(context.Background(), []byte("jpeg"))
	if err != nil {
		t.Fatalf("PersistThumbnail: %v", err)
	}
	if u != "http://localhost:8080/media/thumbnails/file-1.jpg" {
		t.Errorf("url = %q", u)
	}
	if _, err := os.Stat(filepath.Join(l.dir, "thumbnails", "file-1.jpg")); err != nil {
		t.Errorf("thumbnail not written: %v", err)
	}
}

func TestLocal_canceled_context(t *testing.T) {
	l := newTestLocal(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.PersistVideo(ctx, []byte("v"), studio.VideoMetadata{}); err == nil {
		t.Error("PersistVideo with canceled context should fail")
	}
	if _, err := l.PersistThumbnail(ctx, []byte("t")); err == nil {
		t.Error("PersistThumbnail with canceled context should fail")
	}
}

func TestLocal_ReadMetadata_missing(t *testing.T) {
	l := newTestLocal(t)
	if _, err := l.ReadMetadata("nope"); err == nil {
		t.Error("ReadMetadata of a missing video should fail")
	}
}
