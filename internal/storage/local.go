package storage

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"segment-studio/internal/studio"
)

const (
	videoDir     = "videos"
	thumbnailDir = "thumbnails"

	videoExt     = ".webm"
	metadataExt  = ".yaml"
	thumbnailExt = ".jpg"
)

// Local persists published media on the filesystem under dir and serves it
// from baseURL. Each video gets a YAML sidecar with its metadata.
type Local struct {
	dir     string
	baseURL string
	log     *slog.Logger
	newName func() string
}

// NewLocal creates the media directories under dir.
func NewLocal(dir, baseURL string, log *slog.Logger) (*Local, error) {
	if log == nil {
		log = slog.Default()
	}
	for _, d := range []string{videoDir, thumbnailDir} {
		if err := os.MkdirAll(filepath.Join(dir, d), 0755); err != nil {
			return nil, fmt.Errorf("create media dir: %w", err)
		}
	}
	return &Local{dir: dir, baseURL: baseURL, log: log, newName: newName}, nil
}

func newName() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// PersistVideo implements studio.Persistence.
func (l *Local) PersistVideo(ctx context.Context, data []byte, meta studio.VideoMetadata) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := l.newName()
	sidecar, err := yaml.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(l.dir, videoDir, name+videoExt), data, 0644); err != nil {
		return "", fmt.Errorf("write video: %w", err)
	}
	if err := os.WriteFile(filepath.Join(l.dir, videoDir, name+metadataExt), sidecar, 0644); err != nil {
		return "", fmt.Errorf("write metadata: %w", err)
	}

	l.log.Info("video stored",
		slog.String("name", name),
		slog.Int("bytes", len(data)),
		slog.String("title", meta.Title))
	return url.JoinPath(l.baseURL, videoDir, name+videoExt)
}

// PersistThumbnail implements studio.Persistence.
func (l *Local) PersistThumbnail(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := l.newName() + thumbnailExt
	if err := os.WriteFile(filepath.Join(l.dir, thumbnailDir, name), data, 0644); err != nil {
		return "", fmt.Errorf("write thumbnail: %w", err)
	}
	return url.JoinPath(l.baseURL, thumbnailDir, name)
}

// ReadMetadata loads the sidecar stored next to a published video. name is
// the video file name with or without its extension.
func (l *Local) ReadMetadata(name string) (studio.VideoMetadata, error) {
	name = name[:len(name)-len(filepath.Ext(name))]
	data, err := os.ReadFile(filepath.Join(l.dir, videoDir, name+metadataExt))
	if err != nil {
		return studio.VideoMetadata{}, err
	}
	var meta studio.VideoMetadata
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return studio.VideoMetadata{}, fmt.Errorf("decode metadata: %w", err)
	}
	return meta, nil
}
