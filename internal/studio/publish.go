package studio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"segment-studio/internal/timeline"
)

const (
	// MaxTitleLength is the longest title kept, in characters.
	MaxTitleLength = 100

	// DefaultCategory is assigned to every published clip.
	DefaultCategory = "general"

	// shortFormLimit is the longest clip flagged as short-form, in seconds.
	shortFormLimit = 60
)

var (
	// ErrInvalidInput is the parent of request validation failures.
	ErrInvalidInput  = errors.New("invalid input")
	ErrTitleRequired = fmt.Errorf("%w: title is required", ErrInvalidInput)
)

// Persistence stores published media and returns public URLs.
type Persistence interface {
	PersistVideo(ctx context.Context, data []byte, meta VideoMetadata) (string, error)
	PersistThumbnail(ctx context.Context, data []byte) (string, error)
}

// Profile is the channel a clip is published under.
type Profile struct {
	ChannelID   string `json:"channel_id"`
	ChannelName string `json:"channel_name"`
	AvatarURL   string `json:"avatar_url"`
}

// IdentityProvider resolves the publishing channel.
type IdentityProvider interface {
	CurrentProfile(ctx context.Context) (Profile, error)
}

// StaticIdentity publishes every clip under one configured channel.
type StaticIdentity Profile

func (s StaticIdentity) CurrentProfile(context.Context) (Profile, error) {
	return Profile(s), nil
}

// VideoMetadata is stored next to a published video.
type VideoMetadata struct {
	Title         string               `json:"title" yaml:"title"`
	Effect        string               `json:"effect,omitempty" yaml:"effect,omitempty"`
	TextLayers    []timeline.TextLayer `json:"text_layers" yaml:"text_layers"`
	ChannelID     string               `json:"channel_id" yaml:"channel_id"`
	ChannelName   string               `json:"channel_name" yaml:"channel_name"`
	ChannelAvatar string               `json:"channel_avatar,omitempty" yaml:"channel_avatar,omitempty"`
	Duration      int                  `json:"duration" yaml:"duration"`
	Segments      int                  `json:"segments" yaml:"segments"`
	IsShort       bool                 `json:"is_short" yaml:"is_short"`
	Category      string               `json:"category" yaml:"category"`
	CreatedAt     time.Time            `json:"created_at" yaml:"created_at"`
}

// PublishRequest is the caller's input to Publish.
type PublishRequest struct {
	Title  string `json:"title"`
	Effect string `json:"effect,omitempty"`
	// Thumbnail is an optional custom image, sent base64 encoded in JSON.
	Thumbnail []byte `json:"thumbnail,omitempty"`
}

// ThumbnailSource says where the published thumbnail came from.
type ThumbnailSource string

const (
	ThumbnailCustom    ThumbnailSource = "custom"
	ThumbnailLastFrame ThumbnailSource = "last_frame"
	ThumbnailAvatar    ThumbnailSource = "avatar"
	ThumbnailNone      ThumbnailSource = "none"
)

// PublishResult is returned by Publish.
type PublishResult struct {
	VideoURL        string          `json:"video_url"`
	ThumbnailURL    string          `json:"thumbnail_url,omitempty"`
	ThumbnailSource ThumbnailSource `json:"thumbnail_source"`
	Metadata        VideoMetadata   `json:"metadata"`
}

// normalizeTitle trims the title and cuts it to MaxTitleLength characters.
func normalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrTitleRequired
	}
	if r := []rune(title); len(r) > MaxTitleLength {
		title = strings.TrimSpace(string(r[:MaxTitleLength]))
	}
	return title, nil
}
