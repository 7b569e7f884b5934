package studio

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"segment-studio/internal/capture"
	"segment-studio/internal/media"
	"segment-studio/internal/platform/metrics"
	"segment-studio/internal/timeline"
)

// ServiceConfig configures a Service. Zero values select defaults.
type ServiceConfig struct {
	MaxDuration    float64
	SyncTolerance  float64
	Facings        []capture.Facing
	ThumbnailWidth int

	Clock     func() time.Time
	Scheduler capture.Scheduler
	NewID     func() string
	Logger    *slog.Logger
	// Metrics may be nil to disable metric recording (e.g. in tests).
	Metrics *metrics.Metrics
}

// Service creates and tears down editor sessions and runs the flows that
// span several of their components: the timeline playlist and publishing.
type Service struct {
	repo     Repository
	prober   timeline.AudioProber
	store    Persistence
	identity IdentityProvider
	cfg      ServiceConfig
	log      *slog.Logger
	metrics  *metrics.Metrics
}

// NewService returns a Service keeping its sessions in repo.
func NewService(repo Repository, prober timeline.AudioProber, store Persistence, identity IdentityProvider, cfg ServiceConfig) *Service {
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = capture.DefaultMaxDuration
	}
	if cfg.SyncTolerance <= 0 {
		cfg.SyncTolerance = timeline.DefaultSyncTolerance
	}
	if len(cfg.Facings) == 0 {
		cfg.Facings = []capture.Facing{capture.FacingUser, capture.FacingEnvironment}
	}
	if cfg.ThumbnailWidth <= 0 {
		cfg.ThumbnailWidth = media.DefaultThumbnailWidth
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = newSessionID
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:     repo,
		prober:   prober,
		store:    store,
		identity: identity,
		cfg:      cfg,
		log:      log,
		metrics:  cfg.Metrics,
	}
}

func newSessionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// CreateSession opens an editor session and acquires the camera for facing.
// A failed acquisition does not fail the call: the device error is kept in
// the session status and the client retries through the device endpoint.
func (s *Service) CreateSession(ctx context.Context, facing capture.Facing) (*EditorSession, error) {
	id := SessionID(s.cfg.NewID())
	log := s.log.With(slog.String("session_id", string(id)))

	devices := media.NewIngestProvider(s.cfg.Facings)
	capt := capture.NewSession(devices, capture.Config{
		MaxDuration: s.cfg.MaxDuration,
		OnEvent:     s.observe(log),
		Clock:       s.cfg.Clock,
		Scheduler:   s.cfg.Scheduler,
		Logger:      log,
	})
	player := media.NewVirtualPlayer(s.cfg.Clock)
	layers := timeline.NewLayerRegistry(s.prober, media.VirtualAudioBackend{Now: s.cfg.Clock}, timeline.RegistryConfig{
		SyncTolerance: s.cfg.SyncTolerance,
		Logger:        log,
	})
	sess := &EditorSession{
		ID:        id,
		Capture:   capt,
		Timeline:  timeline.NewEngine(capt, player, layers, timeline.EngineConfig{Logger: log}),
		Layers:    layers,
		Player:    player,
		Devices:   devices,
		CreatedAt: s.cfg.Clock().UTC(),
	}
	if err := s.repo.Create(sess); err != nil {
		sess.Close()
		return nil, err
	}

	if err := capt.Acquire(ctx, facing); err != nil {
		log.Warn("initial device acquisition failed",
			slog.String("facing", string(facing)),
			slog.String("error", err.Error()))
	}
	log.Info("session created", slog.String("facing", string(facing)))
	return sess, nil
}

// observe maps capture events onto logs and metrics. It runs under the
// capture session lock.
func (s *Service) observe(log *slog.Logger) func(capture.Event) {
	return func(ev capture.Event) {
		switch e := ev.(type) {
		case capture.SegmentFinalized:
			log.Info("segment finalized",
				slog.String("segment_id", e.Segment.ID),
				slog.Float64("duration", e.Segment.Duration),
				slog.String("reason", string(e.Reason)),
				slog.Int("released", len(e.Released)))
			if s.metrics != nil {
				s.metrics.ObserveSegment(e.Segment.Duration)
			}
		case capture.SegmentUndone:
			log.Info("segment undone", slog.String("segment_id", e.Segment.ID))
			if s.metrics != nil {
				s.metrics.IncUndo()
			}
		case capture.SegmentRedone:
			log.Info("segment redone", slog.String("segment_id", e.Segment.ID))
			if s.metrics != nil {
				s.metrics.IncRedo()
			}
		case capture.SessionDiscarded:
			log.Info("segments discarded", slog.Int("released", len(e.Released)))
		case capture.DeviceAcquired:
			log.Info("device acquired", slog.String("facing", string(e.Facing)))
		case capture.DeviceFailed:
			log.Warn("device failed",
				slog.String("kind", e.Err.Kind.String()),
				slog.String("error", e.Err.Error()))
			if s.metrics != nil {
				s.metrics.IncDeviceErrors()
			}
		case capture.RecordingStarted:
			log.Debug("recording started",
				slog.Float64("budget", e.Budget),
				slog.Float64("speed", e.Speed))
		case capture.CountdownStarted:
			log.Debug("countdown started", slog.Int("seconds", e.Seconds))
		}
	}
}

// Session returns an open session or ErrSessionNotFound.
func (s *Service) Session(id SessionID) (*EditorSession, error) {
	return s.repo.Get(id)
}

// CloseSession removes the session and releases everything it holds.
func (s *Service) CloseSession(id SessionID) error {
	sess, err := s.repo.Remove(id)
	if err != nil {
		return err
	}
	sess.Close()
	s.log.Info("session closed", slog.String("session_id", string(id)))
	return nil
}

// Shutdown closes every open session.
func (s *Service) Shutdown() {
	for _, id := range s.repo.List() {
		_ = s.CloseSession(id)
	}
}

// ActiveSessionCount returns the number of open sessions.
func (s *Service) ActiveSessionCount() int {
	return s.repo.Count()
}

// Discard drops every recorded segment and rewinds the timeline.
func (s *Service) Discard(id SessionID) error {
	sess, err := s.repo.Get(id)
	if err != nil {
		return err
	}
	if err := sess.Capture.Discard(); err != nil {
		return err
	}
	sess.Timeline.Pause()
	sess.Timeline.OnTimeUpdate(0)
	return nil
}

// Playlist renders the session timeline as an HLS VOD playlist.
func (s *Service) Playlist(id SessionID, uri func(capture.Segment) string) (string, error) {
	sess, err := s.repo.Get(id)
	if err != nil {
		return "", err
	}
	return BuildTimelinePlaylist(sess.Capture.Segments(), uri)
}

// Publish finalizes the session recording and persists the video and its
// thumbnail concurrently. Audio layers are not part of the upload.
func (s *Service) Publish(ctx context.Context, id SessionID, req PublishRequest) (PublishResult, error) {
	title, err := normalizeTitle(req.Title)
	if err != nil {
		return PublishResult{}, err
	}
	sess, err := s.repo.Get(id)
	if err != nil {
		return PublishResult{}, err
	}
	data, segs, err := sess.Capture.FinalizeSegments()
	if err != nil {
		return PublishResult{}, err
	}
	profile, err := s.identity.CurrentProfile(ctx)
	if err != nil {
		return PublishResult{}, fmt.Errorf("resolve profile: %w", err)
	}

	total := timeline.LayoutOf(segs).Total()
	meta := VideoMetadata{
		Title:         title,
		Effect:        strings.TrimSpace(req.Effect),
		TextLayers:    sess.Layers.TextLayers(),
		ChannelID:     profile.ChannelID,
		ChannelName:   profile.ChannelName,
		ChannelAvatar: profile.AvatarURL,
		Duration:      int(math.Round(total)),
		Segments:      len(segs),
		IsShort:       total <= shortFormLimit,
		Category:      DefaultCategory,
		CreatedAt:     s.cfg.Clock().UTC(),
	}

	thumb, source := s.pickThumbnail(req.Thumbnail, sess, profile)
	result := PublishResult{Metadata: meta, ThumbnailSource: source}
	if source == ThumbnailAvatar {
		result.ThumbnailURL = profile.AvatarURL
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		url, err := s.store.PersistVideo(gctx, data, meta)
		if err != nil {
			return fmt.Errorf("persist video: %w", err)
		}
		result.VideoURL = url
		return nil
	})
	if thumb != nil {
		g.Go(func() error {
			url, err := s.store.PersistThumbnail(gctx, thumb)
			if err != nil {
				return fmt.Errorf("persist thumbnail: %w", err)
			}
			result.ThumbnailURL = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return PublishResult{}, err
	}

	if s.metrics != nil {
		s.metrics.IncPublishes()
	}
	s.log.Info("video published",
		slog.String("session_id", string(id)),
		slog.String("video_url", result.VideoURL),
		slog.String("thumbnail_source", string(source)),
		slog.Int("duration", meta.Duration))
	return result, nil
}

// pickThumbnail prefers a custom upload, then the scaled last frame of the
// recording, then the channel avatar.
func (s *Service) pickThumbnail(custom []byte, sess *EditorSession, profile Profile) ([]byte, ThumbnailSource) {
	if len(custom) > 0 {
		return custom, ThumbnailCustom
	}
	if frame := sess.Capture.Status().LastFrame; frame != nil {
		thumb, err := media.Thumbnail(frame, s.cfg.ThumbnailWidth)
		if err == nil {
			return thumb, ThumbnailLastFrame
		}
		s.log.Warn("last frame thumbnail failed",
			slog.String("session_id", string(sess.ID)),
			slog.String("error", err.Error()))
	}
	if profile.AvatarURL != "" {
		return nil, ThumbnailAvatar
	}
	return nil, ThumbnailNone
}
