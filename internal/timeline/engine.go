package timeline

import (
	"errors"
	"log/slog"
	"sync"

	"segment-studio/internal/capture"
)

// ErrNotReady is returned by playback operations while there are no segments.
var ErrNotReady = errors.New("timeline has no segments")

// SegmentSource supplies the current active segments. Both
// *capture.Session and *capture.SegmentStore satisfy it.
type SegmentSource interface {
	Segments() []capture.Segment
}

// Player plays one segment at a time. The adapter reports progress through
// Engine.OnTimeUpdate and Engine.OnSegmentEnded and must not call them from
// inside these methods.
type Player interface {
	Load(seg capture.Segment) error
	Play() error
	Pause()
	Seek(local float64)
}

// Layers is notified of every playhead change.
type Layers interface {
	Sync(global float64)
	Seek(global float64, playing bool)
	PauseAll()
}

// EngineConfig configures an Engine.
type EngineConfig struct {
	// InitialDuration is reported as the duration until segments exist.
	InitialDuration float64
	Logger          *slog.Logger
}

// State is the playhead of an Engine.
type State struct {
	CurrentSegmentIndex int     `json:"current_segment_index"`
	SegmentID           string  `json:"segment_id,omitempty"`
	LocalTime           float64 `json:"local_time"`
	GlobalTime          float64 `json:"global_time"`
	IsPlaying           bool    `json:"is_playing"`
	Duration            float64 `json:"duration"`
}

// Engine presents the active segments as one continuous timeline over a
// single-segment player. The segment layout is re-read on every call, so
// appends, undos and redos are picked up on the next tick.
type Engine struct {
	mu     sync.Mutex
	source SegmentSource
	player Player
	layers Layers
	cfg    EngineConfig
	log    *slog.Logger

	index    int
	loadedID string
	local    float64
	global   float64
	playing  bool
}

// NewEngine returns an engine positioned at the start of the timeline.
// layers may be nil.
func NewEngine(source SegmentSource, player Player, layers Layers, cfg EngineConfig) *Engine {
	if layers == nil {
		layers = noLayers{}
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Engine{source: source, player: player, layers: layers, cfg: cfg, log: log}
}

// Seek moves the playhead to global, clamped to the timeline.
func (e *Engine) Seek(global float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	segs := e.source.Segments()
	layout := LayoutOf(segs)
	index, local, ok := layout.Resolve(global)
	if !ok {
		return ErrNotReady
	}
	if index != e.index || e.loadedID != segs[index].ID {
		e.index = index
		if err := e.loadLocked(segs[index]); err != nil {
			return err
		}
	}
	e.player.Seek(local)
	e.local = local
	e.global = layout.StartOffset(index) + local
	e.layers.Seek(e.global, e.playing)
	return nil
}

// Play starts playback from the current playhead.
func (e *Engine) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.playing {
		return nil
	}
	segs := e.source.Segments()
	if len(segs) == 0 {
		return ErrNotReady
	}
	if err := e.ensureLoadedLocked(segs); err != nil {
		return err
	}
	if err := e.player.Play(); err != nil {
		return err
	}
	e.playing = true
	e.layers.Sync(e.global)
	return nil
}

// Pause stops the player and every audio layer.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.playing {
		return
	}
	e.player.Pause()
	e.playing = false
	e.layers.PauseAll()
}

// Toggle plays when paused and pauses when playing.
func (e *Engine) Toggle() error {
	e.mu.Lock()
	playing := e.playing
	e.mu.Unlock()
	if playing {
		e.Pause()
		return nil
	}
	return e.Play()
}

// OnTimeUpdate receives the player's local time and recomputes the global
// time against the current layout. It returns the global time.
func (e *Engine) OnTimeUpdate(local float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	segs := e.source.Segments()
	if len(segs) == 0 {
		e.resetLocked()
		return 0
	}
	if err := e.ensureLoadedLocked(segs); err != nil {
		e.log.Warn("segment load failed", slog.String("error", err.Error()))
	}
	if local < 0 {
		local = 0
	}
	e.local = local
	e.global = LayoutOf(segs).StartOffset(e.index) + local
	if e.playing {
		e.layers.Sync(e.global)
	}
	return e.global
}

// OnSegmentEnded advances to the next segment, or rewinds to the start and
// stops after the last one.
func (e *Engine) OnSegmentEnded() {
	e.mu.Lock()
	defer e.mu.Unlock()

	segs := e.source.Segments()
	if len(segs) == 0 {
		e.resetLocked()
		return
	}
	if e.index+1 < len(segs) {
		e.index++
		e.local = 0
		e.global = LayoutOf(segs).StartOffset(e.index)
		if err := e.loadLocked(segs[e.index]); err != nil {
			e.log.Warn("segment load failed", slog.String("error", err.Error()))
		}
		return
	}

	e.playing = false
	e.player.Pause()
	e.layers.PauseAll()
	e.index, e.local, e.global = 0, 0, 0
	if err := e.loadLocked(segs[0]); err != nil {
		e.log.Warn("segment load failed", slog.String("error", err.Error()))
	}
}

// State returns the current playhead.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	segs := e.source.Segments()
	st := State{
		CurrentSegmentIndex: e.index,
		LocalTime:           e.local,
		GlobalTime:          e.global,
		IsPlaying:           e.playing,
		Duration:            e.durationOf(segs),
	}
	if e.index < len(segs) {
		st.SegmentID = segs[e.index].ID
	}
	return st
}

// Duration is the timeline length, or the configured initial duration
// while there are no segments.
func (e *Engine) Duration() float64 {
	return e.durationOf(e.source.Segments())
}

func (e *Engine) durationOf(segs []capture.Segment) float64 {
	if total := LayoutOf(segs).Total(); total > 0 {
		return total
	}
	return e.cfg.InitialDuration
}

// ensureLoadedLocked makes sure the player holds the segment at e.index,
// clamping the index when segments were removed.
func (e *Engine) ensureLoadedLocked(segs []capture.Segment) error {
	if e.index >= len(segs) {
		e.index = len(segs) - 1
	}
	if e.loadedID == segs[e.index].ID {
		return nil
	}
	return e.loadLocked(segs[e.index])
}

// loadLocked switches the player to seg and resumes playback when the
// timeline is playing.
func (e *Engine) loadLocked(seg capture.Segment) error {
	if err := e.player.Load(seg); err != nil {
		e.loadedID = ""
		return err
	}
	e.loadedID = seg.ID
	if e.playing {
		if err := e.player.Play(); err != nil {
			e.log.Warn("segment autoplay failed",
				slog.String("segment_id", seg.ID),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

func (e *Engine) resetLocked() {
	if e.playing {
		e.player.Pause()
		e.layers.PauseAll()
	}
	e.index, e.local, e.global, e.playing = 0, 0, 0, false
	e.loadedID = ""
}

type noLayers struct{}

func (noLayers) Sync(float64)       {}
func (noLayers) Seek(float64, bool) {}
func (noLayers) PauseAll()          {}
