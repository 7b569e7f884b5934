package timeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// DefaultSyncTolerance is how far, in seconds, an audio layer may drift from
// the playhead before it is re-seeked.
const DefaultSyncTolerance = 0.3

// DefaultTextDuration is how long a new caption stays on screen.
const DefaultTextDuration = 3.0

var (
	ErrLayerNotFound = errors.New("layer not found")
	ErrInvalidLayer  = errors.New("invalid layer")
)

// AudioProbeError reports that the duration of an audio payload could not be
// determined. No layer is created when it is returned.
type AudioProbeError struct {
	Err error
}

func (e *AudioProbeError) Error() string { return "probe audio duration: " + e.Err.Error() }
func (e *AudioProbeError) Unwrap() error { return e.Err }

// AudioProber determines the duration of an audio payload in seconds.
type AudioProber interface {
	ProbeDuration(ctx context.Context, media []byte) (float64, error)
}

// AudioHandle is a playback object with its own clock.
type AudioHandle interface {
	Play() error
	Pause()
	Paused() bool
	Position() float64
	SetPosition(seconds float64)
	SetVolume(volume float64)
	// Close releases everything derived from the audio payload.
	Close() error
}

// AudioBackend opens playback handles for audio payloads.
type AudioBackend interface {
	Open(media []byte) (AudioHandle, error)
}

// AudioLayer is a voice-over anchored at StartTime on the global timeline.
type AudioLayer struct {
	ID        string  `json:"id"`
	Media     []byte  `json:"-"`
	StartTime float64 `json:"start_time"`
	Volume    float64 `json:"volume"`
	Duration  float64 `json:"duration"`
}

// ActiveAt reports whether global time t falls in [StartTime, StartTime+Duration).
func (l AudioLayer) ActiveAt(t float64) bool {
	local := t - l.StartTime
	return local >= 0 && local < l.Duration
}

// TextStyle is the caption look.
type TextStyle string

const (
	TextClassic TextStyle = "classic"
	TextNeon    TextStyle = "neon"
	TextBrush   TextStyle = "brush"
)

func (s TextStyle) valid() bool {
	return s == TextClassic || s == TextNeon || s == TextBrush
}

// TextLayer is a positioned caption. X and Y are percentages of the frame.
type TextLayer struct {
	ID        string    `json:"id" yaml:"id"`
	Text      string    `json:"text" yaml:"text"`
	StartTime float64   `json:"start_time" yaml:"start_time"`
	EndTime   float64   `json:"end_time" yaml:"end_time"`
	X         float64   `json:"x" yaml:"x"`
	Y         float64   `json:"y" yaml:"y"`
	Scale     float64   `json:"scale" yaml:"scale"`
	Color     string    `json:"color" yaml:"color"`
	Style     TextStyle `json:"style" yaml:"style"`
}

// VisibleAt reports whether the caption shows at global time t.
func (l TextLayer) VisibleAt(t float64) bool {
	return l.StartTime <= t && t <= l.EndTime
}

// TextUpdate carries the fields to change; nil fields are left alone.
type TextUpdate struct {
	Text      *string    `json:"text,omitempty"`
	StartTime *float64   `json:"start_time,omitempty"`
	EndTime   *float64   `json:"end_time,omitempty"`
	X         *float64   `json:"x,omitempty"`
	Y         *float64   `json:"y,omitempty"`
	Scale     *float64   `json:"scale,omitempty"`
	Color     *string    `json:"color,omitempty"`
	Style     *TextStyle `json:"style,omitempty"`
}

// RegistryConfig configures a LayerRegistry.
type RegistryConfig struct {
	SyncTolerance float64
	NewID         func() string
	Logger        *slog.Logger
}

type audioEntry struct {
	layer  AudioLayer
	handle AudioHandle
}

// LayerRegistry owns the audio and text layers of an editor and the
// playback handles of the audio layers. It follows the playhead through
// Sync, Seek and PauseAll.
type LayerRegistry struct {
	mu        sync.Mutex
	prober    AudioProber
	backend   AudioBackend
	tolerance float64
	newID     func() string
	log       *slog.Logger

	audio []*audioEntry
	text  []TextLayer

	global  float64
	playing bool
}

// NewLayerRegistry returns an empty registry.
func NewLayerRegistry(prober AudioProber, backend AudioBackend, cfg RegistryConfig) *LayerRegistry {
	if cfg.SyncTolerance <= 0 {
		cfg.SyncTolerance = DefaultSyncTolerance
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &LayerRegistry{
		prober:    prober,
		backend:   backend,
		tolerance: cfg.SyncTolerance,
		newID:     cfg.NewID,
		log:       log,
	}
}

// AddAudioLayer probes the duration of media and inserts a layer starting
// at startTime. The probe runs without holding the registry lock, so
// concurrent adds proceed independently and are not deduplicated.
func (r *LayerRegistry) AddAudioLayer(ctx context.Context, media []byte, startTime float64) (AudioLayer, error) {
	if !validTime(startTime) {
		return AudioLayer{}, fmt.Errorf("%w: start time must be a finite non-negative number", ErrInvalidLayer)
	}
	duration, err := r.prober.ProbeDuration(ctx, media)
	if err != nil {
		return AudioLayer{}, &AudioProbeError{Err: err}
	}
	if !(duration > 0) || math.IsInf(duration, 0) {
		return AudioLayer{}, &AudioProbeError{Err: fmt.Errorf("unusable duration %v", duration)}
	}

	handle, err := r.backend.Open(media)
	if err != nil {
		return AudioLayer{}, fmt.Errorf("open audio layer: %w", err)
	}
	layer := AudioLayer{
		ID:        r.newID(),
		Media:     media,
		StartTime: startTime,
		Volume:    1,
		Duration:  duration,
	}
	handle.SetVolume(layer.Volume)

	r.mu.Lock()
	defer r.mu.Unlock()
	e := &audioEntry{layer: layer, handle: handle}
	r.audio = append(r.audio, e)
	r.seekEntryLocked(e, r.global, r.playing)
	return layer, nil
}

// RemoveAudioLayer pauses and releases the layer's handle and drops it.
func (r *LayerRegistry) RemoveAudioLayer(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.audio {
		if e.layer.ID != id {
			continue
		}
		r.releaseLocked(e)
		r.audio = append(r.audio[:i], r.audio[i+1:]...)
		return nil
	}
	return ErrLayerNotFound
}

// SetVolume sets the layer volume, clamped to [0, 1].
func (r *LayerRegistry) SetVolume(id string, volume float64) (AudioLayer, error) {
	if math.IsNaN(volume) {
		return AudioLayer{}, fmt.Errorf("%w: volume is NaN", ErrInvalidLayer)
	}
	volume = math.Max(0, math.Min(1, volume))
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.audio {
		if e.layer.ID == id {
			e.layer.Volume = volume
			e.handle.SetVolume(volume)
			return e.layer, nil
		}
	}
	return AudioLayer{}, ErrLayerNotFound
}

// AudioLayers returns the audio layers in insertion order.
func (r *LayerRegistry) AudioLayers() []AudioLayer {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]AudioLayer, len(r.audio))
	for i, e := range r.audio {
		out[i] = e.layer
	}
	return out
}

// Sync reconciles every audio handle with the playing playhead at global.
// Active layers are started when paused and re-seeked when they drift by
// more than the tolerance; inactive layers are paused.
func (r *LayerRegistry) Sync(global float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.global = global
	r.playing = true
	for _, e := range r.audio {
		local := global - e.layer.StartTime
		if !e.layer.ActiveAt(global) {
			if !e.handle.Paused() {
				e.handle.Pause()
			}
			continue
		}
		if e.handle.Paused() {
			e.handle.SetPosition(local)
			r.play(e)
			continue
		}
		if math.Abs(e.handle.Position()-local) > r.tolerance {
			e.handle.SetPosition(local)
		}
	}
}

// Seek repositions every audio handle for a jump of the playhead to global.
// Inactive layers are paused and rewound. Paused playheads never start playback.
func (r *LayerRegistry) Seek(global float64, playing bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.global = global
	r.playing = playing
	for _, e := range r.audio {
		r.seekEntryLocked(e, global, playing)
	}
}

func (r *LayerRegistry) seekEntryLocked(e *audioEntry, global float64, playing bool) {
	if !e.layer.ActiveAt(global) {
		if !e.handle.Paused() {
			e.handle.Pause()
		}
		e.handle.SetPosition(0)
		return
	}
	e.handle.SetPosition(global - e.layer.StartTime)
	if playing && e.handle.Paused() {
		r.play(e)
	}
}

// PauseAll pauses every audio handle.
func (r *LayerRegistry) PauseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.playing = false
	for _, e := range r.audio {
		if !e.handle.Paused() {
			e.handle.Pause()
		}
	}
}

func (r *LayerRegistry) play(e *audioEntry) {
	if err := e.handle.Play(); err != nil {
		r.log.Warn("audio layer play failed",
			slog.String("layer_id", e.layer.ID),
			slog.String("error", err.Error()))
	}
}

func (r *LayerRegistry) releaseLocked(e *audioEntry) {
	e.handle.Pause()
	if err := e.handle.Close(); err != nil {
		r.log.Warn("audio layer release failed",
			slog.String("layer_id", e.layer.ID),
			slog.String("error", err.Error()))
	}
}

// AddTextLayer inserts a caption shown for DefaultTextDuration from startTime.
func (r *LayerRegistry) AddTextLayer(text string, startTime float64) (TextLayer, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return TextLayer{}, fmt.Errorf("%w: empty text", ErrInvalidLayer)
	}
	if !validTime(startTime) {
		return TextLayer{}, fmt.Errorf("%w: start time must be a finite non-negative number", ErrInvalidLayer)
	}
	layer := TextLayer{
		ID:        r.newID(),
		Text:      text,
		StartTime: startTime,
		EndTime:   startTime + DefaultTextDuration,
		X:         50,
		Y:         50,
		Scale:     1,
		Color:     "#ffffff",
		Style:     TextClassic,
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.text = append(r.text, layer)
	return layer, nil
}

// UpdateTextLayer applies u to the caption. Positions are clamped to 0-100.
func (r *LayerRegistry) UpdateTextLayer(id string, u TextUpdate) (TextLayer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.text {
		if r.text[i].ID != id {
			continue
		}
		next := r.text[i]
		if u.Text != nil {
			next.Text = strings.TrimSpace(*u.Text)
		}
		if u.StartTime != nil {
			next.StartTime = *u.StartTime
		}
		if u.EndTime != nil {
			next.EndTime = *u.EndTime
		}
		if u.X != nil {
			next.X = clampPercent(*u.X)
		}
		if u.Y != nil {
			next.Y = clampPercent(*u.Y)
		}
		if u.Scale != nil {
			next.Scale = *u.Scale
		}
		if u.Color != nil {
			next.Color = *u.Color
		}
		if u.Style != nil {
			next.Style = *u.Style
		}
		if err := validateText(next); err != nil {
			return TextLayer{}, err
		}
		r.text[i] = next
		return next, nil
	}
	return TextLayer{}, ErrLayerNotFound
}

// MoveTextLayer applies a drag to (x, y).
func (r *LayerRegistry) MoveTextLayer(id string, x, y float64) (TextLayer, error) {
	return r.UpdateTextLayer(id, TextUpdate{X: &x, Y: &y})
}

// RemoveTextLayer drops a caption.
func (r *LayerRegistry) RemoveTextLayer(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.text {
		if r.text[i].ID == id {
			r.text = append(r.text[:i], r.text[i+1:]...)
			return nil
		}
	}
	return ErrLayerNotFound
}

// TextLayers returns every caption in insertion order.
func (r *LayerRegistry) TextLayers() []TextLayer {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TextLayer, len(r.text))
	copy(out, r.text)
	return out
}

// VisibleTextLayers returns the captions shown at global time t.
func (r *LayerRegistry) VisibleTextLayers(t float64) []TextLayer {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []TextLayer
	for _, l := range r.text {
		if l.VisibleAt(t) {
			out = append(out, l)
		}
	}
	return out
}

// Close releases every audio handle. The registry is empty afterwards.
func (r *LayerRegistry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.audio {
		r.releaseLocked(e)
	}
	r.audio = nil
	r.text = nil
}

func clampPercent(v float64) float64 {
	if math.IsNaN(v) {
		return 50
	}
	return math.Max(0, math.Min(100, v))
}

// validTime reports whether t is a usable timeline position.
func validTime(t float64) bool {
	return t >= 0 && !math.IsInf(t, 1)
}

func validateText(l TextLayer) error {
	switch {
	case l.Text == "":
		return fmt.Errorf("%w: empty text", ErrInvalidLayer)
	case !validTime(l.StartTime) || !validTime(l.EndTime):
		return fmt.Errorf("%w: times must be finite non-negative numbers", ErrInvalidLayer)
	case l.EndTime < l.StartTime:
		return fmt.Errorf("%w: end time before start time", ErrInvalidLayer)
	case !(l.Scale > 0):
		return fmt.Errorf("%w: scale must be positive", ErrInvalidLayer)
	case !l.Style.valid():
		return fmt.Errorf("%w: unknown style %q", ErrInvalidLayer, l.Style)
	}
	return nil
}
