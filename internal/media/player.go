package media

import (
	"errors"
	"math"
	"sync"
	"time"

	"segment-studio/internal/capture"
	"segment-studio/internal/timeline"
)

var ErrNothingLoaded = errors.New("no segment loaded")

// clockPosition is a media clock that advances with wall time while running.
type clockPosition struct {
	now       func() time.Time
	base      float64
	startedAt time.Time
	running   bool
	limit     float64 // 0 means unbounded
}

func (c *clockPosition) position() float64 {
	pos := c.base
	if c.running {
		pos += c.now().Sub(c.startedAt).Seconds()
	}
	if c.limit > 0 && pos > c.limit {
		return c.limit
	}
	return pos
}

func (c *clockPosition) start() {
	if c.running {
		return
	}
	c.startedAt = c.now()
	c.running = true
}

func (c *clockPosition) stop() {
	if !c.running {
		return
	}
	c.base = c.position()
	c.running = false
}

func (c *clockPosition) set(pos float64) {
	if pos < 0 || math.IsNaN(pos) {
		pos = 0
	}
	if c.limit > 0 && pos > c.limit {
		pos = c.limit
	}
	c.base = pos
	c.startedAt = c.now()
}

// VirtualPlayer is a timeline.Player that keeps a segment clock without
// decoding media. It is the server-side stand-in for the client's video
// element.
type VirtualPlayer struct {
	mu     sync.Mutex
	clock  clockPosition
	seg    capture.Segment
	loaded bool
}

// NewVirtualPlayer returns an empty player. now defaults to time.Now.
func NewVirtualPlayer(now func() time.Time) *VirtualPlayer {
	if now == nil {
		now = time.Now
	}
	return &VirtualPlayer{clock: clockPosition{now: now}}
}

func (p *VirtualPlayer) Load(seg capture.Segment) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seg = seg
	p.loaded = true
	p.clock.running = false
	p.clock.limit = seg.Duration
	p.clock.set(0)
	return nil
}

func (p *VirtualPlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loaded {
		return ErrNothingLoaded
	}
	p.clock.start()
	return nil
}

func (p *VirtualPlayer) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clock.stop()
}

func (p *VirtualPlayer) Seek(local float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clock.set(local)
}

// Position is the local time in the loaded segment.
func (p *VirtualPlayer) Position() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clock.position()
}

// Ended reports whether a running segment reached its end.
func (p *VirtualPlayer) Ended() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loaded && p.clock.running && p.clock.position() >= p.seg.Duration
}

// SegmentID is the id of the loaded segment.
func (p *VirtualPlayer) SegmentID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.seg.ID
}

// VirtualAudioBackend opens VirtualAudio handles.
type VirtualAudioBackend struct {
	Now func() time.Time
}

func (b VirtualAudioBackend) Open(media []byte) (timeline.AudioHandle, error) {
	if len(media) == 0 {
		return nil, errors.New("empty audio payload")
	}
	now := b.Now
	if now == nil {
		now = time.Now
	}
	return &VirtualAudio{media: media, clock: clockPosition{now: now}, volume: 1}, nil
}

// VirtualAudio is an audio handle with its own clock. It holds the payload
// until Close.
type VirtualAudio struct {
	mu     sync.Mutex
	media  []byte
	clock  clockPosition
	volume float64
	closed bool
}

func (a *VirtualAudio) Play() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrStreamClosed
	}
	a.clock.start()
	return nil
}

func (a *VirtualAudio) Pause() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.clock.stop()
}

func (a *VirtualAudio) Paused() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.clock.running
}

func (a *VirtualAudio) Position() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.clock.position()
}

func (a *VirtualAudio) SetPosition(seconds float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.clock.set(seconds)
}

func (a *VirtualAudio) SetVolume(volume float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.volume = volume
}

func (a *VirtualAudio) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.clock.stop()
	a.closed = true
	a.media = nil
	return nil
}
