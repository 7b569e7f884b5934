package studio

import (
	"math"
	"time"

	"segment-studio/internal/capture"
	"segment-studio/internal/media"
	"segment-studio/internal/timeline"
)

// SessionID uniquely identifies an editor session.
type SessionID string

// EditorSession is everything one person editing one clip works with: the
// capture state machine, the timeline over its segments and the overlay
// layers, plus the ingest device and virtual player that feed them.
type EditorSession struct {
	ID        SessionID
	Capture   *capture.Session
	Timeline  *timeline.Engine
	Layers    *timeline.LayerRegistry
	Player    *media.VirtualPlayer
	Devices   *media.IngestProvider
	CreatedAt time.Time
}

// Close stops playback, releases every audio handle and the camera stream,
// and drops the recorded segments.
func (s *EditorSession) Close() {
	s.Timeline.Pause()
	s.Layers.Close()
	s.Capture.Close()
}

// SegmentView describes one active segment without its media.
type SegmentView struct {
	ID           string    `json:"id"`
	Duration     float64   `json:"duration"`
	StartOffset  float64   `json:"start_offset"`
	Size         int       `json:"size"`
	HasLastFrame bool      `json:"has_last_frame"`
	CreatedAt    time.Time `json:"created_at"`
}

// DeviceErrorView is the device failure shown to the client.
type DeviceErrorView struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// SessionView is the JSON representation of an EditorSession.
type SessionView struct {
	ID              SessionID        `json:"id"`
	State           string           `json:"state"`
	TimerRemaining  int              `json:"timer_remaining"`
	Facing          capture.Facing   `json:"facing"`
	Initialized     bool             `json:"initialized"`
	Acquiring       bool             `json:"acquiring"`
	Speed           float64          `json:"speed"`
	Timer           int              `json:"timer"`
	Segments        []SegmentView    `json:"segments"`
	Undone          int              `json:"undone"`
	TotalDuration   float64          `json:"total_duration"`
	Remaining       float64          `json:"remaining"`
	MaxDuration     float64          `json:"max_duration"`
	SegmentProgress float64          `json:"segment_progress"`
	TotalProgress   float64          `json:"total_progress"`
	OverlayVisible  bool             `json:"overlay_visible"`
	HasGhostFrame   bool             `json:"has_ghost_frame"`
	Error           *DeviceErrorView `json:"error,omitempty"`
	Timeline        timeline.State   `json:"timeline"`
	CreatedAt       time.Time        `json:"created_at"`
}

// View snapshots the session.
func (s *EditorSession) View() SessionView {
	st := s.Capture.Status()
	segs := s.Capture.Segments()
	layout := timeline.LayoutOf(segs)

	v := SessionView{
		ID:              s.ID,
		State:           st.State.String(),
		TimerRemaining:  st.TimerRemaining,
		Facing:          st.Facing,
		Initialized:     st.Initialized,
		Acquiring:       st.Acquiring,
		Speed:           st.Speed,
		Timer:           st.Timer,
		Segments:        make([]SegmentView, len(segs)),
		Undone:          st.Undone,
		TotalDuration:   st.TotalDuration,
		Remaining:       st.Remaining,
		MaxDuration:     st.MaxDuration,
		SegmentProgress: st.SegmentProgress,
		TotalProgress:   st.TotalProgress,
		OverlayVisible:  st.OverlayVisible,
		HasGhostFrame:   st.LastFrame != nil,
		Timeline:        s.Timeline.State(),
		CreatedAt:       s.CreatedAt,
	}
	for i, seg := range segs {
		v.Segments[i] = SegmentView{
			ID:           seg.ID,
			Duration:     seg.Duration,
			StartOffset:  layout.StartOffset(i),
			Size:         len(seg.Media),
			HasLastFrame: seg.LastFrame != nil,
			CreatedAt:    seg.CreatedAt,
		}
	}
	if st.Err != nil {
		v.Error = &DeviceErrorView{Kind: st.Err.Kind.String(), Message: st.Err.UserMessage()}
	}
	return v
}

// LayersView lists the overlay layers, with the captions visible at the
// playhead.
type LayersView struct {
	Audio   []timeline.AudioLayer `json:"audio"`
	Text    []timeline.TextLayer  `json:"text"`
	Visible []timeline.TextLayer  `json:"visible_text"`
	At      float64               `json:"at"`
}

// LayersAt lists the layers with captions resolved at global time t. A
// negative or NaN t uses the playhead.
func (s *EditorSession) LayersAt(t float64) LayersView {
	if t < 0 || math.IsNaN(t) {
		t = s.Timeline.State().GlobalTime
	}
	return LayersView{
		Audio:   s.Layers.AudioLayers(),
		Text:    s.Layers.TextLayers(),
		Visible: s.Layers.VisibleTextLayers(t),
		At:      t,
	}
}
