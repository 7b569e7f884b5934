package capture

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultMaxDuration is the recording budget in seconds.
	DefaultMaxDuration = 60.0

	MinSpeed = 0.3
	MaxSpeed = 3.0

	DefaultCountdownInterval = time.Second
	DefaultProgressInterval  = 50 * time.Millisecond

	// budgets at or below this are treated as exhausted
	budgetEpsilon = 1e-6
)

// SpeedPresets and TimerPresets are the values offered to the user.
var (
	SpeedPresets = []float64{0.3, 0.5, 1, 2, 3}
	TimerPresets = []int{0, 3, 10, 20}
)

// State is the capture state.
type State int

const (
	StateIdle State = iota
	StateAwaitingTimer
	StateRecording
)

func (s State) String() string {
	switch s {
	case StateAwaitingTimer:
		return "awaiting_timer"
	case StateRecording:
		return "recording"
	default:
		return "idle"
	}
}

// Config configures a Session. Zero values select defaults.
type Config struct {
	MaxDuration         float64 // seconds, default 60
	OnRecordingComplete func(segments []Segment)
	// OnEvent observes every transition. It is called with the session
	// lock held and must not call back into the Session.
	OnEvent func(Event)

	Clock             func() time.Time
	Scheduler         Scheduler
	CountdownInterval time.Duration
	ProgressInterval  time.Duration
	NewID             func() string
	Logger            *slog.Logger
}

// Status is a point-in-time view of a Session.
type Status struct {
	State           State
	TimerRemaining  int
	Facing          Facing
	Initialized     bool
	Acquiring       bool
	Speed           float64
	Timer           int
	Segments        int
	Undone          int
	TotalDuration   float64
	Remaining       float64
	MaxDuration     float64
	SegmentProgress float64
	TotalProgress   float64
	OverlayVisible  bool
	LastFrame       []byte
	Err             *DeviceError
}

type recording struct {
	recorder   Recorder
	buf        *chunkBuffer
	startedAt  time.Time
	usedBefore float64
	budget     float64
	speed      float64
}

// Session is the segmented capture state machine. It owns the live device
// stream, the chunk buffer of the recording in flight and the SegmentStore.
// All transitions run under one lock; background countdown and progress
// ticks enter through the same dispatch as user intents.
type Session struct {
	mu      sync.Mutex
	devices DeviceProvider
	cfg     Config
	log     *slog.Logger
	store   *SegmentStore

	state     State
	countdown int
	rec       *recording
	run       uint64
	cancel    context.CancelFunc

	stream    Stream
	facing    Facing
	acquiring bool
	closed    bool
	err       *DeviceError

	speed           float64
	timer           int
	overlay         bool
	lastFrame       []byte
	segmentProgress float64
	totalProgress   float64
}

// NewSession returns an idle session with no device acquired.
func NewSession(devices DeviceProvider, cfg Config) *Session {
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = DefaultMaxDuration
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = tickerScheduler{}
	}
	if cfg.CountdownInterval <= 0 {
		cfg.CountdownInterval = DefaultCountdownInterval
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = DefaultProgressInterval
	}
	if cfg.NewID == nil {
		cfg.NewID = newSegmentID
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		devices: devices,
		cfg:     cfg,
		log:     log,
		store:   NewSegmentStore(),
		facing:  FacingUser,
		speed:   1,
	}
}

// newSegmentID returns a time-ordered UUID so ids sort by creation.
func newSegmentID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

type message interface{}

type (
	startMsg       struct{}
	stopMsg        struct{}
	cancelTimerMsg struct{}
	tickMsg        struct{ run uint64 }
	progressMsg    struct{ run uint64 }
	undoMsg        struct{}
	redoMsg        struct{}
	discardMsg     struct{}
)

// Start begins a recording, or a countdown when a timer is configured.
func (s *Session) Start() error { return s.handle(startMsg{}) }

// Stop ends the recording in flight and appends it as a new segment. During
// a countdown it cancels the countdown. Idle sessions ignore it.
func (s *Session) Stop() error { return s.handle(stopMsg{}) }

// CancelTimer aborts a running countdown. It is a no-op otherwise.
func (s *Session) CancelTimer() error { return s.handle(cancelTimerMsg{}) }

// Undo moves the last segment onto the redo stack.
func (s *Session) Undo() error { return s.handle(undoMsg{}) }

// Redo restores the most recently undone segment.
func (s *Session) Redo() error { return s.handle(redoMsg{}) }

// Discard drops every segment, the redo stack and any recording in flight.
func (s *Session) Discard() error { return s.handle(discardMsg{}) }

func (s *Session) handle(msg message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		switch msg.(type) {
		case tickMsg, progressMsg:
			return nil
		}
		return ErrClosed
	}

	switch m := msg.(type) {
	case startMsg:
		return s.onStart()
	case stopMsg:
		return s.onStop()
	case cancelTimerMsg:
		if s.state == StateAwaitingTimer {
			s.cancelCountdownLocked()
		}
		return nil
	case tickMsg:
		return s.onTick(m.run)
	case progressMsg:
		return s.onProgress(m.run)
	case undoMsg:
		return s.onUndo()
	case redoMsg:
		return s.onRedo()
	case discardMsg:
		s.onDiscard()
		return nil
	default:
		return fmt.Errorf("capture: unhandled message %T", msg)
	}
}

func (s *Session) onStart() error {
	if s.state != StateIdle {
		return ErrBusy
	}
	if s.stream == nil {
		return ErrNoDevice
	}
	if s.remainingLocked() <= budgetEpsilon {
		return ErrBudgetExceeded
	}
	if s.timer == 0 {
		return s.beginRecordingLocked()
	}

	ctx := s.startActivityLocked()
	s.state = StateAwaitingTimer
	s.countdown = s.timer
	s.emit(CountdownStarted{Seconds: s.timer})
	run := s.run
	s.cfg.Scheduler.Every(ctx, s.cfg.CountdownInterval, func() {
		_ = s.handle(tickMsg{run: run})
	})
	return nil
}

func (s *Session) onTick(run uint64) error {
	if s.state != StateAwaitingTimer || run != s.run {
		return nil
	}
	s.countdown--
	s.emit(TimerTick{Remaining: s.countdown})
	if s.countdown > 0 {
		return nil
	}
	s.cancelActivityLocked()
	s.state = StateIdle
	if s.stream == nil {
		return ErrNoDevice
	}
	if s.remainingLocked() <= budgetEpsilon {
		return ErrBudgetExceeded
	}
	return s.beginRecordingLocked()
}

func (s *Session) beginRecordingLocked() error {
	buf := &chunkBuffer{}
	recorder, err := s.stream.StartRecording(buf.append)
	if err != nil {
		derr := asDeviceError(err)
		s.state = StateIdle
		s.err = derr
		s.emit(DeviceFailed{Err: derr})
		return derr
	}

	ctx := s.startActivityLocked()
	s.rec = &recording{
		recorder:   recorder,
		buf:        buf,
		startedAt:  s.cfg.Clock(),
		usedBefore: s.store.TotalDuration(),
		budget:     s.remainingLocked(),
		speed:      s.speed,
	}
	s.state = StateRecording
	s.overlay = false
	s.segmentProgress = 0
	s.totalProgress = s.rec.usedBefore / s.cfg.MaxDuration * 100
	s.emit(RecordingStarted{Budget: s.rec.budget, Speed: s.rec.speed})

	run := s.run
	s.cfg.Scheduler.Every(ctx, s.cfg.ProgressInterval, func() {
		_ = s.handle(progressMsg{run: run})
	})
	return nil
}

func (s *Session) onProgress(run uint64) error {
	if s.state != StateRecording || run != s.run {
		return nil
	}
	r := s.rec
	elapsed := s.cfg.Clock().Sub(r.startedAt).Seconds()
	consumed := elapsed * r.speed
	// Real elapsed time is capped too, so slow speeds cannot record
	// segments longer than the budget.
	if consumed >= r.budget || elapsed >= r.budget {
		return s.finishRecordingLocked(StopBudgetExhausted)
	}

	s.segmentProgress = math.Min(consumed/r.budget*100, 100)
	s.totalProgress = math.Min((r.usedBefore+consumed)/s.cfg.MaxDuration*100, 100)
	s.emit(RecordingProgress{
		Elapsed:         elapsed,
		SegmentProgress: s.segmentProgress,
		TotalProgress:   s.totalProgress,
	})
	return nil
}

func (s *Session) onStop() error {
	switch s.state {
	case StateAwaitingTimer:
		s.cancelCountdownLocked()
		return nil
	case StateRecording:
		return s.finishRecordingLocked(StopRequested)
	default:
		return nil
	}
}

func (s *Session) finishRecordingLocked(reason StopReason) error {
	r := s.rec
	s.cancelActivityLocked()
	if err := r.recorder.Stop(); err != nil {
		s.log.Warn("recorder stop failed", slog.String("error", err.Error()))
	}

	elapsed := s.cfg.Clock().Sub(r.startedAt).Seconds()
	duration := math.Max(0, math.Min(elapsed, r.budget))

	frame, err := s.stream.Snapshot()
	if err != nil {
		s.log.Warn("last frame snapshot failed", slog.String("error", err.Error()))
		frame = nil
	}

	seg := Segment{
		ID:        s.cfg.NewID(),
		Media:     r.buf.assemble(),
		Duration:  duration,
		LastFrame: frame,
		CreatedAt: s.cfg.Clock().UTC(),
	}
	released := s.store.Append(seg)

	s.rec = nil
	s.state = StateIdle
	s.segmentProgress = 0
	s.lastFrame = frame
	s.overlay = true
	s.emit(SegmentFinalized{Segment: seg, Reason: reason, Released: released})
	return nil
}

func (s *Session) onUndo() error {
	if s.state != StateIdle {
		return ErrBusy
	}
	seg, ok := s.store.Undo()
	if !ok {
		return ErrNothingToUndo
	}
	s.lastFrame = nil
	if last, ok := s.store.Last(); ok {
		s.lastFrame = last.LastFrame
	}
	s.emit(SegmentUndone{Segment: seg})
	return nil
}

func (s *Session) onRedo() error {
	if s.state != StateIdle {
		return ErrBusy
	}
	seg, ok := s.store.Redo()
	if !ok {
		return ErrNothingToRedo
	}
	s.lastFrame = seg.LastFrame
	s.emit(SegmentRedone{Segment: seg})
	return nil
}

func (s *Session) onDiscard() {
	s.cancelActivityLocked()
	if s.rec != nil {
		if err := s.rec.recorder.Stop(); err != nil {
			s.log.Warn("recorder stop failed", slog.String("error", err.Error()))
		}
		s.rec.buf.reset()
		s.rec = nil
	}
	released := s.store.Clear()
	s.state = StateIdle
	s.countdown = 0
	s.segmentProgress = 0
	s.lastFrame = nil
	s.overlay = false
	s.emit(SessionDiscarded{Released: released})
}

func (s *Session) cancelCountdownLocked() {
	s.cancelActivityLocked()
	s.state = StateIdle
	s.countdown = 0
	s.emit(CountdownCanceled{})
}

// startActivityLocked cancels any running background activity and returns
// the context for a new one. Ticks carrying an older run are ignored.
func (s *Session) startActivityLocked() context.Context {
	s.cancelActivityLocked()
	s.run++
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	return ctx
}

func (s *Session) cancelActivityLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Session) remainingLocked() float64 {
	return math.Max(0, s.cfg.MaxDuration-s.store.TotalDuration())
}

func (s *Session) emit(ev Event) {
	if s.cfg.OnEvent != nil {
		s.cfg.OnEvent(ev)
	}
}

// Acquire opens a stream for facing, releasing the current one first. A
// failure is kept as the session error and returned; the session stays
// idle without a stream until Acquire succeeds.
func (s *Session) Acquire(ctx context.Context, facing Facing) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.acquiring {
		s.mu.Unlock()
		return ErrAcquireInFlight
	}
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrBusy
	}
	s.acquiring = true
	old := s.stream
	s.stream = nil
	s.mu.Unlock()

	if old != nil {
		s.devices.Release(old)
	}
	stream, err := s.devices.Acquire(ctx, facing)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.acquiring = false
	if err != nil {
		derr := asDeviceError(err)
		s.err = derr
		s.emit(DeviceFailed{Err: derr})
		return derr
	}
	if s.closed {
		s.devices.Release(stream)
		return ErrClosed
	}
	s.stream = stream
	s.facing = facing
	s.err = nil
	s.emit(DeviceAcquired{Facing: facing})
	return nil
}

// Flip re-acquires the device with the opposite camera.
func (s *Session) Flip(ctx context.Context) error {
	s.mu.Lock()
	next := s.facing.Flip()
	s.mu.Unlock()
	return s.Acquire(ctx, next)
}

// Finalize concatenates the active segments in order. The segments stay in
// place for further undo and redo.
func (s *Session) Finalize() ([]byte, error) {
	data, _, err := s.FinalizeSegments()
	return data, err
}

// FinalizeSegments is Finalize that also returns the segments joined into
// the payload, read in the same snapshot.
func (s *Session) FinalizeSegments() ([]byte, []Segment, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, nil, ErrClosed
	}
	if s.state == StateRecording {
		s.mu.Unlock()
		return nil, nil, ErrBusy
	}
	segs := s.store.Segments()
	s.mu.Unlock()

	if len(segs) == 0 {
		return nil, nil, ErrNothingToFinalize
	}
	data := ConcatMedia(segs)
	if s.cfg.OnRecordingComplete != nil {
		s.cfg.OnRecordingComplete(segs)
	}
	return data, segs, nil
}

// SetSpeed sets the budget pacing multiplier used by the next recording.
func (s *Session) SetSpeed(speed float64) error {
	if math.IsNaN(speed) || speed < MinSpeed || speed > MaxSpeed {
		return ErrInvalidSpeed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speed = speed
	return nil
}

// SetTimer sets the countdown in seconds run before each recording; 0 disables it.
func (s *Session) SetTimer(seconds int) error {
	if seconds < 0 {
		return ErrInvalidTimer
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timer = seconds
	return nil
}

// ToggleOverlay flips the alignment overlay and returns its new visibility.
func (s *Session) ToggleOverlay() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overlay = !s.overlay
	s.emit(OverlayToggled{Visible: s.overlay})
	return s.overlay
}

// Segments returns the active segments in timeline order.
func (s *Session) Segments() []Segment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Segments()
}

// Undone returns the redo stack, oldest first.
func (s *Session) Undone() []Segment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Undone()
}

// Segment looks up an active segment by id.
func (s *Session) Segment(id string) (Segment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, seg := range s.store.active {
		if seg.ID == id {
			return seg, true
		}
	}
	return Segment{}, false
}

// Status returns a snapshot of the session.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := s.store.TotalDuration()
	st := Status{
		State:          s.state,
		TimerRemaining: s.countdown,
		Facing:         s.facing,
		Initialized:    s.stream != nil,
		Acquiring:      s.acquiring,
		Speed:          s.speed,
		Timer:          s.timer,
		Segments:       len(s.store.active),
		Undone:         len(s.store.undone),
		TotalDuration:  total,
		Remaining:      s.remainingLocked(),
		MaxDuration:    s.cfg.MaxDuration,
		OverlayVisible: s.overlay,
		LastFrame:      s.lastFrame,
		Err:            s.err,
	}
	if s.state == StateRecording {
		st.SegmentProgress = s.segmentProgress
		st.TotalProgress = s.totalProgress
	} else {
		st.TotalProgress = math.Min(total/s.cfg.MaxDuration*100, 100)
	}
	return st
}

// Close stops any background activity and recording and releases the
// device stream. Recorded segments are dropped with the session.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.cancelActivityLocked()
	if s.rec != nil {
		if err := s.rec.recorder.Stop(); err != nil {
			s.log.Warn("recorder stop failed", slog.String("error", err.Error()))
		}
		s.rec = nil
	}
	s.state = StateIdle
	stream := s.stream
	s.stream = nil
	s.store.Clear()
	s.mu.Unlock()

	if stream != nil {
		s.devices.Release(stream)
	}
}
