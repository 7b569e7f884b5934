package capture

// Event is an observable side effect of a session transition. Concrete
// types are listed below; observers switch on them.
type Event interface {
	event()
}

// StopReason says why a recording ended.
type StopReason string

const (
	StopRequested       StopReason = "requested"
	StopBudgetExhausted StopReason = "budget_exhausted"
)

type (
	DeviceAcquired struct {
		Facing Facing
	}
	DeviceFailed struct {
		Err *DeviceError
	}
	CountdownStarted struct {
		Seconds int
	}
	TimerTick struct {
		Remaining int
	}
	CountdownCanceled struct{}
	RecordingStarted  struct {
		Budget float64
		Speed  float64
	}
	RecordingProgress struct {
		Elapsed         float64
		SegmentProgress float64 // 0-100
		TotalProgress   float64 // 0-100
	}
	SegmentFinalized struct {
		Segment  Segment
		Reason   StopReason
		Released []Segment // redo entries dropped by the new segment
	}
	SegmentUndone struct {
		Segment Segment
	}
	SegmentRedone struct {
		Segment Segment
	}
	SessionDiscarded struct {
		Released []Segment
	}
	OverlayToggled struct {
		Visible bool
	}
)

func (DeviceAcquired) event()    {}
func (DeviceFailed) event()      {}
func (CountdownStarted) event()  {}
func (TimerTick) event()         {}
func (CountdownCanceled) event() {}
func (RecordingStarted) event()  {}
func (RecordingProgress) event() {}
func (SegmentFinalized) event()  {}
func (SegmentUndone) event()     {}
func (SegmentRedone) event()     {}
func (SessionDiscarded) event()  {}
func (OverlayToggled) event()    {}
