package capture

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidOperation is the parent of every rejected call that leaves
	// the session untouched. Match with errors.Is.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrBudgetExceeded is returned when a recording is started with no
	// remaining duration budget.
	ErrBudgetExceeded = errors.New("maximum duration reached")

	ErrNothingToUndo     = fmt.Errorf("%w: nothing to undo", ErrInvalidOperation)
	ErrNothingToRedo     = fmt.Errorf("%w: nothing to redo", ErrInvalidOperation)
	ErrNothingToFinalize = fmt.Errorf("%w: no segments recorded", ErrInvalidOperation)
	ErrBusy              = fmt.Errorf("%w: recording in progress", ErrInvalidOperation)
	ErrNoDevice          = fmt.Errorf("%w: device not acquired", ErrInvalidOperation)
	ErrAcquireInFlight   = fmt.Errorf("%w: device acquisition already in progress", ErrInvalidOperation)
	ErrInvalidSpeed      = fmt.Errorf("%w: speed out of range", ErrInvalidOperation)
	ErrInvalidTimer      = fmt.Errorf("%w: timer must not be negative", ErrInvalidOperation)
	ErrClosed            = fmt.Errorf("%w: session closed", ErrInvalidOperation)
)

// DeviceErrorKind classifies a device acquisition failure.
type DeviceErrorKind int

const (
	DeviceUnavailable DeviceErrorKind = iota
	DevicePermissionDenied
	DeviceNotFound
)

func (k DeviceErrorKind) String() string {
	switch k {
	case DevicePermissionDenied:
		return "permission_denied"
	case DeviceNotFound:
		return "not_found"
	default:
		return "unavailable"
	}
}

// DeviceError reports a failure to acquire or drive the capture device.
// It is terminal for the current stream; the caller recovers by acquiring again.
type DeviceError struct {
	Kind DeviceErrorKind
	Err  error
}

// NewDeviceError wraps err with the given kind.
func NewDeviceError(kind DeviceErrorKind, err error) *DeviceError {
	return &DeviceError{Kind: kind, Err: err}
}

func (e *DeviceError) Error() string {
	if e.Err == nil {
		return "device " + e.Kind.String()
	}
	return fmt.Sprintf("device %s: %v", e.Kind, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// UserMessage is the text shown to the person holding the camera.
func (e *DeviceError) UserMessage() string {
	switch e.Kind {
	case DevicePermissionDenied:
		return "Camera permission denied. Please allow camera access."
	case DeviceNotFound:
		return "No camera found on this device."
	default:
		return "Failed to access camera. Please try again."
	}
}

// asDeviceError keeps a typed DeviceError as is and classifies anything
// else as an unavailable device.
func asDeviceError(err error) *DeviceError {
	var de *DeviceError
	if errors.As(err, &de) {
		return de
	}
	return NewDeviceError(DeviceUnavailable, err)
}
