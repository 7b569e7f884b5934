package capture

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Facing selects the front or back camera.
type Facing string

const (
	FacingUser        Facing = "user"
	FacingEnvironment Facing = "environment"
)

// Flip returns the opposite camera.
func (f Facing) Flip() Facing {
	if f == FacingEnvironment {
		return FacingUser
	}
	return FacingEnvironment
}

// ParseFacing accepts "user" or "environment" (case-insensitive).
func ParseFacing(s string) (Facing, error) {
	switch Facing(strings.ToLower(strings.TrimSpace(s))) {
	case FacingUser:
		return FacingUser, nil
	case FacingEnvironment:
		return FacingEnvironment, nil
	default:
		return "", fmt.Errorf("unknown camera facing %q", s)
	}
}

// Stream is a live camera/microphone stream.
type Stream interface {
	// StartRecording delivers encoded chunks to sink until the returned
	// Recorder is stopped. sink may be called from any goroutine.
	StartRecording(sink func(chunk []byte)) (Recorder, error)
	// Snapshot returns the frame currently shown by the stream, or nil.
	Snapshot() ([]byte, error)
}

// Recorder is an in-flight recording on a Stream.
type Recorder interface {
	// Stop returns once every chunk captured before the call has been
	// delivered to the sink.
	Stop() error
}

// DeviceProvider acquires and releases live streams.
type DeviceProvider interface {
	Acquire(ctx context.Context, facing Facing) (Stream, error)
	Release(stream Stream)
}

// chunkBuffer collects raw chunks of the recording in flight.
type chunkBuffer struct {
	mu     sync.Mutex
	chunks [][]byte
	size   int
}

func (b *chunkBuffer) append(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.chunks = append(b.chunks, chunk)
	b.size += len(chunk)
}

func (b *chunkBuffer) assemble() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]byte, 0, b.size)
	for _, c := range b.chunks {
		out = append(out, c...)
	}
	return out
}

func (b *chunkBuffer) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.chunks = nil
	b.size = 0
}
