package media

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"segment-studio/internal/capture"
)

var (
	ErrStreamClosed     = errors.New("stream closed")
	ErrAlreadyRecording = errors.New("stream is already recording")
)

// IngestProvider is a capture.DeviceProvider fed by a remote client. The
// client pushes encoded chunks and preview frames to the current stream;
// the provider keeps at most one stream open.
type IngestProvider struct {
	mu      sync.Mutex
	facings map[capture.Facing]bool
	current *IngestStream
}

// NewIngestProvider returns a provider that offers the given cameras.
func NewIngestProvider(facings []capture.Facing) *IngestProvider {
	p := &IngestProvider{facings: make(map[capture.Facing]bool, len(facings))}
	for _, f := range facings {
		p.facings[f] = true
	}
	return p
}

func (p *IngestProvider) Acquire(ctx context.Context, facing capture.Facing) (capture.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, capture.NewDeviceError(capture.DeviceUnavailable, err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.facings[facing] {
		return nil, capture.NewDeviceError(capture.DeviceNotFound, fmt.Errorf("no %s camera", facing))
	}
	if p.current != nil {
		p.current.close()
	}
	p.current = &IngestStream{facing: facing}
	return p.current, nil
}

func (p *IngestProvider) Release(stream capture.Stream) {
	s, ok := stream.(*IngestStream)
	if !ok {
		return
	}
	s.close()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == s {
		p.current = nil
	}
}

// Current returns the open stream, if any.
func (p *IngestProvider) Current() (*IngestStream, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, p.current != nil
}

// IngestStream is one acquired camera stream.
type IngestStream struct {
	mu     sync.Mutex
	facing capture.Facing
	sink   func([]byte)
	frame  []byte
	closed bool
}

// Facing is the camera this stream was acquired for.
func (s *IngestStream) Facing() capture.Facing { return s.facing }

// Push delivers an encoded chunk to the recording in flight. It reports
// false when no recording is running and the chunk was dropped.
func (s *IngestStream) Push(chunk []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrStreamClosed
	}
	if s.sink == nil {
		return false, nil
	}
	s.sink(chunk)
	return true, nil
}

// SetFrame replaces the preview frame returned by Snapshot.
func (s *IngestStream) SetFrame(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStreamClosed
	}
	s.frame = frame
	return nil
}

// Recording reports whether chunks are currently accepted.
func (s *IngestStream) Recording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sink != nil
}

func (s *IngestStream) StartRecording(sink func([]byte)) (capture.Recorder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStreamClosed
	}
	if s.sink != nil {
		return nil, ErrAlreadyRecording
	}
	s.sink = sink
	return &ingestRecorder{stream: s}, nil
}

func (s *IngestStream) Snapshot() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frame == nil {
		return nil, nil
	}
	out := make([]byte, len(s.frame))
	copy(out, s.frame)
	return out, nil
}

func (s *IngestStream) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.sink = nil
	s.frame = nil
}

type ingestRecorder struct {
	stream *IngestStream
	once   sync.Once
}

// Stop detaches the sink. Push delivers under the stream lock, so every
// chunk pushed before Stop has reached the sink when it returns.
func (r *ingestRecorder) Stop() error {
	r.once.Do(func() {
		r.stream.mu.Lock()
		r.stream.sink = nil
		r.stream.mu.Unlock()
	})
	return nil
}
