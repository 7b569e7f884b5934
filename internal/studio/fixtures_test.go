package studio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"segment-studio/internal/capture"
	"segment-studio/internal/platform/logger"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(seconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Duration(seconds * float64(time.Second)))
}

// idleScheduler never fires, so recordings only end when stopped.
type idleScheduler struct{}

func (idleScheduler) Every(context.Context, time.Duration, func()) {}

type fakeProber struct {
	duration float64
	err      error
}

func (p fakeProber) ProbeDuration(context.Context, []byte) (float64, error) {
	return p.duration, p.err
}

type memoryPersistence struct {
	mu     sync.Mutex
	videos [][]byte
	metas  []VideoMetadata
	thumbs [][]byte
	err    error
}

func (m *memoryPersistence) PersistVideo(_ context.Context, data []byte, meta VideoMetadata) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.videos = append(m.videos, data)
	m.metas = append(m.metas, meta)
	return fmt.Sprintf("https://cdn.test/videos/%d", len(m.videos)), nil
}

func (m *memoryPersistence) PersistThumbnail(_ context.Context, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.thumbs = append(m.thumbs, data)
	return fmt.Sprintf("https://cdn.test/thumbs/%d", len(m.thumbs)), nil
}

type fixture struct {
	svc     *Service
	clock   *testClock
	store   *memoryPersistence
	prober  *fakeProber
	profile StaticIdentity
}

func newFixture(t *testing.T, maxDuration float64) *fixture {
	t.Helper()
	f := &fixture{
		clock:   &testClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		store:   &memoryPersistence{},
		prober:  &fakeProber{duration: 4},
		profile: StaticIdentity{ChannelID: "ch-1", ChannelName: "Test Channel", AvatarURL: "https://cdn.test/avatar.png"},
	}
	n := 0
	f.svc = NewService(NewInMemoryRepository(), f.prober, f.store, f.profile, ServiceConfig{
		MaxDuration: maxDuration,
		Facings:     []capture.Facing{capture.FacingUser},
		Clock:       f.clock.Now,
		Scheduler:   idleScheduler{},
		NewID:       func() string { n++; return fmt.Sprintf("sess-%d", n) },
		Logger:      logger.Discard(),
	})
	t.Cleanup(f.svc.Shutdown)
	return f
}

// record captures one segment of the given length with payload as media
// and a PNG preview frame.
func (f *fixture) record(t *testing.T, sess *EditorSession, seconds float64, payload string) {
	t.Helper()
	stream, ok := sess.Devices.Current()
	if !ok {
		t.Fatal("no ingest stream")
	}
	if err := stream.SetFrame(pngFrame(t, 64, 48)); err != nil {
		t.Fatal(err)
	}
	if err := sess.Capture.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := stream.Push([]byte(payload)); err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(seconds)
	if err := sess.Capture.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}

func pngFrame(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: uint8(x * 4), B: uint8(y * 4), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

var errBoom = errors.New("boom")
