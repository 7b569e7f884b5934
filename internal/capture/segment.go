package capture

import (
	"bytes"
	"time"
)

// Segment is one immutable unit of captured media produced by a single
// record-start/record-stop cycle. Media and LastFrame are shared, never
// copied; callers must not modify them.
type Segment struct {
	ID        string
	Media     []byte
	Duration  float64 // seconds of wall-clock time measured while recording
	LastFrame []byte  // still frame captured when recording stopped, may be nil
	CreatedAt time.Time
}

// ConcatMedia joins the media payloads of segs in order into one payload.
func ConcatMedia(segs []Segment) []byte {
	size := 0
	for _, seg := range segs {
		size += len(seg.Media)
	}
	var b bytes.Buffer
	b.Grow(size)
	for _, seg := range segs {
		b.Write(seg.Media)
	}
	return b.Bytes()
}
