package timeline

import (
	"math"
	"sort"

	"segment-studio/internal/capture"
)

// Layout maps global timeline time onto segment index and local time using
// prefix sums over segment durations.
type Layout struct {
	starts []float64
	ends   []float64
}

// NewLayout builds a layout for segments of the given durations, in order.
func NewLayout(durations []float64) Layout {
	l := Layout{
		starts: make([]float64, len(durations)),
		ends:   make([]float64, len(durations)),
	}
	t := 0.0
	for i, d := range durations {
		if d < 0 {
			d = 0
		}
		l.starts[i] = t
		t += d
		l.ends[i] = t
	}
	return l
}

// LayoutOf builds the layout of segs.
func LayoutOf(segs []capture.Segment) Layout {
	durations := make([]float64, len(segs))
	for i, s := range segs {
		durations[i] = s.Duration
	}
	return NewLayout(durations)
}

// Len is the number of segments.
func (l Layout) Len() int { return len(l.starts) }

// Total is the global duration.
func (l Layout) Total() float64 {
	if len(l.ends) == 0 {
		return 0
	}
	return l.ends[len(l.ends)-1]
}

// StartOffset returns the global start of segment i.
func (l Layout) StartOffset(i int) float64 {
	if i < 0 || len(l.starts) == 0 {
		return 0
	}
	if i >= len(l.starts) {
		return l.Total()
	}
	return l.starts[i]
}

// Clamp limits t to [0, Total].
func (l Layout) Clamp(t float64) float64 {
	if t < 0 || math.IsNaN(t) {
		return 0
	}
	if total := l.Total(); t > total {
		return total
	}
	return t
}

// Resolve returns the segment whose [start, end) interval contains the
// clamped global time t and the local time within it. The last interval is
// closed so the exact end resolves to the last segment. ok is false for an
// empty layout.
func (l Layout) Resolve(t float64) (index int, local float64, ok bool) {
	n := len(l.starts)
	if n == 0 {
		return 0, 0, false
	}
	t = l.Clamp(t)
	index = sort.Search(n, func(i int) bool { return l.ends[i] > t })
	if index == n {
		index = n - 1
	}
	return index, t - l.starts[index], true
}
