package capture

// SegmentStore holds the active segments in recording order and a stack of
// undone segments used for redo. It does no locking; Session serializes
// access to it.
type SegmentStore struct {
	active []Segment
	undone []Segment
}

// NewSegmentStore returns an empty store.
func NewSegmentStore() *SegmentStore {
	return &SegmentStore{}
}

// Append adds seg to the end of the active list and clears the redo stack.
// The segments dropped from the redo stack are returned so the caller can
// release them.
func (s *SegmentStore) Append(seg Segment) (released []Segment) {
	s.active = append(s.active, seg)
	released = s.undone
	s.undone = nil
	return released
}

// Undo moves the last active segment onto the redo stack.
func (s *SegmentStore) Undo() (Segment, bool) {
	if len(s.active) == 0 {
		return Segment{}, false
	}
	last := s.active[len(s.active)-1]
	s.active = s.active[:len(s.active)-1]
	s.undone = append(s.undone, last)
	return last, true
}

// Redo moves the most recently undone segment back to the end of the active list.
func (s *SegmentStore) Redo() (Segment, bool) {
	if len(s.undone) == 0 {
		return Segment{}, false
	}
	seg := s.undone[len(s.undone)-1]
	s.undone = s.undone[:len(s.undone)-1]
	s.active = append(s.active, seg)
	return seg, true
}

// Clear empties both lists and returns everything that was held.
func (s *SegmentStore) Clear() (released []Segment) {
	released = make([]Segment, 0, len(s.active)+len(s.undone))
	released = append(released, s.active...)
	released = append(released, s.undone...)
	s.active = nil
	s.undone = nil
	return released
}

// Segments returns a copy of the active list.
func (s *SegmentStore) Segments() []Segment {
	out := make([]Segment, len(s.active))
	copy(out, s.active)
	return out
}

// Undone returns a copy of the redo stack, oldest first.
func (s *SegmentStore) Undone() []Segment {
	out := make([]Segment, len(s.undone))
	copy(out, s.undone)
	return out
}

// Len is the number of active segments.
func (s *SegmentStore) Len() int { return len(s.active) }

// Last returns the last active segment.
func (s *SegmentStore) Last() (Segment, bool) {
	if len(s.active) == 0 {
		return Segment{}, false
	}
	return s.active[len(s.active)-1], true
}

// TotalDuration is the sum of the active segment durations.
func (s *SegmentStore) TotalDuration() float64 {
	total := 0.0
	for _, seg := range s.active {
		total += seg.Duration
	}
	return total
}

// StartOffsetOf returns the sum of the durations of the active segments
// before index. Indexes past the end yield the total duration.
func (s *SegmentStore) StartOffsetOf(index int) float64 {
	offset := 0.0
	for i := 0; i < index && i < len(s.active); i++ {
		offset += s.active[i].Duration
	}
	return offset
}
