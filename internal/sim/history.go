package sim

// DefaultHistoryLimit bounds the replay buffer.
const DefaultHistoryLimit = 200

// History is a bounded buffer of world snapshots for replay. The oldest
// frame is dropped once the limit is reached.
type History struct {
	limit  int
	frames []*WorldState
}

// NewHistory creates a history holding at most limit frames.
func NewHistory(limit int) *History {
	if limit < 1 {
		limit = DefaultHistoryLimit
	}
	return &History{limit: limit}
}

// Record stores a deep copy of w.
func (h *History) Record(w *WorldState) {
	h.frames = append(h.frames, w.Clone())
	if over := len(h.frames) - h.limit; over > 0 {
		h.frames = append(h.frames[:0:0], h.frames[over:]...)
	}
}

// Len returns the number of stored frames.
func (h *History) Len() int { return len(h.frames) }

// At returns a copy of frame i, oldest first.
func (h *History) At(i int) (*WorldState, bool) {
	if i < 0 || i >= len(h.frames) {
		return nil, false
	}
	return h.frames[i].Clone(), true
}

// Latest returns a copy of the newest frame.
func (h *History) Latest() (*WorldState, bool) {
	return h.At(len(h.frames) - 1)
}
