package coordinator

import (
	agrimodels "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Models"
)

// logRing is the bounded diagnostic log buffer. Loop-confined.
type logRing struct {
	cap     int
	buf     []agrimodels.LogEntry
	next    int
	wrapped bool
}

func newLogRing(capacity int) *logRing {
	if capacity <= 0 {
		capacity = 100
	}
	return &logRing{
		cap: capacity,
		buf: make([]agrimodels.LogEntry, capacity),
	}
}

func (r *logRing) append(entry agrimodels.LogEntry) {
	r.buf[r.next] = entry
	r.next++
	if r.next == r.cap {
		r.next = 0
		r.wrapped = true
	}
}

// entries returns the buffered entries newest first.
func (r *logRing) entries() []agrimodels.LogEntry {
	size := r.next
	if r.wrapped {
		size = r.cap
	}
	out := make([]agrimodels.LogEntry, 0, size)
	for i := 1; i <= size; i++ {
		idx := r.next - i
		if idx < 0 {
			idx += r.cap
		}
		out = append(out, r.buf[idx])
	}
	return out
}
