package eventlog

import (
	"sync"

	"github.com/kouprey/storefront/internal/models"
)

// DefaultCapacity is how many entries the in-memory view keeps.
const DefaultCapacity = 50

// Ring is a fixed size buffer of log entries. Once full, each Add evicts the
// oldest entry.
type Ring struct {
	mu    sync.Mutex
	buf   []models.LogEntry
	start int
	size  int
}

func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{buf: make([]models.LogEntry, capacity)}
}

func (r *Ring) Add(e models.LogEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = e
		r.size++
		return
	}
	r.buf[r.start] = e
	r.start = (r.start + 1) % len(r.buf)
}

// Snapshot returns the buffered entries oldest first.
func (r *Ring) Snapshot() []models.LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.LogEntry, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}
