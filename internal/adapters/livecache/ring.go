package livecache

import (
	"sync"

	"github.com/christianJames24/IoT-2/internal/domain"
	"github.com/christianJames24/IoT-2/internal/ports"
)

// Ring is the bounded in-memory live view of recent readings. It replaces
// an unbounded shared map: one component owns it, everyone else reads
// copied snapshots.
type Ring struct {
	mu    sync.Mutex
	data  []domain.LivePoint
	start int
	count int
}

func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring{data: make([]domain.LivePoint, capacity)}
}

// Add records a point, evicting the oldest when full.
func (r *Ring) Add(p domain.LivePoint) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := (r.start + r.count) % len(r.data)
	r.data[idx] = p
	if r.count < len(r.data) {
		r.count++
		return
	}
	r.start = (r.start + 1) % len(r.data)
}

// Snapshot returns the buffered points oldest-first as a fresh slice.
func (r *Ring) Snapshot() []domain.LivePoint {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.LivePoint, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.data[(r.start+i)%len(r.data)]
	}
	return out
}

func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

var _ ports.LiveView = (*Ring)(nil)
