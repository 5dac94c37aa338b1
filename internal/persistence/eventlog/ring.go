package eventlog

import (
	"sync"
	"time"
)

// Event is one structured simulation event: a combat hit, a kill, a
// level-up, a death, a zone transition. Appends happen inside the tick
// loop and must never fail it, so the ring only ever overwrites.
type Event struct {
	Tick    uint64    `json:"tick"`
	Time    time.Time `json:"time"`
	Zone    string    `json:"zone"`
	Kind    string    `json:"kind"`
	ActorID string    `json:"actor_id,omitempty"`
	Target  string    `json:"target_id,omitempty"`
	Amount  int       `json:"amount,omitempty"`
	Detail  string    `json:"detail,omitempty"`
}

// Event kinds.
const (
	KindHit        = "hit"
	KindTechnique  = "technique"
	KindKill       = "kill"
	KindDeath      = "death"
	KindLevelUp    = "level_up"
	KindLoot       = "loot"
	KindDeparture  = "departure"
	KindArrival    = "arrival"
	KindSpawn      = "spawn"
	KindDespawn    = "despawn"
)

// Ring is a fixed-capacity event buffer. The mutex is held only for the
// copy-in; no allocation or I/O happens under it.
type Ring struct {
	mu   sync.Mutex
	buf  []Event
	next int
	full bool

	sink *Sink // optional, nil-safe
}

func NewRing(capacity int, sink *Sink) *Ring {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Ring{buf: make([]Event, capacity), sink: sink}
}

func (r *Ring) Append(ev Event) {
	if r == nil {
		return
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}
	r.mu.Lock()
	r.buf[r.next] = ev
	r.next++
	if r.next == len(r.buf) {
		r.next = 0
		r.full = true
	}
	r.mu.Unlock()
	r.sink.Enqueue(ev)
}

// Snapshot returns the buffered events oldest-first.
func (r *Ring) Snapshot() []Event {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		out := make([]Event, r.next)
		copy(out, r.buf[:r.next])
		return out
	}
	out := make([]Event, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	out = append(out, r.buf[:r.next]...)
	return out
}

// Len reports how many events are currently buffered.
func (r *Ring) Len() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return len(r.buf)
	}
	return r.next
}
