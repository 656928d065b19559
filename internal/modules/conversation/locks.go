package conversation

import (
	"sync"

	"github.com/google/uuid"
)

// roomLocks serializes turns within a room: one outstanding processMessage
// per room, released on turn completion. It never guards external I/O
// beyond the turn itself, so it cannot deadlock against entity extraction
// or retrieval — those hold no other resource while waiting.
type roomLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newRoomLocks() *roomLocks {
	return &roomLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (r *roomLocks) acquire(roomID uuid.UUID) func() {
	r.mu.Lock()
	l, ok := r.locks[roomID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[roomID] = l
	}
	r.mu.Unlock()

	l.Lock()
	return l.Unlock
}
