package service

import (
	"sync"

	"github.com/google/uuid"
)

// keyedMutex serializes work per conversation. Entries are reference counted
// so the map does not grow with every conversation ever touched.
type keyedMutex struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Lock acquires the lock for the given id and returns the release function.
func (k *keyedMutex) Lock(id uuid.UUID) func() {
	k.mu.Lock()
	if k.entries == nil {
		k.entries = make(map[uuid.UUID]*lockEntry)
	}
	entry, ok := k.entries[id]
	if !ok {
		entry = &lockEntry{}
		k.entries[id] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.entries, id)
		}
		k.mu.Unlock()
	}
}
