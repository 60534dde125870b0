package service

import "sync"

// guildLocks hands out one mutex per guild so that every read-modify-write
// against a guild's session record runs to completion before the next one
// starts. Locks are created lazily and never dropped; the per-guild footprint
// is a single mutex.
type guildLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newGuildLocks() *guildLocks {
	return &guildLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the mutex for guildID and returns the matching unlock.
func (g *guildLocks) acquire(guildID string) func() {
	g.mu.Lock()
	lock, ok := g.locks[guildID]
	if !ok {
		lock = &sync.Mutex{}
		g.locks[guildID] = lock
	}
	g.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
