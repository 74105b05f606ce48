package sync

import stdsync "sync"

// keyedMutex serializes work per string key. Two sync passes for the same
// (provider, calendar) pair must not overlap, since concurrent passes would
// race their writes against the same remote calendar, while passes for
// different calendars may proceed in parallel.
type keyedMutex struct {
	mu    stdsync.Mutex
	locks map[string]*stdsync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*stdsync.Mutex)}
}

// lock acquires the mutex for key, creating it on first use, and returns the
// unlock function.
func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &stdsync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
