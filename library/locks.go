/*
locks.go - Per-entity mutual exclusion

PURPOSE:
  Borrow and return on the same book or the same student must be serialized:
  two concurrent reservations must not both observe quantity > 0 and both
  succeed. A single global lock would serialize unrelated operations, so the
  engine locks per entity key instead.

ORDERING:
  Every multi-entity operation acquires its locks through LockAll, which
  sorts keys into one global order. A single acquisition order keeps
  concurrent borrows and returns deadlock-free.
*/
package library

import (
	"sort"
	"sync"
)

// keyedMutex hands out one mutex per key. Mutexes are retained for the
// process lifetime; the key space (book and student ids) is bounded by the
// catalog size.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}

// Lock acquires the mutex for key and returns its unlock function.
func (k *keyedMutex) Lock(key string) func() {
	m := k.get(key)
	m.Lock()
	return m.Unlock
}

// LockAll acquires every key in sorted order and returns one unlock function
// releasing them in reverse.
func (k *keyedMutex) LockAll(keys []string) func() {
	sorted := make([]string, len(keys))
	copy(sorted, keys)
	sort.Strings(sorted)

	unlocks := make([]func(), 0, len(sorted))
	seen := make(map[string]struct{}, len(sorted))
	for _, key := range sorted {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		unlocks = append(unlocks, k.Lock(key))
	}
	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}
