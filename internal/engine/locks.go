package engine

import "sync"

// lockRegistry hands out one mutex per learner so that writes to a
// learner's state are serialized while different learners proceed in
// parallel. Locks are never reclaimed; the per-learner footprint is one
// mutex.
type lockRegistry struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newLockRegistry() *lockRegistry {
	return &lockRegistry{locks: make(map[string]*sync.Mutex)}
}

func (r *lockRegistry) get(learnerID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[learnerID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[learnerID] = l
	}
	return l
}
