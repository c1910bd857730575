package biz

import "sync"

// docLocks serializes ingestion per document id so concurrent re-ingests
// of the same paper cannot interleave their delete and insert phases.
// Entries are reference counted and removed once unused, so the map does
// not grow with the corpus.
type docLocks struct {
	mu    sync.Mutex
	locks map[string]*docLock
}

type docLock struct {
	sync.Mutex
	refs int
}

func newDocLocks() *docLocks {
	return &docLocks{locks: make(map[string]*docLock)}
}

func (d *docLocks) lock(id string) {
	d.mu.Lock()
	l, ok := d.locks[id]
	if !ok {
		l = &docLock{}
		d.locks[id] = l
	}
	l.refs++
	d.mu.Unlock()

	l.Lock()
}

func (d *docLocks) unlock(id string) {
	d.mu.Lock()
	l := d.locks[id]
	l.refs--
	if l.refs == 0 {
		delete(d.locks, id)
	}
	d.mu.Unlock()

	l.Unlock()
}
