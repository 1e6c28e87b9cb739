// Package keyed provides a concurrent key to state table with per-key locking.
package keyed

import "sync"

type slot[V any] struct {
	mu    sync.Mutex
	value V
}

// Table holds one value per key. Work on a key runs under that key's lock;
// different keys never block each other beyond the short table lookup.
type Table[V any] struct {
	mu    sync.Mutex
	slots map[string]*slot[V]
}

func (t *Table[V]) slot(key string) *slot[V] {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.slots == nil {
		t.slots = make(map[string]*slot[V])
	}
	s, ok := t.slots[key]
	if !ok {
		s = &slot[V]{}
		t.slots[key] = s
	}
	return s
}

// Do runs fn with exclusive access to the value stored under key.
// A missing key starts from the zero value.
func Do[V, R any](t *Table[V], key string, fn func(v *V) R) R {
	s := t.slot(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&s.value)
}

// Get returns a copy of the value under key.
func (t *Table[V]) Get(key string) V {
	return Do(t, key, func(v *V) V { return *v })
}

// Len is the number of keys seen so far.
func (t *Table[V]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.slots)
}
