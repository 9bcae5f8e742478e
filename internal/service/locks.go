package service

import (
	"strconv"
	"sync"
)

// keyedMutex hands out one mutex per key and forgets keys nobody holds,
// so the map does not grow with every booking ever touched.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

// Lock blocks until key is free and returns the matching unlock func.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refMutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func eventKey(id int64) string   { return "event:" + strconv.FormatInt(id, 10) }
func bookingKey(id int64) string { return "booking:" + strconv.FormatInt(id, 10) }
