package mutex

import "sync"

// KeyedMutex serializes callers sharing a key. An entry lives only while the key is
// held or awaited, so idle keys cost nothing.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func (km *KeyedMutex) Lock(key string) {
	km.mu.Lock()
	if km.locks == nil {
		km.locks = make(map[string]*entry)
	}
	en, ok := km.locks[key]
	if !ok {
		en = &entry{}
		km.locks[key] = en
	}
	en.refs++
	km.mu.Unlock()

	en.mu.Lock()
}

func (km *KeyedMutex) Unlock(key string) {
	km.mu.Lock()
	en, ok := km.locks[key]
	if !ok {
		km.mu.Unlock()
		return
	}
	en.refs--
	if en.refs == 0 {
		delete(km.locks, key)
	}
	km.mu.Unlock()

	en.mu.Unlock()
}

// Len returns the number of keys currently held or awaited.
func (km *KeyedMutex) Len() int {
	km.mu.Lock()
	defer km.mu.Unlock()
	return len(km.locks)
}
