package credential

import "sync"

// Store holds at most one resolved credential per address key. All
// operations are atomic per key.
type Store interface {
	Load(key string) (Resolved, bool)
	Store(key string, r Resolved)

	// CompareAndDelete removes the entry only if it still equals old, so a
	// credential stored by a concurrent discovery is not evicted by a caller
	// that observed an older one.
	CompareAndDelete(key string, old Resolved) bool

	Delete(key string)
	Range(fn func(key string, r Resolved) bool)
}

// MemoryStore is the in-process Store. Keys for different addresses never
// contend on a shared lock.
type MemoryStore struct {
	m sync.Map
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(key string) (Resolved, bool) {
	v, ok := s.m.Load(key)
	if !ok {
		return Resolved{}, false
	}
	return v.(Resolved), true
}

func (s *MemoryStore) Store(key string, r Resolved) {
	s.m.Store(key, r)
}

func (s *MemoryStore) CompareAndDelete(key string, old Resolved) bool {
	return s.m.CompareAndDelete(key, old)
}

func (s *MemoryStore) Delete(key string) {
	s.m.Delete(key)
}

func (s *MemoryStore) Range(fn func(key string, r Resolved) bool) {
	s.m.Range(func(k, v any) bool {
		return fn(k.(string), v.(Resolved))
	})
}

// Len returns the number of cached addresses.
func (s *MemoryStore) Len() int {
	n := 0
	s.m.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
