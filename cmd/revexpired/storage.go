package main

import (
	"sync"

	"github.com/relaycache/revexpire"
)

// memStorage is a toy StorageBackend: response bodies live in a plain
// map guarded by a mutex, and every handle shares one LRU partition
// (this demo never models multiple storage backends at once).
type memStorage struct {
	mu     sync.Mutex
	lru    *revexpire.LRU
	bodies map[*revexpire.Handle][]byte
	freed  map[*revexpire.Object]bool
}

func newMemStorage() *memStorage {
	return &memStorage{
		bodies: make(map[*revexpire.Handle][]byte),
		freed:  make(map[*revexpire.Object]bool),
	}
}

func (s *memStorage) put(h *revexpire.Handle, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bodies[h] = body
}

func (s *memStorage) GetObject(stats *revexpire.Stats, h *revexpire.Handle) (*revexpire.Object, error) {
	return h.Object, nil
}

func (s *memStorage) PersistMetadata(h *revexpire.Handle) error {
	return nil
}

func (s *memStorage) FreeStorage(o *revexpire.Object) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.freed[o] = true
}

func (s *memStorage) GetLRU(h *revexpire.Handle) *revexpire.LRU {
	return s.lru
}
