package session

import (
	"sync"
	"time"
)

// MemoryStore is an in-process [Store] for tests and embedded use.
type MemoryStore struct {
	mu          sync.Mutex
	data        []byte
	outerExpiry time.Duration
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{outerExpiry: DefaultOuterExpiry}
}

func (s *MemoryStore) Load() (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		return nil, nil
	}
	return decodeSnapshot(s.data, time.Now(), s.outerExpiry), nil
}

func (s *MemoryStore) Save(sess *Session) error {
	data, err := encodeSnapshot(sess, time.Now())
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	s.data = nil
	s.mu.Unlock()
	return nil
}
