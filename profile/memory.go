package profile

import (
	"context"
	"sync"
)

// MemoryStore is an in-process [Store] for tests and embedded use. It
// honors the same absence and duplicate semantics as the Postgres
// backend.
type MemoryStore struct {
	mu       sync.Mutex
	profiles map[string]*Profile
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]*Profile)}
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.profiles[id].clone(), nil
}

func (s *MemoryStore) Insert(_ context.Context, p *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[p.ID]; ok {
		return ErrDuplicateID
	}
	s.profiles[p.ID] = p.clone()
	return nil
}

func (s *MemoryStore) Upsert(_ context.Context, p *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.profiles[p.ID]; ok {
		existing.Email = p.Email
		existing.UpdatedAt = p.UpdatedAt
		return nil
	}
	s.profiles[p.ID] = p.clone()
	return nil
}

func (s *MemoryStore) Update(_ context.Context, p *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[p.ID]; !ok {
		return ErrNotFound
	}
	s.profiles[p.ID] = p.clone()
	return nil
}
