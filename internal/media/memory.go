package media

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory [Store]. Clips are copied on Put and Get so
// callers cannot mutate stored data.
type MemoryStore struct {
	mu    sync.RWMutex
	clips map[string]Clip
}

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{clips: make(map[string]Clip)}
}

// Put stores a copy of clip under ref.
func (s *MemoryStore) Put(_ context.Context, ref string, clip Clip) error {
	samples := make([]float64, len(clip.Samples))
	copy(samples, clip.Samples)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.clips[ref] = Clip{Samples: samples, SampleRate: clip.SampleRate}
	return nil
}

// Get returns a copy of the clip stored under ref, or [ErrNotFound].
func (s *MemoryStore) Get(_ context.Context, ref string) (Clip, error) {
	s.mu.RLock()
	stored, ok := s.clips[ref]
	s.mu.RUnlock()
	if !ok {
		return Clip{}, ErrNotFound
	}

	samples := make([]float64, len(stored.Samples))
	copy(samples, stored.Samples)
	return Clip{Samples: samples, SampleRate: stored.SampleRate}, nil
}

// Delete removes the clip under ref. Deleting a missing ref is not an error.
func (s *MemoryStore) Delete(_ context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clips, ref)
	return nil
}
