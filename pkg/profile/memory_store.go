package profile

import (
	"context"
	"errors"
	"sync"
)

var errMissingVisitor = errors.New("visitor id is required")

// MemoryStore is a process-local Store used in tests and single-instance dev runs.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]map[string]string
	lists  map[string]map[string][]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[string]map[string]string),
		lists:  make(map[string]map[string][]string),
	}
}

func (s *MemoryStore) Get(_ context.Context, visitorID, key string) (string, error) {
	if err := requireVisitor(visitorID); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[visitorID][key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (s *MemoryStore) Set(_ context.Context, visitorID string, values map[string]string) error {
	if err := requireVisitor(visitorID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.values[visitorID]
	if !ok {
		bucket = make(map[string]string, len(values))
		s.values[visitorID] = bucket
	}
	for k, v := range values {
		bucket[k] = v
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, visitorID string, keys ...string) error {
	if err := requireVisitor(visitorID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.values[visitorID], k)
	}
	return nil
}

func (s *MemoryStore) Append(_ context.Context, visitorID, list string, limit int, entries ...string) error {
	if err := requireVisitor(visitorID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.lists[visitorID]
	if !ok {
		bucket = make(map[string][]string)
		s.lists[visitorID] = bucket
	}
	merged := append(bucket[list], entries...)
	if limit > 0 && len(merged) > limit {
		merged = append([]string(nil), merged[len(merged)-limit:]...)
	}
	bucket[list] = merged
	return nil
}

func (s *MemoryStore) List(_ context.Context, visitorID, list string) ([]string, error) {
	if err := requireVisitor(visitorID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.lists[visitorID][list]
	out := make([]string, len(entries))
	copy(out, entries)
	return out, nil
}

func (s *MemoryStore) ClearList(_ context.Context, visitorID, list string) error {
	if err := requireVisitor(visitorID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lists[visitorID], list)
	return nil
}

func (s *MemoryStore) PopList(_ context.Context, visitorID, list string) ([]string, error) {
	if err := requireVisitor(visitorID); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.lists[visitorID][list]
	delete(s.lists[visitorID], list)
	if entries == nil {
		return []string{}, nil
	}
	return entries, nil
}
