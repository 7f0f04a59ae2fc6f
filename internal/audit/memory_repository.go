package audit

import (
	"context"
	"sort"
	"sync"
)

type memoryRepository struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewMemoryRepository builds an in-memory audit store for development and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{}
}

func (r *memoryRepository) Create(_ context.Context, entry Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *memoryRepository) List(_ context.Context, page, limit int, userID string) ([]Entry, error) {
	page, limit = clampPage(page, limit)
	r.mu.RLock()
	defer r.mu.RUnlock()

	filtered := make([]Entry, 0, len(r.entries))
	for _, entry := range r.entries {
		if userID == "" || entry.UserID == userID {
			filtered = append(filtered, entry)
		}
	}
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].Timestamp.After(filtered[j].Timestamp)
	})

	start := (page - 1) * limit
	if start >= len(filtered) {
		return []Entry{}, nil
	}
	end := start + limit
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[start:end], nil
}

func (r *memoryRepository) GetByID(_ context.Context, id string) (Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, entry := range r.entries {
		if entry.ID == id {
			return entry, nil
		}
	}
	return Entry{}, ErrNotFound
}

func (r *memoryRepository) Update(_ context.Context, id string, action, details string) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, entry := range r.entries {
		if entry.ID == id {
			r.entries[i].Action = action
			r.entries[i].Details = details
			return r.entries[i], nil
		}
	}
	return Entry{}, ErrNotFound
}

func (r *memoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, entry := range r.entries {
		if entry.ID == id {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}
