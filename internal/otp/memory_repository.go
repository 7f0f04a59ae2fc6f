package otp

import (
	"context"
	"sync"
	"time"
)

type memoryRepository struct {
	mu    sync.Mutex
	codes map[string]Code // keyed by code ID
}

// NewMemoryRepository builds an in-memory OTP store for development and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{codes: make(map[string]Code)}
}

func (r *memoryRepository) DeleteByUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, code := range r.codes {
		if code.UserID == userID {
			delete(r.codes, id)
		}
	}
	return nil
}

func (r *memoryRepository) Create(_ context.Context, code Code) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes[code.ID] = code
	return nil
}

func (r *memoryRepository) FindActive(_ context.Context, userID string, now time.Time) (Code, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var (
		latest Code
		found  bool
	)
	for _, code := range r.codes {
		if code.UserID != userID || !code.ExpiresAt.After(now) {
			continue
		}
		if !found || code.CreatedAt.After(latest.CreatedAt) {
			latest = code
			found = true
		}
	}
	if !found {
		return Code{}, ErrNoActiveCode
	}
	return latest, nil
}

func (r *memoryRepository) Consume(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.codes[id]; !ok {
		return false, nil
	}
	delete(r.codes, id)
	return true, nil
}
