package identity

import (
	"context"
	"strings"
	"sync"
)

type memoryRepository struct {
	mu           sync.RWMutex
	users        map[string]User        // keyed by ID
	emailChanges map[string]EmailChange // keyed by user ID
	tokens       map[string]VerificationToken
}

// NewMemoryRepository builds an in-memory user store for development and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		users:        make(map[string]User),
		emailChanges: make(map[string]EmailChange),
		tokens:       make(map[string]VerificationToken),
	}
}

func (r *memoryRepository) Create(_ context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (r *memoryRepository) FindByEmail(_ context.Context, email string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *memoryRepository) FindByWallet(_ context.Context, walletAddress string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if user.WalletAddress != "" && strings.EqualFold(user.WalletAddress, walletAddress) {
			return user, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *memoryRepository) UpdateNonce(_ context.Context, id, nonce string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	user.Nonce = nonce
	r.users[id] = user
	return nil
}

func (r *memoryRepository) UpdateProfile(_ context.Context, id string, update ProfileUpdate) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	if update.Name != nil {
		user.Name = *update.Name
	}
	if update.MonthlyIncome != nil {
		user.MonthlyIncome = update.MonthlyIncome
	}
	r.users[id] = user
	return user, nil
}

func (r *memoryRepository) UpdateEmail(_ context.Context, id, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	user.Email = email
	r.users[id] = user
	return nil
}

func (r *memoryRepository) MarkEmailVerified(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	user.IsEmailVerified = true
	r.users[id] = user
	return nil
}

func (r *memoryRepository) UpdateTokenVersion(_ context.Context, id string, version int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	user.TokenVersion = version
	r.users[id] = user
	return nil
}

func (r *memoryRepository) UpsertEmailChange(_ context.Context, change EmailChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emailChanges[change.UserID] = change
	return nil
}

func (r *memoryRepository) FindEmailChangeByToken(_ context.Context, token string) (EmailChange, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, change := range r.emailChanges {
		if change.Token == token {
			return change, nil
		}
	}
	return EmailChange{}, ErrNotFound
}

func (r *memoryRepository) DeleteEmailChange(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for userID, change := range r.emailChanges {
		if change.ID == id {
			delete(r.emailChanges, userID)
			return nil
		}
	}
	return nil
}

func (r *memoryRepository) CreateVerificationToken(_ context.Context, token VerificationToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token.Token] = token
	return nil
}

func (r *memoryRepository) FindVerificationToken(_ context.Context, token string) (VerificationToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	vt, ok := r.tokens[token]
	if !ok {
		return VerificationToken{}, ErrNotFound
	}
	return vt, nil
}

func (r *memoryRepository) DeleteVerificationTokens(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, vt := range r.tokens {
		if vt.UserID == userID {
			delete(r.tokens, key)
		}
	}
	return nil
}
