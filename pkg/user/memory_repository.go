package user

import (
	"context"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryRepository keeps users in process memory with a unique email constraint.
type MemoryRepository struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: make(map[string]User)}
}

func (r *MemoryRepository) Profile(_ context.Context, id string) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	p := u.Profile()
	return &p, nil
}

func (r *MemoryRepository) Phone(_ context.Context, id string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return "", ErrNotFound
	}
	return u.Phone, nil
}

func (r *MemoryRepository) Insert(_ context.Context, u *User) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	email := strings.TrimSpace(u.Email)
	for _, existing := range r.users {
		if existing.Email == email {
			return "", ErrEmailTaken
		}
	}
	stored := *u
	stored.Email = email
	stored.ID = primitive.NewObjectID().Hex()
	r.users[stored.ID] = stored
	return stored.ID, nil
}
