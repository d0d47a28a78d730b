package auth

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrDuplicate    = errors.New("email already exists")
)

// Repository defines the data-access contract.
// Service depends ONLY on this interface.
type Repository interface {
	// Create stores u. Emails are unique case-insensitively.
	Create(ctx context.Context, u *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	AddOrder(ctx context.Context, userID string, o Order) error
	Orders(ctx context.Context, userID string) ([]Order, error)
	Close() error
}

// MemoryRepository keeps accounts in process memory.
type MemoryRepository struct {
	mu      sync.RWMutex
	byEmail map[string]*User
	byID    map[string]*User
	orders  map[string][]Order
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byEmail: make(map[string]*User),
		byID:    make(map[string]*User),
		orders:  make(map[string][]Order),
	}
}

func (r *MemoryRepository) Create(_ context.Context, u *User) error {
	key := strings.ToLower(u.Email)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[key]; exists {
		return ErrDuplicate
	}
	stored := *u
	r.byEmail[key] = &stored
	r.byID[u.ID] = &stored
	return nil
}

func (r *MemoryRepository) FindByEmail(_ context.Context, email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	found := *u
	return &found, nil
}

func (r *MemoryRepository) FindByID(_ context.Context, id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	found := *u
	return &found, nil
}

func (r *MemoryRepository) AddOrder(_ context.Context, userID string, o Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[userID]; !ok {
		return ErrUserNotFound
	}
	r.orders[userID] = append(r.orders[userID], o)
	return nil
}

func (r *MemoryRepository) Orders(_ context.Context, userID string) ([]Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.orders[userID]), nil
}

// Close is a no-op.
func (r *MemoryRepository) Close() error { return nil }
