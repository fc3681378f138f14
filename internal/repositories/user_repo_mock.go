package repositories

import (
	"fmt"
	"sync"
	"time"

	"gemstore/internal/models"
)

// MockUserRepository is an in-memory implementation of UserRepository.
type MockUserRepository struct {
	users   map[uint]models.User
	byEmail map[string]uint
	nextID  uint
	mu      sync.RWMutex
}

// NewMockUserRepository creates a new instance of MockUserRepository.
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users:   make(map[uint]models.User),
		byEmail: make(map[string]uint),
		nextID:  1,
	}
}

// Create adds a new user, assigning the next sequential ID.
func (r *MockUserRepository) Create(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[user.Email]; taken {
		return fmt.Errorf("user with email %s: %w", user.Email, ErrDuplicate)
	}
	user.ID = r.nextID
	r.nextID++
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = *user
	r.byEmail[user.Email] = user.ID
	return nil
}

// GetByEmail returns a user by email.
func (r *MockUserRepository) GetByEmail(email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, fmt.Errorf("user with email %s: %w", email, ErrNotFound)
	}
	user := r.users[id]
	return &user, nil
}

// GetByID returns a user by ID.
func (r *MockUserRepository) GetByID(id uint) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user with ID %d: %w", id, ErrNotFound)
	}
	return &user, nil
}

// Update replaces the profile fields of an existing user.
func (r *MockUserRepository) Update(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.users[user.ID]
	if !ok {
		return fmt.Errorf("user with ID %d not found for update: %w", user.ID, ErrNotFound)
	}
	if owner, taken := r.byEmail[user.Email]; taken && owner != user.ID {
		return fmt.Errorf("user with email %s: %w", user.Email, ErrDuplicate)
	}
	delete(r.byEmail, existing.Email)
	existing.Name = user.Name
	existing.Email = user.Email
	existing.PasswordHash = user.PasswordHash
	existing.UpdatedAt = time.Now()
	r.users[user.ID] = existing
	r.byEmail[existing.Email] = user.ID
	return nil
}

// SetExclusiveAdmin flags only the user with email as admin.
func (r *MockUserRepository) SetExclusiveAdmin(email string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, user := range r.users {
		user.IsAdmin = user.Email == email
		r.users[id] = user
	}
	return int64(len(r.users)), nil
}
