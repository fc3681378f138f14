package repositories

import (
	"fmt"
	"sync"
	"time"

	"gemstore/internal/models"
)

// MockSessionRepository is an in-memory implementation of SessionRepository.
// It is process-local and only suitable for tests and single-instance demos.
type MockSessionRepository struct {
	sessions map[string]models.Session
	mu       sync.RWMutex
	now      func() time.Time
}

// NewMockSessionRepository creates a new instance of MockSessionRepository.
func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{
		sessions: make(map[string]models.Session),
		now:      time.Now,
	}
}

// SetClock overrides the time source used for expiry checks.
func (r *MockSessionRepository) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// Create stores a session.
func (r *MockSessionRepository) Create(session *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.Token] = *session
	return nil
}

// Get returns a live session by token.
func (r *MockSessionRepository) Get(token string) (*models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[token]
	if !ok || session.Expired(r.now()) {
		return nil, fmt.Errorf("session: %w", ErrNotFound)
	}
	return &session, nil
}

// Delete removes a session; unknown tokens are ignored.
func (r *MockSessionRepository) Delete(token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, token)
	return nil
}

// DeleteByUser removes the user's sessions other than keep.
func (r *MockSessionRepository) DeleteByUser(userID uint, keep string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for token, session := range r.sessions {
		if session.UserID == userID && token != keep {
			delete(r.sessions, token)
		}
	}
	return nil
}
