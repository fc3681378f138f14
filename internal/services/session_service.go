package services

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"gemstore/internal/models"
	"gemstore/internal/repositories"
)

// sessionTokenBytes is the amount of randomness in a session token (192 bits).
const sessionTokenBytes = 24

// SessionService issues and resolves opaque session tokens.
type SessionService struct {
	repo repositories.SessionRepository
	ttl  time.Duration
	now  func() time.Time
}

// NewSessionService creates a new SessionService with the given lifetime.
func NewSessionService(repo repositories.SessionRepository, ttl time.Duration) *SessionService {
	return &SessionService{repo: repo, ttl: ttl, now: time.Now}
}

// TTL returns the lifetime of newly created sessions.
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// Create records a new session for userID and returns it.
func (s *SessionService) Create(userID uint) (*models.Session, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}
	now := s.now()
	session := &models.Session{
		Token:     hex.EncodeToString(buf),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.repo.Create(session); err != nil {
		return nil, err
	}
	return session, nil
}

// Resolve returns the user owning token. ok is false for unknown or expired
// tokens.
func (s *SessionService) Resolve(token string) (userID uint, ok bool, err error) {
	if token == "" {
		return 0, false, nil
	}
	session, err := s.repo.Get(token)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	if session.Expired(s.now()) {
		return 0, false, nil
	}
	return session.UserID, true, nil
}

// Destroy removes a session. Unknown tokens are ignored.
func (s *SessionService) Destroy(token string) error {
	if token == "" {
		return nil
	}
	return s.repo.Delete(token)
}

// DestroyAllForUser revokes every session of userID except keep.
func (s *SessionService) DestroyAllForUser(userID uint, keep string) error {
	return s.repo.DeleteByUser(userID, keep)
}
