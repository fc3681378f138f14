package repositories

import "gemstore/internal/models"

// SessionRepository defines the interface for session data access.
type SessionRepository interface {
	Create(session *models.Session) error
	// Get returns the live session for token. Missing and expired sessions
	// both yield ErrNotFound.
	Get(token string) (*models.Session, error)
	// Delete removes a session. Deleting an unknown token is not an error.
	Delete(token string) error
	// DeleteByUser removes every session of userID except the one named by keep.
	DeleteByUser(userID uint, keep string) error
}
