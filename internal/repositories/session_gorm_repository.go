package repositories

import (
	"errors"
	"fmt"
	"time"

	"gemstore/internal/models"

	"gorm.io/gorm"
)

// GORMSessionRepository stores sessions in the shared database so every server
// instance observes the same logins.
type GORMSessionRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGORMSessionRepository creates a new instance of GORMSessionRepository.
func NewGORMSessionRepository(db *gorm.DB) *GORMSessionRepository {
	return &GORMSessionRepository{db: db, now: time.Now}
}

// Create inserts a session row.
func (r *GORMSessionRepository) Create(session *models.Session) error {
	if err := r.db.Omit("User").Create(session).Error; err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// Get looks up an unexpired session by token.
func (r *GORMSessionRepository) Get(token string) (*models.Session, error) {
	var session models.Session
	err := r.db.Where("token = ? AND expires_at > ?", token, r.now()).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("session: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

// Delete removes a session by token. Unknown tokens are ignored.
func (r *GORMSessionRepository) Delete(token string) error {
	if err := r.db.Where("token = ?", token).Delete(&models.Session{}).Error; err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteByUser removes the user's other sessions.
func (r *GORMSessionRepository) DeleteByUser(userID uint, keep string) error {
	if err := r.db.Where("user_id = ? AND token <> ?", userID, keep).Delete(&models.Session{}).Error; err != nil {
		return fmt.Errorf("failed to delete sessions of user %d: %w", userID, err)
	}
	return nil
}

// DeleteExpired purges sessions whose expiry has passed.
func (r *GORMSessionRepository) DeleteExpired() (int64, error) {
	res := r.db.Where("expires_at <= ?", r.now()).Delete(&models.Session{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", res.Error)
	}
	return res.RowsAffected, nil
}
