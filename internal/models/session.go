package models

import "time"

// Session maps an opaque token to the user it authenticates.
type Session struct {
	Token     string    `gorm:"primaryKey;type:varchar(64)"`
	UserID    uint      `gorm:"index;not null"`
	CreatedAt time.Time `gorm:"not null"`
	ExpiresAt time.Time `gorm:"index;not null"`

	User User `gorm:"constraint:OnDelete:CASCADE"`
}

// Expired reports whether the session is no longer valid at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
