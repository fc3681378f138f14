package repositories

import "gemstore/internal/models"

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(user *models.User) error
	GetByEmail(email string) (*models.User, error)
	GetByID(id uint) (*models.User, error)
	Update(user *models.User) error
	// SetExclusiveAdmin marks the user with email as admin and every other user
	// as non-admin, returning the number of rows touched.
	SetExclusiveAdmin(email string) (int64, error)
}
