package repositories

import (
	"time"

	"gemstore/internal/models"
)

// OrderRequestRepository defines the interface for order request data access.
// Order requests are never deleted.
type OrderRequestRepository interface {
	Create(request *models.OrderRequest) error
	GetByID(id uint) (*models.OrderRequest, error)
	// ListByUser returns the user's requests, newest first.
	ListByUser(userID uint) ([]models.OrderRequest, error)
	// ListAll returns every request joined with its requester, newest first.
	ListAll() ([]models.OrderRequestView, error)
	// Decide moves a pending request to status in one conditional write.
	// It returns ErrNotFound for an unknown id and ErrNotPending when the
	// request was already decided.
	Decide(id uint, status models.OrderRequestStatus, adminMessage string, decidedAt time.Time) (*models.OrderRequest, error)
}
