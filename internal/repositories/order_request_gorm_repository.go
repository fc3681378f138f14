package repositories

import (
	"errors"
	"fmt"
	"time"

	"gemstore/internal/models"

	"gorm.io/gorm"
)

// GORMOrderRequestRepository is a GORM implementation of OrderRequestRepository.
type GORMOrderRequestRepository struct {
	db *gorm.DB
}

// NewGORMOrderRequestRepository creates a new instance of GORMOrderRequestRepository.
func NewGORMOrderRequestRepository(db *gorm.DB) *GORMOrderRequestRepository {
	return &GORMOrderRequestRepository{db: db}
}

// Create inserts a new order request.
func (r *GORMOrderRequestRepository) Create(request *models.OrderRequest) error {
	if err := r.db.Omit("User").Create(request).Error; err != nil {
		return fmt.Errorf("failed to create order request: %w", err)
	}
	return nil
}

// GetByID retrieves one order request.
func (r *GORMOrderRequestRepository) GetByID(id uint) (*models.OrderRequest, error) {
	var request models.OrderRequest
	if err := r.db.First(&request, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order request with ID %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order request %d: %w", id, err)
	}
	return &request, nil
}

// ListByUser returns the requests owned by userID, newest first.
func (r *GORMOrderRequestRepository) ListByUser(userID uint) ([]models.OrderRequest, error) {
	requests := []models.OrderRequest{}
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Find(&requests).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list order requests of user %d: %w", userID, err)
	}
	return requests, nil
}

// ListAll returns every request with the requester's name and email.
func (r *GORMOrderRequestRepository) ListAll() ([]models.OrderRequestView, error) {
	views := []models.OrderRequestView{}
	err := r.db.Table("order_requests").
		Select("order_requests.*, users.name AS user_name, users.email AS user_email").
		Joins("LEFT JOIN users ON users.id = order_requests.user_id").
		Order("order_requests.created_at DESC").Order("order_requests.id DESC").
		Scan(&views).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list order requests: %w", err)
	}
	return views, nil
}

// Decide applies the decision only while the row is still pending, so two
// concurrent decisions cannot both succeed.
func (r *GORMOrderRequestRepository) Decide(id uint, status models.OrderRequestStatus, adminMessage string, decidedAt time.Time) (*models.OrderRequest, error) {
	res := r.db.Model(&models.OrderRequest{}).
		Where("id = ? AND status = ?", id, models.StatusPending).
		Updates(map[string]interface{}{
			"status":        status,
			"admin_message": adminMessage,
			"decided_at":    decidedAt,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to decide order request %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetByID(id); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("order request %d: %w", id, ErrNotPending)
	}
	return r.GetByID(id)
}
