package repositories

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"gemstore/internal/models"
)

// MockOrderRequestRepository is an in-memory implementation of
// OrderRequestRepository. The user repository supplies requester details for
// ListAll.
type MockOrderRequestRepository struct {
	requests map[uint]models.OrderRequest
	users    UserRepository
	nextID   uint
	mu       sync.RWMutex
}

// NewMockOrderRequestRepository creates a new instance of MockOrderRequestRepository.
func NewMockOrderRequestRepository(users UserRepository) *MockOrderRequestRepository {
	return &MockOrderRequestRepository{
		requests: make(map[uint]models.OrderRequest),
		users:    users,
		nextID:   1,
	}
}

// Create adds a new order request.
func (r *MockOrderRequestRepository) Create(request *models.OrderRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	request.ID = r.nextID
	r.nextID++
	if request.CreatedAt.IsZero() {
		request.CreatedAt = time.Now()
	}
	r.requests[request.ID] = *request
	return nil
}

// GetByID returns an order request by its ID.
func (r *MockOrderRequestRepository) GetByID(id uint) (*models.OrderRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	request, ok := r.requests[id]
	if !ok {
		return nil, fmt.Errorf("order request with ID %d: %w", id, ErrNotFound)
	}
	return &request, nil
}

// ListByUser returns the user's requests, newest first.
func (r *MockOrderRequestRepository) ListByUser(userID uint) ([]models.OrderRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := []models.OrderRequest{}
	for _, request := range r.requests {
		if request.UserID == userID {
			list = append(list, request)
		}
	}
	sortNewestFirst(list)
	return list, nil
}

// ListAll returns every request joined with its requester, newest first.
func (r *MockOrderRequestRepository) ListAll() ([]models.OrderRequestView, error) {
	r.mu.RLock()
	list := make([]models.OrderRequest, 0, len(r.requests))
	for _, request := range r.requests {
		list = append(list, request)
	}
	r.mu.RUnlock()
	sortNewestFirst(list)

	views := make([]models.OrderRequestView, 0, len(list))
	for _, request := range list {
		view := models.OrderRequestView{OrderRequest: request}
		if r.users != nil {
			user, err := r.users.GetByID(request.UserID)
			switch {
			case err == nil:
				view.UserName = user.Name
				view.UserEmail = user.Email
			case !errors.Is(err, ErrNotFound):
				return nil, err
			}
		}
		views = append(views, view)
	}
	return views, nil
}

// Decide applies a decision to a pending request under the write lock.
func (r *MockOrderRequestRepository) Decide(id uint, status models.OrderRequestStatus, adminMessage string, decidedAt time.Time) (*models.OrderRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	request, ok := r.requests[id]
	if !ok {
		return nil, fmt.Errorf("order request with ID %d: %w", id, ErrNotFound)
	}
	if request.Status != models.StatusPending {
		return nil, fmt.Errorf("order request %d: %w", id, ErrNotPending)
	}
	request.Status = status
	request.AdminMessage = adminMessage
	request.DecidedAt = &decidedAt
	r.requests[id] = request
	return &request, nil
}

func sortNewestFirst(list []models.OrderRequest) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID > list[j].ID
	})
}
