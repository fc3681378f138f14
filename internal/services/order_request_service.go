package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gemstore/internal/apperrors"
	"gemstore/internal/metrics"
	"gemstore/internal/models"
	"gemstore/internal/repositories"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// EventPublisher receives order request lifecycle events.
type EventPublisher interface {
	PublishOrderRequestEvent(event models.OrderRequestEvent) error
}

// CreateOrderRequest is the body of an order request submission.
type CreateOrderRequest struct {
	ProductID uint   `json:"productId" validate:"required"`
	Quantity  *int   `json:"quantity"`
	Message   string `json:"message" validate:"max=2000"`
}

// Decision is an admin's verdict on a pending order request.
type Decision struct {
	Status       models.OrderRequestStatus `json:"status"`
	AdminMessage *string                   `json:"adminMessage" validate:"omitempty,max=2000"`
}

// OrderRequestService runs the order request lifecycle: submission by users
// and a single accept or decline decision by the admin.
type OrderRequestService struct {
	requests  repositories.OrderRequestRepository
	products  repositories.ProductRepository
	publisher EventPublisher
	validate  *validator.Validate
	logger    logrus.FieldLogger
	now       func() time.Time
}

// NewOrderRequestService creates a new OrderRequestService. publisher may be
// nil, in which case no events are emitted.
func NewOrderRequestService(requests repositories.OrderRequestRepository, products repositories.ProductRepository, publisher EventPublisher, logger logrus.FieldLogger) *OrderRequestService {
	return &OrderRequestService{
		requests:  requests,
		products:  products,
		publisher: publisher,
		validate:  newValidator(),
		logger:    logger,
		now:       time.Now,
	}
}

// Create records a pending request for one product on behalf of userID.
// Quantity defaults to 1.
func (s *OrderRequestService) Create(userID uint, input CreateOrderRequest) (*models.OrderRequest, error) {
	if input.ProductID == 0 {
		return nil, apperrors.Validation("productId", "productId is required")
	}
	if err := s.validate.Struct(input); err != nil {
		return nil, validationError(err)
	}
	quantity := 1
	if input.Quantity != nil {
		quantity = *input.Quantity
	}
	if quantity < 1 {
		return nil, apperrors.Validation("quantity", "quantity must be at least 1")
	}

	product, err := s.products.GetByID(input.ProductID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.NotFound("Product not found")
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}

	request := &models.OrderRequest{
		UserID:          userID,
		ProductID:       product.ID,
		Quantity:        quantity,
		CustomerMessage: strings.TrimSpace(input.Message),
		Status:          models.StatusPending,
		CreatedAt:       s.now(),
		ProductName:     product.Name,
		ProductImageURL: product.ImageURL,
		ProductPrice:    product.Price,
	}
	if err := s.requests.Create(request); err != nil {
		return nil, fmt.Errorf("failed to create order request: %w", err)
	}

	metrics.OrderRequestCreated()
	s.logger.WithFields(logrus.Fields{
		"order_request_id": request.ID,
		"user_id":          userID,
		"product_id":       product.ID,
		"quantity":         quantity,
	}).Info("order request created")
	s.publish(models.EventOrderRequestCreated, request)
	return request, nil
}

// ListMine returns the caller's requests, newest first.
func (s *OrderRequestService) ListMine(userID uint) ([]models.OrderRequest, error) {
	return s.requests.ListByUser(userID)
}

// ListAll returns every request with requester details, newest first.
func (s *OrderRequestService) ListAll() ([]models.OrderRequestView, error) {
	return s.requests.ListAll()
}

// Get returns one request.
func (s *OrderRequestService) Get(id uint) (*models.OrderRequest, error) {
	request, err := s.requests.GetByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.NotFound("Order request not found")
		}
		return nil, err
	}
	return request, nil
}

// Decide moves a pending request to accepted or declined. A request that was
// already decided is left untouched and a conflict is returned.
func (s *OrderRequestService) Decide(id uint, decision Decision) (*models.OrderRequest, error) {
	status := decision.Status
	if !status.Terminal() {
		return nil, apperrors.Validation("status", "status must be 'accepted' or 'declined'")
	}
	if err := s.validate.Struct(decision); err != nil {
		return nil, validationError(err)
	}

	message := ""
	if decision.AdminMessage != nil {
		message = strings.TrimSpace(*decision.AdminMessage)
	}
	if message == "" {
		message = defaultDecisionMessage(status)
	}

	request, err := s.requests.Decide(id, status, message, s.now())
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return nil, apperrors.NotFound("Order request not found")
	case errors.Is(err, repositories.ErrNotPending):
		return nil, apperrors.Conflict("Order request already decided")
	case err != nil:
		return nil, fmt.Errorf("failed to decide order request: %w", err)
	}

	metrics.OrderRequestDecided(string(status))
	s.logger.WithFields(logrus.Fields{
		"order_request_id": request.ID,
		"status":           status,
	}).Info("order request decided")
	s.publish(models.EventOrderRequestDecided, request)
	return request, nil
}

func defaultDecisionMessage(status models.OrderRequestStatus) string {
	if status == models.StatusAccepted {
		return "Approved"
	}
	return "Declined"
}

// publish is best-effort: the state change already happened.
func (s *OrderRequestService) publish(eventType string, request *models.OrderRequest) {
	if s.publisher == nil {
		return
	}
	event := models.NewOrderRequestEvent(eventType, request, s.now())
	if err := s.publisher.PublishOrderRequestEvent(event); err != nil {
		metrics.EventPublishFailed()
		s.logger.WithError(err).WithField("order_request_id", request.ID).Warn("failed to publish order request event")
	}
}
