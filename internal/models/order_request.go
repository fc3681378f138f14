package models

import "time"

// OrderRequestStatus is the lifecycle state of an order request.
type OrderRequestStatus string

const (
	StatusPending  OrderRequestStatus = "pending"
	StatusAccepted OrderRequestStatus = "accepted"
	StatusDeclined OrderRequestStatus = "declined"
)

// Terminal reports whether no further transition is allowed out of s.
func (s OrderRequestStatus) Terminal() bool {
	return s == StatusAccepted || s == StatusDeclined
}

// OrderRequest is a customer's non-binding purchase intent awaiting an admin
// decision. Product display fields are captured when the request is created so
// that deleting a product does not erase history.
type OrderRequest struct {
	ID              uint               `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID          uint               `json:"userId" gorm:"index;not null"`
	ProductID       uint               `json:"productId" gorm:"index;not null"`
	Quantity        int                `json:"quantity" gorm:"not null;check:quantity > 0"`
	CustomerMessage string             `json:"message" gorm:"type:text"`
	Status          OrderRequestStatus `json:"status" gorm:"type:varchar(16);index;not null;default:'pending'"`
	AdminMessage    string             `json:"adminMessage" gorm:"type:text"`
	DecidedAt       *time.Time         `json:"decidedAt"`
	CreatedAt       time.Time          `json:"createdAt" gorm:"index"`

	ProductName     string `json:"productName" gorm:"type:varchar(200)"`
	ProductImageURL string `json:"productImageUrl" gorm:"type:text"`
	ProductPrice    int64  `json:"productPrice"`

	User User `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

// OrderRequestView is an order request joined with its requester, as listed to
// admins.
type OrderRequestView struct {
	OrderRequest
	UserName  string `json:"userName"`
	UserEmail string `json:"userEmail"`
}

// Event types published for order requests.
const (
	EventOrderRequestCreated = "order_request.created"
	EventOrderRequestDecided = "order_request.decided"
)

// OrderRequestEvent is the message published when an order request changes.
type OrderRequestEvent struct {
	Type           string             `json:"type"`
	OrderRequestID uint               `json:"orderRequestId"`
	UserID         uint               `json:"userId"`
	ProductID      uint               `json:"productId"`
	Quantity       int                `json:"quantity"`
	Status         OrderRequestStatus `json:"status"`
	AdminMessage   string             `json:"adminMessage,omitempty"`
	OccurredAt     time.Time          `json:"occurredAt"`
}

// NewOrderRequestEvent describes r as an event of the given type.
func NewOrderRequestEvent(eventType string, r *OrderRequest, at time.Time) OrderRequestEvent {
	return OrderRequestEvent{
		Type:           eventType,
		OrderRequestID: r.ID,
		UserID:         r.UserID,
		ProductID:      r.ProductID,
		Quantity:       r.Quantity,
		Status:         r.Status,
		AdminMessage:   r.AdminMessage,
		OccurredAt:     at,
	}
}
