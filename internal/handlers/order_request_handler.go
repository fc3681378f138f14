package handlers

import (
	"gemstore/internal/middleware"
	"gemstore/internal/services"

	"github.com/gofiber/fiber/v2"
)

// OrderRequestHandler handles the customer side of order requests.
type OrderRequestHandler struct {
	service *services.OrderRequestService
}

// NewOrderRequestHandler creates a new OrderRequestHandler.
func NewOrderRequestHandler(service *services.OrderRequestService) *OrderRequestHandler {
	return &OrderRequestHandler{service: service}
}

// RegisterRoutes registers the order request routes; all need a session.
func (h *OrderRequestHandler) RegisterRoutes(router fiber.Router) {
	requestRoutes := router.Group("/order-requests", middleware.RequireUser())
	requestRoutes.Post("/", h.HandleCreateOrderRequest)
	requestRoutes.Get("/", h.HandleGetMyOrderRequests)
}

// HandleCreateOrderRequest submits a request for one product.
func (h *OrderRequestHandler) HandleCreateOrderRequest(c *fiber.Ctx) error {
	var input services.CreateOrderRequest
	if err := parseBody(c, &input); err != nil {
		return err
	}
	request, err := h.service.Create(middleware.PrincipalFrom(c).User.ID, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(request)
}

// HandleGetMyOrderRequests lists the caller's own requests, newest first.
func (h *OrderRequestHandler) HandleGetMyOrderRequests(c *fiber.Ctx) error {
	requests, err := h.service.ListMine(middleware.PrincipalFrom(c).User.ID)
	if err != nil {
		return err
	}
	return c.JSON(requests)
}
