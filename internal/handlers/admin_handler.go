package handlers

import (
	"gemstore/internal/middleware"
	"gemstore/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// AdminHandler handles the admin side of order requests.
type AdminHandler struct {
	service *services.OrderRequestService
	logger  logrus.FieldLogger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(service *services.OrderRequestService, logger logrus.FieldLogger) *AdminHandler {
	return &AdminHandler{service: service, logger: logger}
}

// RegisterRoutes registers the admin routes.
func (h *AdminHandler) RegisterRoutes(router fiber.Router) {
	adminRoutes := router.Group("/admin", middleware.RequireAdmin())
	adminRoutes.Get("/order-requests", h.HandleGetAllOrderRequests)
	adminRoutes.Post("/order-requests/:id/decide", h.HandleDecide)
}

// HandleGetAllOrderRequests lists every request with requester details.
func (h *AdminHandler) HandleGetAllOrderRequests(c *fiber.Ctx) error {
	requests, err := h.service.ListAll()
	if err != nil {
		return err
	}
	return c.JSON(requests)
}

// HandleDecide accepts or declines a pending request.
func (h *AdminHandler) HandleDecide(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var decision services.Decision
	if err := parseBody(c, &decision); err != nil {
		return err
	}

	request, err := h.service.Decide(id, decision)
	if err != nil {
		return err
	}
	h.logger.WithFields(logrus.Fields{
		"order_request_id": request.ID,
		"status":           request.Status,
		"admin_id":         middleware.PrincipalFrom(c).User.ID,
	}).Info("admin decision recorded")
	return c.JSON(request)
}
