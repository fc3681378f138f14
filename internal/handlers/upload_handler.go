package handlers

import (
	"fmt"

	"gemstore/internal/apperrors"
	"gemstore/internal/middleware"
	"gemstore/internal/services"

	"github.com/gofiber/fiber/v2"
)

// UploadHandler accepts product images from the admin.
type UploadHandler struct {
	service  *services.UploadService
	maxBytes int64
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(service *services.UploadService, maxBytes int64) *UploadHandler {
	return &UploadHandler{service: service, maxBytes: maxBytes}
}

// RegisterRoutes registers the upload route.
func (h *UploadHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/upload", middleware.RequireAdmin(), h.HandleUpload)
}

// HandleUpload stores the multipart field "image" and returns its URL.
func (h *UploadHandler) HandleUpload(c *fiber.Ctx) error {
	header, err := c.FormFile("image")
	if err != nil {
		return apperrors.Validation("image", "image file is required")
	}
	if header.Size > h.maxBytes {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, fmt.Sprintf("Image exceeds %d bytes", h.maxBytes))
	}

	file, err := header.Open()
	if err != nil {
		return fmt.Errorf("failed to open upload: %w", err)
	}
	defer file.Close()

	url, err := h.service.UploadImage(c.UserContext(), file)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"url": url})
}
