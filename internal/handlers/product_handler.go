package handlers

import (
	"strconv"
	"strings"

	"gemstore/internal/apperrors"
	"gemstore/internal/middleware"
	"gemstore/internal/repositories"
	"gemstore/internal/services"

	"github.com/gofiber/fiber/v2"
)

// ProductHandler handles HTTP requests for the catalog.
type ProductHandler struct {
	service *services.ProductService
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService) *ProductHandler {
	return &ProductHandler{service: service}
}

// RegisterRoutes registers the product routes. Reads are public; writes need
// the admin.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleGetProducts)
	productRoutes.Get("/:id", h.HandleGetProductByID)
	productRoutes.Post("/", middleware.RequireAdmin(), h.HandleCreateProduct)
	productRoutes.Put("/:id", middleware.RequireAdmin(), h.HandleUpdateProduct)
	productRoutes.Delete("/:id", middleware.RequireAdmin(), h.HandleDeleteProduct)
}

// HandleGetProducts lists the catalog. Optional query parameters: category,
// featured and q (text search).
func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	filter := repositories.ProductFilter{
		Category: strings.TrimSpace(c.Query("category")),
		Query:    c.Query("q"),
	}
	if raw := c.Query("featured"); raw != "" {
		featured, err := strconv.ParseBool(raw)
		if err != nil {
			return apperrors.Validation("featured", "featured must be true or false")
		}
		filter.Featured = &featured
	}

	products, err := h.service.List(filter)
	if err != nil {
		return err
	}
	return c.JSON(products)
}

// HandleGetProductByID returns one product.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	product, err := h.service.Get(id)
	if err != nil {
		return err
	}
	return c.JSON(product)
}

// HandleCreateProduct adds a product.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var input services.ProductInput
	if err := parseBody(c, &input); err != nil {
		return err
	}
	product, err := h.service.Create(input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleUpdateProduct applies a partial update.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var patch services.ProductPatch
	if err := parseBody(c, &patch); err != nil {
		return err
	}
	product, err := h.service.Update(id, patch)
	if err != nil {
		return err
	}
	return c.JSON(product)
}

// HandleDeleteProduct removes a product.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.service.Delete(id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
