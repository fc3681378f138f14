package services

import (
	"errors"
	"fmt"
	"strings"

	"gemstore/internal/apperrors"
	"gemstore/internal/models"
	"gemstore/internal/repositories"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// ProductInput is the body of a product creation.
type ProductInput struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"required"`
	Price       *int64 `json:"price" validate:"required,gte=0"`
	ImageURL    string `json:"imageUrl" validate:"required"`
	Category    string `json:"category" validate:"required,max=50"`
	IsFeatured  bool   `json:"isFeatured"`
}

// ProductPatch is a partial product update. Nil fields are left unchanged.
type ProductPatch struct {
	Name        *string `json:"name" validate:"omitempty,max=200"`
	Description *string `json:"description"`
	Price       *int64  `json:"price" validate:"omitempty,gte=0"`
	ImageURL    *string `json:"imageUrl"`
	Category    *string `json:"category" validate:"omitempty,max=50"`
	IsFeatured  *bool   `json:"isFeatured"`
}

// ProductService handles business logic related to the catalog.
type ProductService struct {
	repo     repositories.ProductRepository
	validate *validator.Validate
	logger   logrus.FieldLogger
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository, logger logrus.FieldLogger) *ProductService {
	return &ProductService{
		repo:     repo,
		validate: newValidator(),
		logger:   logger,
	}
}

// List returns the products matching filter, ordered by ID.
func (s *ProductService) List(filter repositories.ProductFilter) ([]models.Product, error) {
	return s.repo.GetAll(filter)
}

// Get retrieves a single product.
func (s *ProductService) Get(id uint) (*models.Product, error) {
	product, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.NotFound("Product not found")
		}
		return nil, err
	}
	return product, nil
}

// Create validates input and adds a product to the catalog.
func (s *ProductService) Create(input ProductInput) (*models.Product, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Category = strings.TrimSpace(input.Category)
	if err := s.validate.Struct(input); err != nil {
		return nil, validationError(err)
	}

	product := &models.Product{
		Name:        input.Name,
		Description: input.Description,
		Price:       *input.Price,
		ImageURL:    input.ImageURL,
		Category:    input.Category,
		IsFeatured:  input.IsFeatured,
	}
	if err := s.repo.Create(product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"product_id": product.ID, "name": product.Name}).Info("product created")
	return product, nil
}

// Update applies patch to an existing product.
func (s *ProductService) Update(id uint, patch ProductPatch) (*models.Product, error) {
	if err := s.validate.Struct(patch); err != nil {
		return nil, validationError(err)
	}

	product, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apperrors.Validation("name", "Name cannot be empty")
		}
		product.Name = name
	}
	if patch.Description != nil {
		if *patch.Description == "" {
			return nil, apperrors.Validation("description", "Description cannot be empty")
		}
		product.Description = *patch.Description
	}
	if patch.Price != nil {
		product.Price = *patch.Price
	}
	if patch.ImageURL != nil {
		if *patch.ImageURL == "" {
			return nil, apperrors.Validation("imageUrl", "Image URL cannot be empty")
		}
		product.ImageURL = *patch.ImageURL
	}
	if patch.Category != nil {
		category := strings.TrimSpace(*patch.Category)
		if category == "" {
			return nil, apperrors.Validation("category", "Category cannot be empty")
		}
		product.Category = category
	}
	if patch.IsFeatured != nil {
		product.IsFeatured = *patch.IsFeatured
	}

	if err := s.repo.Update(product); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.NotFound("Product not found")
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return product, nil
}

// Delete removes a product. Order requests keep their snapshot of it.
func (s *ProductService) Delete(id uint) error {
	if err := s.repo.Delete(id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperrors.NotFound("Product not found")
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}
	s.logger.WithField("product_id", id).Info("product deleted")
	return nil
}

// DefaultCatalog is the starter collection loaded into an empty store.
func DefaultCatalog() []models.Product {
	return []models.Product{
		{
			Name:        "The Royal Emerald Necklace",
			Description: "A stunning masterpiece featuring a 5-carat Colombian emerald surrounded by diamonds.",
			Price:       1500000,
			ImageURL:    "https://images.unsplash.com/photo-1599643478518-17488fbbcd75?q=80&w=2574&auto=format&fit=crop",
			Category:    "Necklaces",
			IsFeatured:  true,
		},
		{
			Name:        "Sapphire Drop Earrings",
			Description: "Elegant drop earrings with deep blue sapphires set in 18k white gold.",
			Price:       450000,
			ImageURL:    "https://images.unsplash.com/photo-1535632066927-ab7c9ab60908?q=80&w=2683&auto=format&fit=crop",
			Category:    "Earrings",
			IsFeatured:  true,
		},
		{
			Name:        "Vintage Gold Signet Ring",
			Description: "A classic heirloom piece. 24k solid gold with intricate engraving.",
			Price:       220000,
			ImageURL:    "https://images.unsplash.com/photo-1605100804763-247f67b3557e?q=80&w=2670&auto=format&fit=crop",
			Category:    "Rings",
		},
		{
			Name:        "Diamond Tennis Bracelet",
			Description: "Timeless elegance. 3 carats of brilliant cut diamonds.",
			Price:       850000,
			ImageURL:    "https://images.unsplash.com/photo-1611591437281-460bfbe1220a?q=80&w=2670&auto=format&fit=crop",
			Category:    "Bracelets",
			IsFeatured:  true,
		},
	}
}

// SeedIfEmpty loads DefaultCatalog when the catalog has no products and
// returns how many were added.
func (s *ProductService) SeedIfEmpty() (int, error) {
	count, err := s.repo.Count()
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	products := DefaultCatalog()
	for i := range products {
		if err := s.repo.Create(&products[i]); err != nil {
			return i, fmt.Errorf("failed to seed product %q: %w", products[i].Name, err)
		}
		s.logger.WithFields(logrus.Fields{"product_id": products[i].ID, "name": products[i].Name}).Debug("seeded product")
	}
	s.logger.WithField("count", len(products)).Info("catalog seeded")
	return len(products), nil
}
