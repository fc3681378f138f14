package repositories

import (
	"gemstore/internal/models"
)

// ProductFilter narrows a catalog listing. Zero values match everything.
type ProductFilter struct {
	Category string
	Featured *bool
	Query    string // case-insensitive substring of name or description
}

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	GetAll(filter ProductFilter) ([]models.Product, error)
	GetByID(id uint) (*models.Product, error)
	Create(product *models.Product) error
	Update(product *models.Product) error
	Delete(id uint) error
	Count() (int64, error)
}
