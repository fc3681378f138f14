package models

import "time"

// Categories offered by the storefront UI. The server stores any category text.
var Categories = []string{"Necklaces", "Rings", "Earrings", "Bracelets", "Watches"}

// Product is a catalog entry. Price is in minor currency units (cents).
type Product struct {
	ID          uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string    `json:"name" gorm:"type:varchar(200);not null"`
	Description string    `json:"description" gorm:"type:text;not null"`
	Price       int64     `json:"price" gorm:"not null;check:price >= 0"`
	ImageURL    string    `json:"imageUrl" gorm:"type:text;not null"`
	Category    string    `json:"category" gorm:"type:varchar(50);index;not null"`
	IsFeatured  bool      `json:"isFeatured" gorm:"not null;default:false"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
