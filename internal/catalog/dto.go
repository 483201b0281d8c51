package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orderflow/orderflow-backend/pkg/db/models"
)

// ProductDTO is the read-model served to clients and stored in the cache.
type ProductDTO struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	Description   *string         `json:"description,omitempty"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	CategoryID    *uuid.UUID      `json:"category_id,omitempty"`
	CategoryName  *string         `json:"category_name,omitempty"`
	ImageURL      *string         `json:"image_url,omitempty"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ProductPage is the cached payload for one active-product listing page.
type ProductPage struct {
	Items      []ProductDTO `json:"items"`
	TotalCount int64        `json:"total_count"`
	Page       int          `json:"page"`
	Size       int          `json:"size"`
}

// CreateProductInput carries the fields accepted on product creation.
type CreateProductInput struct {
	Name          string
	Description   *string
	Price         decimal.Decimal
	StockQuantity int
	CategoryID    *uuid.UUID
	ImageURL      *string
	IsActive      *bool
}

// UpdateProductInput carries the fields accepted on product update. Nil
// fields are left untouched.
type UpdateProductInput struct {
	Name          *string
	Description   *string
	Price         *decimal.Decimal
	StockQuantity *int
	CategoryID    *uuid.UUID
	ImageURL      *string
	IsActive      *bool
}

func toDTO(product *models.Product) ProductDTO {
	dto := ProductDTO{
		ID:            product.ID,
		Name:          product.Name,
		Description:   product.Description,
		Price:         product.Price,
		StockQuantity: product.StockQuantity,
		CategoryID:    product.CategoryID,
		ImageURL:      product.ImageURL,
		IsActive:      product.IsActive,
		CreatedAt:     product.CreatedAt,
		UpdatedAt:     product.UpdatedAt,
	}
	if product.Category != nil {
		name := product.Category.Name
		dto.CategoryName = &name
	}
	return dto
}

func toDTOs(products []models.Product) []ProductDTO {
	dtos := make([]ProductDTO, 0, len(products))
	for i := range products {
		dtos = append(dtos, toDTO(&products[i]))
	}
	return dtos
}
