package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/orderflow/orderflow-backend/pkg/db/models"
	pkgerrors "github.com/orderflow/orderflow-backend/pkg/errors"
	"github.com/orderflow/orderflow-backend/pkg/logger"
	"github.com/orderflow/orderflow-backend/pkg/pagination"
)

// Service exposes catalog reads with cache acceleration plus admin writes.
type Service interface {
	GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error)
	ListActiveProducts(ctx context.Context, params pagination.Params) (*ProductPage, error)
	ListProductsByCategory(ctx context.Context, categoryID uuid.UUID) ([]ProductDTO, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, productID uuid.UUID) error
}

type service struct {
	repo  *Repository
	cache *Cache
	logg  *logger.Logger
}

// NewService constructs the catalog service. The cache may be nil, in which
// case every read goes straight to the database.
func NewService(repo *Repository, cache *Cache, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo, cache: cache, logg: logg}, nil
}

// GetProduct serves a single product, cache first.
func (s *service) GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error) {
	if dto, ok := s.cache.GetProduct(ctx, productID.String()); ok {
		return dto, nil
	}

	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}

	dto := toDTO(product)
	s.cache.SetProduct(ctx, dto)
	return &dto, nil
}

// ListActiveProducts serves one page of active products, cache first. The
// pagination params are normalized before the cache key is built so every
// spelling of the same page maps to one key.
func (s *service) ListActiveProducts(ctx context.Context, params pagination.Params) (*ProductPage, error) {
	params = pagination.Normalize(params.Page, params.Size, params.SortField, params.SortDir)

	key := s.cache.PageKey(params.Page, params.Size, params.SortField, params.SortDir)
	if key != "" {
		if page, ok := s.cache.GetPage(ctx, key); ok {
			return page, nil
		}
	}

	rows, total, err := s.repo.ListActive(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list active products")
	}

	page := ProductPage{
		Items:      toDTOs(rows),
		TotalCount: total,
		Page:       params.Page,
		Size:       params.Size,
	}
	if key != "" {
		s.cache.SetPage(ctx, key, page)
	}
	return &page, nil
}

// ListProductsByCategory serves the active products of one category, cache
// first. An empty result is not cached; the category may simply not exist yet
// and a stale empty list would hide its first products.
func (s *service) ListProductsByCategory(ctx context.Context, categoryID uuid.UUID) ([]ProductDTO, error) {
	if dtos, ok := s.cache.GetCategoryList(ctx, categoryID.String()); ok {
		return dtos, nil
	}

	if _, err := s.repo.FindCategoryByID(ctx, categoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load category")
	}

	rows, err := s.repo.ListByCategory(ctx, categoryID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list category products")
	}

	dtos := toDTOs(rows)
	if len(dtos) > 0 {
		s.cache.SetCategoryList(ctx, categoryID.String(), dtos)
	}
	return dtos, nil
}

// ListCategories returns every category for storefront navigation.
func (s *service) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list categories")
	}
	return rows, nil
}

// CreateProduct inserts a product and evicts listing caches.
func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	if input.Price.LessThan(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	if input.StockQuantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock_quantity cannot be negative")
	}
	if input.CategoryID != nil {
		if _, err := s.repo.FindCategoryByID(ctx, *input.CategoryID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "category does not exist")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load category")
		}
	}

	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}
	product := &models.Product{
		Name:          input.Name,
		Description:   input.Description,
		Price:         input.Price,
		StockQuantity: input.StockQuantity,
		CategoryID:    input.CategoryID,
		ImageURL:      input.ImageURL,
		IsActive:      active,
	}

	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
	}

	s.cache.InvalidateListings(ctx)

	loaded, err := s.repo.FindByID(ctx, created.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reload product")
	}
	dto := toDTO(loaded)
	return &dto, nil
}

// UpdateProduct applies the provided fields and evicts the product key plus
// every listing key.
func (s *service) UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}

	if input.Name != nil {
		product.Name = *input.Name
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.Price != nil {
		if input.Price.LessThan(decimal.Zero) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
		}
		product.Price = *input.Price
	}
	if input.StockQuantity != nil {
		if *input.StockQuantity < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock_quantity cannot be negative")
		}
		product.StockQuantity = *input.StockQuantity
	}
	if input.CategoryID != nil {
		if _, err := s.repo.FindCategoryByID(ctx, *input.CategoryID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "category does not exist")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load category")
		}
		product.CategoryID = input.CategoryID
		product.Category = nil
	}
	if input.ImageURL != nil {
		product.ImageURL = input.ImageURL
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	if _, err := s.repo.Update(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product")
	}

	s.cache.InvalidateProduct(ctx, productID.String())

	loaded, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reload product")
	}
	dto := toDTO(loaded)
	return &dto, nil
}

// DeleteProduct removes a product and evicts its cache entries.
func (s *service) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}

	if err := s.repo.Delete(ctx, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete product")
	}

	s.cache.InvalidateProduct(ctx, productID.String())
	return nil
}
