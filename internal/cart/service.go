package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orderflow/orderflow-backend/pkg/db"
	"github.com/orderflow/orderflow-backend/pkg/db/models"
	pkgerrors "github.com/orderflow/orderflow-backend/pkg/errors"
)

// Service exposes the per-user cart aggregate.
type Service interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*CartDTO, error)
	UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*CartDTO, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*CartDTO, error)
	ClearCart(ctx context.Context, userID uuid.UUID) error
}

// productReader is the slice of the catalog repository the cart needs.
type productReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type service struct {
	repo     *Repository
	dbClient *db.Client
	products productReader
}

// NewService constructs the cart service.
func NewService(repo *Repository, dbClient *db.Client, products productReader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if products == nil {
		return nil, fmt.Errorf("product reader required")
	}
	return &service{repo: repo, dbClient: dbClient, products: products}, nil
}

// GetCart returns the caller's cart, creating an empty one on first touch.
func (s *service) GetCart(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	cart, err := s.getOrCreate(ctx, nil, s.repo, userID)
	if err != nil {
		return nil, err
	}
	return s.buildDTO(ctx, cart)
}

// AddItem adds quantity of the product to the cart, merging into an existing
// line. The stock check runs against the cumulative desired quantity, and the
// unit price snapshot taken at first add survives merges.
func (s *service) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*CartDTO, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		cart, err := s.getOrCreate(ctx, tx, txRepo, userID)
		if err != nil {
			return err
		}

		product, err := s.products.FindByID(ctx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
		}
		if !product.IsActive {
			return pkgerrors.New(pkgerrors.CodeConflict, "product is not available")
		}

		existing, err := txRepo.FindItem(ctx, cart.ID, productID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart item")
		}
		if err != nil {
			existing = nil
		}

		desired := quantity
		if existing != nil {
			desired += existing.Quantity
		}
		if product.StockQuantity < desired {
			return insufficientStock(productID, desired, product.StockQuantity)
		}

		if existing != nil {
			if err := txRepo.UpdateItemQuantity(ctx, existing.ID, desired); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: merge cart item")
			}
			return nil
		}

		return s.insertOrMergeLine(ctx, tx, txRepo, cart.ID, product, quantity)
	})
	if err != nil {
		return nil, err
	}

	return s.GetCart(ctx, userID)
}

// UpdateItemQuantity sets a line's quantity after re-checking stock. A line
// owned by another user reads as absent so IDs never leak across carts.
func (s *service) UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*CartDTO, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		item, err := s.ownedItem(ctx, txRepo, userID, itemID)
		if err != nil {
			return err
		}

		product, err := s.products.FindByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
		}
		if product.StockQuantity < quantity {
			return insufficientStock(item.ProductID, quantity, product.StockQuantity)
		}

		if err := txRepo.UpdateItemQuantity(ctx, item.ID, quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update cart item")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetCart(ctx, userID)
}

// RemoveItem deletes a line from the caller's cart.
func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*CartDTO, error) {
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		item, err := s.ownedItem(ctx, txRepo, userID, itemID)
		if err != nil {
			return err
		}
		if err := txRepo.DeleteItem(ctx, item.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete cart item")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetCart(ctx, userID)
}

// ClearCart removes every line from the caller's cart.
func (s *service) ClearCart(ctx context.Context, userID uuid.UUID) error {
	cart, err := s.getOrCreate(ctx, nil, s.repo, userID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteAllItems(ctx, cart.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: clear cart")
	}
	return nil
}

// getOrCreate loads the user's cart, creating one when absent. A concurrent
// create is tolerated by refetching after the unique violation. When called
// inside a transaction the insert runs under a savepoint, since Postgres
// aborts the whole transaction on a failed statement and the refetch would
// otherwise be unreachable.
func (s *service) getOrCreate(ctx context.Context, tx *gorm.DB, repo *Repository, userID uuid.UUID) (*models.Cart, error) {
	cart, err := repo.FindByUserID(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart")
	}

	if tx != nil {
		if err := tx.SavePoint("cart_create").Error; err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: savepoint")
		}
	}
	created, err := repo.Create(ctx, &models.Cart{UserID: userID})
	if err == nil {
		return created, nil
	}
	if !db.IsUniqueViolation(err, "idx_carts_user_id") {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create cart")
	}
	if tx != nil {
		if err := tx.RollbackTo("cart_create").Error; err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: rollback savepoint")
		}
	}
	cart, err = repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reload cart")
	}
	return cart, nil
}

// ownedItem loads the line and verifies it sits in the caller's cart.
// Ownership mismatches read as not-found.
func (s *service) ownedItem(ctx context.Context, repo *Repository, userID, itemID uuid.UUID) (*models.CartItem, error) {
	item, err := repo.FindItemByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart item")
	}

	cart, err := repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart")
	}
	if item.CartID != cart.ID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return item, nil
}

// insertOrMergeLine inserts a new cart line under a savepoint. When a
// concurrent AddItem wins the insert race, the unique violation is rolled
// back to the savepoint so the aborted statement cannot poison the enclosing
// transaction, then the quantity merges into the row that won.
func (s *service) insertOrMergeLine(ctx context.Context, tx *gorm.DB, repo *Repository, cartID uuid.UUID, product *models.Product, quantity int) error {
	if err := tx.SavePoint("cart_line_insert").Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: savepoint")
	}

	item := &models.CartItem{
		CartID:    cartID,
		ProductID: product.ID,
		Quantity:  quantity,
		UnitPrice: product.Price,
	}
	_, err := repo.CreateItem(ctx, item)
	if err == nil {
		return nil
	}
	if !db.IsUniqueViolation(err, "idx_cart_items_cart_product") {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert cart item")
	}
	if err := tx.RollbackTo("cart_line_insert").Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: rollback savepoint")
	}
	return s.mergeAfterRace(ctx, repo, cartID, product.ID, quantity, product.StockQuantity)
}

// mergeAfterRace folds the requested quantity into the line created by a
// concurrent AddItem, re-checking stock against the merged quantity.
func (s *service) mergeAfterRace(ctx context.Context, repo *Repository, cartID, productID uuid.UUID, quantity, stock int) error {
	existing, err := repo.FindItem(ctx, cartID, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reload cart item")
	}
	desired := existing.Quantity + quantity
	if stock < desired {
		return insufficientStock(productID, desired, stock)
	}
	if err := repo.UpdateItemQuantity(ctx, existing.ID, desired); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: merge cart item")
	}
	return nil
}

func (s *service) buildDTO(ctx context.Context, cart *models.Cart) (*CartDTO, error) {
	names := make(map[uuid.UUID]string, len(cart.Items))
	for _, item := range cart.Items {
		if _, ok := names[item.ProductID]; ok {
			continue
		}
		product, err := s.products.FindByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
		}
		names[item.ProductID] = product.Name
	}
	dto := toCartDTO(cart, names)
	return &dto, nil
}

func insufficientStock(productID uuid.UUID, requested, available int) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").WithDetails(map[string]any{
		"product_id": productID,
		"requested":  requested,
		"available":  available,
	})
}
