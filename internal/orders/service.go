package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/orderflow/orderflow-backend/internal/cart"
	"github.com/orderflow/orderflow-backend/internal/catalog"
	"github.com/orderflow/orderflow-backend/pkg/db"
	"github.com/orderflow/orderflow-backend/pkg/db/models"
	"github.com/orderflow/orderflow-backend/pkg/enums"
	pkgerrors "github.com/orderflow/orderflow-backend/pkg/errors"
	"github.com/orderflow/orderflow-backend/pkg/logger"
	"github.com/orderflow/orderflow-backend/pkg/pagination"
)

// Service exposes the order workflow: placement from the cart and cash on
// delivery confirmation, the single point where stock is consumed.
type Service interface {
	CreateOrder(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*OrderDTO, error)
	ConfirmCODOrder(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	ListUserOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Result[OrderDTO], error)
}

// cacheInvalidator drops catalog cache entries after stock changes commit.
type cacheInvalidator interface {
	InvalidateProduct(ctx context.Context, productID string)
}

// confirmationNotifier fans out order.confirmed events, fire and forget.
type confirmationNotifier interface {
	OrderConfirmed(order *models.Order)
}

type service struct {
	repo     *Repository
	dbClient *db.Client
	carts    *cart.Repository
	products *catalog.Repository
	cache    cacheInvalidator
	notifier confirmationNotifier
	logg     *logger.Logger
}

// NewService constructs the order service. Cache and notifier may be nil;
// both are post-commit side effects, not workflow participants.
func NewService(
	repo *Repository,
	dbClient *db.Client,
	carts *cart.Repository,
	products *catalog.Repository,
	cache cacheInvalidator,
	notifier confirmationNotifier,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{
		repo:     repo,
		dbClient: dbClient,
		carts:    carts,
		products: products,
		cache:    cache,
		notifier: notifier,
		logg:     logg,
	}, nil
}

// CreateOrder places an order from the caller's cart. Validation, the order
// and item writes, and the cart clear run in one transaction. Stock is only
// validated here, not decremented; consumption happens at confirmation.
func (s *service) CreateOrder(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*OrderDTO, error) {
	if strings.TrimSpace(input.DeliveryAddress) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery_address is required")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}

	var orderID uuid.UUID
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txCarts := s.carts.WithTx(tx)
		txProducts := s.products.WithTx(tx)
		txOrders := s.repo.WithTx(tx)

		userCart, err := txCarts.FindByUserID(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeConflict, "cart is empty")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart")
		}
		if len(userCart.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "cart is empty")
		}

		total := decimal.Zero
		items := make([]models.OrderItem, 0, len(userCart.Items))
		for _, line := range userCart.Items {
			product, err := txProducts.FindByID(ctx, line.ProductID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeConflict, "product no longer exists").
						WithDetails(map[string]any{"product_id": line.ProductID})
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
			}
			if !product.IsActive {
				return pkgerrors.New(pkgerrors.CodeConflict, "product is not available").
					WithDetails(map[string]any{"product_id": line.ProductID})
			}
			if product.StockQuantity < line.Quantity {
				return insufficientStock(line.ProductID, line.Quantity, product.StockQuantity)
			}

			subtotal := line.Subtotal()
			items = append(items, models.OrderItem{
				ProductID:   line.ProductID,
				ProductName: product.Name,
				Quantity:    line.Quantity,
				UnitPrice:   line.UnitPrice,
				Subtotal:    subtotal,
			})
			total = total.Add(subtotal)
		}

		order := &models.Order{
			OrderNumber:   newOrderNumber(),
			UserID:        userID,
			Status:        enums.OrderStatusPending,
			PaymentMethod: input.PaymentMethod,
			TotalAmount:   total,
			DeliveryAddr:  strings.TrimSpace(input.DeliveryAddress),
			Notes:         input.Notes,
			Items:         items,
		}
		created, err := txOrders.Create(ctx, order)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert order")
		}
		orderID = created.ID

		if err := txCarts.DeleteAllItems(ctx, userCart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: clear cart")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.loadDTO(ctx, orderID)
}

// ConfirmCODOrder confirms a pending cash on delivery order and consumes
// stock for every line. The guarded status update is the exactly-once gate;
// a failed decrement rolls back the confirmation entirely.
func (s *service) ConfirmCODOrder(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	var confirmed *models.Order
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txOrders := s.repo.WithTx(tx)
		txProducts := s.products.WithTx(tx)

		order, err := txOrders.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load order")
		}
		if order.UserID != userID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
		}
		if order.PaymentMethod != enums.PaymentMethodCOD {
			return pkgerrors.New(pkgerrors.CodeConflict, "order is not cash on delivery")
		}
		if !order.Status.CanTransitionTo(enums.OrderStatusConfirmed) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not pending").
				WithDetails(map[string]any{"status": order.Status})
		}

		now := time.Now().UTC()
		ok, err := txOrders.ConfirmIfPending(ctx, orderID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: confirm order")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not pending").
				WithDetails(map[string]any{"status": order.Status})
		}

		for _, item := range order.Items {
			decremented, err := txProducts.DecrementStock(ctx, item.ProductID, item.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: decrement stock")
			}
			if !decremented {
				return insufficientStock(item.ProductID, item.Quantity, 0)
			}
		}

		order.Status = enums.OrderStatusConfirmed
		order.ConfirmedAt = &now
		confirmed = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The transaction has committed; evict stale stock from the cache before
	// returning so the next catalog read observes the decrement.
	if s.cache != nil {
		for _, item := range confirmed.Items {
			s.cache.InvalidateProduct(ctx, item.ProductID.String())
		}
	}
	if s.notifier != nil {
		s.notifier.OrderConfirmed(confirmed)
	}

	dto := toDTO(confirmed)
	return &dto, nil
}

// GetOrder returns one of the caller's orders. Another user's order reads as
// absent.
func (s *service) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load order")
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	dto := toDTO(order)
	return &dto, nil
}

// ListUserOrders returns the caller's orders, newest first.
func (s *service) ListUserOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Result[OrderDTO], error) {
	params = pagination.Normalize(params.Page, params.Size, "", "")

	rows, total, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list orders")
	}
	return &pagination.Result[OrderDTO]{
		Items:      toDTOs(rows),
		TotalCount: total,
		Page:       params.Page,
		Size:       params.Size,
	}, nil
}

func (s *service) loadDTO(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reload order")
	}
	dto := toDTO(order)
	return &dto, nil
}

// newOrderNumber builds a collision-resistant human-legible order number from
// a millisecond timestamp plus a random suffix.
func newOrderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return fmt.Sprintf("ORD-%d-%s", time.Now().UnixMilli(), suffix)
}

func insufficientStock(productID uuid.UUID, requested, available int) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").WithDetails(map[string]any{
		"product_id": productID,
		"requested":  requested,
		"available":  available,
	})
}
