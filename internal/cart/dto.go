package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orderflow/orderflow-backend/pkg/db/models"
)

// ItemDTO is one product line inside the cart view.
type ItemDTO struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// CartDTO is the cart view served to clients. Totals are always recomputed
// from the lines, never stored.
type CartDTO struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"user_id"`
	Items       []ItemDTO       `json:"items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	ItemCount   int             `json:"item_count"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func toCartDTO(cart *models.Cart, names map[uuid.UUID]string) CartDTO {
	dto := CartDTO{
		ID:          cart.ID,
		UserID:      cart.UserID,
		Items:       make([]ItemDTO, 0, len(cart.Items)),
		TotalAmount: decimal.Zero,
		UpdatedAt:   cart.UpdatedAt,
	}
	for _, item := range cart.Items {
		subtotal := item.Subtotal()
		dto.Items = append(dto.Items, ItemDTO{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: names[item.ProductID],
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Subtotal:    subtotal,
		})
		dto.TotalAmount = dto.TotalAmount.Add(subtotal)
		dto.ItemCount += item.Quantity
	}
	return dto
}
