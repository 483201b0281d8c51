package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orderflow/orderflow-backend/pkg/db/models"
	"github.com/orderflow/orderflow-backend/pkg/enums"
)

// ItemDTO is one immutable line of a placed order.
type ItemDTO struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// OrderDTO is the order view served to clients.
type OrderDTO struct {
	ID              uuid.UUID           `json:"id"`
	OrderNumber     string              `json:"order_number"`
	UserID          uuid.UUID           `json:"user_id"`
	Status          enums.OrderStatus   `json:"status"`
	PaymentMethod   enums.PaymentMethod `json:"payment_method"`
	TotalAmount     decimal.Decimal     `json:"total_amount"`
	DeliveryAddress string              `json:"delivery_address"`
	Notes           *string             `json:"notes,omitempty"`
	Items           []ItemDTO           `json:"items"`
	ConfirmedAt     *time.Time          `json:"confirmed_at,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
}

// CreateOrderInput carries the fields accepted when placing an order.
type CreateOrderInput struct {
	DeliveryAddress string
	Notes           *string
	PaymentMethod   enums.PaymentMethod
}

func toDTO(order *models.Order) OrderDTO {
	dto := OrderDTO{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		UserID:          order.UserID,
		Status:          order.Status,
		PaymentMethod:   order.PaymentMethod,
		TotalAmount:     order.TotalAmount,
		DeliveryAddress: order.DeliveryAddr,
		Notes:           order.Notes,
		Items:           make([]ItemDTO, 0, len(order.Items)),
		ConfirmedAt:     order.ConfirmedAt,
		CreatedAt:       order.CreatedAt,
	}
	for _, item := range order.Items {
		dto.Items = append(dto.Items, ItemDTO{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Subtotal:    item.Subtotal,
		})
	}
	return dto
}

func toDTOs(rows []models.Order) []OrderDTO {
	dtos := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, toDTO(&rows[i]))
	}
	return dtos
}
