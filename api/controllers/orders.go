package controllers

import (
	"net/http"
	"strings"

	"github.com/orderflow/orderflow-backend/api/responses"
	"github.com/orderflow/orderflow-backend/api/validators"
	ordersvc "github.com/orderflow/orderflow-backend/internal/orders"
	"github.com/orderflow/orderflow-backend/pkg/enums"
	pkgerrors "github.com/orderflow/orderflow-backend/pkg/errors"
	"github.com/orderflow/orderflow-backend/pkg/logger"
	"github.com/orderflow/orderflow-backend/pkg/pagination"
)

type createOrderRequest struct {
	DeliveryAddress string  `json:"delivery_address" validate:"required"`
	PaymentMethod   string  `json:"payment_method" validate:"required"`
	Notes           *string `json:"notes,omitempty"`
}

// OrderCreate places an order from the caller's cart.
func OrderCreate(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(strings.ToUpper(strings.TrimSpace(payload.PaymentMethod)))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment_method"))
			return
		}

		order, err := svc.CreateOrder(r.Context(), userID, ordersvc.CreateOrderInput{
			DeliveryAddress: validators.TrimToLen(payload.DeliveryAddress, validators.MaxAddressLen),
			Notes:           payload.Notes,
			PaymentMethod:   method,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// OrderConfirmCOD confirms a pending cash on delivery order.
func OrderConfirmCOD(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}

		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.ConfirmCODOrder(r.Context(), userID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

// OrderDetail returns one of the caller's orders.
func OrderDetail(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}

		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetOrder(r.Context(), userID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

// OrderList returns the caller's orders, newest first.
func OrderList(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}

		page, err := validators.ParseQueryInt(r, "page", 0, 0, 1_000_000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		size, err := validators.ParseQueryInt(r, "size", pagination.DefaultSize, 1, pagination.MaxSize)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListUserOrders(r.Context(), userID, pagination.Params{Page: page, Size: size})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
