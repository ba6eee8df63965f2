package http

import (
	"net/http"
	"strings"

	"github.com/fjod/natal_store/internal/checkout"
	"github.com/go-chi/chi/v5"
)

const HeaderIdempotencyKey = "Idempotency-Key"

type OrderHandler struct {
	checkout CheckoutService
	orders   OrderService
}

func NewOrderHandler(checkout CheckoutService, orders OrderService) *OrderHandler {
	return &OrderHandler{checkout: checkout, orders: orders}
}

// POST /api/v1/checkout
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkout.Request
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	req.IdempotencyKey = strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey))

	order, err := h.checkout.PlaceOrder(r.Context(), userFrom(r.Context()), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, order)
}

// GET /api/v1/orders
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListByUser(r.Context(), userFrom(r.Context()).ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

// GET /api/v1/orders/{order_id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.GetForUser(r.Context(), userFrom(r.Context()).ID, chi.URLParam(r, "order_id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}
