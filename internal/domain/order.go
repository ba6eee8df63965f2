package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "Pendente"
	OrderPaid      OrderStatus = "Pago"
	OrderShipped   OrderStatus = "Enviado"
	OrderDelivered OrderStatus = "Entregue"
	OrderCancelled OrderStatus = "Cancelado"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending: {OrderPaid, OrderCancelled},
	OrderPaid:    {OrderShipped, OrderCancelled},
	OrderShipped: {OrderDelivered},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderPaid, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

// CanTransitionTo reports whether an order may move from s to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// HoldsStock reports whether stock for the order has already left the shelf.
func (s OrderStatus) HoldsStock() bool {
	return s == OrderPaid || s == OrderShipped
}

type PaymentMethod string

const (
	PaymentPix    PaymentMethod = "Pix"
	PaymentCard   PaymentMethod = "Cartão de Crédito"
	PaymentBoleto PaymentMethod = "Boleto"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentPix || m == PaymentCard || m == PaymentBoleto
}

type OrderItem struct {
	ProductID     int64           `json:"product_id"`
	Name          string          `json:"name"`
	Image         string          `json:"image"`
	Quantity      int32           `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	OriginalPrice decimal.Decimal `json:"original_price"`
	Subtotal      decimal.Decimal `json:"subtotal"`
}

type Order struct {
	ID              uuid.UUID       `json:"id"`
	IdempotencyKey  string          `json:"-"`
	UserID          string          `json:"user_id"`
	UserName        string          `json:"user_name"`
	UserEmail       string          `json:"user_email"`
	Items           []OrderItem     `json:"items"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Shipping        decimal.Decimal `json:"shipping"`
	Discount        decimal.Decimal `json:"discount"`
	Total           decimal.Decimal `json:"total"`
	Status          OrderStatus     `json:"status"`
	ShippingAddress string          `json:"shipping_address"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	PaymentID       string          `json:"payment_id,omitempty"`
	CreatedAt       time.Time       `json:"date"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ShortID is the upper-cased first block of the id, as shown to shoppers.
func (o *Order) ShortID() string {
	return strings.ToUpper(o.ID.String()[:8])
}

// ItemCount is the sum of quantities across the order lines.
func (o *Order) ItemCount() int32 {
	var n int32
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}
