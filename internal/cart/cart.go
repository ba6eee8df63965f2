// Package cart stores shopping carts per owner and renders them against the
// live catalog. An owner is a user id or a "guest:<uuid>" key.
package cart

import (
	"strings"
	"time"

	"github.com/fjod/natal_store/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	// MaxQuantity caps a single cart line.
	MaxQuantity = 99

	guestPrefix = "guest:"
)

// Cart is the stored form: product references only, no prices.
type Cart struct {
	ID        string    `bson:"_id,omitempty" json:"-"`
	OwnerID   string    `bson:"owner_id" json:"owner_id"`
	Items     []Item    `bson:"items" json:"items"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

type Item struct {
	ProductID int64     `bson:"product_id" json:"product_id"`
	Quantity  int32     `bson:"quantity" json:"quantity"`
	AddedAt   time.Time `bson:"added_at" json:"added_at"`
}

func (c *Cart) quantityOf(productID int64) int32 {
	for _, item := range c.Items {
		if item.ProductID == productID {
			return item.Quantity
		}
	}
	return 0
}

// Line is a cart item priced with current catalog data.
type Line struct {
	Product            *domain.Product `json:"product"`
	Quantity           int32           `json:"quantity"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	DiscountPercentage int             `json:"discount_percentage,omitempty"`
	Subtotal           decimal.Decimal `json:"subtotal"`
}

type View struct {
	OwnerID  string          `json:"owner_id"`
	Items    []Line          `json:"items"`
	Count    int32           `json:"count"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// IsEmpty reports whether the view has no purchasable lines.
func (v *View) IsEmpty() bool {
	return len(v.Items) == 0
}

// GuestOwner returns the owner key for an anonymous visitor id.
func GuestOwner(guestID string) string {
	return guestPrefix + guestID
}

func IsGuestOwner(owner string) bool {
	return strings.HasPrefix(owner, guestPrefix)
}
