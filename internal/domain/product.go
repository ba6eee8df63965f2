package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// CategoryAll is the pseudo-category that matches every product.
const CategoryAll = "Todas"

// StandardCategories lists the shop's built-in categories, CategoryAll first.
var StandardCategories = []string{
	CategoryAll,
	"Árvores",
	"Luzes",
	"Mesa",
	"Fachada",
	"Infláveis",
	"Acessórios",
}

type Review struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Comment string `json:"comment"`
	Rating  int    `json:"rating"`
	Date    string `json:"date"`
}

type Product struct {
	ID             int64            `json:"id"`
	Name           string           `json:"name"`
	Price          decimal.Decimal  `json:"price"`
	OldPrice       *decimal.Decimal `json:"old_price,omitempty"`
	Image          string           `json:"image"`
	Images         []string         `json:"images"`
	Category       string           `json:"category"`
	IsFeatured     bool             `json:"is_featured"`
	Rating         float64          `json:"rating"`
	Description    string           `json:"description"`
	Specifications []string         `json:"specifications"`
	Reviews        []Review         `json:"reviews"`
	Stock          int32            `json:"stock"`
	IsActive       bool             `json:"is_active"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// DiscountPercent is the rounded percentage between OldPrice and Price,
// or 0 when the product is not marked down.
func (p *Product) DiscountPercent() int {
	if p.OldPrice == nil || !p.OldPrice.IsPositive() || !p.OldPrice.GreaterThan(p.Price) {
		return 0
	}
	pct := p.OldPrice.Sub(p.Price).Div(*p.OldPrice).Mul(decimal.NewFromInt(100))
	return int(pct.Round(0).IntPart())
}

// MarshalJSON adds the computed discount_percentage to the stored fields.
func (p Product) MarshalJSON() ([]byte, error) {
	type stored Product
	return json.Marshal(struct {
		stored
		DiscountPercentage int `json:"discount_percentage"`
	}{stored(p), p.DiscountPercent()})
}
