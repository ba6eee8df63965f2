package domain

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

type Promotion struct {
	ID                 int64     `json:"id"`
	Title              string    `json:"title"`
	DiscountPercentage int       `json:"discount_percentage"`
	StartDate          time.Time `json:"start_date"`
	EndDate            time.Time `json:"end_date"`
	Active             bool      `json:"active"`
	BannerURL          string    `json:"banner_url,omitempty"`
	ProductIDs         []int64   `json:"product_ids"`
	CreatedAt          time.Time `json:"created_at"`
}

// IsRunning reports whether the promotion applies at instant now.
func (p *Promotion) IsRunning(now time.Time) bool {
	return p.Active && !now.Before(p.StartDate) && !now.After(p.EndDate)
}

func (p *Promotion) Covers(productID int64) bool {
	return slices.Contains(p.ProductIDs, productID)
}

// ApplyDiscount takes pct percent off price, rounded to cents.
func ApplyDiscount(price decimal.Decimal, pct int) decimal.Decimal {
	if pct <= 0 {
		return price
	}
	factor := decimal.NewFromInt(int64(100 - pct)).Div(decimal.NewFromInt(100))
	return price.Mul(factor).Round(2)
}
